package pipeline

import (
	"encoding/json"
	"io"
	"net/http"

	"trolley/internal/cart"
	dErrors "trolley/pkg/domain-errors"
)

// maxErrorBody bounds how much of an error reply is read for its detail.
const maxErrorBody = 64 << 10

// CartResult is the coupon/cart evaluation shape returned by the search and
// eligibility endpoints.
type CartResult struct {
	EligibleCoupons   []cart.Coupon `json:"eligibleCoupons"`
	IneligibleCoupons []cart.Coupon `json:"ineligibleCoupons"`
	Summary           cart.Summary  `json:"summary"`
}

type orderEnvelope struct {
	Order cart.Order `json:"order"`
}

// DecodeCartResult consumes and closes the response, returning the evaluated
// cart or the server's error detail.
func DecodeCartResult(resp *http.Response) (*CartResult, error) {
	var result CartResult
	if err := decode(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DecodeOrder consumes and closes an order placement response.
func DecodeOrder(resp *http.Response) (*cart.Order, error) {
	var envelope orderEnvelope
	if err := decode(resp, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Order, nil
}

func decode(resp *http.Response, target any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return APIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return dErrors.Wrap(err, dErrors.CodeAPI, "undecodable response body")
	}
	return nil
}

// APIError reads an error reply's {"detail": ...} body defensively: any
// parse failure falls back to the HTTP status text. The response body is
// consumed but not closed, matching the decode helpers that own closing.
func APIError(resp *http.Response) error {
	detail := http.StatusText(resp.StatusCode)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		var payload struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
			detail = payload.Detail
		}
	}
	return dErrors.New(dErrors.CodeAPI, detail)
}
