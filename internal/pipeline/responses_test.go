package pipeline

import (
	"io"
	"net/http"
	"strings"
	"testing"

	dErrors "trolley/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCartResult(t *testing.T) {
	resp := reply(http.StatusOK, `{
		"eligibleCoupons": [{"code": "SAVE10", "discount": 10}],
		"ineligibleCoupons": [{"code": "BULK", "reason": "minimum not met"}],
		"summary": {"subtotal": 42.5, "discount": 10, "total": 32.5, "itemCount": 3}
	}`)

	result, err := DecodeCartResult(resp)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", result.EligibleCoupons[0].Code)
	assert.Equal(t, "minimum not met", result.IneligibleCoupons[0].Reason)
	assert.Equal(t, 32.5, result.Summary.Total)
}

func TestDecodeOrder(t *testing.T) {
	resp := reply(http.StatusCreated, `{"order": {"id": "ord-1", "status": "placed", "total": 32.5}}`)

	order, err := DecodeOrder(resp)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, "placed", order.Status)
}

func TestDecodeSurfacesServerDetail(t *testing.T) {
	resp := reply(http.StatusConflict, `{"detail": "coupon already applied"}`)

	_, err := DecodeCartResult(resp)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAPI))
	assert.EqualError(t, err, "coupon already applied")
}

func TestDecodeFallsBackToStatusText(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "<html>bad gateway</html>"},
		{"empty detail", `{"detail": ""}`},
		{"no body", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeOrder(reply(http.StatusBadGateway, tc.body))
			require.Error(t, err)
			assert.EqualError(t, err, "Bad Gateway")
		})
	}
}

func TestDecodeRejectsUndecodableSuccessBody(t *testing.T) {
	_, err := DecodeCartResult(reply(http.StatusOK, "{truncated"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAPI))
}

func TestAPIErrorBoundsBodyRead(t *testing.T) {
	huge := strings.Repeat("x", maxErrorBody+1024)
	resp := &http.Response{
		StatusCode: http.StatusInternalServerError,
		Body:       io.NopCloser(strings.NewReader(huge)),
	}
	err := APIError(resp)
	assert.EqualError(t, err, "Internal Server Error")
}
