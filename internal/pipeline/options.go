package pipeline

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"

	dErrors "trolley/pkg/domain-errors"
)

// Options shapes a single request. Bodies are captured as bytes up front so
// the 401 retry can replay them unchanged.
type Options struct {
	// Method defaults to GET, or POST when a body is present.
	Method string
	Header http.Header
	// JSON is marshaled into the body with an application/json content type.
	JSON any
	// Form is a multipart payload. Its boundary-carrying content type
	// always wins over anything in Header.
	Form *Form
	// Body is a raw payload for callers that encode themselves.
	Body []byte
}

func (o Options) method() string {
	if o.Method != "" {
		return o.Method
	}
	if o.JSON != nil || o.Form != nil || len(o.Body) > 0 {
		return http.MethodPost
	}
	return http.MethodGet
}

// payload returns the body bytes and, when the pipeline must own the
// content type, the value to force. An empty content type means the
// caller's headers stand.
func (o Options) payload() ([]byte, string, error) {
	switch {
	case o.Form != nil:
		return o.Form.data, o.Form.contentType, nil
	case o.JSON != nil:
		data, err := json.Marshal(o.JSON)
		if err != nil {
			return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "encoding request body")
		}
		return data, "application/json", nil
	default:
		return o.Body, "", nil
	}
}

// Form is a fully assembled multipart payload.
type Form struct {
	contentType string
	data        []byte
}

// NewForm assembles a multipart form through build. The writer's generated
// boundary travels with the payload, so the pipeline never has to invent a
// content type for it.
func NewForm(build func(w *multipart.Writer) error) (*Form, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := build(w); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &Form{contentType: w.FormDataContentType(), data: buf.Bytes()}, nil
}
