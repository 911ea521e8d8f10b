// Package webhook defines the boundary between the HTTP gateway and the
// handler that fulfills webhook calls.
package webhook

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// Request is the inbound webhook call as seen by a Handler.
type Request struct {
	// Header is the inbound header set after gateway normalization.
	Header http.Header

	// Body is the parsed payload: map[string]any or []any for JSON and
	// form bodies, nil when the content type was not parsed.
	Body any

	// HTTP is the underlying request. Its body can be read again.
	HTTP *http.Request
}

// Decode stores the body in the value pointed to by v, using JSON field
// mapping for parsed JSON and form bodies alike. When the body was not
// parsed, the raw bytes are read as JSON, whatever the declared content
// type; an empty raw body leaves v untouched.
func (r *Request) Decode(v any) error {
	if r.Body == nil && r.HTTP != nil && r.HTTP.Body != nil {
		return r.decodeRaw(v)
	}
	data, err := json.Marshal(r.Body)
	if err != nil {
		return errors.Wrap(err, "webhook: re-encode body")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "webhook: decode body")
	}
	return nil
}

func (r *Request) decodeRaw(v any) error {
	data, err := io.ReadAll(r.HTTP.Body)
	if err != nil {
		return errors.Wrap(err, "webhook: read body")
	}
	r.HTTP.Body = io.NopCloser(bytes.NewReader(data))

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "webhook: decode raw body")
	}
	return nil
}

// A Handler completes the response for a webhook call. The gateway writes
// nothing on its behalf.
type Handler interface {
	ServeWebhook(w http.ResponseWriter, r *Request)
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(w http.ResponseWriter, r *Request)

// ServeWebhook calls f(w, r).
func (f HandlerFunc) ServeWebhook(w http.ResponseWriter, r *Request) {
	f(w, r)
}
