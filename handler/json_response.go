package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrymomot/agencyhub/pkg/validator"
)

// JSONResponse is the envelope of every JSON body.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string                      `json:"code,omitempty"`
	Message string                      `json:"message,omitempty"`
	Details []validator.ValidationError `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
	bare   bool
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	if j.bare {
		return json.NewEncoder(w).Encode(j.body.Data)
	}
	return json.NewEncoder(w).Encode(j.body)
}

type JSONOption func(*jsonResponse)

func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) { r.body.Meta = meta }
}

// WithoutEnvelope renders the data value as the whole body. Use it for
// endpoints whose body shape is fixed by an external contract.
func WithoutEnvelope() JSONOption {
	return func(r *jsonResponse) { r.bare = true }
}

// JSON wraps v in the data field.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: JSONResponse{Data: v}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError renders info as an error body.
func JSONError(info ErrorInfo, opts ...JSONOption) Response {
	r := &jsonResponse{
		status: info.StatusCode,
		body: JSONResponse{Error: &ErrorDetail{
			Code:    info.Key,
			Message: info.Message,
			Details: info.Details,
		}},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Error defers err to the error handler of the wrapped route.
func Error(err error) Response {
	return errorResponse{err: err}
}

type errorResponse struct {
	err error
}

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error { return e.err }
