package panel

import (
	"encoding/json"
	"fmt"
	"io"
)

// APIError is one entry of the panel's error payload.
type APIError struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

type errorResponse struct {
	Errors []APIError `json:"errors"`
}

// StatusError is returned when the panel answers with a non-2xx status.
type StatusError struct {
	Path       string
	StatusCode int
	// Errors is the decoded panel payload; empty when the body was not JSON.
	Errors []APIError
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("panel: GET %s: unexpected status %d", e.Path, e.StatusCode)
	if len(e.Errors) > 0 {
		first := e.Errors[0]
		msg += fmt.Sprintf(" (%s: %s)", first.Code, first.Detail)
	}
	return msg
}

// TransportError wraps a failure to get any response from the panel:
// connection refused, TLS failure, request deadline.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("panel: GET %s: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// newStatusError builds a StatusError, decoding the panel error payload from
// body on a best-effort basis.
func newStatusError(path string, code int, body io.Reader) *StatusError {
	se := &StatusError{Path: path, StatusCode: code}
	var payload errorResponse
	if err := json.NewDecoder(body).Decode(&payload); err == nil {
		se.Errors = payload.Errors
	}
	return se
}
