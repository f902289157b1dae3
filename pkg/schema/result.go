package schema

import (
	"net/http"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Result is the verdict on a protocol request. The zero value is Accepted;
// a rejection carries the status code and a human-readable reason.
type Result struct {
	StatusCode int    `json:"code,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// Accepted returns an accepting result
func Accepted() Result {
	return Result{}
}

// Rejected returns a rejecting result with a client-visible reason
func Rejected(code int, reason string) Result {
	if code == 0 {
		code = http.StatusBadRequest
	}
	return Result{StatusCode: code, Reason: reason}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Accepted is true when the request may proceed
func (r Result) Accepted() bool {
	return r.StatusCode == 0
}

// Err returns nil when accepted, or an error carrying the status code
func (r Result) Err() error {
	if r.Accepted() {
		return nil
	}
	return httpresponse.Err(r.StatusCode).With(r.Reason)
}
