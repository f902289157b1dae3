package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// RejectedError is a client error response, which is not retried
type RejectedError struct {
	StatusCode int
	Reason     string
}

// ServerError is a server error response which persisted after retries
type ServerError struct {
	StatusCode int
	Reason     string
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Limit on an error body read for its reason
const maxErrorBody = 64 << 10

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected (%d): %s", e.StatusCode, e.Reason)
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Reason)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// responseError returns the error for a response with a 4xx or 5xx status
func responseError(resp *http.Response) error {
	reason := readReason(resp)
	if resp.StatusCode >= http.StatusInternalServerError {
		return &ServerError{StatusCode: resp.StatusCode, Reason: reason}
	}
	return &RejectedError{StatusCode: resp.StatusCode, Reason: reason}
}

// readReason returns the reason of a JSON error body, the body text, or
// the status text
func readReason(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Reason string `json:"reason"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Reason != "" {
			return body.Reason
		} else if body.Error != "" {
			return body.Error
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
