package httpclient

import (
	"fmt"

	// Packages
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// State is the position of one file upload in its lifecycle
type State uint

// Progress is reported on every state change and after every chunk
type Progress struct {
	Name      string
	Id        string
	State     State
	BytesSent int64
	Length    int64
}

// Result is the final state of one file upload
type Result struct {
	Name   string
	Id     string
	State  State
	Length int64
	Status *schema.Status
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	Idle State = iota
	Discovering
	Transferring
	Completed
	Polling
	Succeeded
	Failed
	GaveUp
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Terminal is true when no further transition happens
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == GaveUp
}

// Fraction returns the share of bytes sent, between zero and one
func (p Progress) Fraction() float64 {
	if p.Length <= 0 {
		return 0
	}
	return float64(p.BytesSent) / float64(p.Length)
}

// Message describes the outcome for display
func (r Result) Message() string {
	switch r.State {
	case Succeeded:
		return "processed successfully"
	case Failed:
		if r.Status != nil && r.Status.Error != "" {
			return r.Status.Error
		}
		return "processing failed"
	case GaveUp:
		return "processing status unknown"
	default:
		return r.State.String()
	}
}

///////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Discovering:
		return "discovering"
	case Transferring:
		return "transferring"
	case Completed:
		return "completed"
	case Polling:
		return "polling"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case GaveUp:
		return "gave up"
	default:
		return fmt.Sprintf("state(%d)", uint(s))
	}
}
