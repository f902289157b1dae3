package schema

import (
	"time"

	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// OutcomeStatus is the processing state of an upload
type OutcomeStatus string

// Outcome is the logical view over the processing_* metadata keys. Success and
// Error are terminal.
type Outcome struct {
	Status      OutcomeStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	CompletedAt time.Time     `json:"completedAt,omitzero"`
}

// Status is the response of the status read path
type Status struct {
	Status      OutcomeStatus `json:"status"`
	UploadId    string        `json:"uploadId"`
	Error       string        `json:"error,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	StatusUnknown OutcomeStatus = "unknown"
	StatusSuccess OutcomeStatus = "success"
	StatusError   OutcomeStatus = "error"
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewSuccess returns a success outcome completed at the given time
func NewSuccess(at time.Time) Outcome {
	return Outcome{Status: StatusSuccess, CompletedAt: at.UTC().Truncate(time.Second)}
}

// NewError returns an error outcome recorded at the given time
func NewError(message string, at time.Time) Outcome {
	return Outcome{Status: StatusError, Error: message, CompletedAt: at.UTC().Truncate(time.Second)}
}

// OutcomeFromMeta derives the outcome from upload metadata. An error message
// takes precedence over a success status.
func OutcomeFromMeta(meta UploadMeta) Outcome {
	var completedAt time.Time
	if value, exists := meta[MetaProcessingCompletedAt]; exists {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			completedAt = t
		}
	}
	if message, exists := meta[MetaProcessingError]; exists {
		return Outcome{Status: StatusError, Error: message, CompletedAt: completedAt}
	}
	if OutcomeStatus(meta[MetaProcessingStatus]) == StatusSuccess {
		return Outcome{Status: StatusSuccess, CompletedAt: completedAt}
	}
	return Outcome{Status: StatusUnknown}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Terminal is true for success and error outcomes
func (o Outcome) Terminal() bool {
	return o.Status == StatusSuccess || o.Status == StatusError
}

// Meta returns the processing_* keys for the outcome
func (o Outcome) Meta() UploadMeta {
	return o.Apply(nil)
}

// Apply replaces the processing_* keys in the metadata with those of the
// outcome and returns the metadata
func (o Outcome) Apply(meta UploadMeta) UploadMeta {
	if meta == nil {
		meta = make(UploadMeta, 3)
	}
	delete(meta, MetaProcessingStatus)
	delete(meta, MetaProcessingError)
	delete(meta, MetaProcessingCompletedAt)
	if o.Terminal() {
		meta[MetaProcessingStatus] = string(o.Status)
	}
	if o.Status == StatusError {
		meta[MetaProcessingError] = o.Error
	}
	if !o.CompletedAt.IsZero() {
		meta[MetaProcessingCompletedAt] = o.CompletedAt.UTC().Format(time.RFC3339)
	}
	return meta
}

// StatusFor projects the outcome into a status response for an upload
func (o Outcome) StatusFor(id string) Status {
	status := Status{Status: o.Status, UploadId: id}
	if status.Status == "" {
		status.Status = StatusUnknown
	}
	if o.Status == StatusError {
		status.Error = o.Error
	}
	if o.Terminal() && !o.CompletedAt.IsZero() {
		status.CompletedAt = types.Ptr(o.CompletedAt)
	}
	return status
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (o Outcome) String() string {
	return types.Stringify(o)
}

func (s Status) String() string {
	return types.Stringify(s)
}
