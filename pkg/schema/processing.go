package schema

import (
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// ProcessingRequest is the body posted to the Processing Service. Both the
// storage key and the table name are the upload id.
type ProcessingRequest struct {
	StorageKey   string `json:"storageKey"`
	TableName    string `json:"tableName"`
	DropIfExists bool   `json:"dropIfExists,omitempty"`
	HasHeader    *bool  `json:"hasHeader,omitempty"`
}

// ProcessingResponse is the body returned by the Processing Service. Status
// and Message are accepted from services which report "status":"success"
// instead of a boolean.
type ProcessingResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	TableName string `json:"table_name,omitempty"`
}

// ProcessingKind tags the result of one Processing Service call
type ProcessingKind string

// ProcessingResult is the typed result of one Processing Service call
type ProcessingResult struct {
	Kind    ProcessingKind `json:"kind"`
	Message string         `json:"message,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	ProcessingSucceeded         ProcessingKind = "succeeded"
	ProcessingTimeout           ProcessingKind = "timeout"
	ProcessingConnectionFailed  ProcessingKind = "connection_failed"
	ProcessingRejectedByService ProcessingKind = "rejected"
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewProcessingRequest returns the request for an upload id
func NewProcessingRequest(id string) ProcessingRequest {
	return ProcessingRequest{
		StorageKey: id,
		TableName:  id,
		HasHeader:  types.Ptr(true),
	}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Succeeded reports whether the body signals success
func (r ProcessingResponse) Succeeded() bool {
	return r.Success || (r.Status == "success" && r.Error == "")
}

// Ok is true when the service accepted and processed the upload
func (r ProcessingResult) Ok() bool {
	return r.Kind == ProcessingSucceeded
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (r ProcessingRequest) String() string {
	return types.Stringify(r)
}

func (r ProcessingResult) String() string {
	return types.Stringify(r)
}
