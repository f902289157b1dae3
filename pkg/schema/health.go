package schema

import (
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// HealthResponse reports the state of the store and the Processing Service
type HealthResponse struct {
	Status    string `json:"status"`
	Storage   string `json:"storage"`
	Processor string `json:"processor"`
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	HealthOk            = "ok"
	HealthDegraded      = "degraded"
	HealthUnavailable   = "unavailable"
	HealthNotConfigured = "not configured"
)

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (r HealthResponse) String() string {
	return types.Stringify(r)
}
