// Package status is the read path for finalization outcomes
package status

import (
	"context"

	// Packages
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// OutcomeReader returns the outcome of an upload, or a not found error
type OutcomeReader interface {
	Get(context.Context, string) (*schema.Outcome, error)
}

// Service maps an upload id to its current processing status. It never
// mutates state and is safe for concurrent use.
type Service struct {
	outcomes OutcomeReader
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func New(outcomes OutcomeReader) *Service {
	return &Service{outcomes: outcomes}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Query returns the status of an upload. An unknown id returns the not found
// error of the store, which is distinct from the unknown status.
func (s *Service) Query(ctx context.Context, id string) (*schema.Status, error) {
	outcome, err := s.outcomes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	status := outcome.StatusFor(id)
	return &status, nil
}
