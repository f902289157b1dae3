// Package outcome reads and writes the finalization outcome of an upload,
// held in the processing_* keys of the upload metadata.
package outcome

import (
	"context"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// MetaStore is the part of the chunk store the outcome store needs
type MetaStore interface {
	GetUpload(context.Context, string) (*schema.Upload, error)
	UpdateUpload(context.Context, schema.Upload) (*schema.Upload, error)
}

// Store is a narrow accessor over the outcome keys of upload metadata
type Store struct {
	store MetaStore
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func New(store MetaStore) *Store {
	return &Store{store: store}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Get returns the outcome of an upload, or a not found error
func (s *Store) Get(ctx context.Context, id string) (*schema.Outcome, error) {
	upload, err := s.store.GetUpload(ctx, id)
	if err != nil {
		return nil, err
	}
	outcome := upload.Outcome()
	return &outcome, nil
}

// Set records the outcome of an upload. All outcome keys are written in one
// update of the upload document. A terminal outcome is never replaced.
func (s *Store) Set(ctx context.Context, id string, outcome schema.Outcome) error {
	upload, err := s.store.GetUpload(ctx, id)
	if err != nil {
		return err
	}
	if current := upload.Outcome(); current.Terminal() {
		return httpresponse.ErrConflict.Withf("upload %q already has outcome %q", id, current.Status)
	}
	upload.Meta = outcome.Apply(upload.Meta)
	_, err = s.store.UpdateUpload(ctx, *upload)
	return err
}
