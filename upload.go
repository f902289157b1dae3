package upload

import (
	"context"
	"io"
	"net/url"

	// Packages
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// INTERFACES

// Store is durable, resumable storage of upload bytes and metadata
type Store interface {
	io.Closer

	// Name returns the name of the store
	Name() string

	// URL returns the store destination URL, without credentials
	URL() *url.URL

	// Ping returns an error if the store is not accessible
	Ping(context.Context) error

	// CreateUpload persists a new upload. Returns a conflict error if the
	// id already exists.
	CreateUpload(context.Context, schema.Upload) (*schema.Upload, error)

	// GetUpload returns an upload, or a not found error
	GetUpload(context.Context, string) (*schema.Upload, error)

	// UpdateUpload replaces the stored upload document in a single write
	UpdateUpload(context.Context, schema.Upload) (*schema.Upload, error)

	// WriteChunk stores the bytes of one chunk at an offset, reading at most
	// max bytes. Returns the number of bytes stored.
	WriteChunk(ctx context.Context, id string, offset int64, r io.Reader, max int64) (int64, error)

	// Commit assembles the chunks of a complete upload into a single object
	Commit(context.Context, schema.Upload) error

	// ReadUpload returns the assembled object of a complete upload
	ReadUpload(context.Context, string) (io.ReadCloser, error)

	// DeleteUpload removes the upload document, chunks and object
	DeleteUpload(context.Context, string) (*schema.Upload, error)
}

// Hook is invoked synchronously, once per upload, when the final chunk has
// been stored. It must return within a bounded time and report only through
// the upload metadata.
type Hook interface {
	Finalize(context.Context, schema.Upload)
}

// Processor is the external Processing Service
type Processor interface {
	Process(context.Context, schema.ProcessingRequest) schema.ProcessingResult
}
