package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	// Packages
	units "github.com/docker/go-units"
	uuid "github.com/google/uuid"
	otel "github.com/mutablelogic/go-client/pkg/otel"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	upload "github.com/mutablelogic/go-upload"
	hook "github.com/mutablelogic/go-upload/pkg/hook"
	metrics "github.com/mutablelogic/go-upload/pkg/metrics"
	outcome "github.com/mutablelogic/go-upload/pkg/outcome"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	status "github.com/mutablelogic/go-upload/pkg/status"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Manager is the upload protocol engine
type Manager struct {
	opts
	locks     locks
	status    *status.Service
	finalizer upload.Hook
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a new upload manager. A store is required.
func New(ctx context.Context, opts ...Opt) (*Manager, error) {
	self := new(Manager)

	// Apply options
	if opt, err := applyOpts(opts); err != nil {
		return nil, err
	} else {
		self.opts = opt
	}
	if self.store == nil {
		return nil, errors.New("missing store")
	}

	// Outcomes are read and written through the upload metadata
	outcomes := outcome.New(self.store)
	self.status = status.New(outcomes)
	if self.hook != nil {
		self.finalizer = self.hook
	} else if h, err := hook.New(self.processor, outcomes,
		hook.WithTimeout(self.hookTimeout),
		hook.WithLogger(self.logger),
		hook.WithTracer(self.tracer),
	); err != nil {
		return nil, errors.Join(err, self.store.Close())
	} else {
		self.finalizer = h
	}

	// Return success
	return self, nil
}

// Close the store
func (manager *Manager) Close() error {
	return manager.store.Close()
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Store returns the chunk store
func (manager *Manager) Store() upload.Store {
	return manager.store
}

// MaxSize returns the largest accepted declared length
func (manager *Manager) MaxSize() int64 {
	return manager.maxSize
}

// ContentTypes returns the accepted file types
func (manager *Manager) ContentTypes() []string {
	return slices.Clone(manager.contentTypes)
}

// Validate returns the verdict on a create request: the length must be
// positive, the processing keys absent, the file type accepted and the length
// within the maximum.
func (manager *Manager) Validate(req schema.CreateUploadRequest) schema.Result {
	if req.Length <= 0 {
		return schema.Rejected(http.StatusBadRequest, fmt.Sprintf("upload length must be positive, got %d", req.Length))
	}
	for _, key := range schema.OutcomeMetaKeys {
		if _, exists := req.Meta[key]; exists {
			return schema.Rejected(http.StatusBadRequest, fmt.Sprintf("metadata key %q is reserved", key))
		}
	}
	filetype := req.Meta[schema.MetaFiletype]
	if filetype == "" {
		return schema.Rejected(http.StatusBadRequest, "missing filetype in upload metadata")
	}
	if mediatype, _, err := mime.ParseMediaType(filetype); err != nil || !slices.Contains(manager.contentTypes, mediatype) {
		return schema.Rejected(http.StatusBadRequest, fmt.Sprintf("file type %q is not accepted, expected %s", filetype, strings.Join(manager.contentTypes, " or ")))
	}
	if req.Length > manager.maxSize {
		return schema.Rejected(http.StatusRequestEntityTooLarge, fmt.Sprintf("file size %s exceeds the maximum of %s", units.BytesSize(float64(req.Length)), units.BytesSize(float64(manager.maxSize))))
	}
	return schema.Accepted()
}

// CreateUpload validates the request and creates an upload with a new id
func (manager *Manager) CreateUpload(ctx context.Context, req schema.CreateUploadRequest) (_ *schema.Upload, result error) {
	// OTEL span
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("CreateUpload"))
	defer func() { endFunc(result) }()

	// Validate
	if verdict := manager.Validate(req); !verdict.Accepted() {
		metrics.UploadRejected(strconv.Itoa(verdict.StatusCode))
		manager.logger.InfoContext(child, "upload rejected", slog.Int("code", verdict.StatusCode), slog.String("reason", verdict.Reason))
		return nil, verdict.Err()
	}

	// Create the upload
	u, err := manager.store.CreateUpload(child, schema.Upload{
		Id:     newId(),
		Length: req.Length,
		Meta:   req.Meta,
	})
	if err != nil {
		return nil, err
	}
	metrics.UploadCreated()
	manager.logger.InfoContext(child, "upload created", slog.String("upload", u.Id), slog.String("filename", u.Filename()), slog.Int64("length", u.Length))

	// Return success
	return u, nil
}

// GetUpload returns an upload with its current offset
func (manager *Manager) GetUpload(ctx context.Context, id string) (_ *schema.Upload, result error) {
	// OTEL span
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("GetUpload"))
	defer func() { endFunc(result) }()

	// Run the store
	return manager.store.GetUpload(child, id)
}

// AppendChunk stores the bytes of body at offset, which must equal the stored
// offset. The chunk which completes the upload also assembles the object and
// runs the finalization hook before returning. An empty body is a no-op, so
// repeating the final request returns the final offset without finalizing
// again.
func (manager *Manager) AppendChunk(ctx context.Context, id string, offset int64, body io.Reader) (_ *schema.Upload, result error) {
	// OTEL span
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("AppendChunk"))
	defer func() { endFunc(result) }()

	// Serialize with other operations on the same upload
	unlock := manager.locks.lock(id)
	defer unlock()

	u, err := manager.store.GetUpload(child, id)
	if err != nil {
		return nil, err
	}
	if offset != u.Offset {
		return nil, httpresponse.ErrConflict.Withf("offset %d does not match upload offset %d", offset, u.Offset)
	}

	// Store the chunk
	n, err := manager.store.WriteChunk(child, id, offset, body, u.Remaining())
	if err != nil {
		return nil, err
	} else if n == 0 {
		return u, nil
	}
	metrics.ChunkStored(n)
	u.Offset += n

	// Not yet complete
	if !u.Complete() {
		return manager.store.UpdateUpload(child, *u)
	}

	// Assemble the object, then record completion
	if err := manager.store.Commit(child, *u); err != nil {
		return nil, err
	}
	u, err = manager.store.UpdateUpload(child, *u)
	if err != nil {
		return nil, err
	}
	metrics.UploadCompleted()
	manager.logger.InfoContext(child, "upload complete", slog.String("upload", u.Id), slog.Int64("length", u.Length))

	// Finalize while the lock is held
	manager.finalizer.Finalize(child, u.Clone())

	// Return the upload as stored after finalization
	if finalized, err := manager.store.GetUpload(child, id); err == nil {
		return finalized, nil
	}
	return u, nil
}

// DeleteUpload abandons an upload and removes its stored objects
func (manager *Manager) DeleteUpload(ctx context.Context, id string) (_ *schema.Upload, result error) {
	// OTEL span
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("DeleteUpload"))
	defer func() { endFunc(result) }()

	unlock := manager.locks.lock(id)
	defer unlock()

	u, err := manager.store.DeleteUpload(child, id)
	if err != nil {
		return nil, err
	}
	manager.logger.InfoContext(child, "upload deleted", slog.String("upload", id))
	return u, nil
}

// Status returns the processing status of an upload
func (manager *Manager) Status(ctx context.Context, id string) (_ *schema.Status, result error) {
	// OTEL span
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("Status"))
	defer func() { endFunc(result) }()

	return manager.status.Query(child, id)
}

// Ping returns an error if the store is not accessible
func (manager *Manager) Ping(ctx context.Context) (result error) {
	// OTEL span
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("Ping"))
	defer func() { endFunc(result) }()

	ctx, cancel := context.WithTimeout(child, 5*time.Second)
	defer cancel()
	return manager.store.Ping(ctx)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func newId() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func spanManagerName(op string) string {
	return schema.SchemaName + ".manager." + op
}
