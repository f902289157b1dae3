package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"time"

	// Packages
	upload "github.com/mutablelogic/go-upload"
	backend "github.com/mutablelogic/go-upload/pkg/backend"
	hook "github.com/mutablelogic/go-upload/pkg/hook"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for upload manager configuration.
type Opt func(*opts) error

type opts struct {
	tracer       trace.Tracer
	logger       *slog.Logger
	store        upload.Store
	maxSize      int64
	contentTypes []string
	processor    upload.Processor
	hookTimeout  time.Duration
	hook         upload.Hook
}

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithTracer sets the tracer used for tracing operations.
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opts) error {
		o.tracer = tracer
		return nil
	}
}

// WithLogger sets the logger for the manager and the finalization hook.
func WithLogger(logger *slog.Logger) Opt {
	return func(o *opts) error {
		if logger == nil {
			return errors.New("logger is nil")
		}
		o.logger = logger
		return nil
	}
}

// WithBackend opens a blob backend (mem://, file://, s3://) as the chunk store.
// The url should be in the format "scheme://bucket/prefix".
func WithBackend(ctx context.Context, url string, backendOpts ...backend.Opt) Opt {
	return func(o *opts) error {
		if o.store != nil {
			return fmt.Errorf("store %q already configured", o.store.Name())
		}
		b, err := backend.NewBlobBackend(ctx, url, backendOpts...)
		if err != nil {
			return err
		}
		o.store = b
		return nil
	}
}

// WithStore sets the chunk store.
func WithStore(store upload.Store) Opt {
	return func(o *opts) error {
		if store == nil {
			return errors.New("store is nil")
		} else if o.store != nil {
			return fmt.Errorf("store %q already configured", o.store.Name())
		}
		o.store = store
		return nil
	}
}

// WithMaxSize sets the largest declared length accepted on create.
func WithMaxSize(size int64) Opt {
	return func(o *opts) error {
		if size <= 0 {
			return fmt.Errorf("maximum upload size must be positive, got %d", size)
		}
		o.maxSize = size
		return nil
	}
}

// WithContentTypes replaces the accepted file types.
func WithContentTypes(types ...string) Opt {
	return func(o *opts) error {
		o.contentTypes = o.contentTypes[:0]
		for _, value := range types {
			mediatype, _, err := mime.ParseMediaType(value)
			if err != nil {
				return fmt.Errorf("content type %q: %w", value, err)
			}
			o.contentTypes = append(o.contentTypes, mediatype)
		}
		if len(o.contentTypes) == 0 {
			return errors.New("at least one content type is required")
		}
		return nil
	}
}

// WithProcessor sets the Processing Service called on completion.
func WithProcessor(processor upload.Processor) Opt {
	return func(o *opts) error {
		o.processor = processor
		return nil
	}
}

// WithHookTimeout bounds the Processing Service call.
func WithHookTimeout(timeout time.Duration) Opt {
	return func(o *opts) error {
		if timeout <= 0 {
			return fmt.Errorf("hook timeout must be positive, got %v", timeout)
		}
		o.hookTimeout = timeout
		return nil
	}
}

// WithHook replaces the finalization hook. The processor and hook timeout
// are then ignored.
func WithHook(h upload.Hook) Opt {
	return func(o *opts) error {
		o.hook = h
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	// Set defaults
	o := opts{
		logger:       slog.Default(),
		maxSize:      schema.DefaultMaxSize,
		contentTypes: []string{schema.DefaultContentType},
		hookTimeout:  hook.DefaultTimeout,
	}

	// Apply options
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}

	// Return success
	return o, nil
}
