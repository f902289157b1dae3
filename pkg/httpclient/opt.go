package httpclient

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Packages
	client "github.com/mutablelogic/go-client"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for the upload client.
type Opt func(*opts) error

type opts struct {
	path         string
	chunkSize    int64
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	settle       time.Duration
	interval     time.Duration
	checks       int
	parallel     int
	filetype     string
	resume       ResumeStore
	logger       *slog.Logger
	progress     func(Progress)
	clientOpts   []client.ClientOpt
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	defaultRetryMax     = 5
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 10 * time.Second
	defaultSettle       = time.Second
	defaultChecks       = 1
	defaultParallel     = 4
	defaultResumeSize   = 256
)

///////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithPath sets the path of the upload protocol endpoint, relative to the
// server URL. The default is /files.
func WithPath(path string) Opt {
	return func(o *opts) error {
		if path == "" {
			return errors.New("empty upload path")
		}
		o.path = path
		return nil
	}
}

// WithChunkSize sets the number of bytes sent in each PATCH request.
func WithChunkSize(size int64) Opt {
	return func(o *opts) error {
		if size <= 0 {
			return fmt.Errorf("chunk size must be positive, got %d", size)
		}
		o.chunkSize = size
		return nil
	}
}

// WithRetry sets the number of retries for transport errors and 5xx or 429
// responses, and the bounds of the exponential backoff between them.
func WithRetry(max int, waitMin, waitMax time.Duration) Opt {
	return func(o *opts) error {
		if max < 0 || waitMin < 0 || waitMax < waitMin {
			return fmt.Errorf("invalid retry policy: %d retries, wait %v to %v", max, waitMin, waitMax)
		}
		o.retryMax, o.retryWaitMin, o.retryWaitMax = max, waitMin, waitMax
		return nil
	}
}

// WithPolling sets the delay before the first status check, the number of
// checks made while the status is unknown, and the delay between them.
func WithPolling(settle time.Duration, checks int, interval time.Duration) Opt {
	return func(o *opts) error {
		if settle < 0 || interval < 0 || checks < 1 {
			return fmt.Errorf("invalid polling: settle %v, %d checks every %v", settle, checks, interval)
		}
		o.settle, o.checks, o.interval = settle, checks, interval
		return nil
	}
}

// WithParallel sets the number of files uploaded at once by UploadFiles.
func WithParallel(n int) Opt {
	return func(o *opts) error {
		if n < 1 {
			return fmt.Errorf("parallel uploads must be at least one, got %d", n)
		}
		o.parallel = n
		return nil
	}
}

// WithFiletype sets the declared file type, rather than deriving it from
// the file extension.
func WithFiletype(filetype string) Opt {
	return func(o *opts) error {
		o.filetype = filetype
		return nil
	}
}

// WithResumeStore sets where upload ids are remembered between attempts.
func WithResumeStore(store ResumeStore) Opt {
	return func(o *opts) error {
		if store == nil {
			return errors.New("resume store is nil")
		}
		o.resume = store
		return nil
	}
}

// WithLogger sets the logger, which also receives retry messages.
func WithLogger(logger *slog.Logger) Opt {
	return func(o *opts) error {
		if logger == nil {
			return errors.New("logger is nil")
		}
		o.logger = logger
		return nil
	}
}

// WithProgress sets a callback invoked on every state change and after
// every chunk. It may be called from several goroutines by UploadFiles.
func WithProgress(fn func(Progress)) Opt {
	return func(o *opts) error {
		o.progress = fn
		return nil
	}
}

// WithClientOpts sets options for the client used for status requests.
func WithClientOpts(clientOpts ...client.ClientOpt) Opt {
	return func(o *opts) error {
		o.clientOpts = append(o.clientOpts, clientOpts...)
		return nil
	}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	o := opts{
		path:         schema.DefaultPath,
		chunkSize:    schema.DefaultChunkSize,
		retryMax:     defaultRetryMax,
		retryWaitMin: defaultRetryWaitMin,
		retryWaitMax: defaultRetryWaitMax,
		settle:       defaultSettle,
		interval:     defaultSettle,
		checks:       defaultChecks,
		parallel:     defaultParallel,
		logger:       slog.Default(),
	}
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}
	if o.resume == nil {
		store, err := NewMemoryResumeStore(defaultResumeSize)
		if err != nil {
			return opts{}, err
		}
		o.resume = store
	}
	return o, nil
}
