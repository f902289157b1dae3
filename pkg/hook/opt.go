package hook

import (
	"fmt"
	"log/slog"
	"time"

	// Packages
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for the finalization hook
type Opt func(*opts) error

type opts struct {
	timeout time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// DefaultTimeout bounds the Processing Service call
const DefaultTimeout = 30 * time.Second

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithTimeout sets the bound on the Processing Service call
func WithTimeout(timeout time.Duration) Opt {
	return func(o *opts) error {
		if timeout <= 0 {
			return fmt.Errorf("hook timeout must be positive, got %v", timeout)
		}
		o.timeout = timeout
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Opt {
	return func(o *opts) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// WithTracer sets the tracer used for the Processing Service span
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opts) error {
		o.tracer = tracer
		return nil
	}
}

// WithClock sets the source of completion timestamps
func WithClock(now func() time.Time) Opt {
	return func(o *opts) error {
		if now != nil {
			o.now = now
		}
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	o := opts{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}
	return o, nil
}
