// Package hook runs finalization for a completed upload: one bounded call to
// the Processing Service, and one write of the outcome into the upload
// metadata. Finalization never fails the request which completed the upload.
package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	upload "github.com/mutablelogic/go-upload"
	metrics "github.com/mutablelogic/go-upload/pkg/metrics"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// OutcomeWriter records the outcome of an upload
type OutcomeWriter interface {
	Set(context.Context, string, schema.Outcome) error
}

// Hook is the finalization hook
type Hook struct {
	opts
	processor upload.Processor
	outcomes  OutcomeWriter
}

var _ upload.Hook = (*Hook)(nil)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Metric label for a processor which panicked
const labelPanic = "panic"

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a finalization hook. A nil processor records no outcome, so the
// status of every upload stays unknown.
func New(processor upload.Processor, outcomes OutcomeWriter, opts ...Opt) (*Hook, error) {
	if outcomes == nil {
		return nil, errors.New("missing outcome store")
	}
	self := &Hook{processor: processor, outcomes: outcomes}
	if o, err := applyOpts(opts); err != nil {
		return nil, err
	} else {
		self.opts = o
	}
	return self, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Finalize calls the Processing Service for a completed upload and records
// the outcome. It returns once the outcome is written or the call has timed
// out, and never reports an error to the caller.
func (h *Hook) Finalize(ctx context.Context, u schema.Upload) {
	logger := h.logger.With(slog.String("upload", u.Id), slog.String("filename", u.Filename()))
	if h.processor == nil {
		logger.WarnContext(ctx, "no processing service configured, outcome not recorded")
		return
	}

	// The call outlives a client which disconnects after the last chunk
	ctx = context.WithoutCancel(ctx)

	// Call the service
	start := time.Now()
	result, panicErr := h.process(ctx, u)
	duration := time.Since(start)

	// Map the result to an outcome
	var outcome schema.Outcome
	label := string(result.Kind)
	switch {
	case panicErr != nil:
		label = labelPanic
		outcome = schema.NewError(fmt.Sprintf("processing failed: %v", panicErr), h.now())
	case result.Kind == schema.ProcessingSucceeded:
		outcome = schema.NewSuccess(h.now())
	case result.Kind == schema.ProcessingTimeout:
		outcome = schema.NewError(fmt.Sprintf("processing service unavailable: no response within %v", h.timeout), h.now())
	case result.Kind == schema.ProcessingConnectionFailed:
		outcome = schema.NewError("processing service unreachable: "+result.Message, h.now())
	default:
		message := result.Message
		if message == "" {
			message = "processing service rejected the upload"
		}
		outcome = schema.NewError(message, h.now())
	}
	metrics.Finalized(label, duration)

	// Record the outcome
	if err := h.outcomes.Set(ctx, u.Id, outcome); err != nil {
		metrics.OutcomeWriteFailed()
		logger.ErrorContext(ctx, "outcome not recorded", slog.Any("error", err), slog.String("outcome", string(outcome.Status)))
		return
	}
	if outcome.Status == schema.StatusSuccess {
		logger.InfoContext(ctx, "processing succeeded", slog.Duration("duration", duration))
	} else {
		logger.WarnContext(ctx, "processing failed", slog.String("kind", label), slog.String("error", outcome.Error), slog.Duration("duration", duration))
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// process makes the single Processing Service call. The timeout unblocks the
// hook even when the processor ignores its context.
func (h *Hook) process(ctx context.Context, u schema.Upload) (result schema.ProcessingResult, panicErr error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	// OTEL span
	child, endFunc := otel.StartSpan(h.tracer, ctx, schema.SchemaName+".hook.Process")
	defer func() {
		if panicErr != nil {
			endFunc(panicErr)
		} else if !result.Ok() {
			endFunc(errors.New(result.Message))
		} else {
			endFunc(nil)
		}
	}()

	type response struct {
		result schema.ProcessingResult
		err    error
	}
	ch := make(chan response, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- response{err: fmt.Errorf("%v", r)}
			}
		}()
		ch <- response{result: h.processor.Process(child, schema.NewProcessingRequest(u.Id))}
	}()

	select {
	case r := <-ch:
		return r.result, r.err
	case <-ctx.Done():
		return schema.ProcessingResult{Kind: schema.ProcessingTimeout, Message: ctx.Err().Error()}, nil
	}
}
