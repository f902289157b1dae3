// Package processor calls the external Processing Service which turns an
// uploaded file into a table. Every call produces a typed result; failures
// are classified as a timeout, a connection failure or a rejection by the
// service.
package processor

import (
	"context"
	"net/http"

	// Packages
	client "github.com/mutablelogic/go-client"
	upload "github.com/mutablelogic/go-upload"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Client is a Processing Service client
type Client struct {
	*client.Client
}

var _ upload.Processor = (*Client)(nil)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	processPath = "process-csv"
	healthPath  = "health"
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a client for the Processing Service at the given base URL,
// e.g. "http://localhost:8000".
func New(url string, opts ...client.ClientOpt) (*Client, error) {
	cl, err := client.New(append(opts, client.OptEndpoint(url))...)
	if err != nil {
		return nil, err
	}

	// Record transport errors so they can be classified after go-client
	// has wrapped them
	next := cl.Client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	cl.Client.Transport = &recorder{next: next}

	return &Client{Client: cl}, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Process asks the service to provision a table for an upload. The call is
// bounded only by the context.
func (c *Client) Process(ctx context.Context, req schema.ProcessingRequest) schema.ProcessingResult {
	ctx, rec := withRecord(ctx)

	payload, err := client.NewJSONRequest(req)
	if err != nil {
		return Rejected(err.Error())
	}

	var response schema.ProcessingResponse
	if err := c.DoWithContext(ctx, payload, &response, client.OptPath(processPath), client.OptNoTimeout()); err != nil {
		return classify(ctx, rec.Err(), err)
	}
	if !response.Succeeded() {
		if response.Error == "" {
			return Rejected("processing service reported failure without a reason")
		}
		return Rejected(response.Error)
	}

	// Return success
	return Succeeded(response.Message)
}

// Health returns nil if the service answers its health endpoint
func (c *Client) Health(ctx context.Context) error {
	var response map[string]any
	return c.DoWithContext(ctx, client.NewRequest(), &response, client.OptPath(healthPath))
}
