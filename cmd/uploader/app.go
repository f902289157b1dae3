package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	// Packages
	kong "github.com/alecthomas/kong"
	client "github.com/mutablelogic/go-client"
	httpclient "github.com/mutablelogic/go-upload/pkg/httpclient"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type Globals struct {
	Endpoint  string `env:"UPLOAD_ENDPOINT" default:"http://localhost:8080" help:"Upload server endpoint"`
	Debug     bool   `help:"Enable debug output"`
	LogFormat string `name:"log-format" enum:"text,json" default:"text" help:"Log format (text, json)"`

	vars   kong.Vars `kong:"-"` // Variables for kong
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func NewApp(app Globals, vars kong.Vars) (*Globals, error) {
	// Set the vars
	app.vars = vars

	// Set the logger
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if app.Debug {
		opts.Level = slog.LevelDebug
	}
	switch app.LogFormat {
	case "json":
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	case "text", "":
		app.logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	default:
		return nil, fmt.Errorf("unsupported log format %q", app.LogFormat)
	}
	slog.SetDefault(app.logger)

	// Create the context
	// This context is cancelled when the process receives a SIGINT or SIGTERM
	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Return the app
	return &app, nil
}

func (app *Globals) Close() error {
	app.cancel()
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// METHODS

func (app *Globals) Context() context.Context {
	return app.ctx
}

func (app *Globals) Logger() *slog.Logger {
	return app.logger
}

// Client builds an upload client for the endpoint
func (app *Globals) Client(opts ...httpclient.Opt) (*httpclient.Client, error) {
	opts = append(opts, httpclient.WithLogger(app.logger))
	if app.Debug {
		opts = append(opts, httpclient.WithClientOpts(client.OptTrace(os.Stderr, false)))
	}
	return httpclient.New(app.Endpoint, opts...)
}
