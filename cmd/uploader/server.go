package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	// Packages
	units "github.com/docker/go-units"
	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
	backend "github.com/mutablelogic/go-upload/pkg/backend"
	httphandler "github.com/mutablelogic/go-upload/pkg/httphandler"
	manager "github.com/mutablelogic/go-upload/pkg/manager"
	metrics "github.com/mutablelogic/go-upload/pkg/metrics"
	middleware "github.com/mutablelogic/go-upload/pkg/middleware"
	processor "github.com/mutablelogic/go-upload/pkg/processor"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	version "github.com/mutablelogic/go-upload/pkg/version"
	otel "go.opentelemetry.io/otel"
	trace "go.opentelemetry.io/otel/trace"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type ServerCommands struct {
	Server RunServerCommand `cmd:"" name:"server" help:"Run the upload server." group:"SERVER"`
}

type RunServerCommand struct {
	Addr        string        `env:"UPLOAD_ADDR" default:":8080" help:"Listen address"`
	Prefix      string        `default:"/files" help:"Path of the upload protocol endpoint"`
	Backend     string        `env:"UPLOAD_BACKEND" default:"mem://uploads" help:"Store URL (mem://name, file://name/path, s3://bucket/prefix)"`
	MaxSize     string        `name:"max-size" env:"UPLOAD_MAX_SIZE" default:"50MiB" help:"Largest accepted upload"`
	ContentType []string      `name:"content-type" default:"text/csv" help:"Accepted file type. May be repeated."`
	Processor   string        `env:"PROCESSOR_URL" help:"Processing Service URL. Outcomes stay unknown when not set." optional:""`
	HookTimeout time.Duration `name:"hook-timeout" default:"30s" help:"Bound on the Processing Service call"`
	Origin      string        `default:"*" help:"Allowed CORS origin"`
	S3          S3Flags       `embed:"" prefix:"s3-" group:"S3"`
}

type S3Flags struct {
	Endpoint  string `env:"AWS_URL" help:"S3 compatible endpoint URL" optional:""`
	Region    string `env:"AWS_REGION" help:"S3 region" optional:""`
	AccessKey string `name:"access-key" env:"AWS_ACCESS_KEY_ID" help:"S3 access key" optional:""`
	SecretKey string `name:"secret-key" env:"AWS_SECRET_ACCESS_KEY" help:"S3 secret key" optional:""`
	Anonymous bool   `help:"Do not sign S3 requests"`
}

// router registers handlers on a chi router and collects their descriptions
type router struct {
	chi.Router
	origin string
	paths  map[string]*openapi.PathItem
}

var _ httphandler.Router = (*router)(nil)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = time.Minute
)

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *RunServerCommand) Run(app *Globals) error {
	maxSize, err := units.RAMInBytes(cmd.MaxSize)
	if err != nil {
		return fmt.Errorf("max-size: %w", err)
	}
	tracer := otel.Tracer(schema.SchemaName)

	opts := []manager.Opt{
		manager.WithBackend(app.ctx, cmd.Backend, cmd.S3.opts(tracer)...),
		manager.WithLogger(app.logger),
		manager.WithTracer(tracer),
		manager.WithMaxSize(maxSize),
		manager.WithContentTypes(cmd.ContentType...),
		manager.WithHookTimeout(cmd.HookTimeout),
	}

	// Processing Service
	var health httphandler.HealthChecker
	if cmd.Processor != "" {
		client, err := processor.New(cmd.Processor)
		if err != nil {
			return fmt.Errorf("processor: %w", err)
		}
		opts = append(opts, manager.WithProcessor(client))
		health = client
	} else {
		app.logger.Warn("no processing service configured, outcomes will stay unknown")
	}

	// Create the manager
	mgr, err := manager.New(app.ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}
	defer mgr.Close()

	return cmd.serve(app, mgr, health)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// serve registers HTTP handlers and runs the server until the context is done
func (cmd *RunServerCommand) serve(app *Globals, mgr *manager.Manager, health httphandler.HealthChecker) error {
	r := newRouter(cmd.Origin,
		chimw.RequestID,
		chimw.RealIP,
		middleware.Logger(app.logger),
		middleware.Metrics(middleware.ChiRoute),
		chimw.Recoverer,
	)
	if err := httphandler.RegisterHandlers(mgr, r, cmd.Prefix, health); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}
	r.Handle("/metrics", metrics.Handler())
	r.Get("/openapi.json", r.serveOpenAPI)

	// Run the server until the context is cancelled
	srv := &http.Server{
		Addr:              cmd.Addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errs := make(chan error, 1)
	go func() {
		app.logger.Info("server started", slog.String("version", version.Version()), slog.String("addr", cmd.Addr), slog.String("store", mgr.Store().URL().String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()
	select {
	case err := <-errs:
		return err
	case <-app.ctx.Done():
	}

	// Graceful shutdown waits for finalization in flight
	ctx, cancel := context.WithTimeout(context.Background(), max(shutdownTimeout, cmd.HookTimeout+readHeaderTimeout))
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	app.logger.Info("server stopped")
	return nil
}

func (s S3Flags) opts(tracer trace.Tracer) []backend.Opt {
	opts := []backend.Opt{backend.WithTracer(tracer)}
	if s.Endpoint != "" {
		opts = append(opts, backend.WithEndpoint(s.Endpoint))
	}
	if s.Region != "" {
		opts = append(opts, backend.WithRegion(s.Region))
	}
	if s.AccessKey != "" || s.SecretKey != "" {
		opts = append(opts, backend.WithCredentials(s.AccessKey, s.SecretKey))
	}
	if s.Anonymous {
		opts = append(opts, backend.WithAnonymous())
	}
	return opts
}

///////////////////////////////////////////////////////////////////////////////
// ROUTER

func newRouter(origin string, mw ...func(http.Handler) http.Handler) *router {
	r := chi.NewRouter()
	r.Use(mw...)
	return &router{Router: r, origin: origin, paths: make(map[string]*openapi.PathItem)}
}

// RegisterFunc adds a handler. Every route passes through the router
// middleware.
func (r *router) RegisterFunc(path string, handler http.HandlerFunc, _ bool, spec *openapi.PathItem) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path %q must start with /", path)
	} else if _, exists := r.paths[path]; exists {
		return fmt.Errorf("path %q already registered", path)
	}
	r.HandleFunc(path, handler)
	r.paths[path] = spec
	return nil
}

func (r *router) Origin() string {
	return r.origin
}

func (r *router) serveOpenAPI(w http.ResponseWriter, req *http.Request) {
	_ = httpresponse.JSON(w, http.StatusOK, httprequest.Indent(req), r.paths)
}
