package httphandler

import (
	"context"
	"errors"
	"net/http"

	// Packages
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
	manager "github.com/mutablelogic/go-upload/pkg/manager"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Router is the interface required to register HTTP handlers.
type Router interface {
	RegisterFunc(path string, handler http.HandlerFunc, middleware bool, spec *openapi.PathItem) error

	// Origin returns the allowed CORS origin
	Origin() string
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(context.Context) error
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// RegisterHandlers registers the upload protocol under prefix, and the
// status and health handlers, on the provided router. The processor may
// be nil.
func RegisterHandlers(mgr *manager.Manager, router Router, prefix string, processor HealthChecker) error {
	var result error
	if prefix == "" {
		prefix = schema.DefaultPath
	}
	register := func(path string, handler http.HandlerFunc, spec *openapi.PathItem) {
		result = errors.Join(result, router.RegisterFunc(path, handler, true, spec))
	}
	register(UploadCollectionHandler(mgr, prefix, router.Origin()))
	register(UploadHandler(mgr, prefix, router.Origin()))
	register(StatusHandler(mgr, router.Origin()))
	register(HealthHandler(mgr, processor))
	return result
}
