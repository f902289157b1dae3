package httphandler

import (
	"context"
	"net/http"
	"time"

	// Packages
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
	types "github.com/mutablelogic/go-server/pkg/types"
	manager "github.com/mutablelogic/go-upload/pkg/manager"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// healthTimeout bounds the Processing Service health check
const healthTimeout = 5 * time.Second

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: /status/{id}
// GET returns the processing status of an upload.
func StatusHandler(mgr *manager.Manager, origin string) (string, http.HandlerFunc, *openapi.PathItem) {
	return types.JoinPath(schema.DefaultStatusPath, "{id}"), func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			httpresponse.Cors(w, r, origin, http.MethodGet)

			switch r.Method {
			case http.MethodOptions:
				_ = httpresponse.Empty(w, http.StatusOK)
			case http.MethodGet:
				_ = statusGet(w, r, mgr)
			default:
				_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
			}
		}, types.Ptr(openapi.PathItem{
			Get: &openapi.Operation{
				Description: "Return the processing status of an upload: unknown, success or error",
			},
		})
}

// Path: /health
// GET returns the state of the store and the Processing Service.
func HealthHandler(mgr *manager.Manager, processor HealthChecker) (string, http.HandlerFunc, *openapi.PathItem) {
	return "/health", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				_ = healthGet(w, r, mgr, processor)
			default:
				_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
			}
		}, types.Ptr(openapi.PathItem{
			Get: &openapi.Operation{
				Description: "Report whether the store and the Processing Service are reachable",
			},
		})
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func statusGet(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	status, err := mgr.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		return httpresponse.Error(w, err)
	}
	w.Header().Set(schema.CacheControlHeader, "no-store")
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), status)
}

func healthGet(w http.ResponseWriter, r *http.Request, mgr *manager.Manager, processor HealthChecker) error {
	response := schema.HealthResponse{
		Status:    schema.HealthOk,
		Storage:   schema.HealthOk,
		Processor: schema.HealthNotConfigured,
	}
	code := http.StatusOK

	// The store is required
	if err := mgr.Ping(r.Context()); err != nil {
		response.Status = schema.HealthUnavailable
		response.Storage = err.Error()
		code = http.StatusServiceUnavailable
	}

	// The Processing Service is not, uploads still complete without it
	if processor != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := processor.Health(ctx); err != nil {
			response.Processor = err.Error()
			if code == http.StatusOK {
				response.Status = schema.HealthDegraded
			}
		} else {
			response.Processor = schema.HealthOk
		}
	}

	return httpresponse.JSON(w, code, httprequest.Indent(r), response)
}
