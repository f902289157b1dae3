package httphandler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	// Packages
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
	httphandler "github.com/mutablelogic/go-upload/pkg/httphandler"
	manager "github.com/mutablelogic/go-upload/pkg/manager"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

///////////////////////////////////////////////////////////////////////////////
// HELPERS

type processorFunc func(context.Context, schema.ProcessingRequest) schema.ProcessingResult

func (fn processorFunc) Process(ctx context.Context, req schema.ProcessingRequest) schema.ProcessingResult {
	return fn(ctx, req)
}

type healthFunc func(context.Context) error

func (fn healthFunc) Health(ctx context.Context) error {
	return fn(ctx)
}

// newTestManager creates a manager on a memory bucket
func newTestManager(t *testing.T, opts ...manager.Opt) *manager.Manager {
	t.Helper()
	opts = append([]manager.Opt{manager.WithBackend(context.Background(), "mem://uploads")}, opts...)
	mgr, err := manager.New(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func serveMux(mgr *manager.Manager, processor httphandler.HealthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	path, handler, _ := httphandler.UploadCollectionHandler(mgr, schema.DefaultPath, "*")
	mux.HandleFunc(path, handler)
	path, handler, _ = httphandler.UploadHandler(mgr, schema.DefaultPath, "*")
	mux.HandleFunc(path, handler)
	path, handler, _ = httphandler.StatusHandler(mgr, "*")
	mux.HandleFunc(path, handler)
	path, handler, _ = httphandler.HealthHandler(mgr, processor)
	mux.HandleFunc(path, handler)
	return mux
}

func serve(mux http.Handler, method, path string, body string, headers map[string]string) *http.Response {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)
	return rw.Result()
}

func createHeaders(length, filetype string) map[string]string {
	return map[string]string{
		schema.TusResumableHeader: schema.TusVersion,
		schema.UploadLengthHeader: length,
		schema.UploadMetaHeader: schema.UploadMeta{
			schema.MetaFilename: "data.csv",
			schema.MetaFiletype: filetype,
		}.MetaHeader(),
	}
}

func patchHeaders(offset string) map[string]string {
	return map[string]string{
		schema.TusResumableHeader: schema.TusVersion,
		schema.UploadOffsetHeader: offset,
		"Content-Type":            schema.ChunkContentType,
	}
}

///////////////////////////////////////////////////////////////////////////////
// MOCK ROUTER

type mockRouter struct {
	paths  []string
	retErr error
}

func (m *mockRouter) RegisterFunc(path string, handler http.HandlerFunc, middleware bool, spec *openapi.PathItem) error {
	m.paths = append(m.paths, path)
	return m.retErr
}

func (m *mockRouter) Origin() string {
	return "*"
}

///////////////////////////////////////////////////////////////////////////////
// TESTS

func Test_RegisterHandlers(t *testing.T) {
	mgr := newTestManager(t)

	router := &mockRouter{}
	require.NoError(t, httphandler.RegisterHandlers(mgr, router, "/api/files", nil))
	assert.Equal(t, []string{"/api/files", "/api/files/{id}", "/status/{id}", "/health"}, router.paths)

	router = &mockRouter{retErr: errors.New("router error")}
	assert.Error(t, httphandler.RegisterHandlers(mgr, router, "", nil))
	assert.Equal(t, "/files", router.paths[0])
}
