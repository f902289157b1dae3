package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	// Packages
	manager "github.com/mutablelogic/go-upload/pkg/manager"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_uploadOptions(t *testing.T) {
	assert := assert.New(t)
	mux := serveMux(newTestManager(t, manager.WithMaxSize(1024)), nil)

	resp := serve(mux, http.MethodOptions, "/files", "", nil)
	assert.Equal(http.StatusNoContent, resp.StatusCode)
	assert.Equal("1.0.0", resp.Header.Get(schema.TusVersionHeader))
	assert.Equal("creation,termination", resp.Header.Get(schema.TusExtensionHeader))
	assert.Equal("1024", resp.Header.Get(schema.TusMaxSizeHeader))
	assert.Contains(resp.Header.Get(schema.ExposeHeadersHeader), schema.UploadOffsetHeader)
}

func Test_uploadCreate(t *testing.T) {
	mux := serveMux(newTestManager(t), nil)
	tests := []struct {
		name     string
		headers  map[string]string
		code     int
		contains string
	}{
		{"csv", createHeaders("1000", "text/csv"), http.StatusCreated, ""},
		{"json", createHeaders("1000", "application/json"), http.StatusBadRequest, "application/json"},
		{"too large", createHeaders("62914560", "text/csv"), http.StatusRequestEntityTooLarge, "50MiB"},
		{"zero length", createHeaders("0", "text/csv"), http.StatusBadRequest, "positive"},
		{"missing length", map[string]string{schema.UploadMetaHeader: "filetype dGV4dC9jc3Y="}, http.StatusBadRequest, schema.UploadLengthHeader},
		{"bad length", createHeaders("ten", "text/csv"), http.StatusBadRequest, schema.UploadLengthHeader},
		{"bad metadata", map[string]string{schema.UploadLengthHeader: "10", schema.UploadMetaHeader: "filetype !!!"}, http.StatusBadRequest, ""},
		{"wrong version", map[string]string{schema.TusResumableHeader: "0.2.2", schema.UploadLengthHeader: "10"}, http.StatusPreconditionFailed, ""},
		{"outcome in metadata", map[string]string{
			schema.UploadLengthHeader: "10",
			schema.UploadMetaHeader: schema.UploadMeta{
				schema.MetaFiletype:         "text/csv",
				schema.MetaProcessingStatus: "success",
			}.MetaHeader(),
		}, http.StatusBadRequest, schema.MetaProcessingStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(mux, http.MethodPost, "/files", "", tt.headers)
			defer resp.Body.Close()
			assert.Equal(t, tt.code, resp.StatusCode)
			if tt.code != http.StatusCreated {
				var body bytes.Buffer
				_, _ = body.ReadFrom(resp.Body)
				assert.Contains(t, body.String(), tt.contains)
				return
			}

			var u schema.Upload
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&u))
			assert.Len(t, u.Id, 32)
			assert.Equal(t, "/files/"+u.Id, resp.Header.Get(schema.LocationHeader))
			assert.Equal(t, "0", resp.Header.Get(schema.UploadOffsetHeader))
			assert.Equal(t, "data.csv", u.Filename())
		})
	}
}

func Test_uploadTransfer(t *testing.T) {
	assert := assert.New(t)
	var calls atomic.Int32
	mux := serveMux(newTestManager(t, manager.WithProcessor(processorFunc(func(_ context.Context, req schema.ProcessingRequest) schema.ProcessingResult {
		calls.Add(1)
		return schema.ProcessingResult{Kind: schema.ProcessingSucceeded}
	}))), nil)

	resp := serve(mux, http.MethodPost, "/files", "", createHeaders("8", "text/csv"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	location := resp.Header.Get(schema.LocationHeader)
	id := strings.TrimPrefix(location, "/files/")

	// Status before completion
	resp = serve(mux, http.MethodGet, "/status/"+id, "", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)
	var status schema.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(schema.StatusUnknown, status.Status)

	// Wrong content type
	resp = serve(mux, http.MethodPatch, location, "a,b\n", map[string]string{schema.UploadOffsetHeader: "0", "Content-Type": "text/plain"})
	assert.Equal(http.StatusUnsupportedMediaType, resp.StatusCode)

	// First chunk
	resp = serve(mux, http.MethodPatch, location, "a,b\n", patchHeaders("0"))
	assert.Equal(http.StatusNoContent, resp.StatusCode)
	assert.Equal("4", resp.Header.Get(schema.UploadOffsetHeader))

	// Offset mismatch
	resp = serve(mux, http.MethodPatch, location, "1,2\n", patchHeaders("0"))
	assert.Equal(http.StatusConflict, resp.StatusCode)

	// Resume from HEAD
	resp = serve(mux, http.MethodHead, location, "", map[string]string{schema.TusResumableHeader: schema.TusVersion})
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("4", resp.Header.Get(schema.UploadOffsetHeader))
	assert.Equal("8", resp.Header.Get(schema.UploadLengthHeader))
	assert.Equal("no-store", resp.Header.Get(schema.CacheControlHeader))
	meta, err := schema.ParseMetaHeader(resp.Header.Get(schema.UploadMetaHeader))
	require.NoError(t, err)
	assert.Equal("data.csv", meta[schema.MetaFilename])

	// Overflow
	resp = serve(mux, http.MethodPatch, location, "1,2\n3,4\n", patchHeaders("4"))
	assert.Equal(http.StatusRequestEntityTooLarge, resp.StatusCode)

	// Final chunk
	resp = serve(mux, http.MethodPatch, location, "1,2\n", patchHeaders("4"))
	assert.Equal(http.StatusNoContent, resp.StatusCode)
	assert.Equal("8", resp.Header.Get(schema.UploadOffsetHeader))
	assert.Equal(int32(1), calls.Load())

	// Repeated empty final request
	resp = serve(mux, http.MethodPatch, location, "", patchHeaders("8"))
	assert.Equal(http.StatusNoContent, resp.StatusCode)
	assert.Equal("8", resp.Header.Get(schema.UploadOffsetHeader))
	assert.Equal(int32(1), calls.Load())

	// Status after completion
	resp = serve(mux, http.MethodGet, "/status/"+id, "", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(schema.StatusSuccess, status.Status)
	assert.Equal(id, status.UploadId)
	assert.NotNil(status.CompletedAt)
}

func Test_uploadDelete(t *testing.T) {
	assert := assert.New(t)
	mux := serveMux(newTestManager(t), nil)

	resp := serve(mux, http.MethodPost, "/files", "", createHeaders("8", "text/csv"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	location := resp.Header.Get(schema.LocationHeader)

	resp = serve(mux, http.MethodDelete, location, "", nil)
	assert.Equal(http.StatusNoContent, resp.StatusCode)

	resp = serve(mux, http.MethodHead, location, "", nil)
	assert.Equal(http.StatusNotFound, resp.StatusCode)
	resp = serve(mux, http.MethodGet, "/status/"+strings.TrimPrefix(location, "/files/"), "", nil)
	assert.Equal(http.StatusNotFound, resp.StatusCode)
	resp = serve(mux, http.MethodDelete, location, "", nil)
	assert.Equal(http.StatusNotFound, resp.StatusCode)
}

func Test_uploadMethodNotAllowed(t *testing.T) {
	mux := serveMux(newTestManager(t), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(mux, http.MethodGet, "/files", "", nil).StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(mux, http.MethodPut, "/files/abc", "", nil).StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(mux, http.MethodPost, "/status/abc", "", nil).StatusCode)
}
