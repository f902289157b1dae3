package processor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	// Packages
	processor "github.com/mutablelogic/go-upload/pkg/processor"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func newStub(t *testing.T, status int, body any) (*httptest.Server, *schema.ProcessingRequest) {
	t.Helper()
	var received schema.ProcessingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process-csv" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &received
}

func Test_Process(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		kind    schema.ProcessingKind
		message string
	}{
		{name: "success", status: http.StatusOK, body: map[string]any{"success": true}, kind: schema.ProcessingSucceeded},
		{name: "status success", status: http.StatusOK, body: map[string]any{"status": "success", "message": "created"}, kind: schema.ProcessingSucceeded, message: "created"},
		{name: "reported failure", status: http.StatusOK, body: map[string]any{"success": false, "error": "X"}, kind: schema.ProcessingRejectedByService, message: "X"},
		{name: "failure without reason", status: http.StatusOK, body: map[string]any{"success": false}, kind: schema.ProcessingRejectedByService},
		{name: "server error", status: http.StatusInternalServerError, body: map[string]any{"error": "External table creation failed"}, kind: schema.ProcessingRejectedByService},
		{name: "bad request", status: http.StatusBadRequest, body: map[string]any{"error": "Missing required fields"}, kind: schema.ProcessingRejectedByService},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			srv, received := newStub(t, tt.status, tt.body)
			client, err := processor.New(srv.URL)
			require.NoError(t, err)

			result := client.Process(context.Background(), schema.NewProcessingRequest("abc123"))
			assert.Equal(tt.kind, result.Kind, result.Message)
			if tt.message != "" {
				assert.Equal(tt.message, result.Message)
			}
			assert.Equal("abc123", received.StorageKey)
			assert.Equal("abc123", received.TableName)
		})
	}
}

func Test_Process_ConnectionFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := processor.New(url)
	require.NoError(t, err)
	result := client.Process(context.Background(), schema.NewProcessingRequest("abc123"))
	assert.Equal(t, schema.ProcessingConnectionFailed, result.Kind)
	assert.NotEmpty(t, result.Message)
}

func Test_Process_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := processor.New(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	result := client.Process(ctx, schema.NewProcessingRequest("abc123"))
	assert.Equal(t, schema.ProcessingTimeout, result.Kind)
}

func Test_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	client, err := processor.New(srv.URL)
	require.NoError(t, err)
	assert.NoError(t, client.Health(context.Background()))
}
