package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	// Packages
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_statusNotFound(t *testing.T) {
	mux := serveMux(newTestManager(t), nil)
	resp := serve(mux, http.MethodGet, "/status/0123456789abcdef0123456789abcdef", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func Test_health(t *testing.T) {
	tests := []struct {
		name      string
		processor healthFunc
		status    string
		proc      string
	}{
		{"not configured", nil, schema.HealthOk, schema.HealthNotConfigured},
		{"processor ok", func(context.Context) error { return nil }, schema.HealthOk, schema.HealthOk},
		{"processor down", func(context.Context) error { return errors.New("connection refused") }, schema.HealthDegraded, "connection refused"},
		{"processor deadline", func(ctx context.Context) error {
			if deadline, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			} else if time.Until(deadline) > 5*time.Second {
				return errors.New("deadline too far")
			}
			return nil
		}, schema.HealthOk, schema.HealthOk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := newTestManager(t)
			mux := serveMux(mgr, nil)
			if tt.processor != nil {
				mux = serveMux(mgr, tt.processor)
			}
			resp := serve(mux, http.MethodGet, "/health", "", nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var health schema.HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
			assert.Equal(t, tt.status, health.Status)
			assert.Equal(t, schema.HealthOk, health.Storage)
			assert.Equal(t, tt.proc, health.Processor)
		})
	}
}
