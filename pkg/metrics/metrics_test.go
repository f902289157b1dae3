package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	// Packages
	testutil "github.com/prometheus/client_golang/prometheus/testutil"
	assert "github.com/stretchr/testify/assert"
)

func Test_Finalized(t *testing.T) {
	before := testutil.ToFloat64(finalizeTotal.WithLabelValues("timeout"))
	Finalized("timeout", 30*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(finalizeTotal.WithLabelValues("timeout")))
}

func Test_statusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusNoContent))
	assert.Equal(t, "4xx", statusClass(http.StatusConflict))
	assert.Equal(t, "5xx", statusClass(http.StatusBadGateway))
}

func Test_Handler(t *testing.T) {
	UploadCreated()
	rw := httptest.NewRecorder()
	Handler().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.True(t, strings.Contains(rw.Body.String(), "upload_created_total"))
}
