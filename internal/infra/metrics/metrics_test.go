package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCredentialFailure(t *testing.T) {
	before := testutil.ToFloat64(CredentialFailures.WithLabelValues("socket", "expired"))

	RecordCredentialFailure("socket", "expired")

	assert.Equal(t, before+1, testutil.ToFloat64(CredentialFailures.WithLabelValues("socket", "expired")))
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/health", "200"))

	RecordHTTPRequest("GET", "/health", http.StatusOK, 5*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")))
}

func TestHandler_ExposesNamespace(t *testing.T) {
	RecordRelay("redis", "publish", "ok")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "herald_relay_messages_total")
}
