package health_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-executor/internal/health"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_HealthAggregatesChecks(t *testing.T) {
	s := health.NewServer(0, "test")
	s.RegisterCheck("rpc", func(context.Context) (bool, string) { return true, "2/2 endpoints" })
	s.RegisterCheck("relay", func(context.Context) (bool, string) { return false, "breaker open" })
	h := s.Handler()

	rec := get(t, h, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body health.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.True(t, body.Checks["rpc"].Healthy)
	assert.Equal(t, "breaker open", body.Checks["relay"].Message)

	rec = get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "relay")
}

func TestServer_LiveAndReady(t *testing.T) {
	s := health.NewServer(0, "test")
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/live").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/ready").Code)
}

func TestServer_Status(t *testing.T) {
	s := health.NewServer(0, "test")
	h := s.Handler()

	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/status").Code)

	s.SetStatusFunc(func() any {
		return map[string]any{"tradeCount": 3}
	})
	rec := get(t, h, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tradeCount":3}`, rec.Body.String())
}
