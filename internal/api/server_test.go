package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-ingest/internal/catalog"
)

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := NewServer(zap.NewNop())
	rec := doRequest(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyzReflectsChecks(t *testing.T) {
	t.Parallel()

	healthy := NewServer(zap.NewNop(), func() error { return nil })
	rec := doRequest(t, healthy, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	broken := NewServer(zap.NewNop(), func() error { return errors.New("db unreachable") })
	rec = doRequest(t, broken, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db unreachable")
}

func TestLastRunSummary(t *testing.T) {
	t.Parallel()

	s := NewServer(zap.NewNop())

	rec := doRequest(t, s, http.MethodGet, "/v1/runs/last")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.RecordRun(catalog.RunSummary{
		RunID:     "run-1",
		Source:    "scraper",
		Attempted: 4,
		Succeeded: 3,
		Failed:    1,
		StartedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	})
	rec = doRequest(t, s, http.MethodGet, "/v1/runs/last")
	require.Equal(t, http.StatusOK, rec.Code)

	var got catalog.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 3, got.Succeeded)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := NewServer(zap.NewNop())
	rec := doRequest(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
