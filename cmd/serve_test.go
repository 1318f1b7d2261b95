package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearline-health/claimscan/internal/model"
	"github.com/clearline-health/claimscan/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	run := model.ScanRun{
		ID:            "run-1",
		Status:        model.ScanRunComplete,
		Threshold:     0.3,
		ProviderCount: 1,
		FlagCount:     1,
		StartedAt:     time.Now().UTC(),
		FinishedAt:    time.Now().UTC(),
	}
	results := []model.ScanResult{{
		ProviderID:   "p1",
		OverallScore: 0.7,
		RedFlags:     []model.RedFlag{{Kind: model.FlagBillingSpike, Severity: 0.6}},
	}}
	require.NoError(t, s.SaveScan(context.Background(), run, results))

	monthly := []model.MonthlyAggregate{
		{ProviderID: "p1", Month: "2024-01", ClaimCount: 10, PaidAmount: 1000},
		{ProviderID: "p1", Month: "2024-02", ClaimCount: 12, PaidAmount: 1400},
		{ProviderID: "p2", Month: "2024-01", ClaimCount: 8, PaidAmount: 900},
	}
	return newRouter(s, monthly)
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeHealth(t *testing.T) {
	rec := doGet(t, newTestRouter(t), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServeRuns(t *testing.T) {
	rec := doGet(t, newTestRouter(t), "/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []model.ScanRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestServeRunByID(t *testing.T) {
	h := newTestRouter(t)

	rec := doGet(t, h, "/runs/run-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doGet(t, h, "/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeRunResults(t *testing.T) {
	rec := doGet(t, newTestRouter(t), "/runs/run-1/results")
	require.Equal(t, http.StatusOK, rec.Code)

	var results []model.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ProviderID)
}

func TestServeDossier(t *testing.T) {
	h := newTestRouter(t)

	rec := doGet(t, h, "/providers/p1/dossier")
	require.Equal(t, http.StatusOK, rec.Code)

	var d model.Dossier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "p1", d.ProviderID)
	assert.Equal(t, int64(22), d.ClaimsSummary.TotalClaims)
	assert.True(t, d.PeerComparison.Available)

	rec = doGet(t, h, "/providers/ghost/dossier")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
