package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/edusync/internal/app/features/health"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/edusync/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context, *readpref.ReadPref) error { return f.err }

type fakeStats map[models.StatsCategory]models.StatsSnapshot

func (f fakeStats) Snapshots() map[models.StatsCategory]models.StatsSnapshot { return f }

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	return body
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(db.Client(), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	body := decode(t, rec)
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", body["status"])
	}
	if body["database"] != "connected" {
		t.Errorf("expected database 'connected', got %v", body["database"])
	}
}

func TestServe_DatabaseDown(t *testing.T) {
	handler := health.NewHandler(fakePinger{err: errors.New("no reachable servers")}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "error" || body["database"] != "disconnected" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestServe_ReportsWidgetOutcomes(t *testing.T) {
	stats := fakeStats{
		models.StatsPublic: {Category: models.StatsPublic, Outcome: models.OutcomeLive, Source: models.SourceLive, FetchedAt: time.Now()},
		models.StatsAdmin:  {Category: models.StatsAdmin, Outcome: models.OutcomeOffline, Source: models.SourceFallback},
	}
	handler := health.NewHandler(fakePinger{}, stats, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("an offline widget must not fail the check, got %d", rec.Code)
	}
	body := decode(t, rec)
	st, ok := body["stats"].(map[string]any)
	if !ok {
		t.Fatalf("expected stats object, got %v", body["stats"])
	}
	admin := st["admin"].(map[string]any)
	if admin["outcome"] != "offline" {
		t.Errorf("admin outcome: got %v", admin["outcome"])
	}
	public := st["public"].(map[string]any)
	if public["fetched_at"] == nil {
		t.Error("expected fetched_at for a live snapshot")
	}
}
