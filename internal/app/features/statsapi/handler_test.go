package statsapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/edusync/internal/app/features/statsapi"
	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/edusync/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type fakeStore struct {
	err   error
	calls int
}

func (f *fakeStore) Counters(_ context.Context, c models.StatsCategory) (models.StatsCounters, error) {
	f.calls++
	if f.err != nil {
		return models.StatsCounters{}, f.err
	}
	return models.StatsCounters{Users: models.Count(1250), Status: "ok"}, nil
}

type apiResponse struct {
	Success bool                  `json:"success"`
	Stats   *models.StatsCounters `json:"stats"`
	Message string                `json:"message"`
}

func serve(t *testing.T, store *fakeStore, req *http.Request) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	h := statsapi.NewHandler(store, "svc-token", zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/api/stats", statsapi.Routes(h))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var body apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse JSON response %q: %v", rec.Body.String(), err)
	}
	return rec, body
}

func TestServeStats_Public(t *testing.T) {
	store := &fakeStore{}
	rec, body := serve(t, store, httptest.NewRequest("GET", "/api/stats/public", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !body.Success || body.Stats == nil {
		t.Fatalf("unexpected body: %+v", body)
	}
	if v, ok := body.Stats.Value(models.FieldUsers); !ok || v != 1250 {
		t.Errorf("totalUsers: got %d (%v)", v, ok)
	}
}

func TestServeStats_UnknownCategory(t *testing.T) {
	store := &fakeStore{}
	rec, body := serve(t, store, httptest.NewRequest("GET", "/api/stats/everything", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	if body.Success || body.Message == "" {
		t.Errorf("expected failure with message, got %+v", body)
	}
	if store.calls != 0 {
		t.Error("store should not be queried for an unknown category")
	}
}

func TestServeStats_StoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	rec, body := serve(t, store, httptest.NewRequest("GET", "/api/stats/public", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	if body.Success {
		t.Error("expected success=false")
	}
}

func TestServeStats_Access(t *testing.T) {
	bearer := func(path, token string) *http.Request {
		r := httptest.NewRequest("GET", path, nil)
		r.Header.Set("Authorization", "Bearer "+token)
		return r
	}

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"admin anonymous", httptest.NewRequest("GET", "/api/stats/admin", nil), http.StatusUnauthorized},
		{"admin with token", bearer("/api/stats/admin", "svc-token"), http.StatusOK},
		{"admin with wrong token", bearer("/api/stats/admin", "guess"), http.StatusUnauthorized},
		{"admin as faculty", testutil.NewAuthenticatedRequest("GET", "/api/stats/admin", testutil.FacultyUser()), http.StatusForbidden},
		{"admin as admin", testutil.NewAuthenticatedRequest("GET", "/api/stats/admin", testutil.AdminUser()), http.StatusOK},
		{"faculty as student", testutil.NewAuthenticatedRequest("GET", "/api/stats/faculty", testutil.StudentUser()), http.StatusForbidden},
		{"faculty as faculty", testutil.NewAuthenticatedRequest("GET", "/api/stats/faculty", testutil.FacultyUser()), http.StatusOK},
		{"faculty as admin", testutil.NewAuthenticatedRequest("GET", "/api/stats/faculty", testutil.AdminUser()), http.StatusOK},
		{"faculty while resolving", auth.WithResolving(httptest.NewRequest("GET", "/api/stats/faculty", nil)), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := serve(t, &fakeStore{}, tt.req)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
