// Package statsapi serves the JSON statistics consumed by the widgets.
package statsapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/authz"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// CountersSource is satisfied by *statsstore.Store.
type CountersSource interface {
	Counters(ctx context.Context, c models.StatsCategory) (models.StatsCounters, error)
}

// Handler serves GET /api/stats/{category}.
type Handler struct {
	Store CountersSource
	// Token, when set, is a service credential that may read every category.
	Token string
	Log   *zap.Logger
}

func NewHandler(store CountersSource, token string, logger *zap.Logger) *Handler {
	return &Handler{Store: store, Token: token, Log: logger}
}

type response struct {
	Success bool                  `json:"success"`
	Stats   *models.StatsCounters `json:"stats,omitempty"`
	Message string                `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ServeStats handles GET /api/stats/{category}.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	cat, err := models.ParseStatsCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, response{Message: "unknown stats category"})
		return
	}

	if status, msg := h.authorize(r, cat); status != http.StatusOK {
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", auth.RetryAfterSeconds)
		}
		writeJSON(w, status, response{Message: msg})
		return
	}

	counters, err := h.Store.Counters(r.Context(), cat)
	if err != nil {
		h.Log.Error("stats query failed", zap.String("category", string(cat)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, response{Message: "statistics are temporarily unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, response{Success: true, Stats: &counters})
}

// authorize returns 200 when the caller may read cat, or the status and
// message to reply with.
func (h *Handler) authorize(r *http.Request, cat models.StatsCategory) (int, string) {
	if len(authz.StatsRoles(cat)) == 0 {
		return http.StatusOK, ""
	}
	if h.validToken(r) {
		return http.StatusOK, ""
	}
	if auth.Resolving(r) {
		return http.StatusServiceUnavailable, "session is still loading"
	}
	role, _, _, ok := authz.UserCtx(r)
	if !ok {
		return http.StatusUnauthorized, "authentication required"
	}
	if !authz.CanViewStats(role, cat) {
		return http.StatusForbidden, "not allowed to view these statistics"
	}
	return http.StatusOK, ""
}

func (h *Handler) validToken(r *http.Request) bool {
	if h.Token == "" {
		return false
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(h.Token)) == 1
}
