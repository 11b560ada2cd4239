package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/timeouts"
	"github.com/dalemusser/edusync/internal/domain/models"
	json "github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// SnapshotSource is satisfied by *workers.StatsHub.
type SnapshotSource interface {
	Snapshots() map[models.StatsCategory]models.StatsSnapshot
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client Pinger
	Stats  SnapshotSource
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. stats may be nil.
func NewHandler(client Pinger, stats SnapshotSource, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Stats:  stats,
		Log:    logger,
	}
}

type statsStatus struct {
	Outcome   models.StatsOutcome `json:"outcome"`
	Source    models.StatsSource  `json:"source"`
	FetchedAt string              `json:"fetched_at,omitempty"`
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string                 `json:"status"`
	Database string                 `json:"database"`
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Stats    map[string]statsStatus `json:"stats,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "stats":{"public":{"outcome":"live",...}} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
//
// Widget outcomes are informational; an offline stats service does not
// fail the check.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.Stats != nil {
		resp.Stats = make(map[string]statsStatus)
		for cat, snap := range h.Stats.Snapshots() {
			st := statsStatus{Outcome: snap.Outcome, Source: snap.Source}
			if !snap.FetchedAt.IsZero() {
				st.FetchedAt = snap.FetchedAt.UTC().Format(time.RFC3339)
			}
			resp.Stats[string(cat)] = st
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
