package stats

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/authz"
	"github.com/dalemusser/edusync/internal/app/system/workers"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const jsonSuffix = ".json"

// PollerSource is satisfied by *workers.StatsHub.
type PollerSource interface {
	Poller(models.StatsCategory) (*workers.StatsPoller, bool)
}

// Handler serves the statistics widget partials.
type Handler struct {
	Hub PollerSource
	Log *zap.Logger
}

func NewHandler(hub PollerSource, logger *zap.Logger) *Handler {
	return &Handler{Hub: hub, Log: logger}
}

// WidgetFor builds the current view model for category c, ready to embed in
// a page. ok is false for an unknown category.
func (h *Handler) WidgetFor(c models.StatsCategory) (WidgetVM, bool) {
	p, ok := h.Hub.Poller(c)
	if !ok {
		return WidgetVM{}, false
	}
	return decorate(BuildWidgetVM(p.Snapshot()), p.Interval()), true
}

func decorate(vm WidgetVM, interval time.Duration) WidgetVM {
	vm.RefreshSeconds = int(interval / time.Second)
	if vm.RefreshSeconds < 1 {
		vm.RefreshSeconds = 1
	}
	vm.PartialURL = "/stats/widget/" + vm.Category
	vm.RefreshURL = vm.PartialURL + "/refresh"
	return vm
}

// poller resolves {category} and enforces who may see it. It writes the
// error response itself and returns ok=false when the request should stop.
func (h *Handler) poller(w http.ResponseWriter, r *http.Request) (*workers.StatsPoller, bool) {
	cat, err := models.ParseStatsCategory(strings.TrimSuffix(chi.URLParam(r, "category"), jsonSuffix))
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	p, ok := h.Hub.Poller(cat)
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}

	if len(authz.StatsRoles(cat)) == 0 {
		return p, true
	}
	if auth.Resolving(r) {
		w.Header().Set("Retry-After", auth.RetryAfterSeconds)
		http.Error(w, "loading", http.StatusServiceUnavailable)
		return nil, false
	}
	role, _, _, signedIn := authz.UserCtx(r)
	if !signedIn {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	if !authz.CanViewStats(role, cat) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}
	return p, true
}

// ServeWidget renders the widget partial, or the JSON view model when the
// category carries a .json suffix.
// GET /stats/widget/{category}
func (h *Handler) ServeWidget(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(chi.URLParam(r, "category"), jsonSuffix) {
		h.ServeJSON(w, r)
		return
	}
	p, ok := h.poller(w, r)
	if !ok {
		return
	}
	vm := decorate(BuildWidgetVM(p.Snapshot()), p.Interval())
	w.Header().Set("Cache-Control", "no-store")
	templates.RenderSnippet(w, "stats_widget", vm)
}

// HandleRefresh fetches now and re-renders the partial.
// POST /stats/widget/{category}/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	p, ok := h.poller(w, r)
	if !ok {
		return
	}
	snap := p.Refresh(r.Context())
	h.Log.Debug("stats widget refreshed",
		zap.String("category", string(snap.Category)),
		zap.String("outcome", string(snap.Outcome)))

	vm := decorate(BuildWidgetVM(snap), p.Interval())
	w.Header().Set("Cache-Control", "no-store")
	templates.RenderSnippet(w, "stats_widget", vm)
}

// ServeJSON returns the current view model as JSON.
// GET /stats/widget/{category}.json
func (h *Handler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	p, ok := h.poller(w, r)
	if !ok {
		return
	}
	vm := decorate(BuildWidgetVM(p.Snapshot()), p.Interval())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(vm); err != nil {
		h.Log.Warn("encode stats widget json", zap.Error(err))
	}
}
