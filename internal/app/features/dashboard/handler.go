// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"

	"github.com/dalemusser/edusync/internal/app/features/stats"
	"github.com/dalemusser/edusync/internal/app/system/authz"
	"github.com/dalemusser/edusync/internal/app/system/viewdata"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// WidgetSource is satisfied by *stats.Handler.
type WidgetSource interface {
	WidgetFor(models.StatsCategory) (stats.WidgetVM, bool)
}

type Handler struct {
	Widgets WidgetSource
	Log     *zap.Logger
}

func NewHandler(widgets WidgetSource, logger *zap.Logger) *Handler {
	return &Handler{
		Widgets: widgets,
		Log:     logger,
	}
}

type dashboardData struct {
	viewdata.BaseVM
	Widgets []stats.WidgetVM
}

// VisibleWidgets returns the widgets the current user may see, public first.
func (h *Handler) VisibleWidgets(r *http.Request) []stats.WidgetVM {
	var out []stats.WidgetVM
	for _, cat := range authz.VisibleStats(r) {
		if vm, ok := h.Widgets.WidgetFor(cat); ok {
			out = append(out, vm)
		}
	}
	return out
}

// ServeDashboard renders the signed-in landing page. RequireSignedIn runs
// first, so a user is always present here.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "dashboard", dashboardData{
		BaseVM:  viewdata.NewBaseVM(r, "Dashboard", "/"),
		Widgets: h.VisibleWidgets(r),
	})
}
