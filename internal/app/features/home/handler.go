package home

import (
	"net/http"

	"github.com/dalemusser/edusync/internal/app/features/stats"
	"github.com/dalemusser/edusync/internal/app/system/viewdata"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// WidgetSource is satisfied by *stats.Handler.
type WidgetSource interface {
	WidgetFor(models.StatsCategory) (stats.WidgetVM, bool)
}

// Handler holds dependencies needed to serve the home page.
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

type homeData struct {
	viewdata.BaseVM
	Stats    stats.WidgetVM
	HasStats bool
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	data := homeData{BaseVM: viewdata.NewBaseVM(r, "Welcome", "/")}
	data.Stats, data.HasStats = h.Widgets.WidgetFor(models.StatsPublic)

	templates.Render(w, r, "home", data)
}
