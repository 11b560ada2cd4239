package stats

import "github.com/go-chi/chi/v5"

// Routes returns the widget subrouter, mounted under /stats.
// GET /widget/{category}.json is served by ServeWidget.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/widget/{category}", h.ServeWidget)
	r.Post("/widget/{category}/refresh", h.HandleRefresh)
	return r
}
