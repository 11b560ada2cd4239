// internal/app/features/logout/routes.go
package logout

import "github.com/go-chi/chi/v5"

// Routes is left unguarded so a visitor whose session is still resolving
// can always sign out.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeLogout)
	return r
}
