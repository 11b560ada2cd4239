// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/components"
	"github.com/dalemusser/edusync/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
)

// pageData is the basic view model for error pages.
type pageData struct {
	viewdata.BaseVM
	Message string
}

// loadingData feeds the loading_page template and the loading snippet.
type loadingData struct {
	viewdata.BaseVM
	Loading      components.LoadingVM
	RetryURL     string
	RetryMS      int
	RetrySeconds string
	Snippet      bool
}

// Handler is the errors feature handler.
// No DB needed; it just renders templates.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden renders a friendly "access denied" page.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusForbidden)
	templates.Render(w, r, "error_forbidden", pageData{
		BaseVM:  viewdata.NewBaseVM(r, "Access denied", "/"),
		Message: "You don't have permission to view this page.",
	})
}

// Unauthorized renders a friendly "sign in required" page.
// GET /unauthorized
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	vm := viewdata.NewBaseVM(r, "Sign in required", auth.LoginPath)
	w.WriteHeader(http.StatusUnauthorized)
	templates.Render(w, r, "error_unauthorized", pageData{
		BaseVM:  vm,
		Message: "Please sign in to continue.",
	})
}

// Loading is installed as the session manager's loading handler. It is
// served while the visitor's session is still being resolved and asks the
// browser to retry shortly.
func (h *Handler) Loading(w http.ResponseWriter, r *http.Request) {
	data := loadingData{
		BaseVM:       viewdata.NewBaseVM(r, "Loading", "/"),
		Loading:      components.Loading(components.LoadingPage, components.SizeLarge, ""),
		RetryURL:     r.URL.RequestURI(),
		RetryMS:      2000,
		RetrySeconds: auth.RetryAfterSeconds,
	}

	w.Header().Set("Retry-After", auth.RetryAfterSeconds)
	w.Header().Set("Cache-Control", "no-store")

	if r.Header.Get("HX-Request") != "" {
		// htmx ignores 5xx swaps by default, so the snippet goes out as 200
		// and re-polls itself.
		data.Loading = components.Loading(components.LoadingSpinner, components.SizeMedium, "Loading…")
		templates.RenderSnippet(w, "loading_retry", data)
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	templates.Render(w, r, "loading_page", data)
}
