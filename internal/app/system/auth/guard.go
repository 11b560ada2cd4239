package auth

import (
	"net/http"

	"github.com/dalemusser/edusync/internal/app/system/apiconfig"
)

// LoginPath is where guards send signed-out visitors.
var LoginPath = apiconfig.Default.MustPath(apiconfig.AuthLogin)

// RetryAfterSeconds is advertised while a session is still resolving.
const RetryAfterSeconds = "2"

// Decision is the outcome of a route guard.
type Decision int

const (
	// DecisionLoading shows the loading placeholder.
	DecisionLoading Decision = iota
	// DecisionRedirect sends the visitor to sign in.
	DecisionRedirect
	// DecisionAllow renders the guarded content.
	DecisionAllow
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionRedirect:
		return "redirect"
	case DecisionAllow:
		return "allow"
	}
	return "unknown"
}

// Decide picks exactly one guard outcome. Loading wins over the
// authentication check: an unresolved session is never redirected.
func Decide(loading, authenticated bool) Decision {
	if loading {
		return DecisionLoading
	}
	if !authenticated {
		return DecisionRedirect
	}
	return DecisionAllow
}

func (sm *SessionManager) renderLoading(w http.ResponseWriter, r *http.Request) {
	if sm.loading != nil {
		sm.loading.ServeHTTP(w, r)
		return
	}

	w.Header().Set("Retry-After", RetryAfterSeconds)
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, "loading", http.StatusServiceUnavailable)
}
