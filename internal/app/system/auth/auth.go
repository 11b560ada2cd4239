package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the signed-in user injected into r.Context().
type SessionUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// UserFetcher loads the current state of a user by ID.
//
// It returns (nil, nil) when the user no longer exists or is disabled, and
// an error only when the lookup itself failed (the backend is unreachable
// or timed out). A failed lookup leaves the request in the loading state.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*SessionUser, error)
}

type ctxKey string

const authStateKey ctxKey = "authState"

// authState is what LoadSessionUser learned about the request.
type authState struct {
	user    *SessionUser
	loading bool
}

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	st, ok := r.Context().Value(authStateKey).(authState)
	if !ok || st.user == nil {
		return nil, false
	}
	return st.user, true
}

// Resolving reports whether the request's authentication state is still
// unresolved: the session store is not ready or the user lookup failed.
func Resolving(r *http.Request) bool {
	st, ok := r.Context().Value(authStateKey).(authState)
	return ok && st.loading
}

// WithTestUser injects u into the request as if LoadSessionUser had run.
// Intended for handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withState(r, authState{user: u})
}

// WithResolving marks the request as still resolving its session.
// Intended for handler tests.
func WithResolving(r *http.Request) *http.Request {
	return withState(r, authState{loading: true})
}

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the cookie store and the auth middleware.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher UserFetcher
	loading http.Handler
	log     *zap.Logger
}

// NewSessionManager creates the cookie store.
//
// In production (secure=true), cookies are Secure + SameSite=None.
// In local dev over http://localhost, use secure=false so cookies are accepted.
//
// An empty sessionKey is only tolerated when secure=false: a random key is
// generated and sessions do not survive a restart.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	key := []byte(sessionKey)
	switch {
	case sessionKey == "" && secure:
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	case sessionKey == "":
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, fmt.Errorf("session key is empty and random key generation failed")
		}
		logger.Warn("session key is empty; using a random key (sessions reset on restart)")
	case len(sessionKey) < 32:
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore(key)
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}

	// SameSite: None needs Secure; in dev Lax is fine.
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher makes LoadSessionUser fetch fresh user data on each request
// so role changes and disabled accounts take effect immediately.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// SetLoadingHandler replaces the response written while a guarded
// request's session is still resolving. The handler should set its own
// status (503 is conventional) and Retry-After header.
func (sm *SessionManager) SetLoadingHandler(h http.Handler) {
	sm.loading = h
}

// Store exposes the underlying cookie store (logout copies its options).
func (sm *SessionManager) Store() *sessions.CookieStore {
	return sm.store
}

// Name is the session cookie name.
func (sm *SessionManager) Name() string {
	return sm.name
}

// GetSession returns the request's session. On a decode error a fresh
// session is still returned alongside the error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

// SignIn records userID in the session and writes the cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		// Stale or tampered cookie; the fresh session replaces it.
		sm.log.Debug("discarding undecodable session", zap.Error(err))
	}
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = userID
	return sess.Save(r, w)
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.log.Warn("session decode failed during sign out", zap.Error(err))
	}
	// The deletion cookie must match the original store settings.
	if opts := sm.store.Options; opts != nil {
		sess.Options.Domain = opts.Domain
		sess.Options.Path = opts.Path
		sess.Options.Secure = opts.Secure
		sess.Options.HttpOnly = opts.HttpOnly
		sess.Options.SameSite = opts.SameSite
	}
	sess.Options.MaxAge = -1
	sess.Values = map[interface{}]interface{}{}
	return sess.Save(r, w)
}

// LoadSessionUser resolves the session user and records the auth state in
// the request context. It never rejects a request; guards do that.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.GetSession(r)
		if err != nil {
			// Undecodable cookie: treat as signed out.
			next.ServeHTTP(w, withState(r, authState{}))
			return
		}

		isAuth, _ := sess.Values[isAuthKey].(bool)
		userID, _ := sess.Values[userIDKey].(string)
		if !isAuth || userID == "" {
			next.ServeHTTP(w, withState(r, authState{}))
			return
		}

		if sm.fetcher == nil {
			// Backend not wired yet; the session cannot be resolved.
			next.ServeHTTP(w, withState(r, authState{loading: true}))
			return
		}

		u, err := sm.fetcher.FetchUser(r.Context(), userID)
		switch {
		case err != nil:
			sm.log.Warn("session user lookup failed",
				zap.String("user_id", userID), zap.Error(err))
			next.ServeHTTP(w, withState(r, authState{loading: true}))
		case u == nil:
			next.ServeHTTP(w, withState(r, authState{}))
		default:
			next.ServeHTTP(w, withState(r, authState{user: u}))
		}
	})
}

// RequireSignedIn guards next with Decide:
//   - loading:  the loading placeholder (503 + Retry-After)
//   - redirect: HTMX gets HX-Redirect, HTML gets 303 to /login?return=...,
//     API callers get 401
//   - allow:    next
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, signedIn := CurrentUser(r)

		switch Decide(Resolving(r), signedIn) {
		case DecisionLoading:
			sm.renderLoading(w, r)
		case DecisionRedirect:
			redirectToLogin(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// RequireRole ensures there is a user with one of the allowed roles.
// Signed-out visitors are handled like RequireSignedIn; signed-in users
// with the wrong role are sent to /forbidden (HTML) or get 403 (API).
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, signedIn := CurrentUser(r)

			switch Decide(Resolving(r), signedIn) {
			case DecisionLoading:
				sm.renderLoading(w, r)
				return
			case DecisionRedirect:
				redirectToLogin(w, r)
				return
			}

			if _, has := set[strings.ToLower(u.Role)]; !has {
				if r.Header.Get("HX-Request") == "true" {
					w.Header().Set("HX-Redirect", "/forbidden")
					w.WriteHeader(http.StatusForbidden)
					return
				}
				if wantsHTML(r) {
					http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// helpers

func withState(r *http.Request, st authState) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), authStateKey, st))
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	ret := url.QueryEscape(currentURI(r))

	// HTMX: full-page client redirect (no partial swap)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", LoginPath+"?return="+ret)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if wantsHTML(r) {
		http.Redirect(w, r, LoginPath+"?return="+ret, http.StatusSeeOther)
		return
	}

	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func wantsHTML(r *http.Request) bool {
	// Very light heuristic: treat it as HTML if it's HTMX or Accepts text/html.
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}
