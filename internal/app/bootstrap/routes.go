// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	dashboardfeature "github.com/dalemusser/edusync/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/edusync/internal/app/features/errors"
	healthfeature "github.com/dalemusser/edusync/internal/app/features/health"
	homefeature "github.com/dalemusser/edusync/internal/app/features/home"
	loginfeature "github.com/dalemusser/edusync/internal/app/features/login"
	logoutfeature "github.com/dalemusser/edusync/internal/app/features/logout"
	statsfeature "github.com/dalemusser/edusync/internal/app/features/stats"
	statsapifeature "github.com/dalemusser/edusync/internal/app/features/statsapi"
	"github.com/dalemusser/edusync/internal/app/resources"
	statsstore "github.com/dalemusser/edusync/internal/app/store/stats"
	userstore "github.com/dalemusser/edusync/internal/app/store/users"
	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/metrics"
	"github.com/dalemusser/edusync/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	// Template sets register themselves in init.
	_ "github.com/dalemusser/edusync/internal/app/features/dashboard/views"
	_ "github.com/dalemusser/edusync/internal/app/features/home/views"
	_ "github.com/dalemusser/edusync/internal/app/features/login/views"
	_ "github.com/dalemusser/edusync/internal/app/features/stats/views"
)

// BuildHandler constructs the root HTTP handler for EduSync.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// Startup have completed. It boots the template engine, installs the
// session and metrics middleware, and mounts every feature router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser re-reads the user on every request so role changes and
	// disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase, logger.Named("users")))

	errorsHandler := errorsfeature.NewHandler()
	sessionMgr.SetLoadingHandler(http.HandlerFunc(errorsHandler.Loading))

	if err := resources.BootTemplates(coreCfg.Env == "dev", logger); err != nil {
		return nil, err
	}

	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Noop{}
	}

	r := chi.NewRouter()
	r.Use(metrics.Middleware(rec))
	r.Use(sessionMgr.LoadSessionUser)

	// Widget pollers feed the health report, the widgets and the pages.
	widgetHandler := statsfeature.NewHandler(deps.StatsHub, logger.Named("stats"))

	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.StatsHub, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if appCfg.MetricsEnabled {
		r.Handle("/metrics", rec.Handler())
	}

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	homeHandler := homefeature.NewHandler(widgetHandler, logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Authentication
	users := userstore.New(deps.MongoDatabase)
	loginHandler := loginfeature.NewHandler(users, sessionMgr, ratelimit.NewLoginLimiter(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Error pages
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	dashboardHandler := dashboardfeature.NewHandler(widgetHandler, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	// Widget fragments (HTMX) and their JSON form
	r.Mount("/stats", statsfeature.Routes(widgetHandler))

	// Counters API polled by the widgets
	counters := statsstore.New(deps.MongoDatabase, statsstore.Options{
		CacheBytes: appCfg.StatsCacheMB * 1024 * 1024,
		CacheTTL:   appCfg.StatsCacheTTL,
		Recorder:   rec,
		Logger:     logger.Named("statsstore"),
	})
	apiHandler := statsapifeature.NewHandler(counters, appCfg.StatsAPIToken, logger.Named("statsapi"))
	r.Mount("/api/stats", statsapifeature.Routes(apiHandler))

	return r, nil
}
