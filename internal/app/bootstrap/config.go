// internal/app/bootstrap/config.go
package bootstrap

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for EduSync.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, stats_refresh_interval, etc.
//   - Environment variables: EDUSYNC_MONGO_URI, EDUSYNC_STATS_REFRESH_INTERVAL, etc.
//   - Command-line flags: --mongo_uri, --stats_refresh_interval, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "edusync", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "edusync-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime"},

	// Site presentation
	{Name: "site_name", Default: "EduSync", Desc: "Name shown in the header and page titles"},
	{Name: "footer_html", Default: "", Desc: "Footer HTML (sanitized)"},
	{Name: "support_email", Default: "", Desc: "Support contact shown in the footer"},

	// Stats widgets
	{Name: "stats_api_base_url", Default: "http://localhost:8080", Desc: "Base URL of the stats API the widget pollers call"},
	{Name: "stats_refresh_interval", Default: "30s", Desc: "How often each stats widget refreshes"},
	{Name: "stats_request_timeout", Default: "5s", Desc: "Timeout for one stats API request"},
	{Name: "stats_api_token", Default: "", Desc: "Bearer token for /api/stats (blank generates one per process)"},
	{Name: "stats_oauth_client_id", Default: "", Desc: "OAuth2 client ID for an external stats service"},
	{Name: "stats_oauth_client_secret", Default: "", Desc: "OAuth2 client secret for an external stats service"},
	{Name: "stats_oauth_token_url", Default: "", Desc: "OAuth2 token endpoint for an external stats service"},
	{Name: "stats_cache_mb", Default: 4, Desc: "Size of the stats counter cache in MB (0 disables)"},
	{Name: "stats_cache_ttl", Default: "10s", Desc: "How long computed counters are cached"},

	{Name: "metrics_enabled", Default: true, Desc: "Expose Prometheus metrics at /metrics"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of an admin account created on startup if missing"},
	{Name: "admin_password", Default: "", Desc: "Password for the bootstrap admin account"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, EDUSYNC_* for the app) and
// flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "EDUSYNC", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		SiteName:     appValues.String("site_name"),
		FooterHTML:   appValues.String("footer_html"),
		SupportEmail: appValues.String("support_email"),

		StatsAPIBaseURL:        strings.TrimRight(appValues.String("stats_api_base_url"), "/"),
		StatsRefreshInterval:   appValues.Duration("stats_refresh_interval", 30*time.Second),
		StatsRequestTimeout:    appValues.Duration("stats_request_timeout", 5*time.Second),
		StatsAPIToken:          appValues.String("stats_api_token"),
		StatsOAuthClientID:     appValues.String("stats_oauth_client_id"),
		StatsOAuthClientSecret: appValues.String("stats_oauth_client_secret"),
		StatsOAuthTokenURL:     appValues.String("stats_oauth_token_url"),
		StatsCacheMB:           appValues.Int("stats_cache_mb"),
		StatsCacheTTL:          appValues.Duration("stats_cache_ttl", 10*time.Second),

		MetricsEnabled: appValues.Bool("metrics_enabled"),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),
	}

	// The in-process pollers and /api/stats share this token, so a random
	// one works whenever nobody outside the process needs it.
	if appCfg.StatsAPIToken == "" {
		appCfg.StatsAPIToken = hex.EncodeToString(securecookie.GenerateRandomKey(32))
		appCfg.statsTokenGenerated = true
		logger.Info("generated per-process stats API token")
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	u, err := url.Parse(appCfg.StatsAPIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("stats_api_base_url must be an absolute http(s) URL, got %q", appCfg.StatsAPIBaseURL)
	}

	if appCfg.StatsRefreshInterval <= 0 {
		return fmt.Errorf("stats_refresh_interval must be positive")
	}
	if appCfg.StatsRequestTimeout <= 0 {
		return fmt.Errorf("stats_request_timeout must be positive")
	}
	if appCfg.StatsCacheMB < 0 {
		return fmt.Errorf("stats_cache_mb must not be negative")
	}

	oauthSet := 0
	for _, v := range []string{appCfg.StatsOAuthClientID, appCfg.StatsOAuthClientSecret, appCfg.StatsOAuthTokenURL} {
		if v != "" {
			oauthSet++
		}
	}
	if oauthSet != 0 && oauthSet != 3 {
		return fmt.Errorf("stats_oauth_client_id, stats_oauth_client_secret and stats_oauth_token_url must be set together")
	}
	// /api/stats on this service only accepts stats_api_token, so OAuth
	// tokens sent to it would never authorize.
	if oauthSet == 3 && isLoopbackURL(appCfg.StatsAPIBaseURL) {
		return fmt.Errorf("stats_oauth_* is for an external stats service; stats_api_base_url %q points at this host", appCfg.StatsAPIBaseURL)
	}

	if (appCfg.AdminEmail == "") != (appCfg.AdminPassword == "") {
		return fmt.Errorf("admin_email and admin_password must be set together")
	}

	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.SessionKey == devSessionKey {
		return fmt.Errorf("session_key must be changed from the development default in production")
	}

	return nil
}

// isLoopbackURL reports whether raw names localhost or a loopback IP.
func isLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
