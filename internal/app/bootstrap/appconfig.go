// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for EduSync.
// These values come from environment variables, config files, or flags
// (see config.go); WAFFLE's CoreConfig covers ports, TLS and logging.
type AppConfig struct {
	// MongoDB
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Sessions
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: edusync-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Site presentation
	SiteName     string
	FooterHTML   string // sanitized before it reaches a template
	SupportEmail string

	// Stats widgets
	StatsAPIBaseURL      string        // base URL of the service answering /api/stats/{category}
	StatsRefreshInterval time.Duration // how often each widget poller fetches
	StatsRequestTimeout  time.Duration // per-fetch HTTP timeout
	StatsAPIToken        string        // bearer token the pollers send and /api/stats accepts
	statsTokenGenerated  bool          // StatsAPIToken was made up at load, not configured

	// Optional OAuth2 client credentials for an external stats service.
	// When all three are set they replace StatsAPIToken on outgoing fetches.
	StatsOAuthClientID     string
	StatsOAuthClientSecret string
	StatsOAuthTokenURL     string

	// Server-side counter cache
	StatsCacheMB  int
	StatsCacheTTL time.Duration

	MetricsEnabled bool // expose /metrics

	// Admin bootstrap; both blank disables seeding.
	AdminEmail    string
	AdminPassword string
}
