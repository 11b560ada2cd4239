// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/edusync/internal/app/resources"
	"github.com/dalemusser/edusync/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	viewdata.Init(viewdata.Site{
		Name:         appCfg.SiteName,
		FooterHTML:   appCfg.FooterHTML,
		SupportEmail: appCfg.SupportEmail,
	})

	// The first poll may run before the HTTP server is listening; that
	// poll reports offline and the next tick recovers.
	deps.StatsHub.Start()
	logger.Info("stats pollers started",
		zap.Duration("interval", appCfg.StatsRefreshInterval),
		zap.String("base_url", appCfg.StatsAPIBaseURL))
	return nil
}
