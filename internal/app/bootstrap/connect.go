// internal/app/bootstrap/connect.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/edusync/internal/app/system/metrics"
	"github.com/dalemusser/edusync/internal/app/system/statsclient"
	"github.com/dalemusser/edusync/internal/app/system/timeouts"
	"github.com/dalemusser/edusync/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

// ConnectDB opens the MongoDB client and builds the stats pollers.
// The pollers are created here but not started until Startup.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	clientOpts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize))

	rec := metrics.New(appCfg.MetricsEnabled)

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		StatsHub:      newStatsHub(ctx, appCfg, rec, logger),
		Metrics:       rec,
	}, nil
}

func newStatsHub(ctx context.Context, appCfg AppConfig, rec metrics.Recorder, logger *zap.Logger) *workers.StatsHub {
	opts := []statsclient.Option{
		statsclient.WithTimeout(appCfg.StatsRequestTimeout),
		statsclient.WithLogger(logger.Named("statsclient")),
	}
	if appCfg.StatsOAuthClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     appCfg.StatsOAuthClientID,
			ClientSecret: appCfg.StatsOAuthClientSecret,
			TokenURL:     appCfg.StatsOAuthTokenURL,
		}
		// The token source outlives the startup context.
		opts = append(opts, statsclient.WithTokenSource(cc.TokenSource(context.WithoutCancel(ctx))))
		logger.Info("stats client using OAuth2 client credentials", zap.String("token_url", cc.TokenURL))
	} else if token := outgoingStatsToken(appCfg); token != "" {
		opts = append(opts, statsclient.WithBearerToken(token))
	} else {
		logger.Warn("stats_api_token not set for a remote stats service; admin and faculty widgets will be unauthorized",
			zap.String("base_url", appCfg.StatsAPIBaseURL))
	}

	client := statsclient.New(appCfg.StatsAPIBaseURL, opts...)
	return workers.NewStatsHub(client, appCfg.StatsRefreshInterval, logger.Named("stats"),
		workers.WithPollObserver(rec))
}

// outgoingStatsToken is the bearer token the pollers may send. A token
// generated for this process never leaves the host.
func outgoingStatsToken(appCfg AppConfig) string {
	if appCfg.statsTokenGenerated && !isLoopbackURL(appCfg.StatsAPIBaseURL) {
		return ""
	}
	return appCfg.StatsAPIToken
}
