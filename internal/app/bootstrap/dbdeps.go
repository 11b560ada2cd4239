// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/edusync/internal/app/system/metrics"
	"github.com/dalemusser/edusync/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the backends built in ConnectDB and shared by every later
// hook. The stats hub lives here because Startup and Shutdown both need it.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	StatsHub *workers.StatsHub
	Metrics  metrics.Recorder
}
