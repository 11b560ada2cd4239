// Package statsstore computes the counters served by the stats API.
package statsstore

import (
	"context"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	"github.com/dalemusser/edusync/internal/app/system/metrics"
	"github.com/dalemusser/edusync/internal/app/system/timeouts"
	"github.com/dalemusser/edusync/internal/domain/models"
	json "github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// ActiveWindow is how recently a user must have made a request to count
	// as an active session.
	ActiveWindow = 15 * time.Minute
	// RecentWindow bounds the "recent uploads" counter.
	RecentWindow = 7 * 24 * time.Hour
)

// Options configures a Store. Zero values pick the defaults.
type Options struct {
	CacheBytes int           // freecache size; 0 disables caching
	CacheTTL   time.Duration // entries expire after this long (min 1s)
	Recorder   metrics.Recorder
	Logger     *zap.Logger
}

// Store counts users, resources and downloads per stats category.
type Store struct {
	users     *mongo.Collection
	resources *mongo.Collection
	downloads *mongo.Collection

	cache *freecache.Cache
	ttl   int
	group singleflight.Group

	rec metrics.Recorder
	log *zap.Logger
	now func() time.Time

	// count is swapped in tests.
	count func(ctx context.Context, c models.StatsCategory) (models.StatsCounters, error)
}

// New returns a Store reading from db.
func New(db *mongo.Database, opts Options) *Store {
	s := &Store{
		rec: opts.Recorder,
		log: opts.Logger,
		now: time.Now,
	}
	if db != nil {
		s.users = db.Collection("users")
		s.resources = db.Collection("resources")
		s.downloads = db.Collection("downloads")
	}
	if s.rec == nil {
		s.rec = metrics.Noop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if opts.CacheBytes > 0 {
		s.cache = freecache.NewCache(opts.CacheBytes)
		s.ttl = int(opts.CacheTTL / time.Second)
		if s.ttl < 1 {
			s.ttl = 1
		}
	}
	s.count = s.countMongo
	return s
}

func cacheKey(c models.StatsCategory) []byte {
	return []byte("stats:" + string(c))
}

// Counters returns the counters for category c. Results are cached for the
// configured TTL and concurrent misses for one category share a single
// round of queries.
func (s *Store) Counters(ctx context.Context, c models.StatsCategory) (models.StatsCounters, error) {
	if _, err := models.ParseStatsCategory(string(c)); err != nil {
		return models.StatsCounters{}, err
	}

	key := cacheKey(c)
	if s.cache != nil {
		if b, err := s.cache.Get(key); err == nil {
			var out models.StatsCounters
			if err := json.Unmarshal(b, &out); err == nil {
				s.rec.IncStatsCacheHits()
				return out, nil
			}
			s.cache.Del(key)
		}
		s.rec.IncStatsCacheMisses()
	}

	v, err, _ := s.group.Do(string(key), func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not
		// abort the others.
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Medium())
		defer cancel()

		out, err := s.count(qctx, c)
		if err != nil {
			return models.StatsCounters{}, err
		}
		if s.cache != nil {
			if b, err := json.Marshal(out); err == nil {
				if err := s.cache.Set(key, b, s.ttl); err != nil {
					s.log.Warn("stats cache set failed", zap.String("category", string(c)), zap.Error(err))
				}
			}
		}
		return out, nil
	})
	if err != nil {
		return models.StatsCounters{}, err
	}
	return v.(models.StatsCounters), nil
}

// invalidate drops the cached counters for c.
func (s *Store) invalidate(c models.StatsCategory) {
	if s.cache != nil {
		s.cache.Del(cacheKey(c))
	}
}

func (s *Store) countMongo(ctx context.Context, c models.StatsCategory) (models.StatsCounters, error) {
	now := s.now().UTC()
	out := models.StatsCounters{Status: "ok", Timestamp: now}
	live := bson.M{"status": bson.M{"$ne": "disabled"}}

	for _, f := range c.Fields() {
		var (
			coll   *mongo.Collection
			filter bson.M
			dst    **int64
		)
		switch f {
		case models.FieldUsers:
			coll, filter, dst = s.users, bson.M{}, &out.Users
		case models.FieldStudents:
			coll, filter, dst = s.users, bson.M{"role": models.RoleStudent}, &out.Students
		case models.FieldFaculty:
			coll, filter, dst = s.users, bson.M{"role": models.RoleFaculty}, &out.Faculty
		case models.FieldActiveSessions:
			coll, filter, dst = s.users, bson.M{"last_active_at": bson.M{"$gte": now.Add(-ActiveWindow)}}, &out.ActiveSessions
		case models.FieldResources:
			coll, filter, dst = s.resources, live, &out.Resources
		case models.FieldRecentUploads:
			coll, filter, dst = s.resources, bson.M{
				"status":     bson.M{"$ne": "disabled"},
				"created_at": bson.M{"$gte": now.Add(-RecentWindow)},
			}, &out.RecentUploads
		case models.FieldDownloads:
			coll, filter, dst = s.downloads, bson.M{}, &out.Downloads
		default:
			continue
		}

		n, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return models.StatsCounters{}, fmt.Errorf("count %s: %w", f, err)
		}
		*dst = models.Count(n)
	}
	return out, nil
}
