package statsstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/metrics"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/edusync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorderStub struct {
	metrics.Noop
	hits, misses atomic.Int64
}

func (r *recorderStub) IncStatsCacheHits()   { r.hits.Add(1) }
func (r *recorderStub) IncStatsCacheMisses() { r.misses.Add(1) }

func newFakeStore(t *testing.T, cacheBytes int, fn func(context.Context, models.StatsCategory) (models.StatsCounters, error)) (*Store, *recorderStub) {
	t.Helper()
	rec := &recorderStub{}
	s := New(nil, Options{CacheBytes: cacheBytes, CacheTTL: time.Minute, Recorder: rec})
	s.count = fn
	return s, rec
}

func TestCounters_CachesPerCategory(t *testing.T) {
	var calls atomic.Int64
	s, rec := newFakeStore(t, 1<<20, func(_ context.Context, c models.StatsCategory) (models.StatsCounters, error) {
		calls.Add(1)
		return models.StatsCounters{Users: models.Count(int64(len(c))), Status: "ok"}, nil
	})
	ctx := context.Background()

	first, err := s.Counters(ctx, models.StatsPublic)
	require.NoError(t, err)
	second, err := s.Counters(ctx, models.StatsPublic)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())

	_, err = s.Counters(ctx, models.StatsAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())

	assert.EqualValues(t, 1, rec.hits.Load())
	assert.EqualValues(t, 2, rec.misses.Load())

	s.invalidate(models.StatsPublic)
	_, err = s.Counters(ctx, models.StatsPublic)
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestCounters_NoCache(t *testing.T) {
	var calls atomic.Int64
	s, rec := newFakeStore(t, 0, func(context.Context, models.StatsCategory) (models.StatsCounters, error) {
		calls.Add(1)
		return models.StatsCounters{Status: "ok"}, nil
	})

	for i := 0; i < 3; i++ {
		_, err := s.Counters(context.Background(), models.StatsFaculty)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, calls.Load())
	assert.Zero(t, rec.hits.Load()+rec.misses.Load())
}

func TestCounters_CollapsesConcurrentMisses(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	s, _ := newFakeStore(t, 1<<20, func(context.Context, models.StatsCategory) (models.StatsCounters, error) {
		calls.Add(1)
		<-release
		return models.StatsCounters{Users: models.Count(7)}, nil
	})

	const n = 8
	var wg sync.WaitGroup
	results := make([]models.StatsCounters, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := s.Counters(context.Background(), models.StatsPublic)
			assert.NoError(t, err)
			results[i] = out
		}(i)
	}

	// Let the goroutines pile up behind the first query.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		v, ok := r.Value(models.FieldUsers)
		assert.True(t, ok)
		assert.EqualValues(t, 7, v)
	}
}

func TestCounters_ErrorNotCached(t *testing.T) {
	var calls atomic.Int64
	boom := errors.New("db down")
	s, _ := newFakeStore(t, 1<<20, func(context.Context, models.StatsCategory) (models.StatsCounters, error) {
		if calls.Add(1) == 1 {
			return models.StatsCounters{}, boom
		}
		return models.StatsCounters{Status: "ok"}, nil
	})

	_, err := s.Counters(context.Background(), models.StatsAdmin)
	assert.ErrorIs(t, err, boom)

	out, err := s.Counters(context.Background(), models.StatsAdmin)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Status)
}

func TestCounters_UnknownCategory(t *testing.T) {
	s, _ := newFakeStore(t, 0, func(context.Context, models.StatsCategory) (models.StatsCounters, error) {
		t.Fatal("count should not run")
		return models.StatsCounters{}, nil
	})
	_, err := s.Counters(context.Background(), models.StatsCategory("secret"))
	assert.Error(t, err)
}

func TestCountMongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now()
	admin := fixtures.CreateAdmin(ctx, "Admin", "admin@example.com")
	prof := fixtures.CreateFaculty(ctx, "Prof", "prof@example.com")
	fixtures.CreateStudent(ctx, "S1", "s1@example.com")
	fixtures.CreateStudent(ctx, "S2", "s2@example.com")
	fixtures.MarkActive(ctx, prof.ID, now.Add(-time.Minute))
	fixtures.MarkActive(ctx, admin.ID, now.Add(-time.Hour))

	fresh := fixtures.CreateResource(ctx, "Fresh notes", now.Add(-24*time.Hour))
	fixtures.CreateResource(ctx, "Old slides", now.Add(-30*24*time.Hour))
	fixtures.CreateDownload(ctx, fresh.ID, &prof.ID)
	fixtures.CreateDownload(ctx, fresh.ID, nil)
	fixtures.CreateDownload(ctx, fresh.ID, nil)

	s := New(db, Options{})

	admStats, err := s.Counters(ctx, models.StatsAdmin)
	require.NoError(t, err)
	assert.Equal(t, "ok", admStats.Status)
	assert.Equal(t, models.Count(4), admStats.Users)
	assert.Equal(t, models.Count(2), admStats.Students)
	assert.Equal(t, models.Count(1), admStats.Faculty)
	assert.Equal(t, models.Count(2), admStats.Resources)
	assert.Equal(t, models.Count(3), admStats.Downloads)
	assert.Equal(t, models.Count(1), admStats.ActiveSessions)
	assert.Nil(t, admStats.RecentUploads)

	facStats, err := s.Counters(ctx, models.StatsFaculty)
	require.NoError(t, err)
	assert.Equal(t, models.Count(1), facStats.RecentUploads)
	assert.Nil(t, facStats.Users)
}
