package dnscache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-dnscache/database"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	var (
		t0       = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		newStore = func(t *testing.T) *database.Store {
			return database.SetupTestStore(t)
		}
		newCtx = func() context.Context {
			return context.Background()
		}
		fixedClock = func(at time.Time) func() time.Time {
			return func() time.Time { return at }
		}
		staticResolver = func(ip string) Resolver {
			return ResolverFunc(func(ctx context.Context, hostname, recordType string) (string, error) {
				return ip, nil
			})
		}
		failingResolver = ResolverFunc(func(ctx context.Context, hostname, recordType string) (string, error) {
			return "", errors.New("no such host")
		})
	)

	t.Run("should resolve and store on first lookup", func(t *testing.T) {
		// Arrange
		var (
			store = newStore(t)
			ctx   = newCtx()
			sut   = New(store, WithResolver(staticResolver("1.2.3.4")), WithClock(fixedClock(t0)))
		)

		// Act
		ip, hit, err := sut.LookupOrResolve(ctx, "google.com", "A", 300*time.Second)

		// Assert
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "1.2.3.4", ip)

		stored, getErr := store.Get(ctx, "google.com", "A")
		require.NoError(t, getErr)
		require.NotNil(t, stored)
		assert.Equal(t, "1.2.3.4", stored.IPAddress)
		assert.WithinDuration(t, t0.Add(300*time.Second), stored.ExpiresAt, time.Second)
	})

	t.Run("should serve second lookup from cache", func(t *testing.T) {
		// Arrange
		var (
			store    = newStore(t)
			ctx      = newCtx()
			resolved = 0
			counting = ResolverFunc(func(ctx context.Context, hostname, recordType string) (string, error) {
				resolved++
				return "1.2.3.4", nil
			})
			sut = New(store, WithResolver(counting), WithClock(fixedClock(t0)))
		)

		// Act
		_, _, err := sut.LookupOrResolve(ctx, "google.com", "A", 300*time.Second)
		require.NoError(t, err)

		ip, hit, err := sut.LookupOrResolve(ctx, "google.com", "A", 300*time.Second)

		// Assert - resolver only consulted once
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, "1.2.3.4", ip)
		assert.Equal(t, 1, resolved)
	})

	t.Run("should re-resolve when record has expired", func(t *testing.T) {
		// Arrange
		var (
			store = newStore(t)
			ctx   = newCtx()
			now   = t0
			clock = func() time.Time { return now }
			sut   = New(store, WithResolver(staticResolver("1.2.3.4")), WithClock(clock))
		)

		_, _, err := sut.LookupOrResolve(ctx, "google.com", "A", 300*time.Second)
		require.NoError(t, err)

		// Act - move past expiry
		now = t0.Add(301 * time.Second)
		_, hit, err := sut.LookupOrResolve(ctx, "google.com", "A", 300*time.Second)

		// Assert
		require.NoError(t, err)
		assert.False(t, hit)

		stored, getErr := store.Get(ctx, "google.com", "A")
		require.NoError(t, getErr)
		require.NotNil(t, stored)
		assert.WithinDuration(t, now.Add(300*time.Second), stored.ExpiresAt, time.Second)
	})

	t.Run("should propagate resolution failure without writing", func(t *testing.T) {
		// Arrange
		var (
			store = newStore(t)
			ctx   = newCtx()
			sut   = New(store, WithResolver(failingResolver), WithClock(fixedClock(t0)))
		)

		// Act
		_, _, err := sut.LookupOrResolve(ctx, "down.example.com", "A", 300*time.Second)

		// Assert - failure is tagged and nothing was cached
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrResolution)

		stored, getErr := store.Get(ctx, "down.example.com", "A")
		require.NoError(t, getErr)
		assert.Nil(t, stored)
	})

	t.Run("should apply default ttl when none given", func(t *testing.T) {
		// Arrange
		var (
			store = newStore(t)
			ctx   = newCtx()
			sut   = New(store,
				WithResolver(staticResolver("1.2.3.4")),
				WithClock(fixedClock(t0)),
				WithDefaultTTL(120*time.Second))
		)

		// Act
		_, _, err := sut.LookupOrResolve(ctx, "google.com", "A", 0)

		// Assert
		require.NoError(t, err)

		stored, getErr := store.Get(ctx, "google.com", "A")
		require.NoError(t, getErr)
		require.NotNil(t, stored)
		assert.WithinDuration(t, t0.Add(120*time.Second), stored.ExpiresAt, time.Second)
	})

	t.Run("should list only active records", func(t *testing.T) {
		// Arrange
		var (
			store = newStore(t)
			ctx   = newCtx()
			sut   = New(store)
		)

		_, err := store.Upsert(ctx, "stale.example.com", "A", "10.0.0.1", 100*time.Second, t0)
		require.NoError(t, err)

		_, err = store.Upsert(ctx, "fresh.example.com", "A", "10.0.0.2", 3600*time.Second, t0)
		require.NoError(t, err)

		// Act
		records, err := sut.ListActive(ctx, t0.Add(200*time.Second))

		// Assert - expired row is still on disk but filtered out
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "fresh.example.com", records[0].Hostname)

		all, listErr := store.ListAll(ctx)
		require.NoError(t, listErr)
		assert.Len(t, all, 2)
	})

	t.Run("should purge expired records exactly once", func(t *testing.T) {
		// Arrange
		var (
			store = newStore(t)
			ctx   = newCtx()
			sut   = New(store, WithResolver(staticResolver("1.2.3.4")), WithClock(fixedClock(t0)))
		)

		_, _, err := sut.LookupOrResolve(ctx, "google.com", "A", 300*time.Second)
		require.NoError(t, err)

		// Act - at t0+301s the record is expired
		active, err := sut.ListActive(ctx, t0.Add(301*time.Second))
		require.NoError(t, err)

		removed, err := sut.Purge(ctx, t0.Add(301*time.Second))
		require.NoError(t, err)

		removedAgain, err := sut.Purge(ctx, t0.Add(301*time.Second))

		// Assert
		require.NoError(t, err)
		assert.Empty(t, active)
		assert.Equal(t, int64(1), removed)
		assert.Equal(t, int64(0), removedAgain)
	})

	t.Run("should count hits, misses and resolve failures", func(t *testing.T) {
		// Arrange
		var (
			store    = newStore(t)
			ctx      = newCtx()
			registry = prometheus.NewRegistry()
			metrics  = NewMetrics("dnscache_test", registry)
			sut      = New(store,
				WithResolver(staticResolver("1.2.3.4")),
				WithClock(fixedClock(t0)),
				WithMetrics(metrics))
		)

		// Act - one miss, one hit
		_, _, err := sut.LookupOrResolve(ctx, "google.com", "A", 300*time.Second)
		require.NoError(t, err)

		_, _, err = sut.LookupOrResolve(ctx, "google.com", "A", 300*time.Second)
		require.NoError(t, err)

		// Assert
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Hits))
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Misses))
		assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ResolveFailures))
	})
}
