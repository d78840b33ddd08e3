package dnscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-dnscache/database"
)

// ErrResolution reports that the injected resolver could not produce an
// address. Nothing is written to the store when resolution fails.
var ErrResolution = errors.New("resolution failed")

// Cache is the operation-level API over the record store: lookup with
// resolve-and-store on miss, listing live records, and purging expired ones.
type Cache struct {
	store   *database.Store
	options options
}

// New creates a Cache on top of the given store.
func New(store *database.Store, opts ...Option) *Cache {
	var options = defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Cache{
		store:   store,
		options: options,
	}
}

// LookupOrResolve returns the cached address for (hostname, recordType) if a
// non-expired record exists, reporting a hit. Otherwise it resolves the
// hostname, stores the result with the given ttl and reports a miss. A ttl
// of zero or less falls back to the configured default.
func (c *Cache) LookupOrResolve(ctx context.Context, hostname, recordType string, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		ttl = c.options.defaultTTL
	}

	var now = c.options.clock()
	cached, err := c.store.Get(ctx, hostname, recordType)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up %s: %w", hostname, err)
	}

	if cached != nil && !toDomain(cached).Expired(now) {
		c.options.logger.Info("cache hit", "hostname", hostname, "type", recordType, "ip", cached.IPAddress)
		if c.options.metrics != nil {
			c.options.metrics.Hits.Inc()
		}
		return cached.IPAddress, true, nil
	}

	c.options.logger.Info("cache miss", "hostname", hostname, "type", recordType)
	if c.options.metrics != nil {
		c.options.metrics.Misses.Inc()
	}

	ip, err := c.options.resolver.Resolve(ctx, hostname, recordType)
	if err != nil {
		if c.options.metrics != nil {
			c.options.metrics.ResolveFailures.Inc()
		}
		c.options.logger.Warn("failed to resolve", "hostname", hostname, "type", recordType, "error", err)
		return "", false, fmt.Errorf("%w for %s: %v", ErrResolution, hostname, err)
	}

	stored, err := c.store.Upsert(ctx, hostname, recordType, ip, ttl, now)
	if err != nil {
		return "", false, fmt.Errorf("failed to store record for %s: %w", hostname, err)
	}

	c.options.logger.Info("record stored",
		"hostname", hostname, "type", recordType, "ip", ip, "expires_at", stored.ExpiresAt)
	return ip, false, nil
}

// ListActive returns the records that are still live at the given time,
// ordered by hostname. Rows that have expired but not yet been purged are
// filtered out.
func (c *Cache) ListActive(ctx context.Context, now time.Time) ([]*Record, error) {
	rows, err := c.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	var records = make([]*Record, 0, len(rows))
	for _, row := range rows {
		var record = toDomain(row)
		if record.Expired(now) {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// Purge physically removes every record that has expired at the given time
// and returns how many were removed.
func (c *Cache) Purge(ctx context.Context, now time.Time) (int64, error) {
	removed, err := c.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired records: %w", err)
	}

	if removed > 0 {
		c.options.logger.Info("purged expired records", "count", removed)
	}
	if c.options.metrics != nil {
		c.options.metrics.RecordsPurged.Add(float64(removed))
	}

	return removed, nil
}

func toDomain(row *database.Record) *Record {
	return &Record{
		Hostname:   row.Hostname,
		RecordType: row.RecordType,
		IPAddress:  row.IPAddress,
		TTL:        row.TTL,
		CreatedAt:  row.CreatedAt,
		ExpiresAt:  row.ExpiresAt,
	}
}
