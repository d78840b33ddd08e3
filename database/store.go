package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrLockTimeout reports that the engine's write lock could not be acquired
// before the caller's deadline or the configured busy window elapsed.
var ErrLockTimeout = errors.New("write lock not acquired in time")

// DefaultBusyTimeout is the engine's maximum busy-wait window for the write
// lock when the caller does not configure one.
const DefaultBusyTimeout = 5 * time.Second

// DBTX is an interface that both sql.DB and sql.Tx implement.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store provides record operations over the cache database.
type Store struct {
	db DBTX
}

// NewStore creates a new Store on top of an open database handle.
func NewStore(db DBTX) *Store {
	return &Store{
		db: db,
	}
}

// Open opens the cache database at path, creating it if needed. The database
// runs in write-ahead mode so readers proceed alongside the single writer,
// and busyTimeout bounds how long a writer waits for the write lock.
func Open(path string, busyTimeout time.Duration) (*sql.DB, error) {
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}

	var dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	return db, nil
}

var (
	upsertRecordSQL = `
INSERT INTO dns_records (hostname, record_type, ip_address, ttl_seconds, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (hostname, record_type)
DO UPDATE SET
    ip_address = excluded.ip_address,
    ttl_seconds = excluded.ttl_seconds,
    created_at = excluded.created_at,
    expires_at = excluded.expires_at;`

	getRecordSQL = `
SELECT hostname, record_type, ip_address, ttl_seconds, created_at, expires_at
FROM dns_records
WHERE hostname = ? AND record_type = ?;`

	listRecordsSQL = `
SELECT hostname, record_type, ip_address, ttl_seconds, created_at, expires_at
FROM dns_records
ORDER BY hostname ASC;`

	deleteExpiredSQL = `
DELETE FROM dns_records
WHERE expires_at <= ?;`
)

// Upsert atomically creates or replaces the record for (hostname, recordType).
// On conflict with an existing key the new value and timestamps fully replace
// the old ones. Timestamps derive from the caller-supplied now, so the record
// expires at now + ttl. The context deadline bounds the wait for the write
// lock; on expiry the call fails with ErrLockTimeout and the record is left
// either fully replaced or untouched.
func (s *Store) Upsert(ctx context.Context, hostname, recordType, ip string, ttl time.Duration, now time.Time) (*Record, error) {
	var record = &Record{
		Hostname:   hostname,
		RecordType: recordType,
		IPAddress:  ip,
		TTL:        ttl,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	_, err := s.db.ExecContext(ctx, upsertRecordSQL,
		record.Hostname, record.RecordType, record.IPAddress,
		int64(ttl/time.Second), record.CreatedAt, record.ExpiresAt,
	)
	if err != nil {
		return nil, classify(fmt.Sprintf("failed to upsert record for %s", hostname), err)
	}

	return record, nil
}

// Get retrieves the record for (hostname, recordType), or nil if not found.
func (s *Store) Get(ctx context.Context, hostname, recordType string) (*Record, error) {
	var (
		record  Record
		ttlSecs int64
		err     = s.db.QueryRowContext(ctx, getRecordSQL, hostname, recordType).Scan(
			&record.Hostname, &record.RecordType, &record.IPAddress,
			&ttlSecs, &record.CreatedAt, &record.ExpiresAt,
		)
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record for %s: %w", hostname, err)
	}

	record.TTL = time.Duration(ttlSecs) * time.Second
	return &record, nil
}

// ListAll returns every stored record ordered by hostname, including rows
// that have already expired.
func (s *Store) ListAll(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, listRecordsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			record  Record
			ttlSecs int64
		)
		if err := rows.Scan(
			&record.Hostname, &record.RecordType, &record.IPAddress,
			&ttlSecs, &record.CreatedAt, &record.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		record.TTL = time.Duration(ttlSecs) * time.Second
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// DeleteExpired removes every record whose expiry has passed at the given
// time and returns how many rows were removed.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, deleteExpiredSQL, now)
	if err != nil {
		return 0, classify("failed to delete expired records", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted records: %w", err)
	}

	return removed, nil
}

// classify maps the engine's busy and locked codes, and caller deadline
// expiry while waiting on the write lock, onto ErrLockTimeout. Any other
// failure is wrapped as-is so callers can tell the two apart.
func classify(msg string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%s: %w", msg, ErrLockTimeout)
		}
		return fmt.Errorf("%s: %w", msg, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", msg, ErrLockTimeout)
	}

	return fmt.Errorf("%s: %w", msg, err)
}
