package dnscache

import "time"

// Record represents one cached name resolution. At most one live record
// exists per (Hostname, RecordType) pair; a new write for the same key
// replaces the value and both timestamps.
type Record struct {
	Hostname   string
	RecordType string
	IPAddress  string
	TTL        time.Duration
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the record is stale at the given time. Liveness is
// derived from the caller-supplied clock, never read internally, so callers
// and tests control the notion of now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
