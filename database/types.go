package database

import "time"

// Record represents a cached name resolution in the database, keyed by
// (hostname, record_type).
type Record struct {
	Hostname   string
	RecordType string
	IPAddress  string
	TTL        time.Duration
	CreatedAt  time.Time
	ExpiresAt  time.Time
}
