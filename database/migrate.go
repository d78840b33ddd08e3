package database

import (
	"database/sql"
	"fmt"
)

var (
	createRecordsTableSQL = `
CREATE TABLE IF NOT EXISTS dns_records (
    id            INTEGER     PRIMARY KEY,
    hostname      TEXT        NOT NULL,
    record_type   TEXT        NOT NULL,
    ip_address    TEXT        NOT NULL,
    ttl_seconds   INTEGER     NOT NULL,
    created_at    TIMESTAMP   NOT NULL,
    expires_at    TIMESTAMP   NOT NULL,

    UNIQUE (hostname, record_type)
);`

	createRecordsIndexSQL = `
CREATE INDEX IF NOT EXISTS dns_records_hostname_type_idx
ON dns_records (hostname, record_type);`
)

// Migrate creates the records table with its index.
func Migrate(db *sql.DB) error {
	if err := createRecordsTable(db); err != nil {
		return err
	}

	if err := createRecordsIndex(db); err != nil {
		return err
	}

	return nil
}

func createRecordsTable(db *sql.DB) error {
	if _, err := db.Exec(createRecordsTableSQL); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}
	return nil
}

func createRecordsIndex(db *sql.DB) error {
	if _, err := db.Exec(createRecordsIndexSQL); err != nil {
		return fmt.Errorf("failed to create records index: %w", err)
	}
	return nil
}
