package database

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// TestingT is an interface for testing compatibility.
type TestingT interface {
	Logf(format string, args ...any)
	FailNow()
	Cleanup(func())
	TempDir() string
}

// SetupTestStore creates a migrated store backed by an isolated database file.
func SetupTestStore(t TestingT) *Store {
	var path = filepath.Join(t.TempDir(), fmt.Sprintf("test_%s.db", uuid.New().String()[0:8]))

	db, err := Open(path, DefaultBusyTimeout)
	if err != nil {
		t.Logf("failed to open test database at %s: %v", path, err)
		t.FailNow()
	}

	if err := Migrate(db); err != nil {
		t.Logf("failed to migrate test database: %v", err)
		t.FailNow()
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return NewStore(db)
}
