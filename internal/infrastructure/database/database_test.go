package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// openTestDB opens a database in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestOpen(t *testing.T) {
	t.Run("creates file with restricted permissions", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close()

		info, err := os.Stat(dbPath)
		if err != nil {
			t.Fatalf("database file missing: %v", err)
		}
		if got := info.Mode().Perm(); got != fileMode {
			t.Errorf("file mode = %o, want %o", got, fileMode)
		}
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "deeper", "test.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
			t.Errorf("parent directory missing: %v", err)
		}
	})

	t.Run("single writer pool", func(t *testing.T) {
		db := openTestDB(t)
		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("MaxOpenConnections = %d, want 1", got)
		}
	})
}

func TestDSN(t *testing.T) {
	withWAL := dsn(Config{Path: "/var/lib/devices.db", WALMode: true, BusyTimeout: 5})
	if !strings.Contains(withWAL, "_busy_timeout=5000") {
		t.Errorf("dsn missing busy timeout: %q", withWAL)
	}
	if !strings.Contains(withWAL, "_foreign_keys=on") {
		t.Errorf("dsn missing foreign keys: %q", withWAL)
	}
	if !strings.Contains(withWAL, "_journal_mode=WAL") {
		t.Errorf("dsn missing WAL: %q", withWAL)
	}

	noWAL := dsn(Config{Path: "/var/lib/devices.db", BusyTimeout: 5})
	if strings.Contains(noWAL, "_journal_mode") {
		t.Errorf("dsn sets journal mode without WAL: %q", noWAL)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	db := openTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() with nil pool error = %v", err)
	}
}
