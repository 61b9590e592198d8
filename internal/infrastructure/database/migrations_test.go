package database

import (
	"context"
	"embed"
	"testing"
)

//go:embed testdata/*.sql
var fixtureFS embed.FS

// useFixtureMigrations points the runner at the testdata files for the
// duration of one test.
func useFixtureMigrations(t *testing.T) {
	t.Helper()

	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})

	MigrationsFS = fixtureFS
	MigrationsDir = "testdata"
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	useFixtureMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// The sensors table references rooms, so both existing proves the steps
	// ran in version order.
	if !tableExists(t, db, "rooms") {
		t.Error("rooms table not created")
	}
	if !tableExists(t, db, "sensors") {
		t.Error("sensors table not created")
	}

	var recorded int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&recorded)
	if err != nil {
		t.Fatalf("counting schema_migrations: %v", err)
	}
	if recorded != 2 {
		t.Errorf("recorded migrations = %d, want 2", recorded)
	}

	// Rerunning must be a no-op.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	useFixtureMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	// Only the newest step is reverted.
	if tableExists(t, db, "sensors") {
		t.Error("sensors table should have been dropped")
	}
	if !tableExists(t, db, "rooms") {
		t.Error("rooms table should remain")
	}

	var recorded int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&recorded)
	if err != nil {
		t.Fatalf("counting schema_migrations: %v", err)
	}
	if recorded != 1 {
		t.Errorf("recorded migrations after rollback = %d, want 1", recorded)
	}
}

func TestMigrateDownEmpty(t *testing.T) {
	useFixtureMigrations(t)
	db := openTestDB(t)

	// Nothing applied yet; rolling back is a no-op, not an error.
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := db.MigrateDown(context.Background()); err != nil {
			t.Fatalf("MigrateDown() #%d error = %v", i+1, err)
		}
	}
}

func TestMigrateWithoutEmbeddedFiles(t *testing.T) {
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS = embed.FS{}
	MigrationsDir = "."

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no embedded files error = %v", err)
	}
}

func TestReadMigrations(t *testing.T) {
	useFixtureMigrations(t)

	steps, err := readMigrations()
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(steps))
	}

	first, second := steps[0], steps[1]
	if first.Version != "20260105_090000" || first.Name != "rooms" {
		t.Errorf("first step = %s (%s), want 20260105_090000 (rooms)", first.Version, first.Name)
	}
	if second.Version != "20260105_091500" || second.Name != "sensors" {
		t.Errorf("second step = %s (%s), want 20260105_091500 (sensors)", second.Version, second.Name)
	}
	for _, m := range steps {
		if m.Up == "" || m.Down == "" {
			t.Errorf("step %s missing up or down SQL", m.Version)
		}
	}
}

func TestSplitMigrationName(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOk      bool
	}{
		{"20260301_100000_catalog_schema.up.sql", "20260301_100000", "catalog_schema", true, true},
		{"20260301_100000_catalog_schema.down.sql", "20260301_100000", "catalog_schema", false, true},
		{"20260301_100100_property_states.up.sql", "20260301_100100", "property_states", true, true},
		{"readme.txt", "", "", false, false},
		{"20260301_100000_no_direction.sql", "", "", false, false},
		{"short.up.sql", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := splitMigrationName(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion {
				t.Errorf("version = %q, want %q", version, tt.wantVersion)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if up != tt.wantUp {
				t.Errorf("up = %v, want %v", up, tt.wantUp)
			}
		})
	}
}
