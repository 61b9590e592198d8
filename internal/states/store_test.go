package states

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/emberhome/devices-core/internal/catalog"
	"github.com/emberhome/devices-core/internal/value"
)

// setupStateDB creates an in-memory SQLite database with the
// property_states table.
func setupStateDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE property_states (
			property_id TEXT PRIMARY KEY,
			entity_kind TEXT NOT NULL CHECK (entity_kind IN ('connector', 'device', 'channel')),
			actual_value TEXT,
			expected_value TEXT,
			pending TEXT NOT NULL DEFAULT 'false',
			valid INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestSQLiteStore_CreateAndFind(t *testing.T) {
	db := setupStateDB(t)
	store := NewSQLiteStore(db, catalog.EntityChannel)
	ctx := context.Background()

	p := testDynamicProperty("prop-1")
	fields := Fields{
		Actual: fieldRef(value.Float(25.5)),
		Valid:  boolRef(true),
	}

	created, err := store.Create(ctx, p, fields)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.PropertyID != "prop-1" {
		t.Errorf("PropertyID = %q, want %q", created.PropertyID, "prop-1")
	}

	got, err := store.Find(ctx, "prop-1")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Actual.FlattenString() != "25.5" {
		t.Errorf("Actual = %q, want %q", got.Actual.FlattenString(), "25.5")
	}
	if !got.Expected.IsNull() {
		t.Errorf("Expected = %q, want null", got.Expected.FlattenString())
	}
	if !got.Valid {
		t.Error("Valid = false, want true")
	}
	if got.Pending.IsSet() {
		t.Error("Pending set on fresh record")
	}
}

func TestSQLiteStore_FindMissing(t *testing.T) {
	db := setupStateDB(t)
	store := NewSQLiteStore(db, catalog.EntityChannel)

	_, err := store.Find(context.Background(), "no-such")
	if !errors.Is(err, ErrStateNotFound) {
		t.Errorf("Find() error = %v, want ErrStateNotFound", err)
	}
}

func TestSQLiteStore_Update(t *testing.T) {
	db := setupStateDB(t)
	store := NewSQLiteStore(db, catalog.EntityChannel)
	ctx := context.Background()

	p := testDynamicProperty("prop-1")
	rec, err := store.Create(ctx, p, Fields{Actual: fieldRef(value.Float(10))})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, changed, err := store.Update(ctx, p, rec, Fields{
		Expected: fieldRef(value.Float(20)),
		Pending:  pendingRef(PendingTrue()),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !changed {
		t.Fatal("Update() changed = false, want true")
	}
	if updated.Expected.FlattenString() != "20" {
		t.Errorf("Expected = %q, want %q", updated.Expected.FlattenString(), "20")
	}

	got, err := store.Find(ctx, "prop-1")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Expected.FlattenString() != "20" || !got.Pending.IsSet() {
		t.Errorf("persisted record = expected %q pending %v", got.Expected.FlattenString(), got.Pending.IsSet())
	}
}

func TestSQLiteStore_UpdateUnchanged(t *testing.T) {
	db := setupStateDB(t)
	store := NewSQLiteStore(db, catalog.EntityChannel)
	ctx := context.Background()

	p := testDynamicProperty("prop-1")
	rec, err := store.Create(ctx, p, Fields{Actual: fieldRef(value.Float(10)), Valid: boolRef(true)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, changed, err := store.Update(ctx, p, rec, Fields{
		Actual: fieldRef(value.String("10")),
		Valid:  boolRef(true),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if changed {
		t.Error("Update() with equivalent values reported a change")
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	db := setupStateDB(t)
	store := NewSQLiteStore(db, catalog.EntityChannel)
	ctx := context.Background()

	p := testDynamicProperty("prop-1")
	if _, err := store.Create(ctx, p, Fields{}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	existed, err := store.Delete(ctx, "prop-1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !existed {
		t.Error("Delete() existed = false, want true")
	}

	existed, err = store.Delete(ctx, "prop-1")
	if err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}
	if existed {
		t.Error("Delete() on missing record existed = true, want false")
	}
}

func TestSQLiteStore_EntityKindIsolation(t *testing.T) {
	db := setupStateDB(t)
	channelStore := NewSQLiteStore(db, catalog.EntityChannel)
	deviceStore := NewSQLiteStore(db, catalog.EntityDevice)
	ctx := context.Background()

	p := testDynamicProperty("prop-1")
	if _, err := channelStore.Create(ctx, p, Fields{}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := deviceStore.Find(ctx, "prop-1"); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("device store Find() error = %v, want ErrStateNotFound", err)
	}
	if existed, _ := deviceStore.Delete(ctx, "prop-1"); existed {
		t.Error("device store deleted a channel record")
	}
}

func TestNullStore(t *testing.T) {
	store := NewNullStore()
	ctx := context.Background()
	p := testDynamicProperty("prop-1")

	if _, err := store.Find(ctx, "prop-1"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Find() error = %v, want ErrNotConfigured", err)
	}
	if _, err := store.Create(ctx, p, Fields{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Create() error = %v, want ErrNotConfigured", err)
	}
	if _, _, err := store.Update(ctx, p, &StateRecord{}, Fields{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Update() error = %v, want ErrNotConfigured", err)
	}
	if _, err := store.Delete(ctx, "prop-1"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Delete() error = %v, want ErrNotConfigured", err)
	}
}
