package states

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emberhome/devices-core/internal/catalog"
	"github.com/emberhome/devices-core/internal/value"
)

// Store persists state records for the dynamic properties of one entity
// kind. Every method returns ErrNotConfigured when the deployment runs
// without backing storage; callers treat that as "feature unavailable".
type Store interface {
	// Find retrieves the state record for a property id.
	// Returns ErrStateNotFound when no record exists.
	Find(ctx context.Context, propertyID string) (*StateRecord, error)

	// Create inserts a new record for the property with the fields applied
	// to an empty record.
	Create(ctx context.Context, p *catalog.Property, fields Fields) (*StateRecord, error)

	// Update applies the fields to an existing record. The second result is
	// false when the fields left the record unchanged, in which case
	// nothing is written.
	Update(ctx context.Context, p *catalog.Property, current *StateRecord, fields Fields) (*StateRecord, bool, error)

	// Delete removes the record for a property id. The result reports
	// whether a record existed.
	Delete(ctx context.Context, propertyID string) (bool, error)
}

// NullStore is the Store used in headless deployments without state
// storage. Every operation reports ErrNotConfigured.
type NullStore struct{}

// NewNullStore creates a store for deployments without state storage.
func NewNullStore() *NullStore { return &NullStore{} }

// Find reports ErrNotConfigured.
func (*NullStore) Find(context.Context, string) (*StateRecord, error) {
	return nil, ErrNotConfigured
}

// Create reports ErrNotConfigured.
func (*NullStore) Create(context.Context, *catalog.Property, Fields) (*StateRecord, error) {
	return nil, ErrNotConfigured
}

// Update reports ErrNotConfigured.
func (*NullStore) Update(context.Context, *catalog.Property, *StateRecord, Fields) (*StateRecord, bool, error) {
	return nil, false, ErrNotConfigured
}

// Delete reports ErrNotConfigured.
func (*NullStore) Delete(context.Context, string) (bool, error) {
	return false, ErrNotConfigured
}

// SQLiteStore implements Store using SQLite. All entity kinds share the
// property_states table; each store instance reads and writes rows for its
// own kind.
type SQLiteStore struct {
	db         *sql.DB
	entityKind catalog.EntityKind
}

// NewSQLiteStore creates a SQLite-backed store for one entity kind.
// The db parameter should be an open SQLite connection.
func NewSQLiteStore(db *sql.DB, kind catalog.EntityKind) *SQLiteStore {
	return &SQLiteStore{db: db, entityKind: kind}
}

// Find retrieves the state record for a property id.
func (s *SQLiteStore) Find(ctx context.Context, propertyID string) (*StateRecord, error) {
	query := `
		SELECT property_id, entity_kind, actual_value, expected_value, pending, valid, created_at, updated_at
		FROM property_states
		WHERE property_id = ? AND entity_kind = ?`

	row := s.db.QueryRowContext(ctx, query, propertyID, string(s.entityKind))
	rec, err := scanStateRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("querying state record: %w", err)
	}
	return rec, nil
}

// Create inserts a new record for the property.
func (s *SQLiteStore) Create(ctx context.Context, p *catalog.Property, fields Fields) (*StateRecord, error) {
	now := time.Now().UTC().Truncate(time.Second)
	rec := StateRecord{
		PropertyID: p.ID,
		EntityKind: s.entityKind,
		Pending:    PendingFalse(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	rec, _ = fields.apply(rec)

	query := `
		INSERT INTO property_states (property_id, entity_kind, actual_value, expected_value, pending, valid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.PropertyID,
		string(rec.EntityKind),
		nullableValue(rec.Actual),
		nullableValue(rec.Expected),
		rec.Pending.String(),
		boolToInt(rec.Valid),
		rec.CreatedAt.Format(time.RFC3339),
		rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting state record: %w", err)
	}

	return &rec, nil
}

// Update applies the fields to an existing record.
func (s *SQLiteStore) Update(ctx context.Context, p *catalog.Property, current *StateRecord, fields Fields) (*StateRecord, bool, error) {
	rec, changed := fields.apply(*current)
	if !changed {
		return current, false, nil
	}
	rec.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	query := `
		UPDATE property_states
		SET actual_value = ?, expected_value = ?, pending = ?, valid = ?, updated_at = ?
		WHERE property_id = ? AND entity_kind = ?`

	result, err := s.db.ExecContext(ctx, query,
		nullableValue(rec.Actual),
		nullableValue(rec.Expected),
		rec.Pending.String(),
		boolToInt(rec.Valid),
		rec.UpdatedAt.Format(time.RFC3339),
		rec.PropertyID,
		string(rec.EntityKind),
	)
	if err != nil {
		return nil, false, fmt.Errorf("updating state record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, false, ErrStateNotFound
	}

	return &rec, true, nil
}

// Delete removes the record for a property id.
func (s *SQLiteStore) Delete(ctx context.Context, propertyID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM property_states WHERE property_id = ? AND entity_kind = ?",
		propertyID, string(s.entityKind),
	)
	if err != nil {
		return false, fmt.Errorf("deleting state record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanStateRecord scans a row into a StateRecord. Values come back in
// flattened string form; the conversion pipeline re-types them against the
// property's declared data type.
func scanStateRecord(scanner rowScanner) (*StateRecord, error) {
	var rec StateRecord
	var entityKind, pending string
	var actual, expected sql.NullString
	var valid int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&rec.PropertyID,
		&entityKind,
		&actual,
		&expected,
		&pending,
		&valid,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.EntityKind = catalog.EntityKind(entityKind)
	rec.Pending = ParsePending(pending)
	rec.Valid = valid != 0

	if actual.Valid {
		rec.Actual = value.String(actual.String)
	}
	if expected.Valid {
		rec.Expected = value.String(expected.String)
	}

	var parseErr error
	rec.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	rec.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &rec, nil
}

// nullableValue returns a sql.NullString holding the flattened value, null
// for a null Value.
func nullableValue(v value.Value) sql.NullString {
	if v.IsNull() {
		return sql.NullString{}
	}
	return sql.NullString{String: v.FlattenString(), Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
