package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for property catalog persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a property by its unique identifier.
	// Returns ErrPropertyNotFound if the property does not exist.
	GetByID(ctx context.Context, id string) (*Property, error)

	// List retrieves all properties.
	List(ctx context.Context) ([]Property, error)

	// ListByOwner retrieves all properties belonging to one catalog entity.
	ListByOwner(ctx context.Context, kind EntityKind, ownerID string) ([]Property, error)

	// ListChildren retrieves the mapped properties of a dynamic property.
	ListChildren(ctx context.Context, parentID string) ([]Property, error)

	// Create inserts a new property.
	// Returns ErrPropertyExists on an ID or identifier collision.
	Create(ctx context.Context, p *Property) error

	// Update modifies an existing property.
	// Returns ErrPropertyNotFound if the property does not exist.
	Update(ctx context.Context, p *Property) error

	// Delete removes a property by ID. Mapped children are removed by the
	// schema's ON DELETE CASCADE.
	// Returns ErrPropertyNotFound if the property does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const propertyColumns = `id, entity_kind, owner_id, kind, identifier, name,
	data_type, unit, format, invalid, scale, settable, queryable,
	equation_to, equation_from, parent_id, created_at, updated_at`

// GetByID retrieves a property by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("querying property by id: %w", err)
	}
	return p, nil
}

// List retrieves all properties.
func (r *SQLiteRepository) List(ctx context.Context) ([]Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties ORDER BY entity_kind, owner_id, identifier`
	return r.queryProperties(ctx, query)
}

// ListByOwner retrieves all properties belonging to one catalog entity.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, kind EntityKind, ownerID string) ([]Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties
		WHERE entity_kind = ? AND owner_id = ?
		ORDER BY identifier`
	return r.queryProperties(ctx, query, string(kind), ownerID)
}

// ListChildren retrieves the mapped properties of a dynamic property.
func (r *SQLiteRepository) ListChildren(ctx context.Context, parentID string) ([]Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties
		WHERE parent_id = ?
		ORDER BY identifier`
	return r.queryProperties(ctx, query, parentID)
}

// Create inserts a new property.
func (r *SQLiteRepository) Create(ctx context.Context, p *Property) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO properties (` + propertyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		string(p.EntityKind),
		p.OwnerID,
		string(p.Kind),
		p.Identifier,
		nullableString(p.Name),
		string(p.DataType),
		nullableString(p.Unit),
		nullableString(p.Format),
		nullableString(p.Invalid),
		nullableInt(p.Scale),
		boolToInt(p.Settable),
		boolToInt(p.Queryable),
		nullableString(p.EquationTo),
		nullableString(p.EquationFrom),
		nullableString(p.ParentID),
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrPropertyExists
		}
		return fmt.Errorf("inserting property: %w", err)
	}

	return nil
}

// Update modifies an existing property.
func (r *SQLiteRepository) Update(ctx context.Context, p *Property) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE properties SET
			entity_kind = ?, owner_id = ?, kind = ?, identifier = ?, name = ?,
			data_type = ?, unit = ?, format = ?, invalid = ?, scale = ?,
			settable = ?, queryable = ?, equation_to = ?, equation_from = ?,
			parent_id = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(p.EntityKind),
		p.OwnerID,
		string(p.Kind),
		p.Identifier,
		nullableString(p.Name),
		string(p.DataType),
		nullableString(p.Unit),
		nullableString(p.Format),
		nullableString(p.Invalid),
		nullableInt(p.Scale),
		boolToInt(p.Settable),
		boolToInt(p.Queryable),
		nullableString(p.EquationTo),
		nullableString(p.EquationFrom),
		nullableString(p.ParentID),
		p.UpdatedAt.Format(time.RFC3339),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPropertyNotFound
	}

	return nil
}

// Delete removes a property by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPropertyNotFound
	}

	return nil
}

// queryProperties executes a query and returns a slice of properties.
func (r *SQLiteRepository) queryProperties(ctx context.Context, query string, args ...any) ([]Property, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	var properties []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}

	return properties, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProperty scans a row or rows result into a Property.
func scanProperty(scanner rowScanner) (*Property, error) {
	var p Property
	var name, unit, format, invalid sql.NullString
	var equationTo, equationFrom, parentID sql.NullString
	var scale sql.NullInt64
	var settable, queryable int
	var entityKind, kind, dataType string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&p.ID,
		&entityKind,
		&p.OwnerID,
		&kind,
		&p.Identifier,
		&name,
		&dataType,
		&unit,
		&format,
		&invalid,
		&scale,
		&settable,
		&queryable,
		&equationTo,
		&equationFrom,
		&parentID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.EntityKind = EntityKind(entityKind)
	p.Kind = PropertyKind(kind)
	p.DataType = DataType(dataType)
	p.Settable = settable != 0
	p.Queryable = queryable != 0

	if name.Valid {
		p.Name = &name.String
	}
	if unit.Valid {
		p.Unit = &unit.String
	}
	if format.Valid {
		p.Format = &format.String
	}
	if invalid.Valid {
		p.Invalid = &invalid.String
	}
	if equationTo.Valid {
		p.EquationTo = &equationTo.String
	}
	if equationFrom.Valid {
		p.EquationFrom = &equationFrom.String
	}
	if parentID.Valid {
		p.ParentID = &parentID.String
	}
	if scale.Valid {
		s := int(scale.Int64)
		p.Scale = &s
	}

	var parseErr error
	p.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	p.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &p, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableInt returns a sql.NullInt64 for optional int pointers.
func nullableInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
