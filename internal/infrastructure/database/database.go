package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver registration
)

const (
	openTimeout = 5 * time.Second
	maxIdleTime = 30 * time.Minute

	dirMode  = 0o750
	fileMode = 0o600
)

// Config controls how the SQLite file is opened. It maps to the database
// section of config.yaml.
type Config struct {
	Path        string
	WALMode     bool
	BusyTimeout int // seconds
}

// DB is the connection pool behind the catalog and state tables.
//
// SQLite permits a single writer, so the pool is pinned to one connection.
// Writers never contend on database-level locks, only on the busy timeout.
type DB struct {
	*sql.DB
}

// Open creates the database file (and its directory) if needed and verifies
// the connection with a ping.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	pool, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Path, err)
	}

	pool.SetMaxOpenConns(1)
	pool.SetConnMaxIdleTime(maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging %s: %w", cfg.Path, err)
	}

	// The state table holds live building data; keep the file private.
	if err := os.Chmod(cfg.Path, fileMode); err != nil {
		pool.Close()
		return nil, fmt.Errorf("restricting %s permissions: %w", cfg.Path, err)
	}

	return &DB{DB: pool}, nil
}

// dsn builds the go-sqlite3 connection string. Foreign keys are always
// enforced; WAL and the busy timeout come from config.
func dsn(cfg Config) string {
	s := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		s += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return s
}

// Close releases the connection pool.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// HealthCheck runs a trivial query to confirm the file is still readable.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}
