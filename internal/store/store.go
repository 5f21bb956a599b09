package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on items(bucket, seq) for ordered listings
const currentSchemaVersion = 1

// DefaultBucket is the bucket the Store's own dom.Storage methods use.
const DefaultBucket = "default"

// Store provides durable key/value storage.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db  *sql.DB
	seq atomic.Int64
	def *Bucket
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically, and opens the
// default bucket.
//
// The database is configured with:
//   - WAL mode so readers see a stable snapshot while a step writes
//   - NORMAL synchronous mode (a crash may lose the last writes, never the file)
//   - 5-second busy timeout for lock contention across processes
//   - Foreign key enforcement so deleting a bucket drops its items
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sql.Open is lazy; fail here rather than on the first storage step
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1) // Single writer to avoid SQLITE_BUSY errors
	db.SetMaxIdleConns(1) // Keep one connection ready for the next step

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	// Resume the logical clock after the newest write on disk
	s := &Store{db: db}
	var maxSeq sql.NullInt64
	if err := db.QueryRow("SELECT MAX(seq) FROM items").Scan(&maxSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read seq: %w", err)
	}
	s.seq.Store(maxSeq.Int64)

	if s.def, err = s.Bucket(context.Background(), DefaultBucket); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Default returns the default bucket.
func (s *Store) Default() *Bucket { return s.def }

// GetItem implements dom.Storage on the default bucket.
func (s *Store) GetItem(key string) (string, bool, error) { return s.def.GetItem(key) }

// SetItem implements dom.Storage on the default bucket.
func (s *Store) SetItem(key, value string) error { return s.def.SetItem(key, value) }

// RemoveItem implements dom.Storage on the default bucket.
func (s *Store) RemoveItem(key string) error { return s.def.RemoveItem(key) }

// Close closes the database connection.
// Buckets obtained from the store are unusable afterwards.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// nextSeq returns the next logical write time. Items record it so
// listings come back in write order regardless of wall-clock skew.
func (s *Store) nextSeq() int64 {
	return s.seq.Add(1)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// migration upgrades a database to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations are applied in order to databases whose user_version is
// below their version. Fresh databases run them too, so every statement
// must be idempotent.
var migrations = []migration{
	{1, "index items by bucket and seq", `CREATE INDEX IF NOT EXISTS idx_items_bucket_seq ON items(bucket, seq)`},
}

// runMigrations brings user_version up to currentSchemaVersion, one
// transaction per step.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("set user_version %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		version = m.version
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
