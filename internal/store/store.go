package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the SQL driver and provides access to repositories.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps transactions and
	// shared-cache in-memory databases free of lock errors.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	ctx := context.Background()
	s := &Store{db: db, drv: entsql.OpenDB(dialect.SQLite, db)}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.seq, err = newSequenceCounter(ctx, s.drv)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Driver returns the underlying ent SQL driver.
func (s *Store) Driver() *entsql.Driver {
	return s.drv
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// CatalogRepo returns a CatalogRepo backed by this store.
func (s *Store) CatalogRepo() CatalogRepo {
	return &catalogRepo{drv: s.drv}
}

// LearnerRepo returns a LearnerRepo backed by this store.
func (s *Store) LearnerRepo() LearnerRepo {
	return &learnerRepo{drv: s.drv}
}

// EventRepo returns the event log backed by this store.
func (s *Store) EventRepo() *Events {
	return &Events{drv: s.drv, seq: s.seq}
}

// applyPragmas configures SQLite for optimal single-process performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. CONCEPTREE_DB environment variable
// 2. $XDG_DATA_HOME/conceptree/conceptree.db
// 3. ~/.local/share/conceptree/conceptree.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("CONCEPTREE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "conceptree", "conceptree.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// runTx executes fn inside a transaction, rolling back on error.
func runTx(ctx context.Context, drv *entsql.Driver, fn func(tx dialect.Tx) error) error {
	tx, err := drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// execQuery runs a built statement on conn.
func execQuery(ctx context.Context, conn dialect.ExecQuerier, q interface{ Query() (string, []any) }) (sql.Result, error) {
	query, args := q.Query()
	var res sql.Result
	if err := conn.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}
