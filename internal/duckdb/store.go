package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/tinytelemetry/livelist/internal/duckdb/migrate"
	"github.com/tinytelemetry/livelist/internal/model"
)

var (
	// ErrNotFound is returned when a live id does not exist or has already ended.
	ErrNotFound = model.ErrNotFound
	// ErrInvalidCursor is returned for a cursor this store did not issue.
	ErrInvalidCursor = model.ErrInvalidCursor
)

// Store manages the DuckDB database connection and the live feed table.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	QueryTimeout time.Duration
}

// NewStore opens or creates a DuckDB database.
// If dbPath is empty, an in-memory database is used.
// An optional queryTimeout can be passed; it defaults to 30s.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create feed dir: %w", err)
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open feed database: %w", err)
	}

	if err := migrate.NewRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate feed schema: %w", err)
	}

	qt := 30 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{
		db:           db,
		dbPath:       dbPath,
		QueryTimeout: qt,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.dbPath
}

// queryCtx bounds parent by the store's configured query timeout.
func (s *Store) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, s.QueryTimeout)
}
