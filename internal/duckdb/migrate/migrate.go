// Package migrate creates and upgrades the live feed schema.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Step is one versioned schema change, loaded from a file named
// NNN_description.sql.
type Step struct {
	Version int
	Name    string
	SQL     string
}

// Runner applies schema steps to a database and records each applied version
// in schema_migrations.
type Runner struct {
	db    *sql.DB
	steps func() ([]Step, error)
}

// NewRunner creates a runner for the feed schema bundled with this package.
func NewRunner(db *sql.DB) *Runner {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		// The embed pattern guarantees the directory.
		panic(err)
	}
	return NewRunnerFS(db, sub)
}

// NewRunnerFS creates a runner reading steps from the root of fsys.
func NewRunnerFS(db *sql.DB, fsys fs.FS) *Runner {
	return &Runner{db: db, steps: func() ([]Step, error) { return LoadSteps(fsys) }}
}

// LoadSteps reads every NNN_*.sql file at the root of fsys, ordered by
// version. Files without a numeric prefix are skipped; duplicate versions are
// an error.
func LoadSteps(fsys fs.FS) ([]Step, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("migrate: listing steps: %w", err)
	}

	steps := make([]Step, 0, len(names))
	for _, name := range names {
		prefix, _, ok := strings.Cut(path.Base(name), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			continue
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("migrate: reading %s: %w", name, err)
		}
		steps = append(steps, Step{Version: version, Name: name, SQL: string(body)})
	}

	slices.SortFunc(steps, func(a, b Step) int { return a.Version - b.Version })
	for i := 1; i < len(steps); i++ {
		if steps[i].Version == steps[i-1].Version {
			return nil, fmt.Errorf("migrate: version %d used by %s and %s", steps[i].Version, steps[i-1].Name, steps[i].Name)
		}
	}
	return steps, nil
}

func (r *Runner) ensureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT current_timestamp
	)`)
	if err != nil {
		return fmt.Errorf("migrate: creating schema_migrations: %w", err)
	}
	return nil
}

// Applied returns the set of versions already recorded.
func (r *Runner) Applied(ctx context.Context) (map[int]bool, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("migrate: reading applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// Pending returns the steps not yet applied, in version order.
func (r *Runner) Pending(ctx context.Context) ([]Step, error) {
	steps, err := r.steps()
	if err != nil {
		return nil, err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	pending := steps[:0:0]
	for _, s := range steps {
		if !applied[s.Version] {
			pending = append(pending, s)
		}
	}
	return pending, nil
}

// Run applies all pending steps.
func (r *Runner) Run() error {
	return r.RunContext(context.Background())
}

// RunContext applies every pending step in version order, each in its own
// transaction together with its schema_migrations row.
func (r *Runner) RunContext(ctx context.Context) error {
	pending, err := r.Pending(ctx)
	if err != nil {
		return err
	}
	for _, s := range pending {
		if err := r.apply(ctx, s); err != nil {
			return err
		}
		log.Printf("migrate: applied %s", s.Name)
	}
	return nil
}

func (r *Runner) apply(ctx context.Context, s Step) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin %s: %w", s.Name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, s.SQL); err != nil {
		return fmt.Errorf("migrate: executing %s: %w", s.Name, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, s.Version, s.Name); err != nil {
		return fmt.Errorf("migrate: recording %s: %w", s.Name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit %s: %w", s.Name, err)
	}
	return nil
}
