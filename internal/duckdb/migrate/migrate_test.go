package migrate

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "github.com/duckdb/duckdb-go/v2"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadStepsOrdered(t *testing.T) {
	fsys := fstest.MapFS{
		"010_later.sql":   {Data: []byte("SELECT 10;")},
		"002_second.sql":  {Data: []byte("SELECT 2;")},
		"001_first.sql":   {Data: []byte("SELECT 1;")},
		"README.sql":      {Data: []byte("not a step")},
		"notes.txt":       {Data: []byte("ignored")},
		"000_zero.sql":    {Data: []byte("ignored")},
		"abc_invalid.sql": {Data: []byte("ignored")},
	}

	steps, err := LoadSteps(fsys)
	if err != nil {
		t.Fatalf("LoadSteps: %v", err)
	}
	var got []int
	for _, s := range steps {
		got = append(got, s.Version)
	}
	want := []int{1, 2, 10}
	if len(got) != len(want) {
		t.Fatalf("versions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("versions = %v, want %v", got, want)
		}
	}
}

func TestLoadStepsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := LoadSteps(fsys); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestRunCreatesLivesTable(t *testing.T) {
	db := openTestDB(t)

	if err := NewRunner(db).Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, table := range []string{"lives", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	// seq is assigned from the sequence when omitted.
	if _, err := db.Exec("INSERT INTO lives (id, nickname, started_at) VALUES ('a', 'nick', current_timestamp)"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var seq int64
	if err := db.QueryRow("SELECT seq FROM lives WHERE id = 'a'").Scan(&seq); err != nil {
		t.Fatalf("select seq: %v", err)
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	r := NewRunner(db)

	pending, err := r.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Version != 1 {
		t.Fatalf("pending before run = %+v, want version 1 only", pending)
	}

	if err := r.Run(); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := r.Run(); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	pending, err = r.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after run = %+v", pending)
	}
}

func TestRunAppliesLateStepsAndSkipsRecorded(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	first := fstest.MapFS{
		"001_base.sql": {Data: []byte("CREATE TABLE t (a INTEGER);")},
		"003_more.sql": {Data: []byte("ALTER TABLE t ADD COLUMN c INTEGER;")},
	}
	if err := NewRunnerFS(db, first).RunContext(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// A step numbered below the latest applied one still runs.
	second := fstest.MapFS{
		"001_base.sql": first["001_base.sql"],
		"002_gap.sql":  {Data: []byte("ALTER TABLE t ADD COLUMN b INTEGER;")},
		"003_more.sql": first["003_more.sql"],
	}
	if err := NewRunnerFS(db, second).RunContext(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if _, err := db.Exec("INSERT INTO t (a, b, c) VALUES (1, 2, 3)"); err != nil {
		t.Fatalf("columns missing after both runs: %v", err)
	}
	applied, err := NewRunnerFS(db, second).Applied(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int{1, 2, 3} {
		if !applied[v] {
			t.Errorf("version %d not recorded", v)
		}
	}
}

func TestRunRollsBackFailedStep(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	fsys := fstest.MapFS{
		"001_bad.sql": {Data: []byte("CREATE TABLE broken (a NOT_A_TYPE);")},
	}
	if err := NewRunnerFS(db, fsys).RunContext(ctx); err == nil {
		t.Fatal("expected error from invalid step")
	}
	applied, err := NewRunnerFS(db, fsys).Applied(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if applied[1] {
		t.Error("failed step was recorded as applied")
	}
}
