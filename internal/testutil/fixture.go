package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/relfilter/internal/store"
)

// WriteFile writes content to name under dir and returns the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// SeededSQLite creates a SQLite database file in a temp directory, runs
// seed against it and closes it again. It returns the database path.
func SeededSQLite(t testing.TB, seed string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")

	st, err := store.Open(store.DriverSQLite, path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer st.Close()

	if err := st.Exec(context.Background(), seed); err != nil {
		t.Fatalf("seed fixture: %v", err)
	}
	return path
}
