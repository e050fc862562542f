package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relfilter/internal/store"
)

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, t.TempDir(), "nested/file.txt", "hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestSeededSQLite(t *testing.T) {
	path := SeededSQLite(t, "CREATE TABLE t (id INTEGER PRIMARY KEY); INSERT INTO t (id) VALUES (7);")

	st, err := store.Open(store.DriverSQLite, path)
	require.NoError(t, err)
	defer st.Close()

	rows, err := st.Select(context.Background(), "SELECT id FROM t")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(7), rows[0].Get("id"))
}
