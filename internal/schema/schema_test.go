package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_File(t *testing.T) {
	s, err := Load("testdata/shop.cue")
	require.NoError(t, err)

	assert.Equal(t, "users", s.Root)
	assert.Equal(t, []string{"users", "orders", "order_items", "departments", "companies"}, s.TableNames())

	users := s.RootTable()
	require.NotNil(t, users)
	assert.Equal(t, "id", users.PrimaryKey)
	assert.True(t, users.HasColumn("email"))
	assert.False(t, users.HasColumn("password"))

	orders, ok := users.Relation("orders")
	require.True(t, ok)
	assert.Equal(t, Relation{Name: "orders", Table: "orders", Kind: HasMany, LocalKey: "id", ForeignKey: "user_id"}, orders)

	dept, ok := users.Relation("department")
	require.True(t, ok)
	assert.Equal(t, Relation{Name: "department", Table: "departments", Kind: BelongsTo, LocalKey: "department_id", ForeignKey: "id"}, dept)

	_, ok = users.Relation("missing")
	assert.False(t, ok)
}

func TestLoad_Directory(t *testing.T) {
	s, err := Load("testdata")
	require.NoError(t, err)
	assert.Len(t, s.Tables, 5)
}

func TestLoad_MissingPath(t *testing.T) {
	_, err := Load("testdata/nope.cue")
	assert.Error(t, err)
}

func TestLoadString_Invalid(t *testing.T) {
	testCases := []struct {
		name     string
		src      string
		contains string
	}{
		{
			name:     "root not declared",
			src:      `root: "users", tables: {accounts: {columns: ["id"]}}`,
			contains: `root table "users" is not declared`,
		},
		{
			name:     "primary key not a column",
			src:      `root: "users", tables: {users: {primary_key: "uid", columns: ["id"]}}`,
			contains: `primary key "uid" is not a declared column`,
		},
		{
			name:     "relation to unknown table",
			src:      `root: "users", tables: {users: {columns: ["id"], relations: {orders: {table: "orders", foreign_key: "user_id"}}}}`,
			contains: `table "orders" is not declared`,
		},
		{
			name:     "has_many without foreign key",
			src:      `root: "a", tables: {a: {columns: ["id"], relations: {b: {table: "b"}}}, b: {columns: ["id"]}}`,
			contains: "has_many relation needs foreign_key",
		},
		{
			name:     "foreign key not a column",
			src:      `root: "a", tables: {a: {columns: ["id"], relations: {b: {table: "b", foreign_key: "a_id"}}}, b: {columns: ["id"]}}`,
			contains: `"a_id" is not a column of b`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadString(tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestLoadString_CollectsAllProblems(t *testing.T) {
	_, err := LoadString(`
root: "missing"
tables: {
	a: {primary_key: "pk", columns: ["id"], relations: {x: {table: "nowhere", foreign_key: "id"}}}
}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 errors occurred")
}

func TestLoadString_StructuralError(t *testing.T) {
	_, err := LoadString(`root: "a", tables: {a: {columns: []}}`)
	require.Error(t, err)

	var se *SchemaError
	if errors.As(err, &se) {
		assert.True(t, se.Pos.IsValid())
	}
}

func TestRelationString(t *testing.T) {
	r := Relation{Name: "orders", Table: "orders", LocalKey: "id", ForeignKey: "user_id"}
	assert.Equal(t, "orders(orders.user_id = owner.id)", r.String())
}
