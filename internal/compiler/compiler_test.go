package compiler

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relfilter/internal/filter"
	"github.com/roach88/relfilter/internal/ir"
	"github.com/roach88/relfilter/internal/trace"
)

var callOpts = []cmp.Option{
	cmpopts.IgnoreFields(trace.Call{}, "Seq"),
	cmpopts.EquateEmpty(),
}

func newTestCompiler() *Compiler {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func compileJSON(t *testing.T, input string) (*trace.Recorder, error) {
	t.Helper()
	nodes, err := filter.Parse([]byte(input))
	require.NoError(t, err)

	rec := trace.NewRecorder()
	return rec, newTestCompiler().Compile(rec, nodes)
}

func predicate(conn filter.Connective, attr string, op filter.Operator, v ir.Value) trace.Call {
	return trace.Call{Kind: trace.KindPredicate, Conn: conn, Attribute: attr, Operator: op, Value: v}
}

func exists(conn filter.Connective, relation string, children ...trace.Call) trace.Call {
	return trace.Call{Kind: trace.KindRelationExists, Conn: conn, Relation: relation, Children: children}
}

func group(conn filter.Connective, children ...trace.Call) trace.Call {
	return trace.Call{Kind: trace.KindGroup, Conn: conn, Children: children}
}

func TestCompile(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []trace.Call
	}{
		{
			name:  "comparison leaf",
			input: `[{"column_name": "name", "operator": "=", "value": "John"}]`,
			expected: []trace.Call{
				predicate(filter.And, "name", filter.OpEq, ir.String("John")),
			},
		},
		{
			name: "and group",
			input: `[{"and": [
				{"column_name": "age", "operator": ">=", "value": 18},
				{"column_name": "status", "operator": "=", "value": "active"}
			]}]`,
			expected: []trace.Call{
				group(filter.And,
					predicate(filter.And, "age", filter.OpGtEq, ir.Int(18)),
					predicate(filter.And, "status", filter.OpEq, ir.String("active")),
				),
			},
		},
		{
			name: "or group",
			input: `[{"or": [
				{"column_name": "status", "operator": "=", "value": "active"},
				{"column_name": "status", "operator": "=", "value": "pending"}
			]}]`,
			expected: []trace.Call{
				group(filter.And,
					predicate(filter.Or, "status", filter.OpEq, ir.String("active")),
					predicate(filter.Or, "status", filter.OpEq, ir.String("pending")),
				),
			},
		},
		{
			name:  "single relation hop",
			input: `[{"column_name": "department.name", "operator": "=", "value": "Engineering"}]`,
			expected: []trace.Call{
				exists(filter.And, "department",
					predicate(filter.And, "name", filter.OpEq, ir.String("Engineering")),
				),
			},
		},
		{
			name:  "multi hop",
			input: `[{"column_name": "company.department.manager.name", "operator": "=", "value": "Jane"}]`,
			expected: []trace.Call{
				exists(filter.And, "company",
					exists(filter.And, "department",
						exists(filter.And, "manager",
							predicate(filter.And, "name", filter.OpEq, ir.String("Jane")),
						),
					),
				),
			},
		},
		{
			name:     "have",
			input:    `[{"have": "orders"}]`,
			expected: []trace.Call{exists(filter.And, "orders")},
		},
		{
			name:  "does not have",
			input: `[{"does_not_have": "orders"}]`,
			expected: []trace.Call{
				{Kind: trace.KindRelationAbsent, Conn: filter.And, Relation: "orders"},
			},
		},
		{
			name:  "in is case-insensitive",
			input: `[{"column_name": "category", "operator": "In", "value": ["a", "b"]}]`,
			expected: []trace.Call{
				{Kind: trace.KindValueInSet, Conn: filter.And, Attribute: "category", Value: ir.List{ir.String("a"), ir.String("b")}},
			},
		},
		{
			name:  "not in is negated",
			input: `[{"column_name": "category", "operator": "NOT IN", "value": ["a"]}]`,
			expected: []trace.Call{
				{Kind: trace.KindValueInSet, Conn: filter.And, Attribute: "category", Value: ir.List{ir.String("a")}, Negated: true},
			},
		},
		{
			name:     "malformed node skipped",
			input:    `[{"column_name": "name", "operator": "="}]`,
			expected: nil,
		},
		{
			name:     "empty group is a no-op",
			input:    `[{"or": []}]`,
			expected: nil,
		},
		{
			name:  "have with constraints compiles them inside the relation",
			input: `[{"have": "orders", "or": [
				{"column_name": "total", "operator": ">", "value": 100},
				{"column_name": "status", "operator": "=", "value": "rush"}
			]}]`,
			expected: []trace.Call{
				exists(filter.And, "orders",
					group(filter.And,
						predicate(filter.Or, "total", filter.OpGt, ir.Int(100)),
						predicate(filter.Or, "status", filter.OpEq, ir.String("rush")),
					),
				),
			},
		},
		{
			name: "relation traversal joins an or group with or",
			input: `[{"or": [
				{"column_name": "name", "operator": "like", "value": "A%"},
				{"column_name": "department.name", "operator": "=", "value": "Sales"},
				{"does_not_have": "orders"}
			]}]`,
			expected: []trace.Call{
				group(filter.And,
					predicate(filter.Or, "name", filter.OpLike, ir.String("A%")),
					exists(filter.Or, "department",
						predicate(filter.And, "name", filter.OpEq, ir.String("Sales")),
					),
					trace.Call{Kind: trace.KindRelationAbsent, Conn: filter.Or, Relation: "orders"},
				),
			},
		},
		{
			name: "nested groups",
			input: `[{"and": [
				{"column_name": "active", "operator": "=", "value": true},
				{"or": [
					{"column_name": "age", "operator": "<", "value": 18},
					{"column_name": "age", "operator": "between", "value": [65, 120]}
				]}
			]}]`,
			expected: []trace.Call{
				group(filter.And,
					predicate(filter.And, "active", filter.OpEq, ir.Bool(true)),
					group(filter.And,
						predicate(filter.Or, "age", filter.OpLt, ir.Int(18)),
						predicate(filter.Or, "age", filter.OpBetween, ir.List{ir.Int(65), ir.Int(120)}),
					),
				),
			},
		},
		{
			name: "hybrid traverses the relation prefix",
			input: `[{"column_name": "company.department.name", "or": [
				{"column_name": "budget", "operator": ">", "value": 1000},
				{"column_name": "name", "operator": "=", "value": "R&D"}
			]}]`,
			expected: []trace.Call{
				exists(filter.And, "company",
					exists(filter.And, "department",
						group(filter.And,
							predicate(filter.Or, "budget", filter.OpGt, ir.Int(1000)),
							predicate(filter.Or, "name", filter.OpEq, ir.String("R&D")),
						),
					),
				),
			},
		},
		{
			name: "hybrid without relation prefix stays at the current scope",
			input: `[{"column_name": "orders", "and": [
				{"column_name": "orders.total", "operator": ">", "value": 50}
			]}]`,
			expected: []trace.Call{
				group(filter.And,
					exists(filter.And, "orders",
						predicate(filter.And, "total", filter.OpGt, ir.Int(50)),
					),
				),
			},
		},
		{
			name:     "hybrid without children",
			input:    `[{"column_name": "orders.total", "and": []}]`,
			expected: nil,
		},
		{
			name:     "hybrid without children skips path checks",
			input:    `[{"column_name": ".x", "and": []}]`,
			expected: nil,
		},
		{
			name:     "group of empty nodes opens no scope",
			input:    `[{"or": [{"foo": 1}]}, {"and": [{"or": []}, {"column_name": "a.b", "and": []}]}]`,
			expected: nil,
		},
		{
			name:  "empty siblings are dropped inside a group",
			input: `[{"or": [{"foo": 1}, {"column_name": "a", "operator": "=", "value": 1}]}]`,
			expected: []trace.Call{
				group(filter.And,
					predicate(filter.Or, "a", filter.OpEq, ir.Int(1)),
				),
			},
		},
		{
			name: "null operators carry no value",
			input: `[
				{"column_name": "deleted_at", "operator": "NULL"},
				{"column_name": "email", "operator": "not null", "value": null}
			]`,
			expected: []trace.Call{
				predicate(filter.And, "deleted_at", filter.OpNull, nil),
				predicate(filter.And, "email", filter.OpNotNull, nil),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := compileJSON(t, tc.input)
			require.NoError(t, err)

			if diff := cmp.Diff(tc.expected, rec.Calls(), callOpts...); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompile_Idempotent(t *testing.T) {
	input := `[
		{"have": "orders", "and": [{"column_name": "items.sku", "operator": "in", "value": ["x", "y"]}]},
		{"or": [{"column_name": "a", "operator": "=", "value": 1}, {"does_not_have": "b"}]}
	]`

	first, err := compileJSON(t, input)
	require.NoError(t, err)
	second, err := compileJSON(t, input)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first.Calls(), second.Calls()))

	fp1, err := trace.Fingerprint(first.Calls())
	require.NoError(t, err)
	fp2, err := trace.Fingerprint(second.Calls())
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}

func TestCompile_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		is    func(error) bool
	}{
		{"unsupported operator", `[{"column_name": "x", "operator": "contains", "value": 1}]`, IsUnsupportedOperator},
		{"in with scalar", `[{"column_name": "x", "operator": "in", "value": 1}]`, IsInvalidValueShape},
		{"between with three values", `[{"column_name": "x", "operator": "between", "value": [1, 2, 3]}]`, IsInvalidValueShape},
		{"equality with list", `[{"column_name": "x", "operator": "=", "value": [1]}]`, IsInvalidValueShape},
		{"null with value", `[{"column_name": "x", "operator": "null", "value": 3}]`, IsInvalidValueShape},
		{"empty relation segment", `[{"column_name": "orders..total", "operator": "=", "value": 1}]`, IsEmptyRelationSegment},
		{"empty attribute", `[{"column_name": "orders.", "operator": "=", "value": 1}]`, IsEmptyRelationSegment},
		{"hybrid with empty segment", `[{"column_name": ".x", "and": [{"have": "y"}]}]`, IsEmptyRelationSegment},
		{"object value", `[{"column_name": "x", "operator": "=", "value": {"a": 1}}]`, IsInvalidValueShape},
		{"in with nested lists", `[{"column_name": "x", "operator": "in", "value": [[1], [2]]}]`, IsInvalidValueShape},
		{"integer out of range", `[{"column_name": "x", "operator": "=", "value": 12345678901234567890}]`, IsInvalidValueShape},
		{"unknown operator wins over object value", `[{"column_name": "x", "operator": "contains", "value": {"a": 1}}]`, IsUnsupportedOperator},
		{
			"object value after valid sibling",
			`[{"and": [
				{"column_name": "x", "operator": "=", "value": 1},
				{"column_name": "y", "operator": "in", "value": [{"a": 1}]}
			]}]`,
			IsInvalidValueShape,
		},
		{
			"nested error issues no calls",
			`[{"have": "orders", "and": [
				{"column_name": "total", "operator": ">", "value": 1},
				{"column_name": "total", "operator": "~", "value": 1}
			]}]`,
			IsUnsupportedOperator,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := compileJSON(t, tc.input)
			require.Error(t, err)
			assert.True(t, tc.is(err), "unexpected error: %v", err)
			assert.Zero(t, rec.Len(), "no adapter calls expected")
		})
	}
}

func TestCompile_EarlierNodesAreNotRolledBack(t *testing.T) {
	rec, err := compileJSON(t, `[
		{"column_name": "name", "operator": "=", "value": "John"},
		{"column_name": "x", "operator": "contains", "value": 1}
	]`)

	require.True(t, IsUnsupportedOperator(err))
	assert.Equal(t, 1, rec.Len())

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "x", ce.Path)
	assert.Equal(t, "contains", ce.Operator)
}

func TestCompile_AdapterErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("unknown relation")
	nodes, err := filter.Parse([]byte(`[
		{"column_name": "a", "operator": "=", "value": 1},
		{"column_name": "department.manager.name", "operator": "=", "value": "Jane"},
		{"column_name": "b", "operator": "=", "value": 2}
	]`))
	require.NoError(t, err)

	rec := trace.NewRecorder(trace.WithFailure(trace.FailAt(3, boom)))
	err = newTestCompiler().Compile(rec, nodes)

	assert.Same(t, boom, err)
	assert.Equal(t, 3, rec.Len())
}

func TestCompile_ProgrammaticNodes(t *testing.T) {
	rec := trace.NewRecorder()
	err := newTestCompiler().Compile(rec, []filter.Node{
		nil,
		filter.Empty{Reason: "test"},
		filter.RelationRequired{
			Relation:    "orders",
			Constraints: filter.Comparison{Path: "status", Operator: "!=", Value: ir.String("void")},
		},
	})
	require.NoError(t, err)

	expected := []trace.Call{
		exists(filter.And, "orders",
			predicate(filter.And, "status", filter.OpNotEq, ir.String("void")),
		),
	}
	assert.Empty(t, cmp.Diff(expected, rec.Calls(), callOpts...))

	err = newTestCompiler().Compile(trace.NewRecorder(), []filter.Node{
		filter.LogicalGroup{Connective: "xor", Children: []filter.Node{filter.Empty{}}},
	})
	assert.Equal(t, ErrCodeInvalidConnective, CodeOf(err))
}

func TestApplySort(t *testing.T) {
	testCases := []struct {
		name     string
		sort     *filter.Sort
		expected []trace.Call
		code     ErrorCode
	}{
		{"nil", nil, nil, ""},
		{"no attribute", &filter.Sort{Direction: "desc"}, nil, ""},
		{"default asc", &filter.Sort{Attribute: "name"}, []trace.Call{{Kind: trace.KindOrderBy, Attribute: "name", Direction: filter.Asc}}, ""},
		{"case-insensitive", &filter.Sort{Attribute: "age", Direction: "DESC"}, []trace.Call{{Kind: trace.KindOrderBy, Attribute: "age", Direction: filter.Desc}}, ""},
		{"bad direction", &filter.Sort{Attribute: "age", Direction: "upward"}, nil, ErrCodeInvalidSortDirection},
		{"related attribute", &filter.Sort{Attribute: "department.name"}, nil, ErrCodeUnsupportedSortPath},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := trace.NewRecorder()
			err := newTestCompiler().ApplySort(rec, tc.sort)

			if tc.code != "" {
				assert.Equal(t, tc.code, CodeOf(err))
				assert.True(t, IsSortError(err))
			} else {
				require.NoError(t, err)
			}
			assert.Empty(t, cmp.Diff(tc.expected, rec.Calls(), callOpts...))
		})
	}
}

func TestApply_SortComesLast(t *testing.T) {
	req, err := filter.ParseRequest([]byte(`{
		"filters": [{"column_name": "age", "operator": ">", "value": 21}, {"have": "orders"}],
		"sort_by": "name",
		"sort_order": "desc"
	}`))
	require.NoError(t, err)

	rec := trace.NewRecorder()
	require.NoError(t, newTestCompiler().Apply(rec, req))

	calls := rec.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, trace.KindOrderBy, calls[2].Kind)
}

func TestCheck_CollectsAllProblems(t *testing.T) {
	nodes, err := filter.Parse([]byte(`[
		{"column_name": "a", "operator": "contains", "value": 1},
		{"column_name": "b", "operator": "=", "value": 1},
		{"or": [{"column_name": "c", "operator": "in", "value": 1}, {"column_name": "d..e", "operator": "=", "value": 1}]}
	]`))
	require.NoError(t, err)

	err = Check(nodes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 errors occurred")
	assert.True(t, IsUnsupportedOperator(err))

	assert.NoError(t, Check(nodes[1:2]))
}

func TestCompile_ConcurrentUse(t *testing.T) {
	nodes, err := filter.Parse([]byte(`[{"column_name": "company.department.name", "operator": "=", "value": "Ops"}]`))
	require.NoError(t, err)

	c := newTestCompiler()
	reference := trace.NewRecorder()
	require.NoError(t, c.Compile(reference, nodes))

	var wg sync.WaitGroup
	results := make([]*trace.Recorder, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := trace.NewRecorder()
			if err := c.Compile(rec, nodes); err == nil {
				results[i] = rec
			}
		}(i)
	}
	wg.Wait()

	for _, rec := range results {
		require.NotNil(t, rec)
		assert.Empty(t, cmp.Diff(reference.Calls(), rec.Calls()))
	}
}
