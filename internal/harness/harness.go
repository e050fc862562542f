package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/roach88/relfilter/internal/compiler"
	"github.com/roach88/relfilter/internal/filter"
	"github.com/roach88/relfilter/internal/ir"
	"github.com/roach88/relfilter/internal/schema"
	"github.com/roach88/relfilter/internal/sqladapter"
	"github.com/roach88/relfilter/internal/store"
	"github.com/roach88/relfilter/internal/trace"
)

// Error codes for adapter failures. Compile failures use the compiler's
// own codes.
const (
	CodeUnknownRelation  = "UNKNOWN_RELATION"
	CodeUnknownAttribute = "UNKNOWN_ATTRIBUTE"
	CodeNestedOrder      = "NESTED_ORDER"
	CodeAdapterError     = "ADAPTER_ERROR"
)

// ErrorCode classifies a compile or adapter error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := compiler.CodeOf(err); code != "" {
		return string(code)
	}
	switch {
	case errors.Is(err, sqladapter.ErrUnknownRelation):
		return CodeUnknownRelation
	case errors.Is(err, sqladapter.ErrUnknownAttribute):
		return CodeUnknownAttribute
	case errors.Is(err, sqladapter.ErrNestedOrder):
		return CodeNestedOrder
	default:
		return CodeAdapterError
	}
}

// Harness runs scenarios.
type Harness struct {
	compiler *compiler.Compiler
	logger   *slog.Logger
}

// New creates a Harness that logs to logger.
func New(logger *slog.Logger) *Harness {
	return &Harness{
		compiler: compiler.New(compiler.WithLogger(logger)),
		logger:   logger,
	}
}

// Run executes a scenario with logging suppressed.
func Run(scenario *Scenario) (*Result, error) {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h.Run(context.Background(), scenario)
}

// Run executes a scenario and evaluates its expectation and assertions.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// returned error is reserved for problems with the scenario itself
// (unreadable schema or seed); compile and adapter errors are part of the
// Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	runID := uuid.NewString()
	log := h.logger.With("scenario", scenario.Name, "run_id", runID)

	sch, err := schema.Load(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	st, err := store.Open(store.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", runID))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if scenario.Seed != "" {
		seed, err := os.ReadFile(scenario.Seed)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed: %w", err)
		}
		if err := st.Exec(ctx, string(seed)); err != nil {
			return nil, fmt.Errorf("failed to seed database: %w", err)
		}
	}

	raw, err := json.Marshal(scenario.Request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := filter.ParseRequest(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}

	result := NewResult(runID)
	result.Err = h.execute(ctx, sch, st, req, result)
	result.ErrorCode = ErrorCode(result.Err)
	log.Debug("scenario executed", "rows", len(result.Rows), "error_code", result.ErrorCode)

	if err := Evaluate(scenario, result); err != nil {
		for _, e := range unwrapAll(err) {
			result.AddError(e.Error())
		}
	}

	log.Info("scenario finished", "pass", result.Pass)
	return result, nil
}

// execute compiles req against a recorder and the SQL adapter and runs the
// resulting query. The first compile or adapter error is returned.
func (h *Harness) execute(ctx context.Context, sch *schema.Schema, st *store.Store, req filter.Request, result *Result) error {
	rec := trace.NewRecorder()
	err := h.compiler.Apply(rec, req)
	result.Calls = rec.Calls()
	if err != nil {
		return err
	}

	fp, err := trace.Fingerprint(result.Calls)
	if err != nil {
		return fmt.Errorf("fingerprint calls: %w", err)
	}
	result.Fingerprint = fp

	b := sqladapter.New(sch)
	if err := h.compiler.Apply(b, req); err != nil {
		return err
	}
	result.SQL, result.Args, err = b.Build()
	if err != nil {
		return err
	}

	rows, err := st.Select(ctx, result.SQL, result.Args...)
	if err != nil {
		return err
	}
	result.Rows = rows

	pk := sch.RootTable().PrimaryKey
	for _, row := range rows {
		id, err := ir.FromAny(row.Get(pk))
		if err != nil {
			return fmt.Errorf("row id: %w", err)
		}
		result.IDs = append(result.IDs, id)
	}
	return nil
}
