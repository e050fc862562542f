package store

import (
	"context"
	_ "embed"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

//go:embed schema.sql
var schemaSQL string

// Run is one recorded query execution.
type Run struct {
	Seq         int64
	ID          string
	Fingerprint string
	SQL         string
	RowCount    int
}

func (s *Store) statements() sq.StatementBuilderType {
	if s.driver == DriverPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// EnsureRunLog creates the run log table if it does not exist.
// This function is idempotent.
func (s *Store) EnsureRunLog(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create run log: %w", err)
	}
	return nil
}

// RecordRun appends r to the run log and returns it with Seq assigned.
func (s *Store) RecordRun(ctx context.Context, r Run) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var last int64
	err = s.statements().
		Select("COALESCE(MAX(seq), 0)").
		From("relfilter_runs").
		RunWith(tx).
		QueryRowContext(ctx).
		Scan(&last)
	if err != nil {
		return Run{}, fmt.Errorf("next seq: %w", err)
	}
	r.Seq = last + 1

	_, err = s.statements().
		Insert("relfilter_runs").
		Columns("seq", "run_id", "request_fingerprint", "query_sql", "row_count").
		Values(r.Seq, r.ID, r.Fingerprint, r.SQL, r.RowCount).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}
	return r, nil
}

// Runs returns recorded runs ordered by seq.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.statements().
		Select("seq", "run_id", "request_fingerprint", "query_sql", "row_count").
		From("relfilter_runs").
		OrderBy("seq ASC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Seq, &r.ID, &r.Fingerprint, &r.SQL, &r.RowCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
