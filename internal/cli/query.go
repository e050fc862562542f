package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/relfilter/internal/compiler"
	"github.com/roach88/relfilter/internal/filter"
	"github.com/roach88/relfilter/internal/harness"
	"github.com/roach88/relfilter/internal/sqladapter"
	"github.com/roach88/relfilter/internal/store"
	"github.com/roach88/relfilter/internal/trace"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Record bool // append the execution to the run log
}

// QueryResult is the payload of the query command.
type QueryResult struct {
	SQL      string           `json:"sql"`
	Args     []any            `json:"args"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	RunSeq   int64            `json:"run_seq,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [schema] <filter.json>",
		Short: "Run a filter request against a database",
		Long: `Compile a filter request against a CUE relation schema, execute the
resulting SELECT and print the matching rows.

With --record, the execution is appended to the relfilter_runs table
together with the request fingerprint.

Examples:
  relfilter query shop.cue filter.json --db ./shop.db
  relfilter query shop.cue filter.json --driver pgx --db postgres://localhost/shop
  relfilter query shop.cue filter.json --db ./shop.db --record --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaPath, requestPath, err := schemaArgs(rootOpts, args)
			if err != nil {
				return err
			}
			return runQuery(opts, schemaPath, requestPath, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the execution in the run log")

	return cmd
}

func runQuery(opts *QueryOptions, schemaPath, requestPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(cmd.ErrOrStderr()).With("trace_id", formatter.TraceID)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.DB == "" {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "--db is required", nil)
	}
	dialect, err := sqladapter.ParseDialect(opts.Driver)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	sch, err := loadSchema(formatter, schemaPath)
	if err != nil {
		return err
	}
	req, err := loadRequest(cmd, formatter, requestPath)
	if err != nil {
		return err
	}

	c := compiler.New(compiler.WithLogger(logger))
	query, args, err := buildSQL(c, sch, dialect, req)
	if err != nil {
		return formatter.Fail(ExitFailure, harness.ErrorCode(err), err.Error(), nil)
	}

	st, err := store.Open(string(dialect), opts.DB)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err.Error())
	}
	defer st.Close()

	rows, err := st.Select(ctx, query, args...)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeDatabase, "query failed", err.Error())
	}
	logger.Debug("query executed", "rows", len(rows))

	result := QueryResult{SQL: query, Args: args, RowCount: len(rows), Rows: make([]map[string]any, 0, len(rows))}
	if result.Args == nil {
		result.Args = []any{}
	}
	for _, row := range rows {
		result.Rows = append(result.Rows, row.Map())
	}

	if opts.Record {
		seq, err := recordRun(ctx, c, st, formatter.TraceID, query, len(rows), req)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeDatabase, "failed to record run", err.Error())
		}
		result.RunSeq = seq
		logger.Info("run recorded", "seq", seq)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputRows(cmd, rows)
}

// recordRun fingerprints req by its call tree and appends the execution to
// the run log.
func recordRun(ctx context.Context, c *compiler.Compiler, st *store.Store, runID, query string, rowCount int, req filter.Request) (int64, error) {
	rec := trace.NewRecorder()
	if err := c.Apply(rec, req); err != nil {
		return 0, err
	}
	fp, err := trace.Fingerprint(rec.Calls())
	if err != nil {
		return 0, err
	}

	if err := st.EnsureRunLog(ctx); err != nil {
		return 0, err
	}
	run, err := st.RecordRun(ctx, store.Run{
		ID:          runID,
		Fingerprint: fp,
		SQL:         query,
		RowCount:    rowCount,
	})
	if err != nil {
		return 0, err
	}
	return run.Seq, nil
}

// outputRows prints rows as a tab-aligned table.
func outputRows(cmd *cobra.Command, rows []store.Row) error {
	w := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	columns := rows[0].Columns
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = fmt.Sprint(row.Get(col))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}
