package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relfilter/internal/compiler"
	"github.com/roach88/relfilter/internal/filter"
	"github.com/roach88/relfilter/internal/harness"
	"github.com/roach88/relfilter/internal/schema"
	"github.com/roach88/relfilter/internal/sqladapter"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	Dialect string // overrides the dialect derived from --driver
}

// SQLResult is the payload of the sql command.
type SQLResult struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql [schema] <filter.json>",
		Short: "Print the SQL a filter request compiles to",
		Long: `Compile a filter request against a CUE relation schema and print the
SELECT statement and its arguments. Nothing is executed.

Examples:
  relfilter sql shop.cue filter.json
  relfilter sql shop.cue filter.json --dialect pgx
  RELFILTER_SCHEMA=shop.cue relfilter sql filter.json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaPath, requestPath, err := schemaArgs(rootOpts, args)
			if err != nil {
				return err
			}
			return runSQL(opts, schemaPath, requestPath, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "placeholder dialect (sqlite3|pgx|mysql), defaults to --driver")

	return cmd
}

func runSQL(opts *SQLOptions, schemaPath, requestPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(cmd.ErrOrStderr()).With("trace_id", formatter.TraceID)

	name := opts.Dialect
	if name == "" {
		name = opts.Driver
	}
	dialect, err := sqladapter.ParseDialect(name)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	sch, err := loadSchema(formatter, schemaPath)
	if err != nil {
		return err
	}
	req, err := loadRequest(cmd, formatter, requestPath)
	if err != nil {
		return err
	}

	query, args, err := buildSQL(compiler.New(compiler.WithLogger(logger)), sch, dialect, req)
	if err != nil {
		return formatter.Fail(ExitFailure, harness.ErrorCode(err), err.Error(), nil)
	}
	logger.Debug("compiled request", "args", len(args))

	if opts.Format == "json" {
		if args == nil {
			args = []any{}
		}
		return formatter.Success(SQLResult{SQL: query, Args: args})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, query)
	for i, arg := range args {
		fmt.Fprintf(w, "  $%d = %#v\n", i+1, arg)
	}
	return nil
}

// buildSQL compiles req into a SELECT over sch's root table.
func buildSQL(c *compiler.Compiler, sch *schema.Schema, dialect sqladapter.Dialect, req filter.Request) (string, []any, error) {
	b := sqladapter.New(sch, sqladapter.WithDialect(dialect))
	if err := c.Apply(b, req); err != nil {
		return "", nil, err
	}
	return b.Build()
}
