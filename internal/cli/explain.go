package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relfilter/internal/compiler"
	"github.com/roach88/relfilter/internal/harness"
	"github.com/roach88/relfilter/internal/trace"
)

// ExplainResult is the payload of the explain command.
type ExplainResult struct {
	Calls       json.RawMessage `json:"calls"`
	Fingerprint string          `json:"fingerprint"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <filter.json>",
		Short: "Show the predicate calls a filter request compiles to",
		Long: `Compile a filter request against a recording adapter and print the
resulting call tree. No schema or database is needed.

Use "-" to read the request from stdin.

Examples:
  relfilter explain filter.json
  echo '[{"column_name":"name","operator":"=","value":"John"}]' | relfilter explain -
  relfilter explain filter.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runExplain(opts *RootOptions, requestPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	logger := opts.Logger(cmd.ErrOrStderr()).With("trace_id", formatter.TraceID)

	req, err := loadRequest(cmd, formatter, requestPath)
	if err != nil {
		return err
	}

	rec := trace.NewRecorder()
	c := compiler.New(compiler.WithLogger(logger))
	if err := c.Apply(rec, req); err != nil {
		return formatter.Fail(ExitFailure, harness.ErrorCode(err), err.Error(), nil)
	}

	calls := rec.Calls()
	data, err := trace.JSON(calls)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode calls", err)
	}
	fp, err := trace.Fingerprint(calls)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to fingerprint calls", err)
	}

	if opts.Format == "json" {
		return formatter.Success(ExplainResult{Calls: data, Fingerprint: fp})
	}

	w := cmd.OutOrStdout()
	if len(calls) == 0 {
		fmt.Fprintln(w, "(no calls)")
	} else {
		fmt.Fprint(w, trace.Text(calls))
	}
	fmt.Fprintf(w, "fingerprint: %s\n", fp)
	return nil
}
