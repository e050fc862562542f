package cli

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/roach88/relfilter/internal/compiler"
	"github.com/roach88/relfilter/internal/filter"
	"github.com/roach88/relfilter/internal/harness"
	"github.com/roach88/relfilter/internal/trace"
)

// ValidationIssue is one compile problem found in a request.
type ValidationIssue struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                   `json:"valid"`
	Violations []filter.WireViolation `json:"violations,omitempty"`
	Errors     []ValidationIssue      `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <filter.json>",
		Short: "Validate a filter request without compiling it",
		Long: `Validate a filter request strictly.

Checks the document against the request JSON Schema, then checks every
filter node for unsupported operators, value shapes and relation paths.
Compilation skips malformed entries silently; validate reports them.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, requestPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	logger := opts.Logger(cmd.ErrOrStderr()).With("trace_id", formatter.TraceID)

	data, err := readInput(cmd, requestPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput,
			fmt.Sprintf("cannot read request %s: %v", requestPath, err), nil)
	}

	violations, err := filter.ValidateWire(data)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeWire, err.Error(), nil)
	}
	logger.Debug("wire validation finished", "violations", len(violations))

	result := ValidationResult{Violations: violations}
	if len(violations) == 0 {
		req, err := filter.ParseRequest(data)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeInput, err.Error(), nil)
		}
		result.Errors = checkRequest(req)
	}
	result.Valid = len(result.Violations) == 0 && len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return formatter.Success(validationSummary(opts, result))
}

// checkRequest collects every compile problem in req.
func checkRequest(req filter.Request) []ValidationIssue {
	var issues []ValidationIssue
	if err := compiler.Check(req.Filters); err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				issues = append(issues, toIssue(e))
			}
		} else {
			issues = append(issues, toIssue(err))
		}
	}
	if err := compiler.New().ApplySort(trace.NewRecorder(), req.Sort); err != nil {
		issues = append(issues, toIssue(err))
	}
	return issues
}

func toIssue(err error) ValidationIssue {
	issue := ValidationIssue{Code: harness.ErrorCode(err), Message: err.Error()}
	var cerr *compiler.CompileError
	if errors.As(err, &cerr) {
		issue.Path = cerr.Path
		issue.Message = cerr.Message
	}
	return issue
}

func validationSummary(opts *RootOptions, result ValidationResult) any {
	if opts.Format == "json" {
		return result
	}
	return "request is valid"
}

// outputValidationErrors reports every violation and issue and returns an
// ExitFailure error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Fail(ExitFailure, ErrCodeWire, "request is invalid", result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "request is invalid:")
	for _, v := range result.Violations {
		fmt.Fprintf(w, "  %s: %s\n", v.Field, v.Description)
	}
	for _, issue := range result.Errors {
		if issue.Path != "" {
			fmt.Fprintf(w, "  [%s] %s: %s\n", issue.Code, issue.Path, issue.Message)
		} else {
			fmt.Fprintf(w, "  [%s] %s\n", issue.Code, issue.Message)
		}
	}
	return NewExitError(ExitFailure, "request is invalid")
}
