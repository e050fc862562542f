package harness

import (
	"github.com/roach88/relfilter/internal/ir"
	"github.com/roach88/relfilter/internal/store"
	"github.com/roach88/relfilter/internal/trace"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when the expectation and every assertion hold.
	Pass bool `json:"pass"`

	// RunID identifies this run's database.
	RunID string `json:"run_id"`

	// Calls is the adapter call tree recorded during compilation.
	Calls []trace.Call `json:"-"`

	// Fingerprint identifies Calls.
	Fingerprint string `json:"fingerprint,omitempty"`

	// SQL and Args are the executed statement.
	SQL  string `json:"sql,omitempty"`
	Args []any  `json:"args,omitempty"`

	// IDs are the root primary keys returned, in order.
	IDs []ir.Value `json:"-"`

	// Rows are the returned rows.
	Rows []store.Row `json:"-"`

	// Err is the compile or adapter error, if any. ErrorCode classifies it.
	Err       error  `json:"-"`
	ErrorCode string `json:"error_code,omitempty"`

	// Errors holds one message per failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(runID string) *Result {
	return &Result{Pass: true, RunID: runID}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
