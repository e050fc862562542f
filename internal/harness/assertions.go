package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/relfilter/internal/ir"
	"github.com/roach88/relfilter/internal/trace"
)

// AssertionError is returned when an expectation or assertion fails.
type AssertionError struct {
	Type     string // assertion type, or "expect"
	Expected string
	Actual   string
	Calls    []trace.Call // recorded calls for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Calls) > 0 {
		fmt.Fprintf(&buf, "\nCalls:\n%s", indent(trace.Text(e.Calls)))
	}
	return buf.String()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n") + "\n"
}

// Evaluate checks result against the scenario's expectation and assertions
// and returns every failure.
func Evaluate(scenario *Scenario, result *Result) error {
	var errs *multierror.Error

	if err := checkExpect(scenario.Expect, result); err != nil {
		errs = multierror.Append(errs, err)
	}

	// Assertions describe a successful query; they are meaningless after an error.
	if result.Err == nil {
		for i, a := range scenario.Assertions {
			if err := checkAssertion(a, result); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("assertions[%d]: %w", i, err))
			}
		}
	}

	return errs.ErrorOrNil()
}

func unwrapAll(err error) []error {
	if merr, ok := err.(*multierror.Error); ok {
		return merr.Errors
	}
	return []error{err}
}

func checkExpect(expect Expect, result *Result) error {
	if expect.Error != "" {
		if result.ErrorCode != expect.Error {
			return &AssertionError{
				Type:     "expect",
				Expected: "error " + expect.Error,
				Actual:   describeOutcome(result),
				Calls:    result.Calls,
			}
		}
		return nil
	}

	if result.Err != nil {
		return &AssertionError{
			Type:     "expect",
			Expected: "success",
			Actual:   describeOutcome(result),
			Calls:    result.Calls,
		}
	}

	if expect.IDs == nil {
		return nil
	}
	want, err := toValues(expect.IDs)
	if err != nil {
		return fmt.Errorf("expect.ids: %w", err)
	}
	if !slices.Equal(want, result.IDs) {
		return &AssertionError{
			Type:     "expect",
			Expected: "ids " + formatIDs(want),
			Actual:   "ids " + formatIDs(result.IDs),
			Calls:    result.Calls,
		}
	}
	return nil
}

func checkAssertion(a Assertion, result *Result) error {
	switch a.Type {
	case AssertRowCount:
		if len(result.Rows) != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Count), Actual: fmt.Sprint(len(result.Rows))}
		}
	case AssertCallCount:
		if n := countCalls(result.Calls); n != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Count), Actual: fmt.Sprint(n), Calls: result.Calls}
		}
	case AssertIncludesIDs, AssertExcludesIDs:
		ids, err := toValues(a.IDs)
		if err != nil {
			return err
		}
		want := a.Type == AssertIncludesIDs
		for _, id := range ids {
			if slices.Contains(result.IDs, id) != want {
				return &AssertionError{
					Type:     a.Type,
					Expected: fmt.Sprintf("%s %s", a.Type, ir.Format(id)),
					Actual:   "ids " + formatIDs(result.IDs),
				}
			}
		}
	case AssertSQLContains:
		if !strings.Contains(result.SQL, a.Text) {
			return &AssertionError{Type: a.Type, Expected: a.Text, Actual: result.SQL}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func countCalls(calls []trace.Call) int {
	n := len(calls)
	for _, c := range calls {
		n += countCalls(c.Children)
	}
	return n
}

func toValues(raw []any) ([]ir.Value, error) {
	out := make([]ir.Value, len(raw))
	for i, v := range raw {
		val, err := ir.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("ids[%d]: %w", i, err)
		}
		out[i] = val
	}
	return out, nil
}

func formatIDs(ids []ir.Value) string {
	return ir.Format(ir.List(ids))
}

func describeOutcome(r *Result) string {
	if r.Err != nil {
		return fmt.Sprintf("error %s (%v)", r.ErrorCode, r.Err)
	}
	return "success with ids " + formatIDs(r.IDs)
}
