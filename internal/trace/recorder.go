package trace

import (
	"github.com/roach88/relfilter/internal/filter"
	"github.com/roach88/relfilter/internal/ir"
)

// Kind identifies the adapter method a Call was recorded from.
type Kind string

const (
	KindPredicate      Kind = "predicate"
	KindValueInSet     Kind = "value_in_set"
	KindGroup          Kind = "group"
	KindRelationExists Kind = "relation_exists"
	KindRelationAbsent Kind = "relation_absent"
	KindOrderBy        Kind = "order_by"
)

// Call is one recorded adapter call. Only the fields relevant to Kind are
// set; Children holds the calls made inside a Group or RelationExists scope.
type Call struct {
	Seq       int
	Kind      Kind
	Conn      filter.Connective
	Attribute string
	Operator  filter.Operator
	Value     ir.Value
	Negated   bool
	Relation  string
	Direction filter.Direction
	Children  []Call
}

// FailFunc decides whether a call should fail. Returning a non-nil error
// makes the Recorder record the call and then return that error without
// running any nested build function.
type FailFunc func(Call) error

// Recorder is a filter.Adapter that records calls instead of applying them.
// It is not safe for concurrent use.
type Recorder struct {
	calls []Call
	seq   *int
	fail  FailFunc
}

var _ filter.Adapter = (*Recorder)(nil)

// Option configures a Recorder.
type Option func(*Recorder)

// WithFailure installs a FailFunc consulted before every call.
func WithFailure(fn FailFunc) Option {
	return func(r *Recorder) {
		r.fail = fn
	}
}

// FailAt fails the call with the given 1-based sequence number.
func FailAt(seq int, err error) FailFunc {
	return func(c Call) error {
		if c.Seq == seq {
			return err
		}
		return nil
	}
}

// NewRecorder returns an empty Recorder.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{seq: new(int)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Calls returns the top-level calls in the order they were made.
func (r *Recorder) Calls() []Call {
	return r.calls
}

// Len returns the total number of calls recorded, nested ones included.
func (r *Recorder) Len() int {
	return *r.seq
}

func (r *Recorder) Predicate(conn filter.Connective, attribute string, op filter.Operator, value ir.Value) error {
	return r.leaf(Call{Kind: KindPredicate, Conn: conn, Attribute: attribute, Operator: op, Value: value})
}

func (r *Recorder) ValueInSet(conn filter.Connective, attribute string, values ir.List, negated bool) error {
	return r.leaf(Call{Kind: KindValueInSet, Conn: conn, Attribute: attribute, Value: values, Negated: negated})
}

func (r *Recorder) Group(conn filter.Connective, build func(filter.Adapter) error) error {
	return r.scope(Call{Kind: KindGroup, Conn: conn}, build)
}

func (r *Recorder) RelationExists(relation string, conn filter.Connective, build func(filter.Adapter) error) error {
	return r.scope(Call{Kind: KindRelationExists, Conn: conn, Relation: relation}, build)
}

func (r *Recorder) RelationAbsent(relation string, conn filter.Connective) error {
	return r.leaf(Call{Kind: KindRelationAbsent, Conn: conn, Relation: relation})
}

func (r *Recorder) OrderBy(attribute string, dir filter.Direction) error {
	return r.leaf(Call{Kind: KindOrderBy, Attribute: attribute, Direction: dir})
}

func (r *Recorder) next(c Call) (Call, error) {
	*r.seq++
	c.Seq = *r.seq
	if r.fail != nil {
		if err := r.fail(c); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (r *Recorder) leaf(c Call) error {
	c, err := r.next(c)
	r.calls = append(r.calls, c)
	return err
}

func (r *Recorder) scope(c Call, build func(filter.Adapter) error) error {
	c, err := r.next(c)
	if err != nil {
		r.calls = append(r.calls, c)
		return err
	}

	nested := &Recorder{seq: r.seq, fail: r.fail}
	err = build(nested)
	c.Children = nested.calls
	r.calls = append(r.calls, c)
	return err
}
