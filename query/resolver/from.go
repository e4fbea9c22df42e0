package resolver

import (
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

// JoinKind selects between inner and left outer joins
type JoinKind int

const (
	InnerJoin JoinKind = iota
	OuterJoin
)

// JoinStep is one join of a FromClause
type JoinStep struct {
	// Alias identifies the step; no two steps share one
	Alias      string
	Selectable expr.Expression
	Condition  expr.Expression
	Kind       JoinKind
	// Path is the attribute path the join was built for, empty for fixed joins
	Path string
}

// FromClause is the join graph accumulated while resolving one query
type FromClause struct {
	root  string
	steps []JoinStep
	index map[string]int
}

// NewFromClause creates a FROM clause selecting from root
func NewFromClause(root string) *FromClause {
	return &FromClause{
		root:  root,
		index: make(map[string]int),
	}
}

// Root returns the root table name
func (f *FromClause) Root() string {
	return f.root
}

// Contains reports whether alias names the root or one of the join steps
func (f *FromClause) Contains(alias string) bool {
	if alias == f.root {
		return true
	}
	_, ok := f.index[alias]
	return ok
}

// Step returns the join step with the given alias
func (f *FromClause) Step(alias string) (JoinStep, bool) {
	i, ok := f.index[alias]
	if !ok {
		return JoinStep{}, false
	}
	return f.steps[i], true
}

// Steps returns the join steps in order
func (f *FromClause) Steps() []JoinStep {
	steps := make([]JoinStep, len(f.steps))
	copy(steps, f.steps)
	return steps
}

// Len returns the number of join steps
func (f *FromClause) Len() int {
	return len(f.steps)
}

// Join appends an inner join
func (f *FromClause) Join(alias string, selectable, condition expr.Expression) error {
	return f.add(JoinStep{Alias: alias, Selectable: selectable, Condition: condition, Kind: InnerJoin})
}

// OuterJoin appends a left outer join
func (f *FromClause) OuterJoin(alias string, selectable, condition expr.Expression) error {
	return f.add(JoinStep{Alias: alias, Selectable: selectable, Condition: condition, Kind: OuterJoin})
}

func (f *FromClause) add(step JoinStep) error {
	if f.Contains(step.Alias) {
		return dberr.Duplicate("join alias %q already present", step.Alias)
	}
	f.index[step.Alias] = len(f.steps)
	f.steps = append(f.steps, step)
	return nil
}

// Expression renders the clause as a from invocation for the compiler
func (f *FromClause) Expression() expr.Expression {
	args := make([]expr.Expression, 0, len(f.steps)+1)
	args = append(args, expr.Table(f.root))
	for _, s := range f.steps {
		if s.Kind == OuterJoin {
			args = append(args, expr.OuterJoin(s.Selectable, s.Condition))
		} else {
			args = append(args, expr.Join(s.Selectable, s.Condition))
		}
	}
	return expr.Call(expr.SymFrom, args...)
}
