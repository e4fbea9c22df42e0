// Package builder provides the fluent FileQuery and AttributeQuery builders.
//
// Builders accumulate state through chained calls. Transform resolves every
// attribute reference against a fresh FROM clause and returns a complete
// select expression ready for the SQL compiler.
package builder

import (
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/resolver"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

// Direction is a sort direction
type Direction int

const (
	Asc Direction = iota
	Desc
)

// String returns ASC or DESC
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// OrderTerm is one ORDER BY entry
type OrderTerm struct {
	Expr      expr.Expression
	Direction Direction
}

// FetchTerm is one labeled result column of an AttributeQuery
type FetchTerm struct {
	Label string
	Expr  expr.Expression
}

// common holds the state shared by both builders
type common struct {
	filter   *expr.Expression
	orderBy  []OrderTerm
	limit    *int64
	offset   *int64
	resolver *resolver.Resolver
	from     *resolver.FromClause
}

func (c *common) setFilter(x expr.Expression) {
	c.filter = &x
}

func (c *common) begin(r *resolver.Resolver) {
	if r == nil {
		r = resolver.New(nil)
	}
	c.resolver = r
	c.from = resolver.BaseFrom()
}

// rewrite replaces attribute references in x with resolved columns
func (c *common) rewrite(x expr.Expression) (expr.Expression, error) {
	head, isCall := x.Head()
	switch {
	case isCall && head == expr.SymAttr:
		args := x.Args()
		if len(args) != 2 {
			return expr.Expression{}, dberr.Value("malformed attribute reference %s", x)
		}
		name, err := args[0].AsString()
		if err != nil {
			return expr.Expression{}, err
		}
		typ, err := args[1].AsString()
		if err != nil {
			return expr.Expression{}, err
		}
		return c.resolver.Resolve(name, typ, c.from)
	case isCall:
		args, err := c.rewriteAll(x.Args())
		if err != nil {
			return expr.Expression{}, err
		}
		return expr.Call(head, args...), nil
	case x.IsList():
		items, err := c.rewriteAll(x.Args())
		if err != nil {
			return expr.Expression{}, err
		}
		return expr.List(items...), nil
	default:
		return x, nil
	}
}

func (c *common) rewriteAll(xs []expr.Expression) ([]expr.Expression, error) {
	out := make([]expr.Expression, len(xs))
	for i, x := range xs {
		r, err := c.rewrite(x)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (c *common) where() (*expr.Expression, error) {
	if c.filter == nil {
		return nil, nil
	}
	w, err := c.rewrite(*c.filter)
	if err != nil {
		return nil, err
	}
	clause := expr.Call(expr.SymWhere, w)
	return &clause, nil
}

func (c *common) limits() []expr.Expression {
	var out []expr.Expression
	if c.limit != nil {
		out = append(out, expr.Call(expr.SymLimit, expr.Int64(*c.limit)))
	}
	if c.offset != nil {
		out = append(out, expr.Call(expr.SymOffset, expr.Int64(*c.offset)))
	}
	return out
}

func validCount(what string, n int64) error {
	if n < 0 {
		return dberr.Value("%s must not be negative, got %d", what, n)
	}
	return nil
}

func ordered(x expr.Expression, d Direction) expr.Expression {
	if d == Desc {
		return expr.Desc(x)
	}
	return expr.Asc(x)
}
