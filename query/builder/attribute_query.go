package builder

import (
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/resolver"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

// AttributeQuery selects labeled attribute values, optionally aggregated
type AttributeQuery struct {
	common
	fetch    []FetchTerm
	groupBy  []expr.Expression
	distinct bool
	err      error
}

// NewAttributeQuery creates an empty attribute query
func NewAttributeQuery() *AttributeQuery {
	return &AttributeQuery{}
}

// Fetch appends a result column named label
func (q *AttributeQuery) Fetch(label string, x expr.Expression) *AttributeQuery {
	if label == "" && q.err == nil {
		q.err = dberr.Value("fetch of %s needs a label", x)
	}
	for _, f := range q.fetch {
		if f.Label == label && q.err == nil {
			q.err = dberr.Duplicate("fetch label %q used twice", label)
		}
	}
	q.fetch = append(q.fetch, FetchTerm{Label: label, Expr: x})
	return q
}

// Filter sets the filter, replacing any previous one
func (q *AttributeQuery) Filter(x expr.Expression) *AttributeQuery {
	q.setFilter(x)
	return q
}

// GroupBy appends grouping terms
func (q *AttributeQuery) GroupBy(xs ...expr.Expression) *AttributeQuery {
	q.groupBy = append(q.groupBy, xs...)
	return q
}

// OrderBy appends a sort term
func (q *AttributeQuery) OrderBy(x expr.Expression, d Direction) *AttributeQuery {
	q.orderBy = append(q.orderBy, OrderTerm{Expr: x, Direction: d})
	return q
}

// Limit caps the number of rows returned
func (q *AttributeQuery) Limit(n int64) *AttributeQuery {
	if err := validCount("limit", n); err != nil && q.err == nil {
		q.err = err
	}
	q.limit = &n
	return q
}

// Offset skips the first n rows
func (q *AttributeQuery) Offset(n int64) *AttributeQuery {
	if err := validCount("offset", n); err != nil && q.err == nil {
		q.err = err
	}
	q.offset = &n
	return q
}

// Distinct toggles SELECT DISTINCT
func (q *AttributeQuery) Distinct(distinct bool) *AttributeQuery {
	q.distinct = distinct
	return q
}

// Labels returns the fetch labels in order
func (q *AttributeQuery) Labels() []string {
	labels := make([]string, len(q.fetch))
	for i, f := range q.fetch {
		labels[i] = f.Label
	}
	return labels
}

// Transform builds the select expression
func (q *AttributeQuery) Transform(r *resolver.Resolver) (expr.Expression, error) {
	if q.err != nil {
		return expr.Expression{}, q.err
	}
	if len(q.fetch) == 0 {
		return expr.Expression{}, dberr.Value("attribute query fetches nothing")
	}
	q.begin(r)

	columns := make([]expr.Expression, 0, len(q.fetch))
	for _, f := range q.fetch {
		x, err := q.rewrite(f.Expr)
		if err != nil {
			return expr.Expression{}, err
		}
		columns = append(columns, expr.Label(x, f.Label))
	}

	where, err := q.where()
	if err != nil {
		return expr.Expression{}, err
	}

	groupBy, err := q.rewriteAll(q.groupBy)
	if err != nil {
		return expr.Expression{}, err
	}

	var order []expr.Expression
	for _, o := range q.orderBy {
		x, err := q.rewrite(o.Expr)
		if err != nil {
			return expr.Expression{}, err
		}
		order = append(order, ordered(x, o.Direction))
	}

	var parts []expr.Expression
	if q.distinct {
		parts = append(parts, expr.Call(expr.SymDistinct))
	}
	parts = append(parts, expr.Call(expr.SymSelectColumns, columns...), q.from.Expression())
	if where != nil {
		parts = append(parts, *where)
	}
	if len(groupBy) > 0 {
		parts = append(parts, expr.Call(expr.SymGroupBy, groupBy...))
	}
	if len(order) > 0 {
		parts = append(parts, expr.Call(expr.SymOrderBy, order...))
	}
	parts = append(parts, q.limits()...)

	return expr.Call(expr.SymSelect, parts...), nil
}
