package builder

import (
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/resolver"
)

// FileQuery selects the ids of files matching a filter
type FileQuery struct {
	common
	err error
}

// NewFileQuery creates an empty file query
func NewFileQuery() *FileQuery {
	return &FileQuery{}
}

// Filter sets the filter, replacing any previous one
func (q *FileQuery) Filter(x expr.Expression) *FileQuery {
	q.setFilter(x)
	return q
}

// OrderBy appends a sort term
func (q *FileQuery) OrderBy(x expr.Expression, d Direction) *FileQuery {
	q.orderBy = append(q.orderBy, OrderTerm{Expr: x, Direction: d})
	return q
}

// Limit caps the number of files returned
func (q *FileQuery) Limit(n int64) *FileQuery {
	if err := validCount("limit", n); err != nil && q.err == nil {
		q.err = err
	}
	q.limit = &n
	return q
}

// Offset skips the first n files
func (q *FileQuery) Offset(n int64) *FileQuery {
	if err := validCount("offset", n); err != nil && q.err == nil {
		q.err = err
	}
	q.offset = &n
	return q
}

// Transform builds the select expression.
//
// Generic attributes may match several rows per file, so ordered queries group
// by file id and sort on MIN (ascending) or MAX (descending) of each term.
// Unordered queries use DISTINCT instead.
func (q *FileQuery) Transform(r *resolver.Resolver) (expr.Expression, error) {
	if q.err != nil {
		return expr.Expression{}, q.err
	}
	q.begin(r)

	where, err := q.where()
	if err != nil {
		return expr.Expression{}, err
	}

	var order []expr.Expression
	for _, o := range q.orderBy {
		x, err := q.rewrite(o.Expr)
		if err != nil {
			return expr.Expression{}, err
		}
		if o.Direction == Desc {
			x = expr.Max(x)
		} else {
			x = expr.Min(x)
		}
		order = append(order, ordered(x, o.Direction))
	}

	fileID := expr.Column(resolver.TableFiles, "id")
	var parts []expr.Expression
	if len(order) == 0 {
		parts = append(parts, expr.Call(expr.SymDistinct))
	}
	parts = append(parts, expr.Call(expr.SymSelectColumns, fileID), q.from.Expression())
	if where != nil {
		parts = append(parts, *where)
	}
	if len(order) > 0 {
		parts = append(parts,
			expr.Call(expr.SymGroupBy, fileID),
			expr.Call(expr.SymOrderBy, order...),
		)
	}
	parts = append(parts, q.limits()...)

	return expr.Call(expr.SymSelect, parts...), nil
}
