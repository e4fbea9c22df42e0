package parse

import (
	"strings"

	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/resolver"
	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

var keywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "like": true,
	"between": true, "true": true, "false": true, "asc": true, "desc": true,
}

var typeNames = map[string]string{
	"int":      expr.TypeInt64,
	"int64":    expr.TypeInt64,
	"long":     expr.TypeInt64,
	"double":   expr.TypeDouble,
	"float":    expr.TypeDouble,
	"string":   expr.TypeString,
	"bool":     expr.TypeBool,
	"date":     expr.TypeDate,
	"time":     expr.TypeTime,
	"datetime": expr.TypeDateTime,
}

var comparisons = map[string]func(lhs, rhs expr.Expression) expr.Expression{
	"=":  expr.Eq,
	"!=": expr.Ne,
	"<>": expr.Ne,
	"<":  expr.Lt,
	"<=": expr.Le,
	">":  expr.Gt,
	">=": expr.Ge,
}

// converter lowers a parse tree to an expression. Attributes without an
// explicit ::type take the type of their catalog mapping, then the type of
// whatever they are compared with, then string.
type converter struct {
	mappings *resolver.MappingTable
}

func (c *converter) or(o *orExpr, hint string) (expr.Expression, error) {
	first, err := c.and(o.Left, hint)
	if err != nil || len(o.Right) == 0 {
		return first, err
	}
	rest := make([]expr.Expression, 0, len(o.Right))
	for _, a := range o.Right {
		x, err := c.and(a, hint)
		if err != nil {
			return expr.Expression{}, err
		}
		rest = append(rest, x)
	}
	return expr.Or(first, rest[0], rest[1:]...), nil
}

func (c *converter) and(a *andExpr, hint string) (expr.Expression, error) {
	first, err := c.not(a.Left, hint)
	if err != nil || len(a.Right) == 0 {
		return first, err
	}
	rest := make([]expr.Expression, 0, len(a.Right))
	for _, n := range a.Right {
		x, err := c.not(n, hint)
		if err != nil {
			return expr.Expression{}, err
		}
		rest = append(rest, x)
	}
	return expr.And(first, rest[0], rest[1:]...), nil
}

func (c *converter) not(n *notExpr, hint string) (expr.Expression, error) {
	if n.Not != nil {
		x, err := c.not(n.Not, expr.TypeBool)
		if err != nil {
			return expr.Expression{}, err
		}
		return expr.Not(x), nil
	}
	return c.comparison(n.Comparison, hint)
}

func (c *converter) comparison(cmp *comparison, hint string) (expr.Expression, error) {
	switch {
	case cmp.Right != nil:
		lt, rt := c.sumType(cmp.Left), c.sumType(cmp.Right)
		lhs, err := c.sum(cmp.Left, rt)
		if err != nil {
			return expr.Expression{}, err
		}
		rhs, err := c.sum(cmp.Right, lt)
		if err != nil {
			return expr.Expression{}, err
		}
		return comparisons[cmp.Op](lhs, rhs), nil

	case len(cmp.In) > 0:
		t := c.sumType(cmp.Left)
		if t == "" {
			for _, s := range cmp.In {
				if t = c.sumType(s); t != "" {
					break
				}
			}
		}
		x, err := c.sum(cmp.Left, t)
		if err != nil {
			return expr.Expression{}, err
		}
		values := make([]expr.Expression, 0, len(cmp.In))
		for _, s := range cmp.In {
			v, err := c.sum(s, t)
			if err != nil {
				return expr.Expression{}, err
			}
			values = append(values, v)
		}
		return negate(cmp.Negated, expr.In(x, values...)), nil

	case cmp.Like != nil:
		x, err := c.sum(cmp.Left, expr.TypeString)
		if err != nil {
			return expr.Expression{}, err
		}
		return negate(cmp.Negated, expr.Like(x, *cmp.Like)), nil

	case cmp.Between != nil:
		t := firstType(c.sumType(cmp.Left), c.sumType(cmp.Between.Low), c.sumType(cmp.Between.High))
		x, err := c.sum(cmp.Left, t)
		if err != nil {
			return expr.Expression{}, err
		}
		lo, err := c.sum(cmp.Between.Low, t)
		if err != nil {
			return expr.Expression{}, err
		}
		hi, err := c.sum(cmp.Between.High, t)
		if err != nil {
			return expr.Expression{}, err
		}
		return negate(cmp.Negated, expr.And(expr.Ge(x, lo), expr.Le(x, hi))), nil

	case cmp.Negated:
		return expr.Expression{}, dberr.Value("%s: 'not' must be followed by in, like or between", cmp.Pos)

	default:
		return c.sum(cmp.Left, hint)
	}
}

func negate(negated bool, x expr.Expression) expr.Expression {
	if negated {
		return expr.Not(x)
	}
	return x
}

func (c *converter) sum(s *sum, hint string) (expr.Expression, error) {
	t := firstType(c.sumType(s), hint)
	x, err := c.product(s.Left, t)
	if err != nil {
		return expr.Expression{}, err
	}
	for _, op := range s.Right {
		rhs, err := c.product(op.Right, t)
		if err != nil {
			return expr.Expression{}, err
		}
		if op.Op == "+" {
			x = expr.Add(x, rhs)
		} else {
			x = expr.Sub(x, rhs)
		}
	}
	return x, nil
}

func (c *converter) product(p *product, hint string) (expr.Expression, error) {
	x, err := c.unary(p.Left, hint)
	if err != nil {
		return expr.Expression{}, err
	}
	for _, op := range p.Right {
		rhs, err := c.unary(op.Right, hint)
		if err != nil {
			return expr.Expression{}, err
		}
		if op.Op == "*" {
			x = expr.Mul(x, rhs)
		} else {
			x = expr.Div(x, rhs)
		}
	}
	return x, nil
}

func (c *converter) unary(u *unary, hint string) (expr.Expression, error) {
	if !u.Negated {
		return c.operand(u.Operand, hint)
	}
	switch {
	case u.Operand.Int != nil:
		return expr.Int64(-*u.Operand.Int), nil
	case u.Operand.Float != nil:
		return expr.Double(-*u.Operand.Float), nil
	}
	x, err := c.operand(u.Operand, hint)
	if err != nil {
		return expr.Expression{}, err
	}
	return expr.Mul(expr.Int64(-1), x), nil
}

func (c *converter) operand(o *operand, hint string) (expr.Expression, error) {
	switch {
	case o.Call != nil:
		return c.call(o.Call, hint)
	case o.Float != nil:
		return expr.Double(*o.Float), nil
	case o.Int != nil:
		return expr.Int64(*o.Int), nil
	case o.String != nil:
		switch hint {
		case expr.TypeDate, expr.TypeTime, expr.TypeDateTime:
			return typedLiteral(hint, *o.String)
		}
		return expr.String(*o.String), nil
	case o.Bool != nil:
		return expr.Bool(bool(*o.Bool)), nil
	case o.Attr != nil:
		return c.attribute(o.Attr, hint)
	default:
		return c.or(o.Group, hint)
	}
}

func (c *converter) call(fn *call, hint string) (expr.Expression, error) {
	name := strings.ToLower(fn.Name)
	switch name {
	case expr.TypeDate, expr.TypeTime, expr.TypeDateTime:
		s, ok := stringArg(fn)
		if !ok {
			return expr.Expression{}, dberr.Value("%s: %s() takes one string argument", fn.Pos, name)
		}
		return typedLiteral(name, s)
	}

	aggregate := map[string]func(expr.Expression) expr.Expression{
		expr.SymMin:   expr.Min,
		expr.SymMax:   expr.Max,
		expr.SymSum:   expr.Sum,
		expr.SymCount: expr.Count,
	}[name]
	if aggregate == nil {
		return expr.Expression{}, dberr.Value("%s: unknown function %q", fn.Pos, fn.Name)
	}
	if len(fn.Args) != 1 {
		return expr.Expression{}, dberr.Value("%s: %s() takes one argument", fn.Pos, name)
	}
	if name == expr.SymCount {
		hint = ""
	}
	x, err := c.sum(fn.Args[0], hint)
	if err != nil {
		return expr.Expression{}, err
	}
	return aggregate(x), nil
}

func (c *converter) attribute(a *attrRef, hint string) (expr.Expression, error) {
	if keywords[strings.ToLower(a.Name)] {
		return expr.Expression{}, dberr.Value("%s: unexpected keyword %q", a.Pos, a.Name)
	}
	typ, err := c.attributeType(a)
	if err != nil {
		return expr.Expression{}, err
	}
	return expr.Attribute(a.Name, firstType(typ, hint, expr.TypeString)), nil
}

// attributeType returns the declared type of a, "" when it has none
func (c *converter) attributeType(a *attrRef) (string, error) {
	if a.Type != "" {
		typ, ok := typeNames[strings.ToLower(a.Type)]
		if !ok {
			return "", dberr.Value("%s: unknown attribute type %q", a.Pos, a.Type)
		}
		return typ, nil
	}
	if m, ok := c.mappings.Lookup(a.Name); ok {
		return m.Type, nil
	}
	return "", nil
}

func (c *converter) sumType(s *sum) string {
	t := c.productType(s.Left)
	for _, op := range s.Right {
		t = numericType(t, c.productType(op.Right))
	}
	return t
}

func (c *converter) productType(p *product) string {
	t := c.operandType(p.Left.Operand)
	for _, op := range p.Right {
		t = numericType(t, c.operandType(op.Right.Operand))
	}
	return t
}

func (c *converter) operandType(o *operand) string {
	switch {
	case o.Call != nil:
		name := strings.ToLower(o.Call.Name)
		switch name {
		case expr.TypeDate, expr.TypeTime, expr.TypeDateTime:
			return name
		case expr.SymCount:
			return expr.TypeInt64
		}
		if len(o.Call.Args) == 1 {
			return c.sumType(o.Call.Args[0])
		}
		return ""
	case o.Float != nil:
		return expr.TypeDouble
	case o.Int != nil:
		return expr.TypeInt64
	case o.Bool != nil:
		return expr.TypeBool
	case o.Attr != nil:
		typ, err := c.attributeType(o.Attr)
		if err != nil {
			return ""
		}
		return typ
	case o.Group != nil:
		if len(o.Group.Right) == 0 && len(o.Group.Left.Right) == 0 && o.Group.Left.Left.Comparison != nil {
			cmp := o.Group.Left.Left.Comparison
			if cmp.Right == nil && len(cmp.In) == 0 && cmp.Like == nil && cmp.Between == nil && !cmp.Negated {
				return c.sumType(cmp.Left)
			}
		}
		return expr.TypeBool
	default:
		return ""
	}
}

// numericType combines the types of two arithmetic operands
func numericType(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case a == expr.TypeDouble || b == expr.TypeDouble:
		return expr.TypeDouble
	default:
		return a
	}
}

func firstType(types ...string) string {
	for _, t := range types {
		if t != "" {
			return t
		}
	}
	return ""
}

func stringArg(fn *call) (string, bool) {
	if len(fn.Args) != 1 {
		return "", false
	}
	s := fn.Args[0]
	if len(s.Right) > 0 || len(s.Left.Right) > 0 || s.Left.Left.Negated || s.Left.Left.Operand.String == nil {
		return "", false
	}
	return *s.Left.Left.Operand.String, true
}

func typedLiteral(typ, s string) (expr.Expression, error) {
	switch typ {
	case expr.TypeDate:
		d, err := types.ParseDate(s)
		if err != nil {
			return expr.Expression{}, err
		}
		return expr.Date(d), nil
	case expr.TypeTime:
		t, err := types.ParseTime(s)
		if err != nil {
			return expr.Expression{}, err
		}
		return expr.Time(t), nil
	default:
		t, err := types.ParseDateTime(s)
		if err != nil {
			return expr.Expression{}, err
		}
		return expr.DateTime(t), nil
	}
}
