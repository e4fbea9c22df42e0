package expr

// Operator and function symbols understood by the SQL compiler.
// SymAttr is resolved away by the query builders before compilation.
const (
	SymAttr          = "attr"
	SymAdd           = "+"
	SymSub           = "-"
	SymMul           = "*"
	SymDiv           = "/"
	SymEq            = "="
	SymNe            = "!="
	SymLt            = "<"
	SymGt            = ">"
	SymLe            = "<="
	SymGe            = ">="
	SymAnd           = "and"
	SymOr            = "or"
	SymNot           = "not"
	SymLike          = "like"
	SymIn            = "in"
	SymColumn        = "column"
	SymBind          = "bind"
	SymMin           = "min"
	SymMax           = "max"
	SymSum           = "sum"
	SymCount         = "count"
	SymJoin          = "join"
	SymOuterJoin     = "outerjoin"
	SymLit           = "lit"
	SymLabel         = "label"
	SymSelect        = "select"
	SymDistinct      = "distinct"
	SymSelectColumns = "select-columns"
	SymFrom          = "from"
	SymWhere         = "where"
	SymGroupBy       = "group-by"
	SymOrderBy       = "order-by"
	SymAsc           = "asc"
	SymDesc          = "desc"
	SymLimit         = "limit"
	SymOffset        = "offset"
	SymInsert        = "insert"
	SymInsertColumns = "insert-columns"
	SymInsertValues  = "insert-values"
	SymReturning     = "returning"
	SymTable         = "table"
)

// Attribute types accepted by Attribute
const (
	TypeInt64    = "int64"
	TypeDouble   = "double"
	TypeString   = "string"
	TypeBool     = "bool"
	TypeDate     = "date"
	TypeTime     = "time"
	TypeDateTime = "datetime"
)

// Call builds an invocation of symbol with args
func Call(symbol string, args ...Expression) Expression {
	l := make([]Expression, 0, len(args)+1)
	l = append(l, Symbol(symbol))
	l = append(l, args...)
	return Expression{kind: KindList, list: l}
}

// Attribute refers to a semantic attribute such as "where/xsize" or "what/source:PLC"
func Attribute(name, typ string) Expression {
	return Call(SymAttr, String(name), String(typ))
}

// Column refers to a physical column of a table or alias
func Column(table, column string) Expression {
	return Call(SymColumn, String(table), String(column))
}

// Table refers to a table by name
func Table(name string) Expression {
	return Call(SymTable, String(name))
}

// Alias refers to a table under an alias
func Alias(name, alias string) Expression {
	return Call(SymTable, String(name), String(alias))
}

// Bind creates a named bind parameter holding value
func Bind(name string, value Expression) Expression {
	return Call(SymBind, String(name), value)
}

// Lit embeds value in the SQL text instead of binding it
func Lit(value Expression) Expression {
	return Call(SymLit, value)
}

// Label names a result column
func Label(x Expression, name string) Expression {
	return Call(SymLabel, x, String(name))
}

func Eq(lhs, rhs Expression) Expression { return Call(SymEq, lhs, rhs) }
func Ne(lhs, rhs Expression) Expression { return Call(SymNe, lhs, rhs) }
func Lt(lhs, rhs Expression) Expression { return Call(SymLt, lhs, rhs) }
func Le(lhs, rhs Expression) Expression { return Call(SymLe, lhs, rhs) }
func Gt(lhs, rhs Expression) Expression { return Call(SymGt, lhs, rhs) }
func Ge(lhs, rhs Expression) Expression { return Call(SymGe, lhs, rhs) }

func Add(lhs, rhs Expression) Expression { return Call(SymAdd, lhs, rhs) }
func Sub(lhs, rhs Expression) Expression { return Call(SymSub, lhs, rhs) }
func Mul(lhs, rhs Expression) Expression { return Call(SymMul, lhs, rhs) }
func Div(lhs, rhs Expression) Expression { return Call(SymDiv, lhs, rhs) }

// And combines predicates with AND
func And(lhs, rhs Expression, more ...Expression) Expression {
	return Call(SymAnd, append([]Expression{lhs, rhs}, more...)...)
}

// Or combines predicates with OR
func Or(lhs, rhs Expression, more ...Expression) Expression {
	return Call(SymOr, append([]Expression{lhs, rhs}, more...)...)
}

// Not negates a predicate
func Not(x Expression) Expression { return Call(SymNot, x) }

// Like matches x against a glob pattern using * and ? wildcards
func Like(x Expression, pattern string) Expression {
	return Call(SymLike, x, String(pattern))
}

// In tests membership of x in values
func In(x Expression, values ...Expression) Expression {
	return Call(SymIn, x, List(values...))
}

func Min(x Expression) Expression   { return Call(SymMin, x) }
func Max(x Expression) Expression   { return Call(SymMax, x) }
func Sum(x Expression) Expression   { return Call(SymSum, x) }
func Count(x Expression) Expression { return Call(SymCount, x) }

// Asc orders by x ascending
func Asc(x Expression) Expression { return Call(SymAsc, x) }

// Desc orders by x descending
func Desc(x Expression) Expression { return Call(SymDesc, x) }

// Join inner-joins selectable on condition
func Join(selectable, condition Expression) Expression {
	return Call(SymJoin, selectable, condition)
}

// OuterJoin left-outer-joins selectable on condition
func OuterJoin(selectable, condition Expression) Expression {
	return Call(SymOuterJoin, selectable, condition)
}

// IsAggregate reports whether x is a min, max, sum or count invocation
func IsAggregate(x Expression) bool {
	head, ok := x.Head()
	if !ok {
		return false
	}
	switch head {
	case SymMin, SymMax, SymSum, SymCount:
		return true
	}
	return false
}
