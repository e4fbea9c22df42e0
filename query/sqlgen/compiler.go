// Package sqlgen compiles resolved expressions into dialect specific SQL.
//
// Compilation rewrites every invocation through a handler looked up by its
// operator symbol. Handlers return nested lists whose leaves are strings, and a
// final compaction pass concatenates them into the statement text.
package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

type handler func(c *compilation, args []expr.Expression) (expr.Expression, error)

// Compiler turns expressions into statements for one dialect.
// It is safe for concurrent use.
type Compiler struct {
	dialect  Dialect
	handlers map[string]handler
}

// NewCompiler creates a compiler for d
func NewCompiler(d Dialect) *Compiler {
	c := &Compiler{dialect: d, handlers: make(map[string]handler)}

	for sym, op := range map[string]string{expr.SymAdd: "+", expr.SymSub: "-", expr.SymMul: "*", expr.SymDiv: "/"} {
		c.handlers[sym] = arithmetic(op)
	}
	for sym, op := range map[string]string{
		expr.SymEq: "=", expr.SymNe: "!=", expr.SymLt: "<", expr.SymGt: ">", expr.SymLe: "<=", expr.SymGe: ">=",
	} {
		c.handlers[sym] = comparison(op)
	}
	c.handlers[expr.SymAnd] = logical("AND")
	c.handlers[expr.SymOr] = logical("OR")
	c.handlers[expr.SymNot] = compileNot
	c.handlers[expr.SymLike] = compileLike
	c.handlers[expr.SymIn] = compileIn
	c.handlers[expr.SymColumn] = compileColumn
	c.handlers[expr.SymBind] = compileBind
	c.handlers[expr.SymMin] = function("MIN")
	c.handlers[expr.SymMax] = function("MAX")
	c.handlers[expr.SymSum] = function("SUM")
	c.handlers[expr.SymCount] = compileCount
	c.handlers[expr.SymJoin] = join("JOIN")
	c.handlers[expr.SymOuterJoin] = join("LEFT OUTER JOIN")
	c.handlers[expr.SymLit] = compileLit
	c.handlers[expr.SymLabel] = compileLabel
	c.handlers[expr.SymSelect] = compileSelect
	c.handlers[expr.SymDistinct] = keyword("DISTINCT")
	c.handlers[expr.SymSelectColumns] = clause("", ", ")
	c.handlers[expr.SymFrom] = clause("FROM ", " ")
	c.handlers[expr.SymWhere] = clause("WHERE ", " ")
	c.handlers[expr.SymGroupBy] = clause("GROUP BY ", ", ")
	c.handlers[expr.SymOrderBy] = clause("ORDER BY ", ", ")
	c.handlers[expr.SymAsc] = direction("ASC")
	c.handlers[expr.SymDesc] = direction("DESC")
	c.handlers[expr.SymLimit] = count("LIMIT")
	c.handlers[expr.SymOffset] = count("OFFSET")
	c.handlers[expr.SymInsert] = compileInsert
	c.handlers[expr.SymInsertColumns] = compileInsertColumns
	c.handlers[expr.SymInsertValues] = compileInsertValues
	c.handlers[expr.SymReturning] = compileReturning
	c.handlers[expr.SymTable] = compileTable

	return c
}

// Dialect returns the target dialect
func (c *Compiler) Dialect() Dialect {
	return c.dialect
}

// Compile compiles x into a statement
func (c *Compiler) Compile(x expr.Expression) (*Statement, error) {
	comp := &compilation{
		dialect:  c.dialect,
		handlers: c.handlers,
		binds:    BindMap{},
	}

	rewritten, err := comp.compile(x)
	if err != nil {
		return nil, err
	}

	compacted := Compact(rewritten)
	if len(compacted) != 1 || compacted[0].Kind() != expr.KindString {
		return nil, dberr.Value("expression did not compile to text: %s", expr.List(compacted...))
	}
	text, _ := compacted[0].AsString()

	return &Statement{
		Text:        text,
		Binds:       comp.binds,
		Order:       comp.order,
		ReturnsRows: comp.returnsRows,
		Dialect:     c.dialect,
	}, nil
}

// Compact flattens x depth-first, concatenating adjacent string leaves.
// Leaves of other kinds are kept in place.
func Compact(x expr.Expression) []expr.Expression {
	var out []expr.Expression
	var sb strings.Builder
	pending := false

	var walk func(e expr.Expression)
	walk = func(e expr.Expression) {
		if e.IsList() {
			items, _ := e.Items()
			for _, it := range items {
				walk(it)
			}
			return
		}
		if s, err := e.AsString(); err == nil {
			sb.WriteString(s)
			pending = true
			return
		}
		if pending {
			out = append(out, expr.String(sb.String()))
			sb.Reset()
			pending = false
		}
		out = append(out, e)
	}
	walk(x)

	if pending || len(out) == 0 {
		out = append(out, expr.String(sb.String()))
	}
	return out
}

type compilation struct {
	dialect     Dialect
	handlers    map[string]handler
	binds       BindMap
	order       []string
	next        int
	returnsRows bool
}

func (c *compilation) compile(x expr.Expression) (expr.Expression, error) {
	if head, ok := x.Head(); ok {
		h, found := c.handlers[head]
		if !found {
			return expr.Expression{}, dberr.Value("unknown symbol %q in %s", head, x)
		}
		return h(c, x.Args())
	}

	switch x.Kind() {
	case expr.KindList:
		return c.joined(x.Args(), ", ")
	case expr.KindSymbol:
		return expr.Expression{}, dberr.Value("bare symbol %s", x)
	default:
		return c.bind(c.literalName(), x)
	}
}

func (c *compilation) compileAll(args []expr.Expression) ([]expr.Expression, error) {
	out := make([]expr.Expression, len(args))
	for i, a := range args {
		r, err := c.compile(a)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (c *compilation) joined(args []expr.Expression, sep string) (expr.Expression, error) {
	compiled, err := c.compileAll(args)
	if err != nil {
		return expr.Expression{}, err
	}
	return interleave(compiled, sep), nil
}

func interleave(parts []expr.Expression, sep string) expr.Expression {
	out := make([]expr.Expression, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			out = append(out, expr.String(sep))
		}
		out = append(out, p)
	}
	return expr.List(out...)
}

func (c *compilation) literalName() string {
	for {
		name := fmt.Sprintf("lit_%d", c.next)
		c.next++
		if _, taken := c.binds[name]; !taken {
			return name
		}
	}
}

func (c *compilation) bind(name string, value expr.Expression) (expr.Expression, error) {
	if value.IsList() || value.Kind() == expr.KindSymbol {
		return expr.Expression{}, dberr.Value("cannot bind %s", value)
	}
	if prev, ok := c.binds[name]; ok && !(prev.Kind() == value.Kind() && prev.Equal(value)) {
		return expr.Expression{}, dberr.Duplicate("bind %q bound to both %s and %s", name, prev, value)
	}
	c.binds[name] = value
	c.order = append(c.order, name)
	return expr.String(c.dialect.Placeholder(name, len(c.order))), nil
}

func arity(name string, args []expr.Expression, n int) error {
	if len(args) != n {
		return dberr.Value("%s takes %d operands, got %d", name, n, len(args))
	}
	return nil
}

func stringArg(name string, x expr.Expression) (string, error) {
	s, err := x.AsString()
	if err != nil {
		return "", dberr.Value("%s expects a name, got %s", name, x)
	}
	return s, nil
}

func wrap(parts ...interface{}) expr.Expression {
	out := make([]expr.Expression, len(parts))
	for i, p := range parts {
		switch v := p.(type) {
		case string:
			out[i] = expr.String(v)
		case expr.Expression:
			out[i] = v
		}
	}
	return expr.List(out...)
}

func arithmetic(op string) handler {
	return func(c *compilation, args []expr.Expression) (expr.Expression, error) {
		if err := arity(op, args, 2); err != nil {
			return expr.Expression{}, err
		}
		parts, err := c.compileAll(args)
		if err != nil {
			return expr.Expression{}, err
		}
		return wrap("(", parts[0], " "+op+" ", parts[1], ")"), nil
	}
}

func comparison(op string) handler {
	return func(c *compilation, args []expr.Expression) (expr.Expression, error) {
		if err := arity(op, args, 2); err != nil {
			return expr.Expression{}, err
		}
		parts, err := c.compileAll(args)
		if err != nil {
			return expr.Expression{}, err
		}
		return wrap(parts[0], " "+op+" ", parts[1]), nil
	}
}

func logical(op string) handler {
	return func(c *compilation, args []expr.Expression) (expr.Expression, error) {
		if len(args) == 0 {
			return expr.Expression{}, dberr.Value("%s needs operands", op)
		}
		inner, err := c.joined(args, " "+op+" ")
		if err != nil {
			return expr.Expression{}, err
		}
		return wrap("(", inner, ")"), nil
	}
}

func compileNot(c *compilation, args []expr.Expression) (expr.Expression, error) {
	if err := arity("not", args, 1); err != nil {
		return expr.Expression{}, err
	}
	x, err := c.compile(args[0])
	if err != nil {
		return expr.Expression{}, err
	}
	return wrap("NOT (", x, ")"), nil
}

// globToLike rewrites * and ? wildcards into their LIKE equivalents
func globToLike(pattern string) string {
	return strings.NewReplacer("*", "%", "?", "_").Replace(pattern)
}

func compileLike(c *compilation, args []expr.Expression) (expr.Expression, error) {
	if err := arity("like", args, 2); err != nil {
		return expr.Expression{}, err
	}
	x, err := c.compile(args[0])
	if err != nil {
		return expr.Expression{}, err
	}

	var pattern expr.Expression
	pat := args[1]
	switch {
	case pat.Kind() == expr.KindString:
		s, _ := pat.AsString()
		pattern, err = c.bind(c.literalName(), expr.String(globToLike(s)))
	case pat.Is(expr.SymBind) && len(pat.Args()) == 2 && pat.Args()[1].Kind() == expr.KindString:
		name, nerr := stringArg("bind", pat.Args()[0])
		if nerr != nil {
			return expr.Expression{}, nerr
		}
		s, _ := pat.Args()[1].AsString()
		pattern, err = c.bind(name, expr.String(globToLike(s)))
	default:
		err = dberr.Value("like expects a string pattern, got %s", pat)
	}
	if err != nil {
		return expr.Expression{}, err
	}
	return wrap(x, " LIKE ", pattern), nil
}

func compileIn(c *compilation, args []expr.Expression) (expr.Expression, error) {
	if err := arity("in", args, 2); err != nil {
		return expr.Expression{}, err
	}
	if _, isCall := args[1].Head(); !args[1].IsList() || isCall {
		return expr.Expression{}, dberr.Value("in expects a list of values, got %s", args[1])
	}
	if n, _ := args[1].Size(); n == 0 {
		return expr.Expression{}, dberr.Value("in with an empty list")
	}
	parts, err := c.compileAll(args)
	if err != nil {
		return expr.Expression{}, err
	}
	return wrap(parts[0], " IN (", parts[1], ")"), nil
}

func compileColumn(_ *compilation, args []expr.Expression) (expr.Expression, error) {
	if err := arity("column", args, 2); err != nil {
		return expr.Expression{}, err
	}
	table, err := stringArg("column", args[0])
	if err != nil {
		return expr.Expression{}, err
	}
	column, err := stringArg("column", args[1])
	if err != nil {
		return expr.Expression{}, err
	}
	if table == "" {
		return expr.String(column), nil
	}
	return expr.String(table + "." + column), nil
}

func compileBind(c *compilation, args []expr.Expression) (expr.Expression, error) {
	if err := arity("bind", args, 2); err != nil {
		return expr.Expression{}, err
	}
	name, err := stringArg("bind", args[0])
	if err != nil {
		return expr.Expression{}, err
	}
	return c.bind(name, args[1])
}

func function(name string) handler {
	return func(c *compilation, args []expr.Expression) (expr.Expression, error) {
		if err := arity(name, args, 1); err != nil {
			return expr.Expression{}, err
		}
		x, err := c.compile(args[0])
		if err != nil {
			return expr.Expression{}, err
		}
		return wrap(name+"(", x, ")"), nil
	}
}

func compileCount(c *compilation, args []expr.Expression) (expr.Expression, error) {
	if len(args) == 0 {
		return expr.String("COUNT(*)"), nil
	}
	return function("COUNT")(c, args)
}

func join(keyword string) handler {
	return func(c *compilation, args []expr.Expression) (expr.Expression, error) {
		if err := arity(keyword, args, 2); err != nil {
			return expr.Expression{}, err
		}
		parts, err := c.compileAll(args)
		if err != nil {
			return expr.Expression{}, err
		}
		return wrap(keyword+" ", parts[0], " ON ", parts[1]), nil
	}
}

func compileLit(c *compilation, args []expr.Expression) (expr.Expression, error) {
	if err := arity("lit", args, 1); err != nil {
		return expr.Expression{}, err
	}
	s, err := c.dialect.Literal(args[0])
	if err != nil {
		return expr.Expression{}, err
	}
	return expr.String(s), nil
}

func compileLabel(c *compilation, args []expr.Expression) (expr.Expression, error) {
	if err := arity("label", args, 2); err != nil {
		return expr.Expression{}, err
	}
	name, err := stringArg("label", args[1])
	if err != nil {
		return expr.Expression{}, err
	}
	x, err := c.compile(args[0])
	if err != nil {
		return expr.Expression{}, err
	}
	return wrap(x, " AS "+name), nil
}

func compileSelect(c *compilation, args []expr.Expression) (expr.Expression, error) {
	c.returnsRows = true

	hasLimit := false
	for _, a := range args {
		if a.Is(expr.SymLimit) {
			hasLimit = true
		}
	}

	parts := make([]expr.Expression, 0, len(args)+1)
	for _, a := range args {
		if a.Is(expr.SymOffset) && !hasLimit {
			if unbounded := c.dialect.UnboundedLimit(); unbounded != "" {
				parts = append(parts, expr.String(unbounded))
			}
		}
		p, err := c.compile(a)
		if err != nil {
			return expr.Expression{}, err
		}
		parts = append(parts, p)
	}
	return wrap("SELECT ", interleave(parts, " ")), nil
}

func keyword(word string) handler {
	return func(_ *compilation, args []expr.Expression) (expr.Expression, error) {
		if len(args) != 0 {
			return expr.Expression{}, dberr.Value("%s takes no operands", word)
		}
		return expr.String(word), nil
	}
}

func clause(prefix, sep string) handler {
	return func(c *compilation, args []expr.Expression) (expr.Expression, error) {
		if len(args) == 0 {
			return expr.Expression{}, dberr.Value("empty %q clause", strings.TrimSpace(prefix))
		}
		inner, err := c.joined(args, sep)
		if err != nil {
			return expr.Expression{}, err
		}
		return wrap(prefix, inner), nil
	}
}

func direction(word string) handler {
	return func(c *compilation, args []expr.Expression) (expr.Expression, error) {
		if err := arity(word, args, 1); err != nil {
			return expr.Expression{}, err
		}
		x, err := c.compile(args[0])
		if err != nil {
			return expr.Expression{}, err
		}
		return wrap(x, " "+word), nil
	}
}

func count(word string) handler {
	return func(_ *compilation, args []expr.Expression) (expr.Expression, error) {
		if err := arity(word, args, 1); err != nil {
			return expr.Expression{}, err
		}
		n, err := args[0].AsInt64()
		if err != nil || n < 0 {
			return expr.Expression{}, dberr.Value("%s expects a non-negative integer, got %s", word, args[0])
		}
		return expr.String(word + " " + strconv.FormatInt(n, 10)), nil
	}
}

func compileTable(_ *compilation, args []expr.Expression) (expr.Expression, error) {
	if len(args) != 1 && len(args) != 2 {
		return expr.Expression{}, dberr.Value("table takes a name and an optional alias")
	}
	name, err := stringArg("table", args[0])
	if err != nil {
		return expr.Expression{}, err
	}
	if len(args) == 1 {
		return expr.String(name), nil
	}
	alias, err := stringArg("table", args[1])
	if err != nil {
		return expr.Expression{}, err
	}
	return expr.String(name + " AS " + alias), nil
}

func compileInsert(c *compilation, args []expr.Expression) (expr.Expression, error) {
	if len(args) < 2 {
		return expr.Expression{}, dberr.Value("insert needs a table and values")
	}
	table, err := c.compile(args[0])
	if err != nil {
		return expr.Expression{}, err
	}

	rest := args[1:]
	parts := []interface{}{"INSERT INTO ", table}
	if rest[0].Is(expr.SymInsertColumns) {
		cols, err := c.compile(rest[0])
		if err != nil {
			return expr.Expression{}, err
		}
		parts = append(parts, cols)
		rest = rest[1:]
	}
	for _, a := range rest {
		p, err := c.compile(a)
		if err != nil {
			return expr.Expression{}, err
		}
		parts = append(parts, " ", p)
	}
	return wrap(parts...), nil
}

func names(word string, args []expr.Expression) (string, error) {
	if len(args) == 0 {
		return "", dberr.Value("%s needs at least one column", word)
	}
	cols := make([]string, len(args))
	for i, a := range args {
		s, err := stringArg(word, a)
		if err != nil {
			return "", err
		}
		cols[i] = s
	}
	return strings.Join(cols, ", "), nil
}

func compileInsertColumns(c *compilation, args []expr.Expression) (expr.Expression, error) {
	quoted := make([]expr.Expression, len(args))
	for i, a := range args {
		s, err := stringArg("insert-columns", a)
		if err != nil {
			return expr.Expression{}, err
		}
		quoted[i] = expr.String(c.dialect.QuoteIdentifier(s))
	}
	cols, err := names("insert-columns", quoted)
	if err != nil {
		return expr.Expression{}, err
	}
	return expr.String("(" + cols + ")"), nil
}

func compileInsertValues(c *compilation, args []expr.Expression) (expr.Expression, error) {
	if len(args) == 0 {
		return expr.Expression{}, dberr.Value("insert-values needs at least one value")
	}
	inner, err := c.joined(args, ", ")
	if err != nil {
		return expr.Expression{}, err
	}
	return wrap("VALUES (", inner, ")"), nil
}

func compileReturning(c *compilation, args []expr.Expression) (expr.Expression, error) {
	if !c.dialect.HasFeature(Returning) {
		return expr.Expression{}, dberr.Value("dialect %s does not support RETURNING", c.dialect.Name())
	}
	cols, err := names("returning", args)
	if err != nil {
		return expr.Expression{}, err
	}
	c.returnsRows = true
	return expr.String("RETURNING " + cols), nil
}
