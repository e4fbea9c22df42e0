package parse

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// filterLexer tokenizes filter expressions. A Path covers attribute names
// such as where/xsize, file:uuid and what/source:PLC; a path segment
// containing no slash doubles as identifier and keyword.
var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "Float", Pattern: `\d+\.\d*(?:[eE][+-]?\d+)?|\d+[eE][+-]?\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Path", Pattern: `[A-Za-z_][A-Za-z0-9_]*(?:/[A-Za-z0-9_]+)*(?::[A-Za-z_][A-Za-z0-9_]*)?`},
	{Name: "TypeSep", Pattern: `::`},
	{Name: "Operator", Pattern: `!=|<>|<=|>=|=|<|>|\+|-|\*|/`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// orExpr is the grammar root of a filter
type orExpr struct {
	Pos   lexer.Position
	Left  *andExpr   `@@`
	Right []*andExpr `( "or" @@ )*`
}

type andExpr struct {
	Left  *notExpr   `@@`
	Right []*notExpr `( "and" @@ )*`
}

type notExpr struct {
	Not        *notExpr    `  "not" @@`
	Comparison *comparison `| @@`
}

type comparison struct {
	Pos     lexer.Position
	Left    *sum     `@@`
	Op      string   `( @( "=" | "!=" | "<>" | "<=" | ">=" | "<" | ">" )`
	Right   *sum     `  @@`
	Negated bool     `| @"not"?`
	In      []*sum   `  ( "in" "(" @@ ( "," @@ )* ")"`
	Like    *string  `  | "like" @String`
	Between *between `  | "between" @@ ) )?`
}

type between struct {
	Low  *sum `@@ "and"`
	High *sum `@@`
}

type sum struct {
	Left  *product `@@`
	Right []*sumOp `@@*`
}

type sumOp struct {
	Op    string   `@( "+" | "-" )`
	Right *product `@@`
}

type product struct {
	Left  *unary       `@@`
	Right []*productOp `@@*`
}

type productOp struct {
	Op    string `@( "*" | "/" )`
	Right *unary `@@`
}

type unary struct {
	Negated bool     `@"-"?`
	Operand *operand `@@`
}

type operand struct {
	Pos    lexer.Position
	Call   *call    `  @@`
	Float  *float64 `| @Float`
	Int    *int64   `| @Int`
	String *string  `| @String`
	Bool   *boolean `| @( "true" | "false" )`
	Attr   *attrRef `| @@`
	Group  *orExpr  `| "(" @@ ")"`
}

type call struct {
	Pos  lexer.Position
	Name string `@Path "("`
	Args []*sum `( @@ ( "," @@ )* )? ")"`
}

type attrRef struct {
	Pos  lexer.Position
	Name string `@Path`
	Type string `( "::" @Path )?`
}

type boolean bool

func (b *boolean) Capture(values []string) error {
	*b = boolean(strings.EqualFold(values[0], "true"))
	return nil
}

// orderTerm is the grammar root of an ordering
type orderTerm struct {
	Expr      *sum   `@@`
	Direction string `@( "asc" | "desc" )?`
}

// fetchTerm is the grammar root of a labeled fetch
type fetchTerm struct {
	Label string `@Path "="`
	Expr  *sum   `@@`
}

var (
	options = []participle.Option{
		participle.Lexer(filterLexer),
		participle.Elide("Whitespace"),
		participle.Unquote("String"),
		participle.CaseInsensitive("Path"),
		participle.UseLookahead(4),
	}

	filterParser = participle.MustBuild[orExpr](options...)
	orderParser  = participle.MustBuild[orderTerm](options...)
	fetchParser  = participle.MustBuild[fetchTerm](options...)
)
