// Package parse reads the textual filter language used on the command line.
//
// A filter combines comparisons with and, or and not:
//
//	what/object = "PVOL" and where/xsize::int64 between 2 and 5
//	what/source:_name in ("seang", "sekkr")
//	what/date >= date("2000-01-01") and not how/task like "*test*"
//
// Strings take single or double quotes. Attribute names are written bare. An attribute takes its type from an
// explicit ::type suffix, from the attribute catalog, or from the value it
// is compared with, in that order, and is a string otherwise. Operators
// must be separated from attribute names by spaces since a/b is a name.
package parse

import (
	"strings"

	"github.com/baltrad/bdb-go/query/builder"
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/resolver"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

// Parser converts filter text to expressions typed against a catalog
type Parser struct {
	conv converter
}

// New creates a parser typing attributes with mappings. A nil table uses
// the default file-level mappings.
func New(mappings *resolver.MappingTable) *Parser {
	if mappings == nil {
		mappings = resolver.DefaultMappings()
	}
	return &Parser{conv: converter{mappings: mappings}}
}

// Filter parses a predicate
func (p *Parser) Filter(input string) (expr.Expression, error) {
	tree, err := filterParser.ParseString("", input)
	if err != nil {
		return expr.Expression{}, dberr.Value("invalid filter %q: %v", input, err)
	}
	return p.conv.or(tree, expr.TypeBool)
}

// Order parses an ordering such as "where/xsize::int64 desc"
func (p *Parser) Order(input string) (expr.Expression, builder.Direction, error) {
	tree, err := orderParser.ParseString("", input)
	if err != nil {
		return expr.Expression{}, builder.Asc, dberr.Value("invalid ordering %q: %v", input, err)
	}
	x, err := p.conv.sum(tree.Expr, "")
	if err != nil {
		return expr.Expression{}, builder.Asc, err
	}
	if strings.EqualFold(tree.Direction, "desc") {
		return x, builder.Desc, nil
	}
	return x, builder.Asc, nil
}

// Fetch parses a labeled column such as "maxx = max(where/xsize::int64)"
func (p *Parser) Fetch(input string) (string, expr.Expression, error) {
	tree, err := fetchParser.ParseString("", input)
	if err != nil {
		return "", expr.Expression{}, dberr.Value("invalid fetch %q: %v", input, err)
	}
	x, err := p.conv.sum(tree.Expr, "")
	if err != nil {
		return "", expr.Expression{}, err
	}
	return tree.Label, x, nil
}

var defaultParser = New(nil)

// Filter parses a predicate against the default catalog
func Filter(input string) (expr.Expression, error) {
	return defaultParser.Filter(input)
}
