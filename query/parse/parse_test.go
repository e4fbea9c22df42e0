package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baltrad/bdb-go/query/builder"
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/parse"
	"github.com/baltrad/bdb-go/query/resolver"
	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

func TestFilter(t *testing.T) {
	xsize := expr.Attribute("where/xsize", expr.TypeInt64)
	object := expr.Attribute("what/object", expr.TypeString)

	tests := []struct {
		name  string
		input string
		want  expr.Expression
	}{
		{
			name:  "catalog type",
			input: `what/object = "PVOL"`,
			want:  expr.Eq(object, expr.String("PVOL")),
		},
		{
			name:  "single quotes",
			input: `what/object = 'SCAN'`,
			want:  expr.Eq(object, expr.String("SCAN")),
		},
		{
			name:  "type from literal",
			input: `where/xsize > 2`,
			want:  expr.Gt(xsize, expr.Int64(2)),
		},
		{
			name:  "type from literal on the left",
			input: `2.5 <= where/elangle`,
			want:  expr.Le(expr.Double(2.5), expr.Attribute("where/elangle", expr.TypeDouble)),
		},
		{
			name:  "explicit type",
			input: `where/xsize::double != 1`,
			want:  expr.Ne(expr.Attribute("where/xsize", expr.TypeDouble), expr.Int64(1)),
		},
		{
			name:  "untyped defaults to string",
			input: `how/task = what/object`,
			want:  expr.Eq(expr.Attribute("how/task", expr.TypeString), object),
		},
		{
			name:  "bare predicate is boolean",
			input: `how/simulated`,
			want:  expr.Attribute("how/simulated", expr.TypeBool),
		},
		{
			name:  "precedence",
			input: `what/object = "PVOL" or what/object = "SCAN" and not where/xsize < 3`,
			want: expr.Or(
				expr.Eq(object, expr.String("PVOL")),
				expr.And(
					expr.Eq(object, expr.String("SCAN")),
					expr.Not(expr.Lt(xsize, expr.Int64(3))),
				),
			),
		},
		{
			name:  "parentheses",
			input: `(what/object = "PVOL" or what/object = "SCAN") and where/xsize >= 3`,
			want: expr.And(
				expr.Or(expr.Eq(object, expr.String("PVOL")), expr.Eq(object, expr.String("SCAN"))),
				expr.Ge(xsize, expr.Int64(3)),
			),
		},
		{
			name:  "arithmetic",
			input: `where/xsize + 1 * 2 > -3`,
			want:  expr.Gt(expr.Add(xsize, expr.Mul(expr.Int64(1), expr.Int64(2))), expr.Int64(-3)),
		},
		{
			name:  "source key membership",
			input: `what/source:_name in ("seang", "sekkr")`,
			want: expr.In(expr.Attribute("what/source:_name", expr.TypeString),
				expr.String("seang"), expr.String("sekkr")),
		},
		{
			name:  "negated membership",
			input: `where/xsize not in (1, 2)`,
			want:  expr.Not(expr.In(xsize, expr.Int64(1), expr.Int64(2))),
		},
		{
			name:  "like",
			input: `what/source LIKE "*PLC:Ang*"`,
			want:  expr.Like(expr.Attribute("what/source", expr.TypeString), "*PLC:Ang*"),
		},
		{
			name:  "between",
			input: `where/xsize between 2 and 5 and what/object = "PVOL"`,
			want: expr.And(
				expr.And(expr.Ge(xsize, expr.Int64(2)), expr.Le(xsize, expr.Int64(5))),
				expr.Eq(object, expr.String("PVOL")),
			),
		},
		{
			name:  "date literal",
			input: `what/date >= date("20000101")`,
			want: expr.Ge(expr.Attribute("what/date", expr.TypeDate),
				expr.Date(types.MustDate(2000, 1, 1))),
		},
		{
			name:  "string coerced to the attribute type",
			input: `what/time < "12:30:00"`,
			want: expr.Lt(expr.Attribute("what/time", expr.TypeTime),
				expr.Time(types.MustTime(12, 30, 0))),
		},
		{
			name:  "boolean literal",
			input: `how/simulated = true`,
			want:  expr.Eq(expr.Attribute("how/simulated", expr.TypeBool), expr.Bool(true)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parse.Filter(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestFilterErrors(t *testing.T) {
	for _, input := range []string{
		``,
		`what/object =`,
		`where/xsize > 2 and`,
		`where/xsize::complex = 1`,
		`frobnicate(where/xsize) = 1`,
		`max(where/xsize, 2) = 1`,
		`date(where/xsize) = 1`,
		`what/date = "not a date"`,
		`what/object not`,
	} {
		t.Run(input, func(t *testing.T) {
			_, err := parse.Filter(input)
			require.Error(t, err)
			assert.True(t, dberr.IsValue(err), err.Error())
		})
	}
}

func TestCustomCatalog(t *testing.T) {
	mappings := resolver.DefaultMappings()
	require.NoError(t, mappings.Add(resolver.Mapping{
		Name: "where/xsize", Type: expr.TypeInt64, Table: "bdb_files", Column: "xsize",
	}))
	p := parse.New(mappings)

	got, err := p.Filter(`where/xsize = "3"`)
	require.NoError(t, err)
	assert.Equal(t, expr.Eq(expr.Attribute("where/xsize", expr.TypeInt64), expr.String("3")).String(), got.String())
}

func TestOrder(t *testing.T) {
	p := parse.New(nil)

	x, dir, err := p.Order("where/xsize::int64 desc")
	require.NoError(t, err)
	assert.Equal(t, builder.Desc, dir)
	assert.Equal(t, expr.Attribute("where/xsize", expr.TypeInt64).String(), x.String())

	x, dir, err = p.Order("what/date")
	require.NoError(t, err)
	assert.Equal(t, builder.Asc, dir)
	assert.Equal(t, expr.Attribute("what/date", expr.TypeDate).String(), x.String())

	_, _, err = p.Order("what/date sideways")
	assert.True(t, dberr.IsValue(err))
}

func TestFetch(t *testing.T) {
	p := parse.New(nil)

	label, x, err := p.Fetch("maxx = max(where/xsize::int64)")
	require.NoError(t, err)
	assert.Equal(t, "maxx", label)
	assert.Equal(t, expr.Max(expr.Attribute("where/xsize", expr.TypeInt64)).String(), x.String())

	label, x, err = p.Fetch("n = count(file:uuid)")
	require.NoError(t, err)
	assert.Equal(t, "n", label)
	assert.Equal(t, expr.Count(expr.Attribute("file:uuid", expr.TypeString)).String(), x.String())

	_, _, err = p.Fetch("max(where/xsize)")
	assert.True(t, dberr.IsValue(err))
}
