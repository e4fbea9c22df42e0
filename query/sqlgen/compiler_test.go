package sqlgen_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/sqlgen"
	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

func compile(t *testing.T, d sqlgen.Dialect, x expr.Expression) *sqlgen.Statement {
	t.Helper()
	stmt, err := sqlgen.NewCompiler(d).Compile(x)
	require.NoError(t, err)
	return stmt
}

func filesBySource() expr.Expression {
	return expr.Call(expr.SymSelect,
		expr.Call(expr.SymDistinct),
		expr.Call(expr.SymSelectColumns, expr.Column("bdb_files", "id")),
		expr.Call(expr.SymFrom,
			expr.Table("bdb_files"),
			expr.Join(expr.Table("bdb_sources"), expr.Eq(expr.Column("bdb_files", "source_id"), expr.Column("bdb_sources", "id"))),
		),
		expr.Call(expr.SymWhere, expr.And(
			expr.Eq(expr.Column("bdb_sources", "name"), expr.String("seang")),
			expr.Gt(expr.Column("bdb_files", "size"), expr.Int64(100)),
		)),
		expr.Call(expr.SymOrderBy, expr.Desc(expr.Column("bdb_files", "stored_at"))),
		expr.Call(expr.SymLimit, expr.Int64(10)),
	)
}

func TestCompileSelectGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, d := range []sqlgen.Dialect{sqlgen.SQLite(), sqlgen.Postgres(), sqlgen.MySQL()} {
		t.Run(d.Name(), func(t *testing.T) {
			stmt := compile(t, d, filesBySource())
			g.Assert(t, "select_"+d.Name(), []byte(stmt.Text))
			assert.True(t, stmt.ReturnsRows)
			assert.Equal(t, []string{"lit_0", "lit_1"}, stmt.Order)
		})
	}
}

func TestBindRoundTrip(t *testing.T) {
	x := expr.Eq(expr.Column("wherexsize_values", "value_int"), expr.Int64(2))

	stmt := compile(t, sqlgen.SQLite(), x)
	assert.Equal(t, "wherexsize_values.value_int = :lit_0", stmt.Text)
	require.Contains(t, stmt.Binds, "lit_0")
	assert.True(t, stmt.Binds["lit_0"].Equal(expr.Int64(2)))

	args, err := stmt.Args()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{sql.Named("lit_0", int64(2))}, args)

	stmt = compile(t, sqlgen.Postgres(), x)
	assert.Equal(t, "wherexsize_values.value_int = $1", stmt.Text)
	args, err = stmt.Args()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(2)}, args)
}

func TestLikeRewritesGlob(t *testing.T) {
	stmt := compile(t, sqlgen.SQLite(), expr.Like(expr.Column("bdb_sources", "name"), "sea*"))

	assert.Equal(t, "bdb_sources.name LIKE :lit_0", stmt.Text)
	assert.True(t, stmt.Binds["lit_0"].Equal(expr.String("sea%")))

	stmt = compile(t, sqlgen.SQLite(), expr.Call(expr.SymLike, expr.Column("t", "c"), expr.Bind("pattern", expr.String("a?c"))))
	assert.Equal(t, "t.c LIKE :pattern", stmt.Text)
	assert.True(t, stmt.Binds["pattern"].Equal(expr.String("a_c")))
}

func TestNamedBindKeepsName(t *testing.T) {
	x := expr.And(
		expr.Eq(expr.Column("t", "a"), expr.Bind("value", expr.Int64(1))),
		expr.Eq(expr.Column("t", "b"), expr.Int64(2)),
		expr.Eq(expr.Column("t", "c"), expr.Bind("value", expr.Int64(1))),
	)

	stmt := compile(t, sqlgen.SQLite(), x)
	assert.Equal(t, "(t.a = :value AND t.b = :lit_0 AND t.c = :value)", stmt.Text)
	args, err := stmt.Args()
	require.NoError(t, err)
	assert.Len(t, args, 2)

	stmt = compile(t, sqlgen.Postgres(), x)
	assert.Equal(t, "(t.a = $1 AND t.b = $2 AND t.c = $3)", stmt.Text)
	args, err = stmt.Args()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(1)}, args)

	_, err = sqlgen.NewCompiler(sqlgen.SQLite()).Compile(expr.And(
		expr.Eq(expr.Column("t", "a"), expr.Bind("value", expr.Int64(1))),
		expr.Eq(expr.Column("t", "b"), expr.Bind("value", expr.Int64(2))),
	))
	assert.True(t, dberr.IsDuplicate(err))
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name string
		x    expr.Expression
		want string
	}{
		{
			"not arithmetic",
			expr.Not(expr.Eq(expr.Add(expr.Column("t", "a"), expr.Int64(1)), expr.Column("t", "b"))),
			"NOT ((t.a + :lit_0) = t.b)",
		},
		{
			"or",
			expr.Or(expr.Le(expr.Column("t", "a"), expr.Column("t", "b")), expr.Ne(expr.Column("t", "c"), expr.Column("t", "d"))),
			"(t.a <= t.b OR t.c != t.d)",
		},
		{
			"in",
			expr.In(expr.Column("t", "c"), expr.Int64(1), expr.Int64(2)),
			"t.c IN (:lit_0, :lit_1)",
		},
		{
			"label aggregate",
			expr.Label(expr.Sum(expr.Column("v", "value_int")), "total"),
			"SUM(v.value_int) AS total",
		},
		{
			"count star",
			expr.Call(expr.SymCount),
			"COUNT(*)",
		},
		{
			"outer join",
			expr.OuterJoin(
				expr.Alias("bdb_nodes", "x_l0"),
				expr.And(
					expr.Eq(expr.Column("x_l0", "file_id"), expr.Column("bdb_files", "id")),
					expr.Eq(expr.Column("x_l0", "name"), expr.Lit(expr.String("xsize"))),
				),
			),
			"LEFT OUTER JOIN bdb_nodes AS x_l0 ON (x_l0.file_id = bdb_files.id AND x_l0.name = 'xsize')",
		},
		{
			"group by",
			expr.Call(expr.SymGroupBy, expr.Column("t", "a"), expr.Column("t", "b")),
			"GROUP BY t.a, t.b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compile(t, sqlgen.SQLite(), tt.x).Text)
		})
	}
}

func TestOffsetWithoutLimit(t *testing.T) {
	x := expr.Call(expr.SymSelect,
		expr.Call(expr.SymSelectColumns, expr.Column("bdb_files", "id")),
		expr.Call(expr.SymFrom, expr.Table("bdb_files")),
		expr.Call(expr.SymOffset, expr.Int64(5)),
	)

	assert.Equal(t, "SELECT bdb_files.id FROM bdb_files LIMIT -1 OFFSET 5", compile(t, sqlgen.SQLite(), x).Text)
	assert.Equal(t, "SELECT bdb_files.id FROM bdb_files OFFSET 5", compile(t, sqlgen.Postgres(), x).Text)
	assert.Equal(t, "SELECT bdb_files.id FROM bdb_files LIMIT 18446744073709551615 OFFSET 5", compile(t, sqlgen.MySQL(), x).Text)
}

func TestInsert(t *testing.T) {
	values := func(returning bool) expr.Expression {
		args := []expr.Expression{
			expr.Table("bdb_files"),
			expr.Call(expr.SymInsertColumns, expr.String("uuid"), expr.String("size")),
			expr.Call(expr.SymInsertValues, expr.Bind("uuid", expr.String("abc")), expr.Int64(5)),
		}
		if returning {
			args = append(args, expr.Call(expr.SymReturning, expr.String("id")))
		}
		return expr.Call(expr.SymInsert, args...)
	}

	stmt := compile(t, sqlgen.Postgres(), values(true))
	assert.Equal(t, "INSERT INTO bdb_files(uuid, size) VALUES ($1, $2) RETURNING id", stmt.Text)
	assert.True(t, stmt.ReturnsRows)

	stmt = compile(t, sqlgen.SQLite(), values(false))
	assert.Equal(t, "INSERT INTO bdb_files(uuid, size) VALUES (:uuid, :lit_0)", stmt.Text)
	assert.False(t, stmt.ReturnsRows)

	_, err := sqlgen.NewCompiler(sqlgen.SQLite()).Compile(values(true))
	assert.True(t, dberr.IsValue(err))

	kv := expr.Call(expr.SymInsert,
		expr.Table("bdb_source_kvs"),
		expr.Call(expr.SymInsertColumns, expr.String("source_id"), expr.String("key"), expr.String("value")),
		expr.Call(expr.SymInsertValues, expr.Int64(1), expr.String("PLC"), expr.String("Angelholm")),
	)
	stmt = compile(t, sqlgen.MySQL(), kv)
	assert.Equal(t, "INSERT INTO bdb_source_kvs(source_id, `key`, value) VALUES (?, ?, ?)", stmt.Text)
	stmt = compile(t, sqlgen.Postgres(), kv)
	assert.Equal(t, "INSERT INTO bdb_source_kvs(source_id, key, value) VALUES ($1, $2, $3)", stmt.Text)
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		d    sqlgen.Dialect
		x    expr.Expression
		want string
	}{
		{sqlgen.SQLite(), expr.String("O'Brien"), "'O''Brien'"},
		{sqlgen.MySQL(), expr.String(`a\b`), `'a\\b'`},
		{sqlgen.Postgres(), expr.Bool(true), "TRUE"},
		{sqlgen.SQLite(), expr.Bool(true), "1"},
		{sqlgen.MySQL(), expr.Bool(false), "0"},
		{sqlgen.SQLite(), expr.Date(types.MustDate(2000, time.January, 2)), "'2000-01-02'"},
		{sqlgen.SQLite(), expr.Time(types.MustTime(12, 5, 0)), "'12:05:00'"},
		{sqlgen.Postgres(), expr.DateTime(time.Date(2000, 1, 2, 12, 0, 0, 0, time.UTC)), "'2000-01-02 12:00:00'"},
		{sqlgen.Postgres(), expr.Interval(time.Hour), "INTERVAL '3600 seconds'"},
		{sqlgen.MySQL(), expr.Interval(time.Minute), "INTERVAL 60 SECOND"},
		{sqlgen.SQLite(), expr.Double(0.5), "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.d.Name()+" "+tt.x.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, compile(t, tt.d, expr.Lit(tt.x)).Text)
		})
	}
}

func TestBindValues(t *testing.T) {
	d := sqlgen.SQLite()

	v, err := d.BindValue(expr.Date(types.MustDate(2000, time.January, 2)))
	require.NoError(t, err)
	assert.Equal(t, "2000-01-02", v)

	v, err = d.BindValue(expr.Time(types.MustTime(12, 0, 0)))
	require.NoError(t, err)
	assert.Equal(t, "12:00:00", v)

	v, err = d.BindValue(expr.Bool(true))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = d.BindValue(expr.List())
	assert.True(t, dberr.IsValue(err))
}

func TestUnknownSymbolFails(t *testing.T) {
	_, err := sqlgen.NewCompiler(sqlgen.SQLite()).Compile(expr.Call("frobnicate", expr.Int64(1)))
	require.Error(t, err)
	assert.True(t, dberr.IsValue(err))
	assert.Contains(t, err.Error(), "frobnicate")

	_, err = sqlgen.NewCompiler(sqlgen.SQLite()).Compile(expr.Eq(expr.Attribute("where/xsize", "int64"), expr.Int64(1)))
	assert.True(t, dberr.IsValue(err), "unresolved attributes never reach the database")
}

func TestMalformedOperands(t *testing.T) {
	c := sqlgen.NewCompiler(sqlgen.SQLite())

	_, err := c.Compile(expr.Call(expr.SymEq, expr.Int64(1)))
	assert.True(t, dberr.IsValue(err))

	_, err = c.Compile(expr.Call(expr.SymLimit, expr.String("ten")))
	assert.True(t, dberr.IsValue(err))

	_, err = c.Compile(expr.Call(expr.SymIn, expr.Column("t", "c"), expr.List()))
	assert.True(t, dberr.IsValue(err))
}

func TestCompactKeepsNonStringLeaves(t *testing.T) {
	out := sqlgen.Compact(expr.List(expr.String("a"), expr.List(expr.String("b")), expr.Int64(1), expr.String("c")))

	require.Len(t, out, 3)
	assert.True(t, out[0].Equal(expr.String("ab")))
	assert.True(t, out[1].Equal(expr.Int64(1)))
	assert.True(t, out[2].Equal(expr.String("c")))
}

func TestRaw(t *testing.T) {
	binds := sqlgen.BindMap{"uuid": expr.String("abc")}

	stmt, err := sqlgen.Raw(sqlgen.Postgres(), "DELETE FROM bdb_files WHERE uuid = :uuid AND note::text <> 'a:b'", binds)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM bdb_files WHERE uuid = $1 AND note::text <> 'a:b'", stmt.Text)
	assert.False(t, stmt.ReturnsRows)

	stmt, err = sqlgen.Raw(sqlgen.MySQL(), "SELECT id FROM bdb_files WHERE uuid = :uuid", binds)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM bdb_files WHERE uuid = ?", stmt.Text)
	assert.True(t, stmt.ReturnsRows)

	_, err = sqlgen.Raw(sqlgen.SQLite(), "SELECT :missing", binds)
	assert.True(t, dberr.IsLookup(err))
}

func TestDialectFor(t *testing.T) {
	d, err := sqlgen.DialectFor("postgresql")
	require.NoError(t, err)
	assert.True(t, d.HasFeature(sqlgen.Returning))
	assert.False(t, d.HasFeature(sqlgen.LastInsertID))

	d, err = sqlgen.DialectFromURL("file:test.db?cache=shared")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", d.DriverName())

	_, err = sqlgen.DialectFor("oracle")
	assert.True(t, dberr.IsLookup(err))
}

func TestDialectFromURL(t *testing.T) {
	for url, want := range map[string]string{
		"postgres://bdb@localhost/archive":   "postgres",
		"postgresql://bdb@localhost/archive": "postgres",
		"mysql://bdb@localhost/archive":      "mysql",
		"sqlite:///var/lib/bdb/archive.db":   "sqlite",
		"archive.db":                         "sqlite",
		":memory:":                           "sqlite",
	} {
		d, err := sqlgen.DialectFromURL(url)
		require.NoError(t, err, url)
		assert.Equal(t, want, d.Name(), url)
	}

	_, err := sqlgen.DialectFromURL("oracle://localhost/archive")
	assert.True(t, dberr.IsLookup(err))
	_, err = sqlgen.DialectFromURL("archive")
	assert.True(t, dberr.IsLookup(err))
}
