package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baltrad/bdb-go/oh5"
	"github.com/baltrad/bdb-go/query/builder"
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/parse"
	"github.com/baltrad/bdb-go/runtime/client"
	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

func xsize() expr.Expression {
	return expr.Attribute("where/xsize", expr.TypeInt64)
}

func sourceName() expr.Expression {
	return expr.Attribute("what/source:_name", expr.TypeString)
}

func TestSchemaVersion(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.CreateSchema(ctx), "creating the schema twice is harmless")
	require.NoError(t, db.CheckSchemaVersion(ctx))

	v, err := db.StoredSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, client.SchemaVersion, v.String())
}

func TestStoreFile(t *testing.T) {
	ctx := context.Background()
	db, entries := openFixtureDB(t)
	td1 := entries["td1"]

	e, err := db.FileEntry(ctx, td1.UUID)
	require.NoError(t, err)
	assert.Equal(t, td1.ID, e.ID)
	assert.Equal(t, "seang", e.Source)
	assert.Equal(t, "PVOL", e.Object)
	assert.Equal(t, types.MustDate(2000, time.January, 1), e.Date)
	assert.Equal(t, types.MustTime(12, 0, 0), e.Time)
	assert.Equal(t, "WMO:02606,RAD:SE50,PLC:Angelholm", e.WhatSource)
	assert.Equal(t, td1.Hash, e.Hash)
	assert.Len(t, e.Hash, 64)
	assert.True(t, td1.StoredAt.Equal(e.StoredAt), "%s != %s", td1.StoredAt, e.StoredAt)

	byID, err := db.FileByID(ctx, td1.ID)
	require.NoError(t, err)
	assert.Equal(t, td1.UUID, byID.UUID)

	ok, err := db.HasFile(ctx, td1.Hash, td1.SourceID)
	require.NoError(t, err)
	assert.True(t, ok)

	content, err := db.FileContent(ctx, td1.UUID)
	require.NoError(t, err)
	assert.Equal(t, testFiles[0].content(0), content)
	assert.EqualValues(t, len(content), e.Size)
}

func TestStoreFileRejectsDuplicateContent(t *testing.T) {
	ctx := context.Background()
	db, _ := openFixtureDB(t)

	meta, content := testFiles[0].metadata(t, 0)
	_, err := db.StoreFile(ctx, meta, content)
	assert.True(t, dberr.IsDuplicate(err))
}

func TestStoreFileWithoutSource(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	meta, content := testFiles[0].metadata(t, 0)
	_, err := db.StoreFile(ctx, meta, content)
	require.Error(t, err)
	assert.True(t, dberr.IsLookup(err))
	assert.Contains(t, err.Error(), "no source found")

	found, err := db.ExecuteFileQuery(ctx, builder.NewFileQuery())
	require.NoError(t, err)
	assert.Empty(t, found, "a failed store leaves nothing behind")
}

func TestFileQueryOrderedByAttribute(t *testing.T) {
	ctx := context.Background()
	db, entries := openFixtureDB(t)

	found, err := db.ExecuteFileQuery(ctx, builder.NewFileQuery().OrderBy(xsize(), builder.Desc))
	require.NoError(t, err)
	assert.Equal(t, []string{"td4", "td5", "td3", "td2", "td1"}, namesOf(entries, found))

	found, err = db.ExecuteFileQuery(ctx, builder.NewFileQuery().OrderBy(xsize(), builder.Asc).Limit(2).Offset(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"td2", "td3"}, namesOf(entries, found))

	found, err = db.ExecuteFileQuery(ctx, builder.NewFileQuery().OrderBy(xsize(), builder.Desc).Offset(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"td2", "td1"}, namesOf(entries, found))
}

func TestFileQueryFilters(t *testing.T) {
	ctx := context.Background()
	db, entries := openFixtureDB(t)

	tests := []struct {
		name   string
		filter expr.Expression
		want   []string
	}{
		{"source name glob", expr.Like(sourceName(), "sea*"), []string{"td1", "td3", "td5"}},
		{"source key", expr.Eq(expr.Attribute("what/source:PLC", expr.TypeString), expr.String("Karlskrona")), []string{"td2", "td4"}},
		{"generic attribute", expr.Gt(xsize(), expr.Int64(2)), []string{"td3", "td4", "td5"}},
		{"specialized attribute", expr.Eq(expr.Attribute("what/object", expr.TypeString), expr.String("PVOL")), []string{"td1", "td2", "td3", "td4", "td5"}},
		{"nested group", expr.Eq(expr.Attribute("dataset1/where/xsize", expr.TypeInt64), expr.Int64(5)), []string{"td5"}},
		{"double", expr.Eq(expr.Attribute("where/elangle", expr.TypeDouble), expr.Double(0.5)), []string{"td1", "td2", "td3", "td4", "td5"}},
		{"in", expr.In(xsize(), expr.Int64(1), expr.Int64(6)), []string{"td1", "td4"}},
		{"no match", expr.Eq(sourceName(), expr.String("sevar")), []string{}},
		{"combined", expr.And(
			expr.Eq(sourceName(), expr.String("seang")),
			expr.Not(expr.Eq(xsize(), expr.Int64(3))),
		), []string{"td1", "td5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := db.ExecuteFileQuery(ctx, builder.NewFileQuery().Filter(tt.filter))
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, namesOf(entries, found))
		})
	}
}

func TestAttributeQuerySumBySource(t *testing.T) {
	ctx := context.Background()
	db, _ := openFixtureDB(t)

	q := builder.NewAttributeQuery().
		Fetch("source", sourceName()).
		Fetch("xsize", expr.Sum(xsize())).
		GroupBy(sourceName()).
		OrderBy(sourceName(), builder.Asc)

	res, err := db.ExecuteAttributeQuery(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"source", "xsize"}, res.Columns())
	require.Equal(t, 2, res.Size())

	want := []struct {
		source string
		sum    int64
	}{{"seang", 14}, {"sekkr", 8}}
	for _, w := range want {
		require.True(t, res.Next())

		src, err := res.Value("source")
		require.NoError(t, err)
		assert.Equal(t, w.source, src.ToString())

		sum, err := res.Value("xsize")
		require.NoError(t, err)
		n, err := sum.ToInt64()
		require.NoError(t, err)
		assert.Equal(t, w.sum, n)
	}
	assert.False(t, res.Next())
}

func TestAttributeQueryFetchesValues(t *testing.T) {
	ctx := context.Background()
	db, _ := openFixtureDB(t)

	q := builder.NewAttributeQuery().
		Fetch("uuid", expr.Attribute("file:uuid", expr.TypeString)).
		Fetch("date", expr.Attribute("what/date", expr.TypeDate)).
		Fetch("simulated", expr.Attribute("how/simulated", expr.TypeBool)).
		Filter(expr.Eq(xsize(), expr.Int64(2)))

	res, err := db.ExecuteAttributeQuery(ctx, q)
	require.NoError(t, err)
	require.True(t, res.Next())

	d, err := res.Value("date")
	require.NoError(t, err)
	got, err := d.ToDate()
	require.NoError(t, err)
	assert.Equal(t, types.MustDate(2000, time.January, 1), got)

	b, err := res.Value("simulated")
	require.NoError(t, err)
	sim, err := b.ToBool()
	require.NoError(t, err)
	assert.True(t, sim)

	_, err = res.Value("missing")
	assert.True(t, dberr.IsLookup(err))
	assert.False(t, res.Next())
}

func TestRemoveFile(t *testing.T) {
	ctx := context.Background()
	db, entries := openFixtureDB(t)
	td2 := entries["td2"]

	removed, err := db.RemoveFile(ctx, td2.UUID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = db.FileEntry(ctx, td2.UUID)
	assert.True(t, dberr.IsLookup(err))
	_, err = db.FileContent(ctx, td2.UUID)
	assert.True(t, dberr.IsLookup(err))

	removed, err = db.RemoveFile(ctx, td2.UUID)
	require.NoError(t, err)
	assert.False(t, removed)

	q := builder.NewAttributeQuery().
		Fetch("source", sourceName()).
		Fetch("xsize", expr.Sum(xsize())).
		GroupBy(sourceName()).
		Filter(expr.Eq(sourceName(), expr.String("sekkr")))
	res, err := db.ExecuteAttributeQuery(ctx, q)
	require.NoError(t, err)
	require.True(t, res.Next())
	sum, err := res.Value("xsize")
	require.NoError(t, err)
	n, err := sum.ToInt64()
	require.NoError(t, err)
	assert.EqualValues(t, 6, n, "attribute values of the removed file are gone")

	count, err := db.RemoveAllFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	found, err := db.ExecuteFileQuery(ctx, builder.NewFileQuery())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSources(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for _, src := range []oh5.Source{sekkr, seang} {
		_, err := db.AddSource(ctx, src)
		require.NoError(t, err)
	}
	_, err := db.AddSource(ctx, seang)
	assert.True(t, dberr.IsDuplicate(err))
	_, err = db.AddSource(ctx, oh5.Source{})
	assert.True(t, dberr.IsValue(err))

	all, err := db.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, seang, all[0])
	assert.Equal(t, sekkr, all[1])

	updated := oh5.Source{Name: "seang", Values: map[string]string{"NOD": "seang", "WMO": "02606"}}
	require.NoError(t, db.UpdateSource(ctx, updated))
	got, err := db.SourceByName(ctx, "seang")
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	err = db.UpdateSource(ctx, oh5.Source{Name: "sevar"})
	assert.True(t, dberr.IsLookup(err))

	_, err = db.SourceByName(ctx, "sevar")
	assert.True(t, dberr.IsLookup(err))

	removed, err := db.RemoveSource(ctx, "sekkr")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = db.RemoveSource(ctx, "sekkr")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveSourceInUse(t *testing.T) {
	ctx := context.Background()
	db, _ := openFixtureDB(t)

	_, err := db.RemoveSource(ctx, "seang")
	assert.True(t, dberr.IsValue(err))

	_, err = db.SourceByName(ctx, "seang")
	assert.NoError(t, err)
}

func TestSourceForMetadataPrecedence(t *testing.T) {
	ctx := context.Background()
	db, _ := openFixtureDB(t)

	meta := oh5.NewMetadata()
	what, err := meta.AddGroup(meta.Root(), "what")
	require.NoError(t, err)
	h, err := meta.AddAttribute(what, "source", types.NewString("WMO:00000,RAD:SE51,PLC:Angelholm"))
	require.NoError(t, err)
	require.NotEqual(t, oh5.NoHandle, h)

	src, err := db.SourceForMetadata(ctx, meta)
	require.NoError(t, err)
	assert.Equal(t, "sekkr", src.Name, "RAD is tried before PLC and WMO:00000 is ignored")

	meta = oh5.NewMetadata()
	what, _ = meta.AddGroup(meta.Root(), "what")
	_, _ = meta.AddAttribute(what, "source", types.NewString("WMO:99999"))
	_, err = db.SourceForMetadata(ctx, meta)
	assert.True(t, dberr.IsLookup(err))
}

func TestTreeLoadsLazily(t *testing.T) {
	ctx := context.Background()
	db, entries := openFixtureDB(t)

	e, err := db.FileEntry(ctx, entries["td5"].UUID)
	require.NoError(t, err)

	tree, err := db.Tree(ctx, e)
	require.NoError(t, err)
	meta := tree.Metadata()
	assert.Equal(t, 1, meta.Len())
	assert.False(t, tree.Loaded(meta.Root()))

	top, err := tree.Children(ctx, meta.Root())
	require.NoError(t, err)
	var names []string
	for _, h := range top {
		n, err := meta.Node(h)
		require.NoError(t, err)
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"what", "where", "how", "dataset1"}, names)

	where, err := meta.Find("/where")
	require.NoError(t, err)
	assert.False(t, tree.Loaded(where))
	_, err = meta.Value("/where/xsize")
	assert.True(t, dberr.IsLookup(err), "deeper levels are not loaded yet")

	_, err = tree.Children(ctx, where)
	require.NoError(t, err)
	v, err := meta.Value("/where/xsize")
	require.NoError(t, err)
	assert.True(t, v.Equal(types.NewInt64(5)))
	v, err = meta.Value("/where/elangle")
	require.NoError(t, err)
	assert.True(t, v.Equal(types.NewDouble(0.5)))

	require.NoError(t, tree.LoadAll(ctx))
	h, err := meta.Find("/dataset1/data1/data")
	require.NoError(t, err)
	n, err := meta.Node(h)
	require.NoError(t, err)
	assert.Equal(t, oh5.DataSet, n.Kind)
	v, err = meta.Value("/how/simulated")
	require.NoError(t, err)
	assert.True(t, v.Equal(types.NewBool(true)))

	again, err := db.Tree(ctx, e)
	require.NoError(t, err)
	assert.Same(t, tree, again)
}

func TestStoredTreeIsLoaded(t *testing.T) {
	ctx := context.Background()
	db, entries := openFixtureDB(t)

	tree, err := db.Tree(ctx, entries["td1"])
	require.NoError(t, err)
	meta := tree.Metadata()
	assert.True(t, tree.Loaded(meta.Root()))

	v, err := meta.Value("/where/xsize")
	require.NoError(t, err)
	assert.True(t, v.Equal(types.NewInt64(1)))

	id, err := tree.PhysicalID(meta.Root())
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestExecutorMiddleware(t *testing.T) {
	ctx := context.Background()
	db, _ := openFixtureDB(t)

	var events []*client.QueryEvent
	db.Executor().Use(client.TimingMiddleware(0, func(event *client.QueryEvent) {
		events = append(events, event)
	}))

	q := builder.NewAttributeQuery().Fetch("n", expr.Count(expr.Attribute("file:id", expr.TypeInt64)))
	for i := 0; i < 2; i++ {
		res, err := db.ExecuteAttributeQuery(ctx, q)
		require.NoError(t, err)
		require.True(t, res.Next())
		n, err := res.ValueAt(0)
		require.NoError(t, err)
		count, err := n.ToInt64()
		require.NoError(t, err)
		assert.EqualValues(t, 5, count)
	}

	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Rows)
	assert.Same(t, events[0].Statement, events[1].Statement, "the second run reuses the cached statement")
	assert.GreaterOrEqual(t, db.Executor().CacheStats().Hits, int64(1))
}

func TestParsedFileQuery(t *testing.T) {
	ctx := context.Background()
	db, entries := openFixtureDB(t)

	tests := []struct {
		filter string
		want   []string
	}{
		{`where/xsize > 2 and what/source:_name = "seang"`, []string{"td3", "td5"}},
		{`what/source:PLC like "Karl*" or where/xsize = 1`, []string{"td1", "td2", "td4"}},
		{`where/xsize between 2 and 5 and not what/source:_name in ("sekkr")`, []string{"td3", "td5"}},
		{`what/date = date("2000-01-01") and how/simulated`, []string{"td1", "td2", "td3", "td4", "td5"}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			filter, err := parse.Filter(tt.filter)
			require.NoError(t, err)
			found, err := db.ExecuteFileQuery(ctx, builder.NewFileQuery().Filter(filter))
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, namesOf(entries, found))
		})
	}
}

func TestLoadAllQueriesOncePerLevel(t *testing.T) {
	ctx := context.Background()
	db, entries := openFixtureDB(t)

	e, err := db.FileEntry(ctx, entries["td5"].UUID)
	require.NoError(t, err)
	tree, err := db.Tree(ctx, e)
	require.NoError(t, err)

	var statements int
	db.Executor().Use(func(ctx context.Context, event *client.QueryEvent, next func() error) error {
		statements++
		return next()
	})
	require.NoError(t, tree.LoadAll(ctx))

	// root, top level groups, dataset1 groups, the data node
	assert.Equal(t, 4, statements)
	v, err := tree.Metadata().Value("/dataset1/where/xsize")
	require.NoError(t, err)
	assert.True(t, v.Equal(types.NewInt64(5)))
}

func TestDateTimeAttributeQuery(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.AddSource(ctx, seang)
	require.NoError(t, err)

	stored := make(map[string]string)
	for i, startdt := range []string{"2000-01-01T11:55:00Z", "2000-01-01T12:05:00Z"} {
		content := []byte(`what:
  object: PVOL
  date: "20000101"
  time: "120000"
  source: "WMO:02606"
how:
  startdt: ` + startdt + "\n")
		meta, err := oh5.ReadYAML(content)
		require.NoError(t, err)
		e, err := db.StoreFile(ctx, meta, content)
		require.NoError(t, err)
		stored[e.UUID] = []string{"early", "late"}[i]
	}

	for _, filter := range []string{
		`how/startdt > datetime("2000-01-01 12:00:00")`,
		`how/startdt::datetime > datetime("2000-01-01 12:00:00")`,
	} {
		t.Run(filter, func(t *testing.T) {
			x, err := parse.Filter(filter)
			require.NoError(t, err)
			found, err := db.ExecuteFileQuery(ctx, builder.NewFileQuery().Filter(x))
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, "late", stored[found[0].UUID])
		})
	}
}
