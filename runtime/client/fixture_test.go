package client_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/baltrad/bdb-go/internal/storage"
	"github.com/baltrad/bdb-go/oh5"
	"github.com/baltrad/bdb-go/query/sqlgen"
	"github.com/baltrad/bdb-go/runtime/client"
)

var (
	seang = oh5.Source{Name: "seang", Values: map[string]string{"WMO": "02606", "RAD": "SE50", "PLC": "Angelholm"}}
	sekkr = oh5.Source{Name: "sekkr", Values: map[string]string{"WMO": "02666", "RAD": "SE51", "PLC": "Karlskrona"}}
)

// testFile describes one fixture file
type testFile struct {
	name    string
	source  string
	xsize   int64
	dataset bool
}

// the five fixture files, td1..td5
var testFiles = []testFile{
	{name: "td1", source: "WMO:02606,RAD:SE50,PLC:Angelholm", xsize: 1},
	{name: "td2", source: "WMO:02666,RAD:SE51,PLC:Karlskrona", xsize: 2},
	{name: "td3", source: "WMO:02606,RAD:SE50,PLC:Angelholm", xsize: 3},
	{name: "td4", source: "WMO:02666,RAD:SE51,PLC:Karlskrona", xsize: 6},
	{name: "td5", source: "WMO:02606,RAD:SE50,PLC:Angelholm", xsize: 5, dataset: true},
}

func (f testFile) content(minute int) []byte {
	doc := fmt.Sprintf(`what:
  object: PVOL
  date: "20000101"
  time: "12%02d00"
  source: "%s"
where:
  xsize: %d
  elangle: 0.5
how:
  simulated: true
`, minute, f.source, f.xsize)
	if f.dataset {
		doc += fmt.Sprintf("dataset1:\n  where:\n    xsize: %d\n  data1:\n    data: !dataset\n", f.xsize)
	}
	return []byte(doc)
}

func (f testFile) metadata(t *testing.T, minute int) (*oh5.Metadata, []byte) {
	t.Helper()
	content := f.content(minute)
	meta, err := oh5.ReadYAML(content)
	require.NoError(t, err)
	return meta, content
}

// openTestDB returns an empty archive in a private in-memory SQLite database
func openTestDB(t *testing.T) *client.Database {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	pool := client.NewPoolFromDB(sqlgen.SQLite(), sqlDB,
		client.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}, storage.NewMemoryStorage())
	db := client.New(pool, client.Options{})
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.CreateSchema(context.Background()))
	return db
}

// openFixtureDB returns an archive holding both sources and td1..td5.
// The entries are keyed by fixture name.
func openFixtureDB(t *testing.T) (*client.Database, map[string]*client.FileEntry) {
	t.Helper()
	ctx := context.Background()
	db := openTestDB(t)

	for _, src := range []oh5.Source{seang, sekkr} {
		_, err := db.AddSource(ctx, src)
		require.NoError(t, err)
	}

	entries := make(map[string]*client.FileEntry)
	for i, f := range testFiles {
		meta, content := f.metadata(t, i)
		e, err := db.StoreFile(ctx, meta, content)
		require.NoError(t, err, f.name)
		entries[f.name] = e
	}
	return db, entries
}

func namesOf(entries map[string]*client.FileEntry, found []*client.FileEntry) []string {
	byUUID := make(map[string]string, len(entries))
	for name, e := range entries {
		byUUID[e.UUID] = name
	}
	out := make([]string, len(found))
	for i, e := range found {
		out[i] = byUUID[e.UUID]
	}
	return out
}
