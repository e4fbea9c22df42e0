package client_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/sqlgen"
	"github.com/baltrad/bdb-go/runtime/client"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

func checkout(t *testing.T) *client.Connection {
	t.Helper()
	db := openTestDB(t)
	conn, err := db.Pool().Get(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func raw(t *testing.T, conn *client.Connection, text string, binds sqlgen.BindMap) *sqlgen.Statement {
	t.Helper()
	stmt, err := sqlgen.Raw(conn.Dialect(), text, binds)
	require.NoError(t, err)
	return stmt
}

func insertSource(t *testing.T, conn *client.Connection, name string) *sqlgen.Statement {
	return raw(t, conn, "INSERT INTO bdb_sources(name) VALUES (:name)", sqlgen.BindMap{"name": expr.String(name)})
}

func countSources(t *testing.T, conn *client.Connection) int {
	t.Helper()
	res, err := conn.Execute(context.Background(), raw(t, conn, "SELECT s.name FROM bdb_sources s", nil))
	require.NoError(t, err)
	return res.Size()
}

func TestExecuteCommitsImplicitly(t *testing.T) {
	ctx := context.Background()
	conn := checkout(t)

	_, err := conn.LastInsertID()
	assert.True(t, dberr.IsDB(err), "no insert yet")

	res, err := conn.Execute(ctx, insertSource(t, conn, "seang"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.AffectedRows())
	assert.False(t, conn.InTransaction())

	id, err := conn.LastInsertID()
	require.NoError(t, err)
	assert.Positive(t, id)

	assert.Equal(t, 1, countSources(t, conn))
}

func TestExecuteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	conn := checkout(t)

	_, err := conn.Execute(ctx, raw(t, conn, "SELECT x FROM no_such_table", nil))
	require.Error(t, err)
	assert.True(t, dberr.IsDB(err))
	assert.False(t, conn.InTransaction())
}

func TestGuardRollsBackUnlessCommitted(t *testing.T) {
	ctx := context.Background()
	conn := checkout(t)

	func() {
		g, err := client.Guard(ctx, conn)
		require.NoError(t, err)
		defer g.Release()

		_, err = conn.Execute(ctx, insertSource(t, conn, "seang"))
		require.NoError(t, err)
		assert.True(t, conn.InTransaction())
	}()
	assert.False(t, conn.InTransaction())
	assert.Equal(t, 0, countSources(t, conn))

	func() {
		g, err := client.Guard(ctx, conn)
		require.NoError(t, err)
		defer g.Release()

		_, err = conn.Execute(ctx, insertSource(t, conn, "seang"))
		require.NoError(t, err)
		require.NoError(t, g.Commit())
	}()
	assert.Equal(t, 1, countSources(t, conn))
}

func TestNestedGuardJoinsTransaction(t *testing.T) {
	ctx := context.Background()
	conn := checkout(t)

	require.NoError(t, conn.Begin(ctx))
	inner, err := client.Guard(ctx, conn)
	require.NoError(t, err)
	require.NoError(t, inner.Commit())
	inner.Release()
	assert.True(t, conn.InTransaction(), "only the owner ends the transaction")

	_, err = conn.Execute(ctx, insertSource(t, conn, "seang"))
	require.NoError(t, err)
	require.NoError(t, conn.Rollback())
	assert.Equal(t, 0, countSources(t, conn))

	assert.True(t, dberr.IsValue(conn.Commit()))
	assert.True(t, dberr.IsValue(conn.Rollback()))
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()
	conn := checkout(t)
	boom := errors.New("boom")

	err := conn.Transaction(ctx, func(conn *client.Connection) error {
		if _, err := conn.Execute(ctx, insertSource(t, conn, "seang")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countSources(t, conn))

	assert.Panics(t, func() {
		_ = conn.Transaction(ctx, func(conn *client.Connection) error {
			_, _ = conn.Execute(ctx, insertSource(t, conn, "seang"))
			panic("boom")
		})
	})
	assert.False(t, conn.InTransaction())
	assert.Equal(t, 0, countSources(t, conn))

	err = conn.Transaction(ctx, func(conn *client.Connection) error {
		_, err := conn.Execute(ctx, insertSource(t, conn, "seang"))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countSources(t, conn))
}

func TestResultCursor(t *testing.T) {
	ctx := context.Background()
	conn := checkout(t)

	for _, name := range []string{"seang", "sekkr"} {
		_, err := conn.Execute(ctx, insertSource(t, conn, name))
		require.NoError(t, err)
	}

	res, err := conn.Execute(ctx, raw(t, conn, "SELECT s.id, s.name FROM bdb_sources s ORDER BY s.name", nil))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Size())
	assert.Equal(t, []string{"id", "name"}, res.Columns())

	_, err = res.ValueAt(0)
	assert.True(t, dberr.IsLookup(err), "no row before Next")

	require.True(t, res.Next())
	v, err := res.Value("name")
	require.NoError(t, err)
	assert.Equal(t, "seang", v.ToString())
	_, err = res.ValueAt(2)
	assert.True(t, dberr.IsLookup(err))

	require.True(t, res.Next())
	row, err := res.Row()
	require.NoError(t, err)
	assert.Equal(t, "sekkr", row[1].ToString())

	assert.False(t, res.Next())
	assert.False(t, res.Next())
	_, err = res.Value("name")
	assert.True(t, dberr.IsLookup(err))
}

func TestLargeObjects(t *testing.T) {
	ctx := context.Background()
	conn := checkout(t)

	require.NoError(t, conn.StoreLargeObject(ctx, "abc", []byte("payload")))
	data, err := conn.RetrieveLargeObject(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, conn.RemoveLargeObject(ctx, "abc"))
	_, err = conn.RetrieveLargeObject(ctx, "abc")
	assert.True(t, dberr.IsLookup(err))
}

func TestPoolStats(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Pool().HealthCheck(context.Background()))

	stats := db.Pool().Stats()
	assert.Equal(t, 1, stats.MaxOpenConnections)
	assert.False(t, stats.LastHealthCheck.IsZero())
	assert.Zero(t, stats.FailedHealthChecks)
}

func TestErrorMiddleware(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	conn, err := db.Pool().Get(ctx)
	require.NoError(t, err)
	defer conn.Close()

	var failed []*client.QueryEvent
	db.Executor().Use(client.ErrorMiddleware(func(event *client.QueryEvent) {
		failed = append(failed, event)
	}))

	_, err = db.Executor().Exec(ctx, conn, raw(t, conn, "SELECT s.id FROM bdb_sources s", nil))
	require.NoError(t, err)
	assert.Empty(t, failed)

	_, err = db.Executor().Exec(ctx, conn, raw(t, conn, "SELECT x FROM no_such_table", nil))
	require.Error(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "SELECT x FROM no_such_table", failed[0].Statement.Text)
	assert.ErrorIs(t, failed[0].Error, err)
}
