package client

import (
	"context"
	"database/sql"
	"strings"

	"github.com/baltrad/bdb-go/internal/storage"
	"github.com/baltrad/bdb-go/query/sqlgen"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

// Connection is a dedicated database session. It is not safe for concurrent use.
type Connection struct {
	conn    *sql.Conn
	dialect sqlgen.Dialect
	storage storage.Storage
	tx      *sql.Tx

	lastID int64
	hasID  bool
}

func newConnection(conn *sql.Conn, d sqlgen.Dialect, store storage.Storage) *Connection {
	return &Connection{conn: conn, dialect: d, storage: store}
}

// Dialect returns the dialect statements must be compiled for
func (c *Connection) Dialect() sqlgen.Dialect {
	return c.dialect
}

// InTransaction reports whether a transaction is open
func (c *Connection) InTransaction() bool {
	return c.tx != nil
}

// Begin opens a transaction
func (c *Connection) Begin(ctx context.Context) error {
	return c.BeginTx(ctx, nil)
}

// BeginTx opens a transaction with options
func (c *Connection) BeginTx(ctx context.Context, opts *sql.TxOptions) error {
	if c.tx != nil {
		return dberr.Value("transaction already in progress")
	}
	tx, err := c.conn.BeginTx(ctx, opts)
	if err != nil {
		return dberr.DB("begin", err)
	}
	c.tx = tx
	return nil
}

// Commit commits the open transaction
func (c *Connection) Commit() error {
	if c.tx == nil {
		return dberr.Value("no transaction in progress")
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return dberr.DB("commit", err)
	}
	return nil
}

// Rollback aborts the open transaction
func (c *Connection) Rollback() error {
	if c.tx == nil {
		return dberr.Value("no transaction in progress")
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil {
		return dberr.DB("rollback", err)
	}
	return nil
}

// Execute runs stmt. Outside a transaction the statement runs in its own
// transaction, committed on success and rolled back on failure.
func (c *Connection) Execute(ctx context.Context, stmt *sqlgen.Statement) (*Result, error) {
	if c.tx != nil {
		return c.execute(ctx, stmt)
	}

	g, err := Guard(ctx, c)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	res, err := c.execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if err := g.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Connection) execute(ctx context.Context, stmt *sqlgen.Statement) (*Result, error) {
	args, err := stmt.Args()
	if err != nil {
		return nil, err
	}

	insert := isInsert(stmt.Text)
	if insert {
		c.hasID = false
	}

	if stmt.ReturnsRows {
		rows, err := c.tx.QueryContext(ctx, stmt.Text, args...)
		if err != nil {
			return nil, dberr.DB("query", err)
		}
		defer rows.Close()

		res, err := materialize(rows)
		if err != nil {
			return nil, err
		}
		if insert && res.Size() > 0 {
			id, err := res.rows[0][0].ToInt64()
			if err != nil {
				return nil, dberr.DB("returning", err)
			}
			c.lastID, c.hasID = id, true
		}
		return res, nil
	}

	r, err := c.tx.ExecContext(ctx, stmt.Text, args...)
	if err != nil {
		return nil, dberr.DB("execute", err)
	}
	res := newResult(nil, nil)
	if n, err := r.RowsAffected(); err == nil {
		res.affected = n
	}
	if insert && c.dialect.HasFeature(sqlgen.LastInsertID) {
		if id, err := r.LastInsertId(); err == nil {
			c.lastID, c.hasID = id, true
		}
	}
	return res, nil
}

// LastInsertID returns the id generated by the last INSERT
func (c *Connection) LastInsertID() (int64, error) {
	if !c.hasID {
		return 0, dberr.DB("last insert id", sql.ErrNoRows)
	}
	return c.lastID, nil
}

// StoreLargeObject saves data under key in the large-object store
func (c *Connection) StoreLargeObject(ctx context.Context, key string, data []byte) error {
	return c.storage.Store(ctx, key, data)
}

// RetrieveLargeObject reads the large object stored under key
func (c *Connection) RetrieveLargeObject(ctx context.Context, key string) ([]byte, error) {
	return c.storage.Retrieve(ctx, key)
}

// RemoveLargeObject deletes the large object stored under key
func (c *Connection) RemoveLargeObject(ctx context.Context, key string) error {
	return c.storage.Delete(ctx, key)
}

// Close rolls back any open transaction and returns the session to the pool
func (c *Connection) Close() error {
	if c.tx != nil {
		_ = c.Rollback()
	}
	if err := c.conn.Close(); err != nil {
		return dberr.DB("close", err)
	}
	return nil
}

func isInsert(text string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(text)), "INSERT")
}
