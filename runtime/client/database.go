package client

import (
	"context"
	"time"

	"github.com/baltrad/bdb-go/internal/storage"
	"github.com/baltrad/bdb-go/query/builder"
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/resolver"
	"github.com/baltrad/bdb-go/query/sqlgen"
)

// Options configures a Database
type Options struct {
	// Pool is used as is unless it is the zero value
	Pool PoolConfig
	// Storage keeps file content; nil keeps it in memory
	Storage storage.Storage
	// Mappings overrides the default attribute mappings
	Mappings *resolver.MappingTable
	// CacheSize bounds the compiled-statement cache
	CacheSize int
}

// Database is the archive: files, their attribute trees and sources
type Database struct {
	pool *Pool
	exec *Executor
	now  func() time.Time
}

// Open connects to the database at databaseURL
func Open(databaseURL string, opts Options) (*Database, error) {
	if opts.Pool == (PoolConfig{}) {
		opts.Pool = DefaultPoolConfig()
	}
	pool, err := OpenPool(databaseURL, opts.Pool, opts.Storage)
	if err != nil {
		return nil, err
	}
	return New(pool, opts), nil
}

// New creates a Database over an open pool
func New(pool *Pool, opts Options) *Database {
	var r *resolver.Resolver
	if opts.Mappings != nil {
		r = resolver.New(opts.Mappings)
	}
	return &Database{
		pool: pool,
		exec: NewExecutor(pool.Dialect(), r, opts.CacheSize),
		now:  time.Now,
	}
}

// Pool returns the connection pool
func (db *Database) Pool() *Pool {
	return db.pool
}

// Executor returns the statement executor
func (db *Database) Executor() *Executor {
	return db.exec
}

// Close closes the pool
func (db *Database) Close() error {
	return db.pool.Close()
}

// ExecuteFileQuery runs q and returns the matching files in result order
func (db *Database) ExecuteFileQuery(ctx context.Context, q *builder.FileQuery) ([]*FileEntry, error) {
	var entries []*FileEntry
	err := db.withConn(ctx, func(conn *Connection) error {
		res, err := db.exec.FileQuery(ctx, conn, q)
		if err != nil {
			return err
		}

		ids := make([]int64, 0, res.Size())
		for res.Next() {
			v, err := res.ValueAt(0)
			if err != nil {
				return err
			}
			id, err := v.ToInt64()
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		for _, id := range ids {
			e, err := db.fileByID(ctx, conn, id)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

// ExecuteAttributeQuery runs q. Result columns are named after the fetch labels.
func (db *Database) ExecuteAttributeQuery(ctx context.Context, q *builder.AttributeQuery) (*Result, error) {
	var res *Result
	err := db.withConn(ctx, func(conn *Connection) error {
		var err error
		res, err = db.exec.AttributeQuery(ctx, conn, q)
		return err
	})
	return res, err
}

func (db *Database) withConn(ctx context.Context, fn func(conn *Connection) error) error {
	conn, err := db.pool.Get(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

func (db *Database) raw(ctx context.Context, conn *Connection, text string, binds sqlgen.BindMap) (*Result, error) {
	stmt, err := sqlgen.Raw(conn.Dialect(), text, binds)
	if err != nil {
		return nil, err
	}
	return db.exec.Exec(ctx, conn, stmt)
}

type column struct {
	name  string
	value expr.Expression
}

// insert adds one row to table and returns the generated id when wantID is set
func (db *Database) insert(ctx context.Context, conn *Connection, table string, wantID bool, cols ...column) (int64, error) {
	names := make([]expr.Expression, len(cols))
	values := make([]expr.Expression, len(cols))
	for i, c := range cols {
		names[i] = expr.String(c.name)
		values[i] = c.value
	}

	args := []expr.Expression{
		expr.Table(table),
		expr.Call(expr.SymInsertColumns, names...),
		expr.Call(expr.SymInsertValues, values...),
	}
	if wantID && conn.Dialect().HasFeature(sqlgen.Returning) {
		args = append(args, expr.Call(expr.SymReturning, expr.String("id")))
	}

	if _, err := db.exec.Run(ctx, conn, expr.Call(expr.SymInsert, args...)); err != nil {
		return 0, err
	}
	if !wantID {
		return 0, nil
	}
	return conn.LastInsertID()
}
