package client

import (
	"context"
	"time"

	"github.com/baltrad/bdb-go/query/builder"
	"github.com/baltrad/bdb-go/query/cache"
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/resolver"
	"github.com/baltrad/bdb-go/query/sqlgen"
)

// DefaultCacheSize is the number of compiled statements an Executor keeps
const DefaultCacheSize = 256

// Executor compiles expressions for one dialect and runs them on connections
type Executor struct {
	compiler    *sqlgen.Compiler
	cache       *cache.LRUCache
	resolver    *resolver.Resolver
	middlewares []Middleware
}

// NewExecutor creates an executor for dialect d. A nil resolver uses the
// default attribute mappings.
func NewExecutor(d sqlgen.Dialect, r *resolver.Resolver, cacheSize int) *Executor {
	if r == nil {
		r = resolver.New(nil)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Executor{
		compiler:    sqlgen.NewCompiler(d),
		cache:       cache.NewLRUCache(cacheSize, time.Hour),
		resolver:    r,
		middlewares: []Middleware{LoggingMiddleware()},
	}
}

// Use appends a middleware to the execution chain
func (e *Executor) Use(m Middleware) {
	e.middlewares = append(e.middlewares, m)
}

// Resolver returns the resolver used to transform queries
func (e *Executor) Resolver() *resolver.Resolver {
	return e.resolver
}

// CacheStats returns statistics of the compiled-statement cache
func (e *Executor) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// Compile compiles x, reusing a cached statement when x was compiled before
func (e *Executor) Compile(x expr.Expression) (*sqlgen.Statement, error) {
	return e.cache.GetOrCompile(e.compiler, x)
}

// Run compiles x and executes it on conn
func (e *Executor) Run(ctx context.Context, conn *Connection, x expr.Expression) (*Result, error) {
	stmt, err := e.Compile(x)
	if err != nil {
		return nil, err
	}
	return e.Exec(ctx, conn, stmt)
}

// Exec executes an already compiled statement through the middleware chain
func (e *Executor) Exec(ctx context.Context, conn *Connection, stmt *sqlgen.Statement) (*Result, error) {
	var res *Result
	event := &QueryEvent{Statement: stmt}
	err := runChain(ctx, e.middlewares, event, func() error {
		var err error
		res, err = conn.Execute(ctx, stmt)
		if res != nil {
			event.Rows = res.Size()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// FileQuery transforms and runs q. The result has one column, the file id.
func (e *Executor) FileQuery(ctx context.Context, conn *Connection, q *builder.FileQuery) (*Result, error) {
	x, err := q.Transform(e.resolver)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, conn, x)
}

// AttributeQuery transforms and runs q. Columns are named after the fetch labels.
func (e *Executor) AttributeQuery(ctx context.Context, conn *Connection, q *builder.AttributeQuery) (*Result, error) {
	x, err := q.Transform(e.resolver)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, conn, x)
}
