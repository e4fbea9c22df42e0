package client

import (
	"context"
	"fmt"

	"github.com/baltrad/bdb-go/internal/debug"
)

// TxGuard ends a transaction on every path out of a scope:
//
//	g, err := client.Guard(ctx, conn)
//	if err != nil {
//		return err
//	}
//	defer g.Release()
//	...
//	return g.Commit()
//
// Release rolls back unless Commit was called. A guard taken while a
// transaction is already open joins it and leaves ending it to the owner.
type TxGuard struct {
	conn   *Connection
	owner  bool
	closed bool
}

// Guard opens a transaction on conn, or joins the one already open
func Guard(ctx context.Context, conn *Connection) (*TxGuard, error) {
	if conn.InTransaction() {
		return &TxGuard{conn: conn}, nil
	}
	if err := conn.Begin(ctx); err != nil {
		return nil, err
	}
	return &TxGuard{conn: conn, owner: true}, nil
}

// Commit commits the guarded transaction
func (g *TxGuard) Commit() error {
	if g.closed {
		return nil
	}
	g.closed = true
	if !g.owner {
		return nil
	}
	return g.conn.Commit()
}

// Release rolls back the transaction if it was not committed
func (g *TxGuard) Release() {
	if g.closed {
		return
	}
	g.closed = true
	if !g.owner || !g.conn.InTransaction() {
		return
	}
	if err := g.conn.Rollback(); err != nil {
		debug.Warn("rollback failed", "error", err)
	}
}

// Transaction runs fn inside a transaction on c. The transaction is rolled
// back if fn returns an error or panics, and committed otherwise.
func (c *Connection) Transaction(ctx context.Context, fn func(conn *Connection) error) error {
	g, err := Guard(ctx, c)
	if err != nil {
		return err
	}
	defer g.Release()

	if err := fn(c); err != nil {
		return err
	}
	if err := g.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
