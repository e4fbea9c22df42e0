package client

import (
	"context"
	"time"

	"github.com/baltrad/bdb-go/internal/debug"
	"github.com/baltrad/bdb-go/query/sqlgen"
)

// QueryEvent describes one statement execution
type QueryEvent struct {
	Statement *sqlgen.Statement
	Rows      int
	Duration  time.Duration
	Error     error
	Start     time.Time
	End       time.Time
}

// Middleware intercepts statement execution. It must call next exactly once.
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

func runChain(ctx context.Context, middlewares []Middleware, event *QueryEvent, exec func() error) error {
	event.Start = time.Now()
	index := 0

	var next func() error
	next = func() error {
		if index >= len(middlewares) {
			err := exec()
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			return err
		}
		m := middlewares[index]
		index++
		return m(ctx, event, next)
	}
	return next()
}

// LoggingMiddleware logs every statement at debug level
func LoggingMiddleware() Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		debug.Debug("executing statement", "sql", event.Statement.Text, "binds", len(event.Statement.Order))
		err := next()
		if err != nil {
			debug.Debug("statement failed", "sql", event.Statement.Text, "error", err)
		} else {
			debug.Debug("statement completed", "rows", event.Rows, "duration", event.Duration)
		}
		return err
	}
}

// TimingMiddleware reports statements that ran longer than threshold
func TimingMiddleware(threshold time.Duration, onSlow func(event *QueryEvent)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onSlow != nil && event.Duration >= threshold {
			onSlow(event)
		}
		return err
	}
}

// ErrorMiddleware reports failed statements
func ErrorMiddleware(onError func(event *QueryEvent)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil && onError != nil {
			onError(event)
		}
		return err
	}
}
