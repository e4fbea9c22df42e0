// Package dberr defines the error taxonomy shared by the query pipeline and the database layer.
package dberr

import (
	"errors"
	"fmt"
)

// Error kinds. Each kind has a sentinel so callers can test with errors.Is.
var (
	// ErrValue is returned for malformed or unconvertible literals and invalid mapping entries.
	ErrValue = errors.New("value error")

	// ErrLookup is returned when a name, column, index, source or node cannot be found.
	ErrLookup = errors.New("lookup error")

	// ErrDuplicateEntry is returned when an entry with the same identity already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrDB is returned when statement execution or id retrieval fails.
	ErrDB = errors.New("db error")
)

// Kind classifies an Error.
type Kind int

const (
	ValueError Kind = iota + 1
	LookupError
	DuplicateEntry
	DBError
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case ValueError:
		return "value_error"
	case LookupError:
		return "lookup_error"
	case DuplicateEntry:
		return "duplicate_entry"
	case DBError:
		return "db_error"
	default:
		return "unknown_error"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case ValueError:
		return ErrValue
	case LookupError:
		return ErrLookup
	case DuplicateEntry:
		return ErrDuplicateEntry
	case DBError:
		return ErrDB
	default:
		return nil
	}
}

// Error carries a kind, the failing operation and a human readable message.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Value creates a value_error.
func Value(format string, args ...interface{}) *Error {
	return &Error{Kind: ValueError, Msg: fmt.Sprintf(format, args...)}
}

// Lookup creates a lookup_error.
func Lookup(format string, args ...interface{}) *Error {
	return &Error{Kind: LookupError, Msg: fmt.Sprintf(format, args...)}
}

// Duplicate creates a duplicate_entry error.
func Duplicate(format string, args ...interface{}) *Error {
	return &Error{Kind: DuplicateEntry, Msg: fmt.Sprintf(format, args...)}
}

// DB wraps a driver or execution failure as a db_error.
func DB(op string, err error) *Error {
	return &Error{Kind: DBError, Op: op, Err: err}
}

// WithOp returns a copy of e annotated with the failing operation.
func (e *Error) WithOp(op string) *Error {
	c := *e
	c.Op = op
	return &c
}

// IsValue checks if an error is a value_error.
func IsValue(err error) bool {
	return errors.Is(err, ErrValue)
}

// IsLookup checks if an error is a lookup_error.
func IsLookup(err error) bool {
	return errors.Is(err, ErrLookup)
}

// IsDuplicate checks if an error is a duplicate_entry error.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

// IsDB checks if an error is a db_error.
func IsDB(err error) bool {
	return errors.Is(err, ErrDB)
}
