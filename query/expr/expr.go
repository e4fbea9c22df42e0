// Package expr defines the symbolic expression used to describe queries.
//
// An Expression is a tagged value: a list of expressions or one scalar. A list
// whose first element is a Symbol is an operator or function invocation, the
// remaining elements are its operands. Expressions are values; list operations
// never modify storage shared with a copy.
package expr

import (
	"time"

	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

// Kind is the discriminant of an Expression
type Kind int

const (
	KindList Kind = iota
	KindBool
	KindInt64
	KindDouble
	KindString
	KindDate
	KindTime
	KindDateTime
	KindInterval
	KindSymbol
)

var kindNames = [...]string{"list", "bool", "int64", "double", "string", "date", "time", "datetime", "interval", "symbol"}

// String returns the kind name
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Arithmetic reports whether values of this kind compare numerically with each other
func (k Kind) Arithmetic() bool {
	return k == KindInt64 || k == KindDouble || k == KindBool
}

// Expression is a list or a scalar value
type Expression struct {
	kind Kind
	list []Expression
	b    bool
	i    int64
	f    float64
	s    string
	d    types.Date
	t    types.Time
	dt   time.Time
	iv   time.Duration
}

// List creates a list expression
func List(items ...Expression) Expression {
	l := make([]Expression, len(items))
	copy(l, items)
	return Expression{kind: KindList, list: l}
}

// Bool creates a bool expression
func Bool(b bool) Expression { return Expression{kind: KindBool, b: b} }

// Int64 creates an int64 expression
func Int64(i int64) Expression { return Expression{kind: KindInt64, i: i} }

// Double creates a double expression
func Double(f float64) Expression { return Expression{kind: KindDouble, f: f} }

// String creates a string expression
func String(s string) Expression { return Expression{kind: KindString, s: s} }

// Date creates a date expression
func Date(d types.Date) Expression { return Expression{kind: KindDate, d: d} }

// Time creates a time expression
func Time(t types.Time) Expression { return Expression{kind: KindTime, t: t} }

// DateTime creates a datetime expression, normalized to UTC
func DateTime(t time.Time) Expression { return Expression{kind: KindDateTime, dt: t.UTC()} }

// Interval creates an interval expression
func Interval(d time.Duration) Expression { return Expression{kind: KindInterval, iv: d} }

// Symbol creates a symbol expression
func Symbol(name string) Expression { return Expression{kind: KindSymbol, s: name} }

// Kind returns the discriminant
func (e Expression) Kind() Kind { return e.kind }

// IsList reports whether e is a list
func (e Expression) IsList() bool { return e.kind == KindList }

func (e Expression) mismatch(want Kind) error {
	return dberr.Value("expression is %s, not %s", e.kind, want)
}

// AsBool returns the value of a bool expression
func (e Expression) AsBool() (bool, error) {
	if e.kind != KindBool {
		return false, e.mismatch(KindBool)
	}
	return e.b, nil
}

// AsInt64 returns the value of an int64 expression
func (e Expression) AsInt64() (int64, error) {
	if e.kind != KindInt64 {
		return 0, e.mismatch(KindInt64)
	}
	return e.i, nil
}

// AsDouble returns the value of a double expression
func (e Expression) AsDouble() (float64, error) {
	if e.kind != KindDouble {
		return 0, e.mismatch(KindDouble)
	}
	return e.f, nil
}

// AsString returns the value of a string expression
func (e Expression) AsString() (string, error) {
	if e.kind != KindString {
		return "", e.mismatch(KindString)
	}
	return e.s, nil
}

// AsDate returns the value of a date expression
func (e Expression) AsDate() (types.Date, error) {
	if e.kind != KindDate {
		return types.Date{}, e.mismatch(KindDate)
	}
	return e.d, nil
}

// AsTime returns the value of a time expression
func (e Expression) AsTime() (types.Time, error) {
	if e.kind != KindTime {
		return types.Time{}, e.mismatch(KindTime)
	}
	return e.t, nil
}

// AsDateTime returns the value of a datetime expression
func (e Expression) AsDateTime() (time.Time, error) {
	if e.kind != KindDateTime {
		return time.Time{}, e.mismatch(KindDateTime)
	}
	return e.dt, nil
}

// AsInterval returns the value of an interval expression
func (e Expression) AsInterval() (time.Duration, error) {
	if e.kind != KindInterval {
		return 0, e.mismatch(KindInterval)
	}
	return e.iv, nil
}

// AsSymbol returns the name of a symbol expression
func (e Expression) AsSymbol() (string, error) {
	if e.kind != KindSymbol {
		return "", e.mismatch(KindSymbol)
	}
	return e.s, nil
}

// Items returns a copy of the elements of a list expression
func (e Expression) Items() ([]Expression, error) {
	if e.kind != KindList {
		return nil, e.mismatch(KindList)
	}
	l := make([]Expression, len(e.list))
	copy(l, e.list)
	return l, nil
}

// Size returns the number of elements of a list expression
func (e Expression) Size() (int, error) {
	if e.kind != KindList {
		return 0, e.mismatch(KindList)
	}
	return len(e.list), nil
}

// Empty reports whether a list expression has no elements
func (e Expression) Empty() (bool, error) {
	n, err := e.Size()
	return n == 0, err
}

// Front returns the first element of a list expression
func (e Expression) Front() (Expression, error) {
	if e.kind != KindList {
		return Expression{}, e.mismatch(KindList)
	}
	if len(e.list) == 0 {
		return Expression{}, dberr.Lookup("front of empty list")
	}
	return e.list[0], nil
}

// PushBack appends x to a list expression
func (e *Expression) PushBack(x Expression) error {
	if e.kind != KindList {
		return e.mismatch(KindList)
	}
	e.list = append(e.list[:len(e.list):len(e.list)], x)
	return nil
}

// PopFront removes and returns the first element of a list expression
func (e *Expression) PopFront() (Expression, error) {
	front, err := e.Front()
	if err != nil {
		return Expression{}, err
	}
	e.list = e.list[1:]
	return front, nil
}

// Head returns the operator symbol of an invocation.
// The second result is false when e is not a list starting with a symbol.
func (e Expression) Head() (string, bool) {
	if e.kind != KindList || len(e.list) == 0 || e.list[0].kind != KindSymbol {
		return "", false
	}
	return e.list[0].s, true
}

// Args returns the operands of an invocation, or all elements of a plain list
func (e Expression) Args() []Expression {
	if e.kind != KindList {
		return nil
	}
	if _, ok := e.Head(); ok {
		return e.list[1:len(e.list):len(e.list)]
	}
	return e.list[:len(e.list):len(e.list)]
}

// Is reports whether e is an invocation of the named operator
func (e Expression) Is(symbol string) bool {
	head, ok := e.Head()
	return ok && head == symbol
}
