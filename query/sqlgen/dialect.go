package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

// Feature is an optional capability of a database engine
type Feature int

const (
	// Returning means INSERT ... RETURNING yields generated ids
	Returning Feature = iota + 1
	// LastInsertID means generated ids are read back from the driver result
	LastInsertID
)

// Dialect captures the per-engine differences the compiler and executor need
type Dialect interface {
	// Name returns the dialect name, e.g. "postgres"
	Name() string
	// DriverName returns the database/sql driver name
	DriverName() string
	HasFeature(f Feature) bool
	// Literal renders a scalar as SQL text
	Literal(x expr.Expression) (string, error)
	// Placeholder renders the bind placeholder for the position-th occurrence of name
	Placeholder(name string, position int) string
	// NamedBinds reports whether arguments are passed by name
	NamedBinds() bool
	// BindValue converts a scalar into a driver argument
	BindValue(x expr.Expression) (interface{}, error)
	// UnboundedLimit returns the LIMIT clause required before a bare OFFSET, or ""
	UnboundedLimit() string
	// QuoteIdentifier quotes name when it is a reserved word of the engine
	QuoteIdentifier(name string) string
}

type dialect struct {
	name            string
	driver          string
	features        []Feature
	trueLit         string
	falseLit        string
	escapeBackslash bool
	named           bool
	unbounded       string
	identQuote      string
	reserved        map[string]bool
	placeholder     func(name string, position int) string
	intervalLit     func(d time.Duration) string
	intervalBind    func(d time.Duration) interface{}
}

func (d *dialect) Name() string           { return d.name }
func (d *dialect) DriverName() string     { return d.driver }
func (d *dialect) NamedBinds() bool       { return d.named }
func (d *dialect) UnboundedLimit() string { return d.unbounded }

func (d *dialect) HasFeature(f Feature) bool {
	for _, have := range d.features {
		if have == f {
			return true
		}
	}
	return false
}

func (d *dialect) Placeholder(name string, position int) string {
	return d.placeholder(name, position)
}

func (d *dialect) QuoteIdentifier(name string) string {
	if !d.reserved[strings.ToLower(name)] {
		return name
	}
	return d.identQuote + name + d.identQuote
}

func (d *dialect) quote(s string) string {
	if d.escapeBackslash {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *dialect) Literal(x expr.Expression) (string, error) {
	switch x.Kind() {
	case expr.KindBool:
		b, _ := x.AsBool()
		if b {
			return d.trueLit, nil
		}
		return d.falseLit, nil
	case expr.KindInt64:
		i, _ := x.AsInt64()
		return strconv.FormatInt(i, 10), nil
	case expr.KindDouble:
		f, _ := x.AsDouble()
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case expr.KindString:
		s, _ := x.AsString()
		return d.quote(s), nil
	case expr.KindDate:
		v, _ := x.AsDate()
		return d.quote(v.String()), nil
	case expr.KindTime:
		v, _ := x.AsTime()
		return d.quote(v.String()), nil
	case expr.KindDateTime:
		v, _ := x.AsDateTime()
		return d.quote(v.Format(types.DateTimeLayout)), nil
	case expr.KindInterval:
		v, _ := x.AsInterval()
		return d.intervalLit(v), nil
	default:
		return "", dberr.Value("cannot render %s as a literal", x)
	}
}

func (d *dialect) BindValue(x expr.Expression) (interface{}, error) {
	switch x.Kind() {
	case expr.KindBool:
		return x.AsBool()
	case expr.KindInt64:
		return x.AsInt64()
	case expr.KindDouble:
		return x.AsDouble()
	case expr.KindString:
		return x.AsString()
	case expr.KindDate:
		v, _ := x.AsDate()
		return v.String(), nil
	case expr.KindTime:
		v, _ := x.AsTime()
		return v.String(), nil
	case expr.KindDateTime:
		v, _ := x.AsDateTime()
		return v.Format(types.DateTimeLayout), nil
	case expr.KindInterval:
		v, _ := x.AsInterval()
		return d.intervalBind(v), nil
	default:
		return nil, dberr.Value("cannot bind %s", x)
	}
}

func reservedWords(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// Postgres returns the PostgreSQL dialect
func Postgres() Dialect {
	return &dialect{
		name:       "postgres",
		driver:     "postgres",
		features:   []Feature{Returning},
		trueLit:    "TRUE",
		falseLit:   "FALSE",
		identQuote: `"`,
		reserved:   reservedWords("user", "order", "group"),
		placeholder: func(_ string, position int) string {
			return fmt.Sprintf("$%d", position)
		},
		intervalLit: func(d time.Duration) string {
			return fmt.Sprintf("INTERVAL '%d seconds'", seconds(d))
		},
		intervalBind: func(d time.Duration) interface{} {
			return fmt.Sprintf("%d seconds", seconds(d))
		},
	}
}

// MySQL returns the MySQL dialect
func MySQL() Dialect {
	return &dialect{
		name:            "mysql",
		driver:          "mysql",
		features:        []Feature{LastInsertID},
		trueLit:         "1",
		falseLit:        "0",
		escapeBackslash: true,
		unbounded:       "LIMIT 18446744073709551615",
		identQuote:      "`",
		reserved:        reservedWords("key", "order", "group"),
		placeholder: func(string, int) string {
			return "?"
		},
		intervalLit: func(d time.Duration) string {
			return fmt.Sprintf("INTERVAL %d SECOND", seconds(d))
		},
		intervalBind: func(d time.Duration) interface{} {
			return seconds(d)
		},
	}
}

// SQLite returns the SQLite dialect
func SQLite() Dialect {
	return &dialect{
		name:       "sqlite",
		driver:     "sqlite3",
		features:   []Feature{LastInsertID},
		trueLit:    "1",
		falseLit:   "0",
		named:      true,
		unbounded:  "LIMIT -1",
		identQuote: `"`,
		reserved:   reservedWords("order", "group"),
		placeholder: func(name string, _ int) string {
			return ":" + name
		},
		intervalLit: func(d time.Duration) string {
			return strconv.FormatInt(seconds(d), 10)
		},
		intervalBind: func(d time.Duration) interface{} {
			return seconds(d)
		},
	}
}

// DialectFor returns the dialect registered under name
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgresql", "postgres", "pg":
		return Postgres(), nil
	case "mysql":
		return MySQL(), nil
	case "sqlite", "sqlite3":
		return SQLite(), nil
	default:
		return nil, dberr.Lookup("unsupported dialect %q", name)
	}
}

// DialectFromURL picks the dialect from a database URL scheme
func DialectFromURL(url string) (Dialect, error) {
	if scheme, _, ok := strings.Cut(url, "://"); ok {
		return DialectFor(scheme)
	}
	if strings.HasPrefix(url, "file:") || strings.HasSuffix(url, ".db") || url == ":memory:" {
		return SQLite(), nil
	}
	return nil, dberr.Lookup("cannot determine dialect of %q", url)
}
