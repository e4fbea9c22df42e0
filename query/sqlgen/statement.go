package sqlgen

import (
	"database/sql"
	"strings"

	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

// BindMap maps placeholder names to their values
type BindMap map[string]expr.Expression

// Statement is compiled SQL ready for execution
type Statement struct {
	Text  string
	Binds BindMap
	// Order lists the bind name of every placeholder occurrence in Text
	Order []string
	// ReturnsRows is set for SELECT and INSERT ... RETURNING statements
	ReturnsRows bool
	Dialect     Dialect
}

// Args builds the driver arguments for the statement
func (s *Statement) Args() ([]interface{}, error) {
	args := make([]interface{}, 0, len(s.Order))
	seen := make(map[string]bool, len(s.Order))
	for _, name := range s.Order {
		x, ok := s.Binds[name]
		if !ok {
			return nil, dberr.Lookup("no value for bind %q", name)
		}
		v, err := s.Dialect.BindValue(x)
		if err != nil {
			return nil, err
		}
		if s.Dialect.NamedBinds() {
			if seen[name] {
				continue
			}
			seen[name] = true
			args = append(args, sql.Named(name, v))
			continue
		}
		args = append(args, v)
	}
	return args, nil
}

// Raw prepares hand-written SQL for dialect d. Placeholders are written as
// :name and rewritten to the dialect's form; every name must be in binds.
func Raw(d Dialect, text string, binds BindMap) (*Statement, error) {
	var sb strings.Builder
	stmt := &Statement{Binds: binds, Dialect: d}
	if stmt.Binds == nil {
		stmt.Binds = BindMap{}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\'':
			end := strings.IndexByte(text[i+1:], '\'')
			if end < 0 {
				return nil, dberr.Value("unterminated string literal in %q", text)
			}
			sb.WriteString(text[i : i+end+2])
			i += end + 1
		case c == ':' && i+1 < len(text) && isNameStart(text[i+1]) && (i == 0 || text[i-1] != ':'):
			j := i + 1
			for j < len(text) && isNameByte(text[j]) {
				j++
			}
			name := text[i+1 : j]
			if _, ok := stmt.Binds[name]; !ok {
				return nil, dberr.Lookup("no value for bind %q", name)
			}
			stmt.Order = append(stmt.Order, name)
			sb.WriteString(d.Placeholder(name, len(stmt.Order)))
			i = j - 1
		default:
			sb.WriteByte(c)
		}
	}

	stmt.Text = sb.String()
	upper := strings.ToUpper(strings.TrimSpace(stmt.Text))
	stmt.ReturnsRows = strings.HasPrefix(upper, "SELECT") || strings.Contains(upper, " RETURNING ")
	return stmt, nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
