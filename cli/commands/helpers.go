package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/baltrad/bdb-go/cli/internal/config"
	"github.com/baltrad/bdb-go/oh5"
	"github.com/baltrad/bdb-go/query/builder"
	"github.com/baltrad/bdb-go/query/parse"
	"github.com/baltrad/bdb-go/runtime/client"
	"github.com/baltrad/bdb-go/runtime/types"
)

// ensureSQLiteDir creates the directory of a sqlite:// database file
func ensureSQLiteDir(url string) error {
	path := strings.TrimPrefix(url, "sqlite://")
	if path == url || path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	return config.AppFs.MkdirAll(filepath.Dir(path), 0755)
}

// readDump loads a YAML metadata dump and returns its tree and content
func readDump(path string) (*oh5.Metadata, []byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	meta, err := oh5.ReadYAML(content)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return meta, content, nil
}

// queryOptions are the flags shared by query-file and query-attr
type queryOptions struct {
	filter string
	order  []string
	limit  int64
	offset int64
}

func (o *queryOptions) orderTerms(p *parse.Parser, add func(t builder.OrderTerm)) error {
	for _, s := range o.order {
		x, dir, err := p.Order(s)
		if err != nil {
			return err
		}
		add(builder.OrderTerm{Expr: x, Direction: dir})
	}
	return nil
}

func fileQuery(p *parse.Parser, o *queryOptions) (*builder.FileQuery, error) {
	q := builder.NewFileQuery()
	if o.filter != "" {
		x, err := p.Filter(o.filter)
		if err != nil {
			return nil, err
		}
		q.Filter(x)
	}
	if err := o.orderTerms(p, func(t builder.OrderTerm) { q.OrderBy(t.Expr, t.Direction) }); err != nil {
		return nil, err
	}
	if o.limit > 0 {
		q.Limit(o.limit)
	}
	if o.offset > 0 {
		q.Offset(o.offset)
	}
	return q, nil
}

func entryRow(e *client.FileEntry) []string {
	return []string{
		e.UUID,
		e.Object,
		e.Date.String(),
		e.Time.String(),
		e.Source,
		e.StoredAt.Format(types.DateTimeLayout),
	}
}

var entryHeaders = []string{"UUID", "OBJECT", "DATE", "TIME", "SOURCE", "STORED AT"}

// parseKeyValues splits KEY=VALUE arguments
func parseKeyValues(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", arg)
		}
		values[k] = v
	}
	return values, nil
}
