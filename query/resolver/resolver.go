// Package resolver rewrites semantic attribute names into physical column
// references, adding the joins each name needs to a shared FromClause.
package resolver

import (
	"strings"

	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

// SourcePrefix introduces a source key/value attribute, e.g. "what/source:PLC"
const SourcePrefix = "what/source:"

// SourceNameKey selects the source name instead of a key/value pair
const SourceNameKey = "_name"

// FilePrefix introduces virtual file-level attributes such as "file:uuid".
// Only names in the mapping table exist.
const FilePrefix = "file:"

// Resolver maps attribute names to columns
type Resolver struct {
	mappings *MappingTable
}

// New creates a resolver over mappings. A nil table uses DefaultMappings.
func New(mappings *MappingTable) *Resolver {
	if mappings == nil {
		mappings = DefaultMappings()
	}
	return &Resolver{mappings: mappings}
}

// Mappings returns the mapping table
func (r *Resolver) Mappings() *MappingTable {
	return r.mappings
}

// Resolve returns the column holding the attribute name, a (column alias col)
// expression, after adding any joins it needs to from. Resolving the same name
// again adds nothing.
func (r *Resolver) Resolve(name, typ string, from *FromClause) (expr.Expression, error) {
	if key, ok := strings.CutPrefix(name, SourcePrefix); ok {
		return r.resolveSource(key, from)
	}

	if m, ok := r.mappings.Lookup(name); ok {
		if m.Table == TableSources {
			if err := ensureSources(from); err != nil {
				return expr.Expression{}, err
			}
		}
		return expr.Column(m.Table, m.Column), nil
	}
	if strings.HasPrefix(name, FilePrefix) {
		return expr.Expression{}, dberr.Lookup("attribute %q has no resolvable mapping", name)
	}

	return r.resolveNode(name, typ, from)
}

func (r *Resolver) resolveSource(key string, from *FromClause) (expr.Expression, error) {
	if key == "" {
		return expr.Expression{}, dberr.Lookup("empty source key in %q", SourcePrefix)
	}
	if err := ensureSources(from); err != nil {
		return expr.Expression{}, err
	}
	if key == SourceNameKey {
		return expr.Column(TableSources, "name"), nil
	}

	alias := "src_" + Alias(key)
	if err := checkOwner(from, alias, SourcePrefix+key); err != nil {
		return expr.Expression{}, err
	}
	if !from.Contains(alias) {
		err := from.add(JoinStep{
			Alias:      alias,
			Selectable: expr.Alias(TableSourceKVs, alias),
			Condition: expr.And(
				expr.Eq(expr.Column(alias, "source_id"), expr.Column(TableSources, "id")),
				expr.Eq(expr.Column(alias, "key"), expr.Lit(expr.String(key))),
			),
			Kind: OuterJoin,
			Path: SourcePrefix + key,
		})
		if err != nil {
			return expr.Expression{}, err
		}
	}
	return expr.Column(alias, "value"), nil
}

func (r *Resolver) resolveNode(name, typ string, from *FromClause) (expr.Expression, error) {
	name = strings.TrimPrefix(name, "/")
	segments := strings.Split(name, "/")
	for _, s := range segments {
		if s == "" {
			return expr.Expression{}, dberr.Lookup("attribute %q has no resolvable mapping", name)
		}
	}
	valueColumn, err := ValueColumn(typ)
	if err != nil {
		return expr.Expression{}, err
	}

	attrName := segments[len(segments)-1]
	alias := Alias(name)
	l0, l1, values := alias+"_l0", alias+"_l1", alias+"_values"

	if err := checkOwner(from, l0, name); err != nil {
		return expr.Expression{}, err
	}
	if from.Contains(l0) {
		return expr.Column(values, valueColumn), nil
	}

	steps := []JoinStep{{
		Alias:      l0,
		Selectable: expr.Alias(TableNodes, l0),
		Condition: expr.And(
			expr.Eq(expr.Column(l0, "file_id"), expr.Column(TableFiles, "id")),
			expr.Eq(expr.Column(l0, "name"), expr.Lit(expr.String(attrName))),
		),
	}}
	if len(segments) > 1 {
		groupName := segments[len(segments)-2]
		steps = append(steps, JoinStep{
			Alias:      l1,
			Selectable: expr.Alias(TableNodes, l1),
			Condition: expr.And(
				expr.Eq(expr.Column(l1, "id"), expr.Column(l0, "parent_id")),
				expr.Eq(expr.Column(l1, "name"), expr.Lit(expr.String(groupName))),
			),
		})
	}
	steps = append(steps, JoinStep{
		Alias:      values,
		Selectable: expr.Alias(TableAttributeValues, values),
		Condition:  expr.Eq(expr.Column(values, "node_id"), expr.Column(l0, "id")),
	})

	for _, s := range steps {
		s.Kind = OuterJoin
		s.Path = name
		if err := from.add(s); err != nil {
			return expr.Expression{}, err
		}
	}
	return expr.Column(values, valueColumn), nil
}

func ensureSources(from *FromClause) error {
	if from.Contains(TableSources) {
		return nil
	}
	return from.add(JoinStep{
		Alias:      TableSources,
		Selectable: expr.Table(TableSources),
		Condition:  sourceJoinCondition(),
		Kind:       InnerJoin,
	})
}

// checkOwner fails when alias was already joined for a different path
func checkOwner(from *FromClause, alias, path string) error {
	step, ok := from.Step(alias)
	if ok && step.Path != path {
		return dberr.Value("attributes %q and %q map to the same alias %q", step.Path, path, alias)
	}
	return nil
}

// Alias derives a join alias from an attribute path: slashes are dropped and
// any other byte outside [A-Za-z0-9_] becomes an underscore.
func Alias(path string) string {
	var sb strings.Builder
	sb.Grow(len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '/':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			sb.WriteByte(c)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
