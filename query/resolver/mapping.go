package resolver

import (
	"sort"

	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

// Mapping associates an attribute name with a physical column
type Mapping struct {
	Name        string
	Type        string
	Table       string
	Column      string
	Specialized bool
}

// MappingTable is the catalog of attributes with dedicated columns.
// It is filled once at startup and only read afterwards.
type MappingTable struct {
	byName map[string]Mapping
}

// NewMappingTable creates a table holding ms
func NewMappingTable(ms ...Mapping) (*MappingTable, error) {
	t := &MappingTable{byName: make(map[string]Mapping, len(ms))}
	for _, m := range ms {
		if err := t.Add(m); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// DefaultMappings returns the file-level attributes stored on bdb_files
func DefaultMappings() *MappingTable {
	t, err := NewMappingTable(
		Mapping{Name: "file:id", Type: expr.TypeInt64, Table: TableFiles, Column: "id", Specialized: true},
		Mapping{Name: "file:uuid", Type: expr.TypeString, Table: TableFiles, Column: "uuid", Specialized: true},
		Mapping{Name: "file:hash", Type: expr.TypeString, Table: TableFiles, Column: "hash", Specialized: true},
		Mapping{Name: "file:stored_at", Type: expr.TypeDateTime, Table: TableFiles, Column: "stored_at", Specialized: true},
		Mapping{Name: "file:size", Type: expr.TypeInt64, Table: TableFiles, Column: "size", Specialized: true},
		Mapping{Name: "what/object", Type: expr.TypeString, Table: TableFiles, Column: "what_object", Specialized: true},
		Mapping{Name: "what/date", Type: expr.TypeDate, Table: TableFiles, Column: "what_date", Specialized: true},
		Mapping{Name: "what/time", Type: expr.TypeTime, Table: TableFiles, Column: "what_time", Specialized: true},
		Mapping{Name: "what/source", Type: expr.TypeString, Table: TableFiles, Column: "what_source", Specialized: true},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Add registers m. Registering a name twice is a duplicate_entry.
func (t *MappingTable) Add(m Mapping) error {
	if m.Name == "" || m.Table == "" || m.Column == "" {
		return dberr.Value("invalid attribute mapping %+v", m)
	}
	if _, exists := t.byName[m.Name]; exists {
		return dberr.Duplicate("attribute mapping %q already registered", m.Name)
	}
	t.byName[m.Name] = m
	return nil
}

// Lookup returns the mapping registered for name
func (t *MappingTable) Lookup(name string) (Mapping, bool) {
	m, ok := t.byName[name]
	return m, ok
}

// All returns every mapping sorted by name
func (t *MappingTable) All() []Mapping {
	ms := make([]Mapping, 0, len(t.byName))
	for _, m := range t.byName {
		ms = append(ms, m)
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })
	return ms
}

// Specialized returns the mappings with dedicated columns, sorted by name
func (t *MappingTable) Specialized() []Mapping {
	var ms []Mapping
	for _, m := range t.All() {
		if m.Specialized {
			ms = append(ms, m)
		}
	}
	return ms
}
