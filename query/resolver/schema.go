package resolver

import (
	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

// Physical tables. The names are identical in every dialect.
const (
	TableMeta            = "bdb_meta"
	TableSources         = "bdb_sources"
	TableSourceKVs       = "bdb_source_kvs"
	TableFiles           = "bdb_files"
	TableNodes           = "bdb_nodes"
	TableAttributeValues = "bdb_attribute_values"
	TableFileContent     = "bdb_file_content"
)

// Node types stored in bdb_nodes.type
const (
	NodeTypeGroup     int64 = 1
	NodeTypeAttribute int64 = 2
	NodeTypeDataSet   int64 = 3
)

// Value columns of bdb_attribute_values
const (
	ValueInt    = "value_int"
	ValueStr    = "value_str"
	ValueDouble = "value_double"
	ValueBool   = "value_bool"
	ValueDate   = "value_date"
	ValueTime   = "value_time"
)

var valueColumns = map[string]string{
	expr.TypeInt64:  ValueInt,
	expr.TypeDouble: ValueDouble,
	expr.TypeString: ValueStr,
	expr.TypeBool:   ValueBool,
	expr.TypeDate:   ValueDate,
	expr.TypeTime:   ValueTime,

	// datetimes are stored in their textual form
	expr.TypeDateTime: ValueStr,
}

// ValueColumn returns the bdb_attribute_values column holding values of typ
func ValueColumn(typ string) (string, error) {
	col, ok := valueColumns[typ]
	if !ok {
		return "", dberr.Value("unsupported attribute type %q", typ)
	}
	return col, nil
}

// BaseFrom returns the FROM clause every query starts with: files joined to sources
func BaseFrom() *FromClause {
	from := NewFromClause(TableFiles)
	// the root never clashes, so this join cannot fail
	_ = from.add(JoinStep{
		Alias:      TableSources,
		Selectable: expr.Table(TableSources),
		Condition:  sourceJoinCondition(),
		Kind:       InnerJoin,
	})
	return from
}

func sourceJoinCondition() expr.Expression {
	return expr.Eq(expr.Column(TableFiles, "source_id"), expr.Column(TableSources, "id"))
}
