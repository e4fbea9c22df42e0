package client

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

// Result is a materialized, forward-only row set. Next must be called
// before the first row can be read.
type Result struct {
	columns  []string
	index    map[string]int
	rows     [][]types.Variant
	pos      int
	affected int64
}

func newResult(columns []string, rows [][]types.Variant) *Result {
	r := &Result{
		columns: columns,
		index:   make(map[string]int, len(columns)),
		rows:    rows,
		pos:     -1,
	}
	for i, c := range columns {
		if _, dup := r.index[c]; !dup {
			r.index[c] = i
		}
	}
	return r
}

// Next advances to the next row
func (r *Result) Next() bool {
	if r.pos+1 >= len(r.rows) {
		r.pos = len(r.rows)
		return false
	}
	r.pos++
	return true
}

// Size returns the number of rows
func (r *Result) Size() int {
	return len(r.rows)
}

// Columns returns the column names
func (r *Result) Columns() []string {
	return append([]string(nil), r.columns...)
}

// AffectedRows returns the number of rows changed by a statement that
// returned no rows
func (r *Result) AffectedRows() int64 {
	return r.affected
}

// ValueAt returns column i of the current row
func (r *Result) ValueAt(i int) (types.Variant, error) {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return types.Variant{}, dberr.Lookup("no current row")
	}
	row := r.rows[r.pos]
	if i < 0 || i >= len(row) {
		return types.Variant{}, dberr.Lookup("column index %d out of range", i)
	}
	return row[i], nil
}

// Value returns the column called name of the current row
func (r *Result) Value(name string) (types.Variant, error) {
	i, ok := r.index[name]
	if !ok {
		return types.Variant{}, dberr.Lookup("no column %q in result", name)
	}
	return r.ValueAt(i)
}

// Row returns a copy of the current row
func (r *Result) Row() ([]types.Variant, error) {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return nil, dberr.Lookup("no current row")
	}
	return append([]types.Variant(nil), r.rows[r.pos]...), nil
}

func materialize(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, dberr.DB("columns", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, dberr.DB("column types", err)
	}
	typeNames := make([]string, len(colTypes))
	for i, ct := range colTypes {
		typeNames[i] = strings.ToUpper(ct.DatabaseTypeName())
	}

	var out [][]types.Variant
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, dberr.DB("scan", err)
		}

		row := make([]types.Variant, len(columns))
		for i, v := range values {
			if row[i], err = toVariant(v, typeNames[i]); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.DB("rows", err)
	}
	return newResult(columns, out), nil
}

var (
	integerTypes = map[string]bool{
		"INT": true, "INTEGER": true, "BIGINT": true, "SMALLINT": true, "TINYINT": true,
		"MEDIUMINT": true, "INT2": true, "INT4": true, "INT8": true, "UNSIGNED BIGINT": true,
	}
	floatTypes = map[string]bool{
		"REAL": true, "FLOAT": true, "DOUBLE": true, "DECIMAL": true, "NUMERIC": true,
		"FLOAT4": true, "FLOAT8": true, "DOUBLE PRECISION": true,
	}
	timestampTypes = map[string]bool{
		"DATETIME": true, "TIMESTAMP": true, "TIMESTAMPTZ": true,
	}
)

func toVariant(v interface{}, dbType string) (types.Variant, error) {
	switch x := v.(type) {
	case nil:
		return types.Null(), nil
	case int64:
		return types.NewInt64(x), nil
	case int32:
		return types.NewInt64(int64(x)), nil
	case int:
		return types.NewInt64(int64(x)), nil
	case float64:
		return types.NewDouble(x), nil
	case float32:
		return types.NewDouble(float64(x)), nil
	case bool:
		return types.NewBool(x), nil
	case []byte:
		return fromText(string(x), dbType)
	case string:
		return fromText(x, dbType)
	case time.Time:
		switch {
		case dbType == "DATE":
			return types.NewDateVariant(types.DateOf(x)), nil
		case strings.HasPrefix(dbType, "TIME") && !timestampTypes[dbType]:
			return types.NewTimeVariant(types.TimeOf(x)), nil
		default:
			return types.NewDateTime(x), nil
		}
	default:
		return types.Variant{}, dberr.Value("unsupported column value of type %T", v)
	}
}

func fromText(s, dbType string) (types.Variant, error) {
	switch {
	case dbType == "DATE":
		d, err := types.ParseDate(s)
		if err != nil {
			return types.Variant{}, err
		}
		return types.NewDateVariant(d), nil
	case dbType == "TIME":
		t, err := types.ParseTime(s)
		if err != nil {
			return types.Variant{}, err
		}
		return types.NewTimeVariant(t), nil
	case timestampTypes[dbType]:
		t, err := types.ParseDateTime(s)
		if err != nil {
			return types.Variant{}, err
		}
		return types.NewDateTime(t), nil
	case integerTypes[dbType]:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return types.Variant{}, dberr.Value("invalid integer %q", s)
		}
		return types.NewInt64(i), nil
	case floatTypes[dbType]:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Variant{}, dberr.Value("invalid number %q", s)
		}
		return types.NewDouble(f), nil
	case dbType == "BOOL" || dbType == "BOOLEAN":
		b, err := strconv.ParseBool(s)
		if err != nil {
			return types.Variant{}, dberr.Value("invalid boolean %q", s)
		}
		return types.NewBool(b), nil
	default:
		return types.NewString(s), nil
	}
}
