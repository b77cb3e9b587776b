// Package models provides the value-level data model shared by the harness:
// materialized result sets over Arrow schemas and the vector extension type.
package models

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/TFMV/parity/pkg/errors"
)

// Row is one materialized row; a nil cell is a SQL NULL.
type Row []interface{}

// ResultSet is a fully materialized query result. Ordered records whether row
// order is significant for comparison: it is set only when the query itself
// specified an ordering.
type ResultSet struct {
	Schema  *arrow.Schema
	Rows    []Row
	Ordered bool
}

// NumRows returns the row count.
func (rs *ResultSet) NumRows() int {
	return len(rs.Rows)
}

// NumFields returns the field count.
func (rs *ResultSet) NumFields() int {
	if rs.Schema == nil {
		return 0
	}
	return rs.Schema.NumFields()
}

// Clone returns a copy whose row slice is independent of the receiver.
// Cell values are shared; the comparator treats them as immutable.
func (rs *ResultSet) Clone() *ResultSet {
	out := &ResultSet{Schema: rs.Schema, Ordered: rs.Ordered}
	out.Rows = make([]Row, len(rs.Rows))
	for i, r := range rs.Rows {
		row := make(Row, len(r))
		copy(row, r)
		out.Rows[i] = row
	}
	return out
}

// FromRecords materializes a sequence of Arrow records into a ResultSet.
// The records are not retained or released; the caller keeps ownership.
func FromRecords(schema *arrow.Schema, records []arrow.Record, ordered bool) (*ResultSet, error) {
	rs := &ResultSet{Schema: schema, Ordered: ordered}
	for _, rec := range records {
		if rec.NumCols() != int64(schema.NumFields()) {
			return nil, errors.Newf(errors.CodeInternal,
				"record has %d columns, schema has %d fields", rec.NumCols(), schema.NumFields())
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make(Row, rec.NumCols())
			for c := 0; c < int(rec.NumCols()); c++ {
				v, err := CellValue(rec.Column(c), i)
				if err != nil {
					return nil, errors.Wrapf(err, errors.CodeInternal,
						"materialize row %d field %s", i, schema.Field(c).Name)
				}
				row[c] = v
			}
			rs.Rows = append(rs.Rows, row)
		}
	}
	return rs, nil
}

// CellValue extracts the Go value at index i from an Arrow column.
// NULL cells come back as nil. Temporal values come back as time.Time in UTC,
// fixed-size lists of float64 as []float64, other lists as []interface{}.
func CellValue(col arrow.Array, i int) (interface{}, error) {
	if col.IsNull(i) {
		return nil, nil
	}

	switch a := col.(type) {
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Int8:
		return a.Value(i), nil
	case *array.Int16:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return a.Value(i), nil
	case *array.Uint16:
		return a.Value(i), nil
	case *array.Uint32:
		return a.Value(i), nil
	case *array.Uint64:
		return a.Value(i), nil
	case *array.Float32:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Date32:
		return a.Value(i).ToTime(), nil
	case *array.Date64:
		return a.Value(i).ToTime(), nil
	case *array.Timestamp:
		dt := a.DataType().(*arrow.TimestampType)
		return a.Value(i).ToTime(dt.Unit), nil
	case *array.FixedSizeList:
		return listValues(a.ListValues(), listStart(a, i), listEnd(a, i))
	case *array.List:
		start, end := a.ValueOffsets(i)
		return listValues(a.ListValues(), int(start), int(end))
	case array.ExtensionArray:
		return CellValue(a.Storage(), i)
	default:
		return nil, errors.Newf(errors.CodeUnsupportedType,
			"no value extraction for Arrow type %s", col.DataType())
	}
}

func listStart(a *array.FixedSizeList, i int) int {
	n := int(a.DataType().(*arrow.FixedSizeListType).Len())
	return (a.Offset() + i) * n
}

func listEnd(a *array.FixedSizeList, i int) int {
	n := int(a.DataType().(*arrow.FixedSizeListType).Len())
	return (a.Offset() + i + 1) * n
}

func listValues(values arrow.Array, start, end int) (interface{}, error) {
	// Float64 element lists are the common case (vectors); keep them typed.
	if f64, ok := values.(*array.Float64); ok {
		out := make([]float64, 0, end-start)
		for j := start; j < end; j++ {
			out = append(out, f64.Value(j))
		}
		return out, nil
	}

	out := make([]interface{}, 0, end-start)
	for j := start; j < end; j++ {
		v, err := CellValue(values, j)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SchemasEquivalent reports whether two schemas match by logical type.
// Field names must match; extension types are unwrapped to their storage so a
// decomposed file read compares equal to its extension-typed source schema.
func SchemasEquivalent(a, b *arrow.Schema) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.NumFields() != b.NumFields() {
		return false
	}
	for i := 0; i < a.NumFields(); i++ {
		fa, fb := a.Field(i), b.Field(i)
		if fa.Name != fb.Name {
			return false
		}
		if !arrow.TypeEqual(logicalType(fa.Type), logicalType(fb.Type)) {
			return false
		}
	}
	return true
}

func logicalType(dt arrow.DataType) arrow.DataType {
	if ext, ok := dt.(arrow.ExtensionType); ok {
		return ext.StorageType()
	}
	return dt
}

// FormatCell renders a cell value for diagnostics.
func FormatCell(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
