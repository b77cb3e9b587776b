package duckdb

import (
	"database/sql"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/TFMV/parity/pkg/errors"
)

// schemaFromColumns maps the driver's reported column types onto an Arrow
// schema so both engines hand the comparator the same logical description.
func schemaFromColumns(cols []*sql.ColumnType) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		dt, err := arrowType(col.DatabaseTypeName())
		if err != nil {
			return nil, err
		}
		nullable, ok := col.Nullable()
		fields[i] = arrow.Field{Name: col.Name(), Type: dt, Nullable: !ok || nullable}
	}
	return arrow.NewSchema(fields, nil), nil
}

// arrowType converts a DuckDB type name to an Arrow data type. DECIMAL maps
// to float64: the simulated accelerated path has no decimal kernel and the
// comparator's tolerance absorbs the representation change.
func arrowType(name string) (arrow.DataType, error) {
	name = strings.ToUpper(strings.TrimSpace(name))

	if elem, ok := strings.CutSuffix(name, "[]"); ok {
		inner, err := arrowType(elem)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(inner), nil
	}
	if strings.HasPrefix(name, "DECIMAL") {
		return arrow.PrimitiveTypes.Float64, nil
	}

	switch name {
	case "BOOLEAN":
		return arrow.FixedWidthTypes.Boolean, nil
	case "TINYINT":
		return arrow.PrimitiveTypes.Int8, nil
	case "SMALLINT":
		return arrow.PrimitiveTypes.Int16, nil
	case "INTEGER":
		return arrow.PrimitiveTypes.Int32, nil
	case "BIGINT", "HUGEINT":
		return arrow.PrimitiveTypes.Int64, nil
	case "UTINYINT":
		return arrow.PrimitiveTypes.Uint8, nil
	case "USMALLINT":
		return arrow.PrimitiveTypes.Uint16, nil
	case "UINTEGER":
		return arrow.PrimitiveTypes.Uint32, nil
	case "UBIGINT":
		return arrow.PrimitiveTypes.Uint64, nil
	case "FLOAT", "REAL":
		return arrow.PrimitiveTypes.Float32, nil
	case "DOUBLE":
		return arrow.PrimitiveTypes.Float64, nil
	case "VARCHAR", "UUID":
		return arrow.BinaryTypes.String, nil
	case "DATE":
		return arrow.FixedWidthTypes.Date32, nil
	case "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, nil
	default:
		return nil, errors.Newf(errors.CodeUnsupportedType, "no arrow mapping for duckdb type %q", name)
	}
}

// normalizeValue converts a driver value into the comparator's canonical cell
// representation.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.UTC()
	case []interface{}:
		return normalizeList(val)
	case interface{ Float64() float64 }:
		// go-duckdb decimals.
		return val.Float64()
	case []byte:
		return string(val)
	default:
		return v
	}
}

func normalizeList(vals []interface{}) interface{} {
	floats := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, ok := v.(float64)
		if !ok {
			out := make([]interface{}, len(vals))
			for i, item := range vals {
				out[i] = normalizeValue(item)
			}
			return out
		}
		floats = append(floats, f)
	}
	return floats
}
