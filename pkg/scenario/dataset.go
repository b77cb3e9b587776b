package scenario

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/parity/pkg/errors"
	"github.com/TFMV/parity/pkg/models"
)

// Dataset holds inline literal rows for a typed schema. It is the input side
// of write scenarios and the expected side of read scenarios.
type Dataset struct {
	schema *arrow.Schema
	rows   []models.Row
}

// NewDataset creates an empty dataset over the schema.
func NewDataset(schema *arrow.Schema) *Dataset {
	return &Dataset{schema: schema}
}

// Schema returns the dataset schema.
func (d *Dataset) Schema() *arrow.Schema { return d.schema }

// Append adds one row. A nil value is a SQL NULL.
func (d *Dataset) Append(values ...interface{}) *Dataset {
	d.rows = append(d.rows, values)
	return d
}

// ResultSet returns the rows as a materialized result set.
func (d *Dataset) ResultSet(ordered bool) *models.ResultSet {
	rs := &models.ResultSet{Schema: d.schema, Ordered: ordered}
	for _, r := range d.rows {
		row := make(models.Row, len(r))
		copy(row, r)
		rs.Rows = append(rs.Rows, row)
	}
	return rs
}

// Record builds an Arrow record from the rows. The caller owns the record.
func (d *Dataset) Record(alloc memory.Allocator) (arrow.Record, error) {
	if alloc == nil {
		alloc = memory.NewGoAllocator()
	}
	b := array.NewRecordBuilder(alloc, d.schema)
	defer b.Release()

	for ri, row := range d.rows {
		if len(row) != d.schema.NumFields() {
			return nil, errors.Newf(errors.CodeInvalidScenario,
				"row %d has %d values, schema has %d fields", ri, len(row), d.schema.NumFields())
		}
		for fi, v := range row {
			if err := appendValue(b.Field(fi), d.schema.Field(fi), v); err != nil {
				return nil, errors.Wrapf(err, errors.CodeInvalidScenario,
					"row %d field %s", ri, d.schema.Field(fi).Name)
			}
		}
	}
	return b.NewRecord(), nil
}

func appendValue(builder array.Builder, field arrow.Field, v interface{}) error {
	if v == nil {
		builder.AppendNull()
		return nil
	}

	// Extension-typed fields build through their storage builder.
	if eb, ok := builder.(*array.ExtensionBuilder); ok {
		return appendValue(eb.StorageBuilder(), field, v)
	}

	switch bb := builder.(type) {
	case *array.BooleanBuilder:
		val, ok := v.(bool)
		if !ok {
			return typeError(field, v)
		}
		bb.Append(val)
	case *array.Int32Builder:
		switch val := v.(type) {
		case int32:
			bb.Append(val)
		case int:
			bb.Append(int32(val))
		default:
			return typeError(field, v)
		}
	case *array.Int64Builder:
		switch val := v.(type) {
		case int64:
			bb.Append(val)
		case int:
			bb.Append(int64(val))
		default:
			return typeError(field, v)
		}
	case *array.Float32Builder:
		switch val := v.(type) {
		case float32:
			bb.Append(val)
		case float64:
			bb.Append(float32(val))
		default:
			return typeError(field, v)
		}
	case *array.Float64Builder:
		val, ok := v.(float64)
		if !ok {
			return typeError(field, v)
		}
		bb.Append(val)
	case *array.StringBuilder:
		val, ok := v.(string)
		if !ok {
			return typeError(field, v)
		}
		bb.Append(val)
	case *array.Date32Builder:
		val, ok := v.(time.Time)
		if !ok {
			return typeError(field, v)
		}
		bb.Append(arrow.Date32FromTime(val))
	case *array.TimestampBuilder:
		val, ok := v.(time.Time)
		if !ok {
			return typeError(field, v)
		}
		unit := arrow.Microsecond
		if tt, ok := field.Type.(*arrow.TimestampType); ok {
			unit = tt.Unit
		}
		ts, err := arrow.TimestampFromTime(val, unit)
		if err != nil {
			return err
		}
		bb.Append(ts)
	case *array.FixedSizeListBuilder:
		val, ok := v.([]float64)
		if !ok {
			return typeError(field, v)
		}
		vb, ok := bb.ValueBuilder().(*array.Float64Builder)
		if !ok {
			return typeError(field, v)
		}
		bb.Append(true)
		vb.AppendValues(val, nil)
	default:
		return errors.Newf(errors.CodeUnsupportedType,
			"no builder support for field %s of type %s", field.Name, field.Type)
	}
	return nil
}

func typeError(field arrow.Field, v interface{}) error {
	return errors.Newf(errors.CodeInvalidScenario,
		"value %v does not fit field %s of type %s", v, field.Name, field.Type)
}
