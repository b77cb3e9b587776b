package models

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestRecord(t *testing.T) (*arrow.Schema, arrow.Record) {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int32},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "ts", Type: &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}},
	}, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	b.Field(0).(*array.Int32Builder).AppendValues([]int32{1, 2}, nil)
	b.Field(1).(*array.Float64Builder).Append(3.5)
	b.Field(1).(*array.Float64Builder).AppendNull()
	b.Field(2).(*array.StringBuilder).AppendValues([]string{"alpha", "beta"}, nil)
	b.Field(3).(*array.TimestampBuilder).AppendValues([]arrow.Timestamp{
		arrow.Timestamp(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).UnixMicro()),
		arrow.Timestamp(time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC).UnixMicro()),
	}, nil)

	return schema, b.NewRecord()
}

func TestFromRecords(t *testing.T) {
	schema, rec := buildTestRecord(t)
	defer rec.Release()

	rs, err := FromRecords(schema, []arrow.Record{rec}, false)
	require.NoError(t, err)

	require.Equal(t, 2, rs.NumRows())
	require.Equal(t, 4, rs.NumFields())
	assert.False(t, rs.Ordered)

	assert.Equal(t, int32(1), rs.Rows[0][0])
	assert.Equal(t, 3.5, rs.Rows[0][1])
	assert.Equal(t, "alpha", rs.Rows[0][2])
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), rs.Rows[0][3])

	assert.Equal(t, int32(2), rs.Rows[1][0])
	assert.Nil(t, rs.Rows[1][1], "null float must materialize as nil")
	assert.Equal(t, "beta", rs.Rows[1][2])
}

func TestFromRecords_FixedSizeList(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "vec", Type: arrow.FixedSizeListOf(3, arrow.PrimitiveTypes.Float64)},
	}, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	fb := b.Field(0).(*array.FixedSizeListBuilder)
	vb := fb.ValueBuilder().(*array.Float64Builder)
	fb.Append(true)
	vb.AppendValues([]float64{0.25, 2.25, 4.25}, nil)

	rec := b.NewRecord()
	defer rec.Release()

	rs, err := FromRecords(schema, []arrow.Record{rec}, true)
	require.NoError(t, err)
	require.Equal(t, 1, rs.NumRows())
	assert.True(t, rs.Ordered)
	assert.Equal(t, []float64{0.25, 2.25, 4.25}, rs.Rows[0][0])
}

func TestResultSet_Clone(t *testing.T) {
	schema, rec := buildTestRecord(t)
	defer rec.Release()

	rs, err := FromRecords(schema, []arrow.Record{rec}, false)
	require.NoError(t, err)

	clone := rs.Clone()
	clone.Rows[0][0] = int32(99)

	assert.Equal(t, int32(1), rs.Rows[0][0], "clone mutation must not leak into the original")
	assert.Equal(t, int32(99), clone.Rows[0][0])
}

func TestSchemasEquivalent(t *testing.T) {
	intField := arrow.Field{Name: "c0", Type: arrow.PrimitiveTypes.Int32}
	vecField := arrow.Field{Name: "c1", Type: NewVectorType(3)}
	listField := arrow.Field{Name: "c1", Type: arrow.FixedSizeListOf(3, arrow.PrimitiveTypes.Float64)}

	tests := []struct {
		name string
		a    *arrow.Schema
		b    *arrow.Schema
		want bool
	}{
		{
			name: "identical",
			a:    arrow.NewSchema([]arrow.Field{intField}, nil),
			b:    arrow.NewSchema([]arrow.Field{intField}, nil),
			want: true,
		},
		{
			name: "extension matches its storage decomposition",
			a:    arrow.NewSchema([]arrow.Field{intField, vecField}, nil),
			b:    arrow.NewSchema([]arrow.Field{intField, listField}, nil),
			want: true,
		},
		{
			name: "field name mismatch",
			a:    arrow.NewSchema([]arrow.Field{{Name: "x", Type: arrow.PrimitiveTypes.Int32}}, nil),
			b:    arrow.NewSchema([]arrow.Field{intField}, nil),
			want: false,
		},
		{
			name: "type mismatch",
			a:    arrow.NewSchema([]arrow.Field{{Name: "c0", Type: arrow.PrimitiveTypes.Int64}}, nil),
			b:    arrow.NewSchema([]arrow.Field{intField}, nil),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SchemasEquivalent(tt.a, tt.b))
		})
	}
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "NULL", FormatCell(nil))
	assert.Equal(t, "1.5", FormatCell(1.5))
	assert.Equal(t, "[0.25 2.25]", FormatCell([]float64{0.25, 2.25}))
}
