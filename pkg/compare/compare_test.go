package compare

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/parity/pkg/models"
)

func schemaOf(fields ...arrow.Field) *arrow.Schema {
	return arrow.NewSchema(fields, nil)
}

func resultSet(schema *arrow.Schema, ordered bool, rows ...models.Row) *models.ResultSet {
	return &models.ResultSet{Schema: schema, Rows: rows, Ordered: ordered}
}

var twoColSchema = schemaOf(
	arrow.Field{Name: "id", Type: arrow.PrimitiveTypes.Int32},
	arrow.Field{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
)

func TestCompare_Equal(t *testing.T) {
	c := New(DefaultOptions())

	expected := resultSet(twoColSchema, true,
		models.Row{int32(1), 1.5},
		models.Row{int32(2), nil},
	)
	actual := resultSet(twoColSchema, true,
		models.Row{int32(1), 1.5},
		models.Row{int32(2), nil},
	)

	res := c.Compare(expected, actual)
	assert.True(t, res.Equal)
	assert.NoError(t, res.Err())
	assert.Empty(t, res.Mismatches)
}

func TestCompare_RowCountMismatch(t *testing.T) {
	c := New(DefaultOptions())

	expected := resultSet(twoColSchema, true, models.Row{int32(1), 1.5})
	actual := resultSet(twoColSchema, true)

	res := c.Compare(expected, actual)
	assert.False(t, res.Equal)
	assert.True(t, res.RowCountMismatch)
	assert.Equal(t, 1, res.ExpectedRows)
	assert.Equal(t, 0, res.ActualRows)
	assert.ErrorContains(t, res.Err(), "row count mismatch")
}

func TestCompare_SchemaMismatch(t *testing.T) {
	c := New(DefaultOptions())

	other := schemaOf(arrow.Field{Name: "id", Type: arrow.PrimitiveTypes.Int64})
	res := c.Compare(
		resultSet(twoColSchema, true),
		resultSet(other, true),
	)
	assert.False(t, res.Equal)
	assert.True(t, res.SchemaMismatch)
	assert.ErrorContains(t, res.Err(), "schemas")
}

func TestCompare_PermutationInvariantWhenUnordered(t *testing.T) {
	c := New(DefaultOptions())

	rows := []models.Row{
		{int32(3), 0.5},
		{int32(1), nil},
		{int32(2), math.NaN()},
		{int32(1), 7.25},
	}
	expected := resultSet(twoColSchema, false, rows...)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]models.Row, len(rows))
		copy(shuffled, rows)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		actual := resultSet(twoColSchema, false, shuffled...)

		res := c.Compare(expected, actual)
		require.True(t, res.Equal, "trial %d: %v", trial, res.Mismatches)
	}

	// The same permutation must fail when ordering is significant.
	swapped := resultSet(twoColSchema, true, rows[1], rows[0], rows[2], rows[3])
	ordered := resultSet(twoColSchema, true, rows...)
	assert.False(t, c.Compare(ordered, swapped).Equal)
}

func TestCompare_DoesNotMutateInputs(t *testing.T) {
	c := New(DefaultOptions())

	expected := resultSet(twoColSchema, false,
		models.Row{int32(2), 2.0},
		models.Row{int32(1), 1.0},
	)
	actual := expected.Clone()

	res := c.Compare(expected, actual)
	require.True(t, res.Equal)

	assert.Equal(t, int32(2), expected.Rows[0][0], "compare must not reorder its inputs")
	assert.Equal(t, int32(1), expected.Rows[1][0])
}

func TestFloatEquivalence(t *testing.T) {
	c := New(Options{Tolerance: Tolerance{Abs: 1e-9, Rel: 1e-6}})

	tests := []struct {
		name string
		a, b float64
		want bool
	}{
		{"identical", 1.5, 1.5, true},
		{"within abs tolerance", 0, 1e-10, true},
		{"within rel tolerance", 1e9, 1e9 * (1 + 1e-7), true},
		{"outside tolerance", 1.0, 1.001, false},
		{"both NaN", math.NaN(), math.NaN(), true},
		{"one NaN", math.NaN(), 1.0, false},
		{"same sign infinity", math.Inf(1), math.Inf(1), true},
		{"opposite infinity", math.Inf(1), math.Inf(-1), false},
		{"infinity vs finite", math.Inf(1), math.MaxFloat64, false},
		{"negative zero", 0.0, math.Copysign(0, -1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.floatsEquivalent(tt.a, tt.b))
		})
	}
}

func TestCompare_NullSemantics(t *testing.T) {
	c := New(DefaultOptions())

	expected := resultSet(twoColSchema, true, models.Row{int32(1), nil})
	actual := resultSet(twoColSchema, true, models.Row{int32(1), 0.0})

	res := c.Compare(expected, actual)
	require.False(t, res.Equal)
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, "score", res.Mismatches[0].Field)
	assert.Equal(t, "NULL", res.Mismatches[0].Expected)
	assert.Equal(t, "0", res.Mismatches[0].Actual)
}

func TestCompare_TimestampGranularity(t *testing.T) {
	c := New(DefaultOptions())
	schema := schemaOf(arrow.Field{Name: "ts", Type: &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}})

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	nyc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		a, b time.Time
		want bool
	}{
		{"identical", base, base, true},
		{"same instant different zone", base, base.In(nyc), true},
		{"sub-microsecond difference", base, base.Add(500 * time.Nanosecond), true},
		{"one microsecond apart", base, base.Add(time.Microsecond), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Compare(
				resultSet(schema, true, models.Row{tt.a}),
				resultSet(schema, true, models.Row{tt.b}),
			)
			assert.Equal(t, tt.want, res.Equal)
		})
	}
}

func TestCompare_VectorCells(t *testing.T) {
	c := New(DefaultOptions())
	schema := schemaOf(arrow.Field{Name: "vec", Type: arrow.FixedSizeListOf(3, arrow.PrimitiveTypes.Float64)})

	res := c.Compare(
		resultSet(schema, true, models.Row{[]float64{0.25, 2.25, 4.25}}),
		resultSet(schema, true, models.Row{[]float64{0.25, 2.25, 4.25}}),
	)
	assert.True(t, res.Equal)

	res = c.Compare(
		resultSet(schema, true, models.Row{[]float64{0.25, 2.25, 4.25}}),
		resultSet(schema, true, models.Row{[]float64{0.25, 2.25, 5.0}}),
	)
	assert.False(t, res.Equal)
}

func TestCompare_StringifiedFloats(t *testing.T) {
	schema := schemaOf(arrow.Field{Name: "s", Type: arrow.BinaryTypes.String})

	strict := New(DefaultOptions())
	opts := DefaultOptions()
	opts.StringifiedFloats = true
	lenient := New(opts)

	expected := resultSet(schema, true, models.Row{"1.100000"})
	actual := resultSet(schema, true, models.Row{"1.1"})

	assert.False(t, strict.Compare(expected, actual).Equal)
	assert.True(t, lenient.Compare(expected, actual).Equal)

	// Non-numeric strings still require exact equality.
	assert.False(t, lenient.Compare(
		resultSet(schema, true, models.Row{"abc"}),
		resultSet(schema, true, models.Row{"abd"}),
	).Equal)
}

func TestCompare_MismatchCap(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxMismatches = 5
	c := New(opts)

	var expRows, actRows []models.Row
	for i := 0; i < 20; i++ {
		expRows = append(expRows, models.Row{int32(i), float64(i)})
		actRows = append(actRows, models.Row{int32(i), float64(i) + 1})
	}

	res := c.Compare(
		resultSet(twoColSchema, true, expRows...),
		resultSet(twoColSchema, true, actRows...),
	)
	assert.False(t, res.Equal)
	assert.True(t, res.Truncated)
	assert.Len(t, res.Mismatches, 5)
	assert.ErrorContains(t, res.Err(), "diverging cells")
}

func TestCompare_CollectsAllMismatchesUpToCap(t *testing.T) {
	c := New(DefaultOptions())

	expected := resultSet(twoColSchema, true,
		models.Row{int32(1), 1.0},
		models.Row{int32(9), 2.0},
		models.Row{int32(3), 9.0},
	)
	actual := resultSet(twoColSchema, true,
		models.Row{int32(1), 1.0},
		models.Row{int32(2), 2.0},
		models.Row{int32(3), 3.0},
	)

	res := c.Compare(expected, actual)
	require.Len(t, res.Mismatches, 2, "comparison must not stop at the first divergence")
	assert.Equal(t, "id", res.Mismatches[0].Field)
	assert.Equal(t, 1, res.Mismatches[0].Row)
	assert.Equal(t, "score", res.Mismatches[1].Field)
	assert.Equal(t, 2, res.Mismatches[1].Row)
}

func TestCompareValues_TotalOrder(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b interface{}
		want int
	}{
		{"null first", nil, int32(0), -1},
		{"null equal", nil, nil, 0},
		{"int order", int32(1), int32(2), -1},
		{"NaN before floats", math.NaN(), math.Inf(-1), -1},
		{"NaN stable", math.NaN(), math.NaN(), 0},
		{"bool order", false, true, -1},
		{"string order", "a", "b", -1},
		{"time order", ts, ts.Add(time.Second), -1},
		{"float lists lexicographic", []float64{1, 2}, []float64{1, 3}, -1},
		{"shorter list first", []float64{1}, []float64{1, 0}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compareValues(tt.a, tt.b)
			switch {
			case tt.want < 0:
				assert.Negative(t, got)
				assert.Positive(t, compareValues(tt.b, tt.a))
			case tt.want == 0:
				assert.Zero(t, got)
			}
		})
	}
}

func TestMismatch_String(t *testing.T) {
	m := Mismatch{Row: 3, Field: "c1", Expected: "1.5", Actual: "2.5"}
	assert.Equal(t, "row 3 field c1: expected 1.5, got 2.5", fmt.Sprint(m))
}
