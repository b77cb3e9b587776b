package scenario

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/parity/pkg/errors"
)

func TestBuilder(t *testing.T) {
	sc, err := New("vector write fallback").
		Setup("CREATE TABLE t (c0 INTEGER)").
		SQL("SELECT * FROM t").
		Ordered().
		AllowFallback("ParquetWrite").
		ExpectReferencePath("ParquetWrite").
		DisableOperators("HashJoin").
		TimeZone("America/New_York").
		FormatVersion("v2").
		Tolerance(1e-9, 1e-6).
		StringifiedFloats().
		Build()
	require.NoError(t, err)

	assert.Equal(t, "vector write fallback", sc.Name)
	assert.Equal(t, "SELECT * FROM t", sc.Query.SQL)
	assert.Equal(t, []string{"CREATE TABLE t (c0 INTEGER)"}, sc.Query.Setup)
	assert.True(t, sc.Query.Ordered)
	assert.Equal(t, []string{"ParquetWrite"}, sc.AllowedFallbacks)
	assert.Equal(t, []string{"ParquetWrite"}, sc.ExpectReference)
	assert.Equal(t, []string{"HashJoin"}, sc.Config.DisabledOperators)
	assert.Equal(t, "America/New_York", sc.Config.TimeZone)
	assert.Equal(t, "v2", sc.Config.FormatVersion)
	require.NotNil(t, sc.Tolerance)
	assert.Equal(t, 1e-9, sc.Tolerance.Abs)
	assert.True(t, sc.StringifiedFloats)
}

func TestBuilder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
	}{
		{
			name:    "missing query",
			builder: New("no query"),
		},
		{
			name:    "missing name",
			builder: New("").SQL("SELECT 1"),
		},
		{
			name:    "fixture without dataset",
			builder: New("no rows").SQL("SELECT 1").WriteFixture("out.parquet", nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidScenario, errors.GetCode(err))
		})
	}
}

func TestBuilder_FixtureAndCasts(t *testing.T) {
	ds := NewDataset(arrow.NewSchema([]arrow.Field{
		{Name: "c0", Type: arrow.PrimitiveTypes.Int32},
	}, nil)).Append(int32(1))

	sc, err := New("fixture read").
		WriteFixture("input.parquet", ds).
		SQL("SELECT c0 FROM read_parquet('input.parquet')").
		RequireCast(arrow.PrimitiveTypes.Int32, arrow.PrimitiveTypes.Float64).
		Build()
	require.NoError(t, err)

	require.NotNil(t, sc.Fixture)
	assert.Equal(t, "input.parquet", sc.Fixture.Path)
	assert.Same(t, ds, sc.Fixture.Dataset)
	require.Len(t, sc.RequiredCasts, 1)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int32, sc.RequiredCasts[0].From))
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Float64, sc.RequiredCasts[0].To))
}

func TestBuilder_BuildIsolatesConfig(t *testing.T) {
	b := New("isolated").SQL("SELECT 1").DisableOperators("Scan")

	first, err := b.Build()
	require.NoError(t, err)

	b.DisableOperators("HashJoin")
	second, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"Scan"}, first.Config.DisabledOperators,
		"a built scenario must not observe later builder mutations")
	assert.Equal(t, []string{"Scan", "HashJoin"}, second.Config.DisabledOperators)
}

func TestMustBuild_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { New("bad").MustBuild() })
	assert.NotPanics(t, func() { New("ok").SQL("SELECT 1").MustBuild() })
}
