package harness

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/parity/pkg/engine/duckdb"
	"github.com/TFMV/parity/pkg/report"
)

func TestBuiltinSuite_Shape(t *testing.T) {
	suite := BuiltinSuite(t.TempDir())

	assert.Equal(t, "builtin", suite.Name())
	require.Positive(t, suite.Len())

	seen := make(map[string]struct{})
	writeIdx, inferredIdx, explicitIdx, fixtureIdx := -1, -1, -1, -1
	for i, sc := range suite.scenarios {
		require.NoError(t, sc.Validate())
		_, dup := seen[sc.Name]
		require.False(t, dup, "duplicate scenario name %q", sc.Name)
		seen[sc.Name] = struct{}{}

		switch sc.Name {
		case "vector write falls back to reference writer":
			writeIdx = i
			assert.ElementsMatch(t, parquetWriteOps, sc.AllowedFallbacks)
			assert.ElementsMatch(t, parquetWriteOps, sc.Config.DisabledOperators)
		case "vector read with inferred schema stays accelerated":
			inferredIdx = i
			assert.Empty(t, sc.AllowedFallbacks, "inferred read must be 100%% accelerated")
		case "vector read with explicit schema forces scan fallback":
			explicitIdx = i
			assert.ElementsMatch(t, parquetReadOps, sc.AllowedFallbacks)
		case "vector fixture written by the adapter reads accelerated":
			fixtureIdx = i
			require.NotNil(t, sc.Fixture, "this scenario goes through the fixture adapter")
			assert.NotNil(t, sc.Fixture.Dataset)
			assert.Empty(t, sc.AllowedFallbacks)
		}
	}

	require.GreaterOrEqual(t, writeIdx, 0)
	require.GreaterOrEqual(t, inferredIdx, 0)
	require.GreaterOrEqual(t, explicitIdx, 0)
	require.GreaterOrEqual(t, fixtureIdx, 0)
	assert.Less(t, writeIdx, inferredIdx, "write must produce the file before reads consume it")
	assert.Less(t, writeIdx, explicitIdx)
}

func TestBuiltinSuite_RunsCleanAgainstDuckDB(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}

	eng, err := duckdb.New("", zerolog.Nop())
	require.NoError(t, err)
	defer eng.Close()

	c := NewController(eng, zerolog.Nop(), nil, Options{})
	rep := BuiltinSuite(t.TempDir()).Run(context.Background(), c)

	for _, sr := range rep.Scenarios {
		assert.Equalf(t, report.StatusPassed, sr.Status, "%s: %v", sr.Scenario, sr.Failures)
	}
	assert.True(t, rep.OK())
	assert.Equal(t, 0, rep.Failed)
}
