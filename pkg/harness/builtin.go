package harness

import (
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/TFMV/parity/pkg/models"
	"github.com/TFMV/parity/pkg/scenario"
)

// Parquet operators by DuckDB version. Older releases report PARQUET_SCAN,
// newer ones READ_PARQUET and TABLE_SCAN.
var (
	parquetWriteOps = []string{"COPY_TO_FILE", "BATCH_COPY_TO_FILE"}
	parquetReadOps  = []string{"READ_PARQUET", "PARQUET_SCAN", "TABLE_SCAN", "SEQ_SCAN"}
)

// BuiltinSuite returns the bundled differential scenarios. Scratch files are
// written under dir. Scenarios run in declaration order: the vector write
// produces the file the two read scenarios consume.
func BuiltinSuite(dir string) *Suite {
	vectorFile := filepath.Join(dir, "vectors.parquet")
	vectorFixtureFile := filepath.Join(dir, "vector_fixture.parquet")

	vectorSetup := []string{
		"CREATE TABLE IF NOT EXISTS vectors (c0 INTEGER, c1 DOUBLE[])",
		"DELETE FROM vectors",
		"INSERT INTO vectors VALUES (1, [0.25, 2.25, 4.25])",
	}

	vectorFixtureSchema := arrow.NewSchema([]arrow.Field{
		{Name: "c0", Type: arrow.PrimitiveTypes.Int32},
		{Name: "c1", Type: models.NewVectorType(3)},
	}, nil)
	vectorFixtureRows := scenario.NewDataset(vectorFixtureSchema).
		Append(int32(1), []float64{0.25, 2.25, 4.25})

	return NewSuite("builtin",
		scenario.New("projection and filter").
			Setup(
				"CREATE TABLE IF NOT EXISTS items (id INTEGER, score DOUBLE, label VARCHAR)",
				"DELETE FROM items",
				"INSERT INTO items VALUES (1, 0.5, 'a'), (2, 1.5, 'b'), (3, 2.5, 'a')",
			).
			SQL("SELECT id, score * 2 AS doubled FROM items WHERE score > 0.75 ORDER BY id").
			Ordered().
			MustBuild(),

		scenario.New("grouped aggregation").
			Setup(
				"CREATE TABLE IF NOT EXISTS items (id INTEGER, score DOUBLE, label VARCHAR)",
				"DELETE FROM items",
				"INSERT INTO items VALUES (1, 0.5, 'a'), (2, 1.5, 'b'), (3, 2.5, 'a')",
			).
			SQL("SELECT label, sum(score) AS total, avg(score) AS mean FROM items GROUP BY label").
			MustBuild(),

		scenario.New("order by with limit").
			Setup(
				"CREATE TABLE IF NOT EXISTS items (id INTEGER, score DOUBLE, label VARCHAR)",
			).
			SQL("SELECT id FROM items ORDER BY score DESC LIMIT 2").
			Ordered().
			MustBuild(),

		scenario.New("timestamp normalization under ambient timezone").
			Setup(
				"CREATE TABLE IF NOT EXISTS events (ts TIMESTAMPTZ)",
				"DELETE FROM events",
				"INSERT INTO events VALUES ('2024-06-01 12:00:00+00'), ('2024-12-01 12:00:00+00')",
			).
			SQL("SELECT ts FROM events ORDER BY ts").
			Ordered().
			TimeZone("America/New_York").
			MustBuild(),

		scenario.New("stringified float parity").
			SQL("SELECT CAST(0.1 + 0.2 AS VARCHAR) AS rendered, 0.1 + 0.2 AS exact").
			Ordered().
			StringifiedFloats().
			MustBuild(),

		// The accelerated path has no Parquet writer for extension-typed
		// columns, so the write operator lands on the reference path while the
		// rest of the pipeline stays accelerated.
		scenario.New("vector write falls back to reference writer").
			Setup(vectorSetup...).
			SQL("COPY (SELECT c0, c1 FROM vectors) TO '" + vectorFile + "' (FORMAT parquet)").
			DisableOperators(parquetWriteOps...).
			AllowFallback(parquetWriteOps...).
			MustBuild(),

		// The file's physical encoding is a primitive list container, so a
		// schema-inferred read needs no extension handling and stays fully
		// accelerated.
		scenario.New("vector read with inferred schema stays accelerated").
			SQL("SELECT c0, c1 FROM read_parquet('" + vectorFile + "') ORDER BY c0").
			Ordered().
			MustBuild(),

		// Requesting the extension-typed logical schema forces the scan to
		// reassemble the annotation, which only the reference path can do.
		scenario.New("vector read with explicit schema forces scan fallback").
			SQL("SELECT c0, c1 FROM read_parquet('" + vectorFile + "') ORDER BY c0").
			Ordered().
			DisableOperators(parquetReadOps...).
			AllowFallback(parquetReadOps...).
			MustBuild(),

		// The adapter encodes the extension-typed dataset itself; reading the
		// decomposed file back through the engine needs no extension handling
		// and stays fully accelerated.
		scenario.New("vector fixture written by the adapter reads accelerated").
			WriteFixture(vectorFixtureFile, vectorFixtureRows).
			SQL("SELECT c0, c1 FROM read_parquet('" + vectorFixtureFile + "') ORDER BY c0").
			Ordered().
			MustBuild(),
	)
}
