// Package duckdb implements the engine boundary over DuckDB. It executes the
// logical query for real and simulates the accelerated/reference split: every
// physical operator DuckDB reports is tagged from the engine's accelerated
// operator table, the run configuration's acceleration flag, and its
// forced-disable set. The harness's own integration scenarios run against it.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/rs/zerolog"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/TFMV/parity/pkg/engine"
	"github.com/TFMV/parity/pkg/errors"
	"github.com/TFMV/parity/pkg/models"
	"github.com/TFMV/parity/pkg/plan"
)

// Engine runs queries against a DuckDB database.
type Engine struct {
	db          *sql.DB
	logger      zerolog.Logger
	accelerated map[string]struct{}
}

// New opens a DuckDB-backed engine. An empty dsn opens an in-memory database.
func New(dsn string, logger zerolog.Logger) (*Engine, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeExecutionFailed, "open duckdb %q", dsn)
	}
	return &Engine{
		db:          db,
		logger:      logger.With().Str("component", "duckdb-engine").Logger(),
		accelerated: defaultAcceleratedOperators(),
	}, nil
}

// Close releases the underlying database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Name identifies the engine in reports.
func (e *Engine) Name() string { return "duckdb-sim" }

// Execute runs the query once under the given configuration. The plan is
// captured from what DuckDB actually chose, not from the query text: planners
// may silently pick a different path than configured.
func (e *Engine) Execute(ctx context.Context, q engine.Query, cfg *engine.Config) (*plan.Node, *models.ResultSet, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, nil, &engine.ExecutionError{Config: cfg, Query: q.SQL, Cause: err}
	}
	defer conn.Close()

	if err := e.applySession(ctx, conn, cfg); err != nil {
		return nil, nil, &engine.ExecutionError{Config: cfg, Query: q.SQL, Cause: err}
	}
	for _, stmt := range q.Setup {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return nil, nil, &engine.ExecutionError{Config: cfg, Query: q.SQL,
				Cause: fmt.Errorf("setup %q: %w", stmt, err)}
		}
	}

	root, err := e.capturePlan(ctx, conn, q.SQL, cfg)
	if err != nil {
		return nil, nil, err
	}

	rs, err := e.query(ctx, conn, q)
	if err != nil {
		// Keep the captured plan: a crash after accepting an operator is
		// itself a reportable regression.
		return root, nil, &engine.ExecutionError{Config: cfg, Query: q.SQL, Cause: err}
	}

	e.logger.Debug().Str("config", cfg.String()).Int("rows", rs.NumRows()).Msg("execution complete")
	return root, rs, nil
}

// applySession pins the session to the run configuration. A fixed thread
// count keeps data distribution identical across the two runs.
func (e *Engine) applySession(ctx context.Context, conn *sql.Conn, cfg *engine.Config) error {
	if cfg.Partitions > 0 {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET threads TO %d", cfg.Partitions)); err != nil {
			return fmt.Errorf("set threads: %w", err)
		}
	}
	if cfg.TimeZone != "" {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET TimeZone = '%s'", cfg.TimeZone)); err != nil {
			return fmt.Errorf("set timezone: %w", err)
		}
	}
	return nil
}

func (e *Engine) query(ctx context.Context, conn *sql.Conn, q engine.Query) (*models.ResultSet, error) {
	rows, err := conn.QueryContext(ctx, q.SQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	schema, err := schemaFromColumns(colTypes)
	if err != nil {
		return nil, err
	}

	rs := &models.ResultSet{Schema: schema, Ordered: q.Ordered}
	values := make([]interface{}, len(colTypes))
	ptrs := make([]interface{}, len(colTypes))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(models.Row, len(values))
		for i, v := range values {
			row[i] = normalizeValue(v)
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, rows.Err()
}

// SupportsType reports whether the simulated accelerated path handles the
// logical type. Extension types have no accelerated representation.
func (e *Engine) SupportsType(dt arrow.DataType) bool {
	if _, ok := dt.(arrow.ExtensionType); ok {
		return false
	}
	switch dt.ID() {
	case arrow.BOOL,
		arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64,
		arrow.STRING, arrow.LARGE_STRING,
		arrow.DATE32, arrow.TIMESTAMP,
		arrow.DECIMAL128:
		return true
	case arrow.LIST, arrow.FIXED_SIZE_LIST:
		return e.SupportsType(dt.(arrow.NestedType).Fields()[0].Type)
	default:
		return false
	}
}

// CanCast reports whether the accelerated path casts between the types.
func (e *Engine) CanCast(from, to arrow.DataType) bool {
	if !e.SupportsType(from) || !e.SupportsType(to) {
		return false
	}
	// Nested types only cast to themselves.
	switch from.ID() {
	case arrow.LIST, arrow.FIXED_SIZE_LIST:
		return arrow.TypeEqual(from, to)
	}
	return true
}

// defaultAcceleratedOperators is the simulated coverage table: the physical
// operator names the accelerated path claims to support.
func defaultAcceleratedOperators() map[string]struct{} {
	names := []string{
		"SEQ_SCAN",
		"TABLE_SCAN",
		"READ_PARQUET",
		"PARQUET_SCAN",
		"COLUMN_DATA_SCAN",
		"DUMMY_SCAN",
		"PROJECTION",
		"FILTER",
		"HASH_JOIN",
		"CROSS_PRODUCT",
		"HASH_GROUP_BY",
		"PERFECT_HASH_GROUP_BY",
		"UNGROUPED_AGGREGATE",
		"ORDER_BY",
		"TOP_N",
		"LIMIT",
		"STREAMING_LIMIT",
		"UNION",
		"COPY_TO_FILE",
		"BATCH_COPY_TO_FILE",
		"RESULT_COLLECTOR",
		"EXPLAIN",
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
