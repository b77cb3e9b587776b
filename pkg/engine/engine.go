// Package engine defines the boundary between the harness and a query engine.
// The harness treats an engine as a black box that accepts a logical query
// plus an execution configuration and reports back the physical plan it
// actually chose together with the materialized result set.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/TFMV/parity/pkg/models"
	"github.com/TFMV/parity/pkg/plan"
)

// Query is one logical query to run under both configurations.
type Query struct {
	// SQL is the query text.
	SQL string
	// Ordered marks that the query specifies an explicit ordering, making row
	// order significant for comparison.
	Ordered bool
	// Setup statements prepare input data before the query runs. They execute
	// identically for both runs so both paths see the same logical rows.
	Setup []string
}

// Config is the execution configuration for one run.
type Config struct {
	// Acceleration enables the accelerated operator set.
	Acceleration bool
	// DisabledOperators forces the named operators off the accelerated path
	// even when acceleration is enabled.
	DisabledOperators []string
	// FormatVersion selects the source file-format version, when the engine
	// supports more than one.
	FormatVersion string
	// TimeZone overrides the ambient timezone for the run. Both runs of one
	// scenario always share the same value.
	TimeZone string
	// Partitions fixes the partition count so data distribution is identical
	// across runs. Zero means the engine default.
	Partitions int
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.DisabledOperators = append([]string(nil), c.DisabledOperators...)
	return &out
}

// Disabled reports whether the named operator is forced off the accelerated path.
func (c *Config) Disabled(name string) bool {
	for _, d := range c.DisabledOperators {
		if d == name {
			return true
		}
	}
	return false
}

// String renders the configuration for diagnostics.
func (c *Config) String() string {
	if c == nil {
		return "<nil config>"
	}
	parts := []string{fmt.Sprintf("acceleration=%v", c.Acceleration)}
	if len(c.DisabledOperators) > 0 {
		disabled := append([]string(nil), c.DisabledOperators...)
		sort.Strings(disabled)
		parts = append(parts, "disabled="+strings.Join(disabled, ","))
	}
	if c.FormatVersion != "" {
		parts = append(parts, "format="+c.FormatVersion)
	}
	if c.TimeZone != "" {
		parts = append(parts, "tz="+c.TimeZone)
	}
	if c.Partitions > 0 {
		parts = append(parts, fmt.Sprintf("partitions=%d", c.Partitions))
	}
	return strings.Join(parts, " ")
}

// ExecutionError wraps a fault raised by the engine during one run, keeping
// which configuration failed.
type ExecutionError struct {
	Config *Config
	Query  string
	Cause  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed under [%s]: %v", e.Config, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Engine executes logical queries. Execute blocks until the run completes and
// returns the realized physical plan (the one the planner actually chose, not
// the one requested) and the full result set.
type Engine interface {
	Name() string
	Execute(ctx context.Context, query Query, cfg *Config) (*plan.Node, *models.ResultSet, error)
	// SupportsType reports whether the accelerated path handles the type;
	// scenarios statically known unsupported are skipped.
	SupportsType(dt arrow.DataType) bool
	// CanCast reports whether the accelerated path casts between the types.
	CanCast(from, to arrow.DataType) bool
}
