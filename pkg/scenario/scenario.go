// Package scenario defines test scenarios as immutable data records: a logical
// query, optional configuration overrides, and the expected operator
// partition. Scenarios are built once and consumed by the harness controller.
package scenario

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/TFMV/parity/pkg/compare"
	"github.com/TFMV/parity/pkg/engine"
	"github.com/TFMV/parity/pkg/errors"
)

// FixtureWrite materializes an inline dataset to an encoded file before
// either run executes, so read scenarios consume adapter-produced input
// instead of data staged by hand.
type FixtureWrite struct {
	// Path is where the encoded file lands.
	Path string
	// Dataset holds the literal rows to encode.
	Dataset *Dataset
}

// Cast is a from/to type pair the accelerated path must support.
type Cast struct {
	From arrow.DataType
	To   arrow.DataType
}

// Scenario is one differential test case. Never mutated after Build.
type Scenario struct {
	// Name identifies the scenario in reports.
	Name string
	// Query is the logical query run under both configurations.
	Query engine.Query
	// Config carries scenario overrides: forced-disable set, format version,
	// ambient timezone. The controller derives both run configurations from it.
	Config *engine.Config
	// AllowedFallbacks is the set of operator names permitted to stay on the
	// reference path in the accelerated run. Empty means the accelerated run
	// must be 100% accelerated.
	AllowedFallbacks []string
	// ExpectReference names operators that must be on the reference path, for
	// scenarios exercising a deliberately unsupported type or cast.
	ExpectReference []string
	// Tolerance overrides the suite's floating-point tolerance when non-nil.
	Tolerance *compare.Tolerance
	// StringifiedFloats enables numeric comparison of string-rendered floats.
	StringifiedFloats bool
	// RequiredTypes lists logical types the engine must support on the
	// accelerated path; the controller skips the scenario otherwise.
	RequiredTypes []arrow.DataType
	// RequiredCasts lists casts the accelerated path must support; the
	// controller skips the scenario otherwise.
	RequiredCasts []Cast
	// Fixture, when set, is encoded to its path before the runs start.
	Fixture *FixtureWrite
}

// Validate checks the scenario is runnable.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return errors.New(errors.CodeInvalidScenario, "scenario has no name")
	}
	if s.Query.SQL == "" {
		return errors.Newf(errors.CodeInvalidScenario, "scenario %s has no query", s.Name)
	}
	if s.Fixture != nil && (s.Fixture.Path == "" || s.Fixture.Dataset == nil) {
		return errors.Newf(errors.CodeInvalidScenario, "scenario %s has an incomplete fixture write", s.Name)
	}
	return nil
}

// Builder assembles a Scenario.
type Builder struct {
	s Scenario
}

// New starts a scenario with the given name.
func New(name string) *Builder {
	return &Builder{s: Scenario{Name: name, Config: &engine.Config{}}}
}

// SQL sets the query text.
func (b *Builder) SQL(sql string) *Builder {
	b.s.Query.SQL = sql
	return b
}

// Setup adds statements that prepare input data before the query. They run
// identically for both executions.
func (b *Builder) Setup(stmts ...string) *Builder {
	b.s.Query.Setup = append(b.s.Query.Setup, stmts...)
	return b
}

// Ordered marks row order as significant for comparison.
func (b *Builder) Ordered() *Builder {
	b.s.Query.Ordered = true
	return b
}

// AllowFallback permits the named operators on the reference path.
func (b *Builder) AllowFallback(names ...string) *Builder {
	b.s.AllowedFallbacks = append(b.s.AllowedFallbacks, names...)
	return b
}

// ExpectReferencePath requires the named operators to be forced off the
// accelerated path.
func (b *Builder) ExpectReferencePath(names ...string) *Builder {
	b.s.ExpectReference = append(b.s.ExpectReference, names...)
	return b
}

// DisableOperators forces the named operators off the accelerated path in the
// accelerated run.
func (b *Builder) DisableOperators(names ...string) *Builder {
	b.s.Config.DisabledOperators = append(b.s.Config.DisabledOperators, names...)
	return b
}

// TimeZone sets the ambient timezone both runs execute under.
func (b *Builder) TimeZone(tz string) *Builder {
	b.s.Config.TimeZone = tz
	return b
}

// FormatVersion selects the source file-format version.
func (b *Builder) FormatVersion(v string) *Builder {
	b.s.Config.FormatVersion = v
	return b
}

// Tolerance overrides the floating-point tolerance for this scenario.
func (b *Builder) Tolerance(abs, rel float64) *Builder {
	b.s.Tolerance = &compare.Tolerance{Abs: abs, Rel: rel}
	return b
}

// StringifiedFloats enables lenient comparison of string-rendered floats.
func (b *Builder) StringifiedFloats() *Builder {
	b.s.StringifiedFloats = true
	return b
}

// RequireTypes lists types the engine must support for the scenario to run.
func (b *Builder) RequireTypes(types ...arrow.DataType) *Builder {
	b.s.RequiredTypes = append(b.s.RequiredTypes, types...)
	return b
}

// RequireCast lists a cast the engine must support for the scenario to run.
func (b *Builder) RequireCast(from, to arrow.DataType) *Builder {
	b.s.RequiredCasts = append(b.s.RequiredCasts, Cast{From: from, To: to})
	return b
}

// WriteFixture encodes the dataset to path before either run executes.
func (b *Builder) WriteFixture(path string, ds *Dataset) *Builder {
	b.s.Fixture = &FixtureWrite{Path: path, Dataset: ds}
	return b
}

// Build validates and returns the scenario.
func (b *Builder) Build() (*Scenario, error) {
	s := b.s
	s.Config = b.s.Config.Clone()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// MustBuild is Build for statically known-good scenario literals.
func (b *Builder) MustBuild() *Scenario {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
