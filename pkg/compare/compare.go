// Package compare implements the value-level equivalence engine used to check
// an accelerated run's result set against the reference run's.
package compare

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/TFMV/parity/pkg/errors"
	"github.com/TFMV/parity/pkg/models"
)

// Tolerance bounds acceptable floating-point drift between the two paths.
// Two finite values a and b are equivalent when
// |a-b| <= max(Abs, Rel*max(|a|,|b|)).
type Tolerance struct {
	Abs float64
	Rel float64
}

// Options configures a Comparator.
type Options struct {
	Tolerance Tolerance
	// MaxMismatches caps how many diverging cells are collected for the report.
	MaxMismatches int
	// StringifiedFloats enables numeric comparison of string cells that parse
	// as floats, for cast-to-string scenarios where the two paths render the
	// same value with different trailing digits.
	StringifiedFloats bool
	// Location is the canonical zone used when rendering temporal diagnostics.
	Location *time.Location
}

// DefaultOptions returns the comparator defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:     Tolerance{Abs: 1e-12, Rel: 1e-7},
		MaxMismatches: 100,
		Location:      time.UTC,
	}
}

// Mismatch identifies one diverging cell.
type Mismatch struct {
	Row      int    `json:"row"`
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("row %d field %s: expected %s, got %s", m.Row, m.Field, m.Expected, m.Actual)
}

// Result is the outcome of a comparison.
type Result struct {
	Equal            bool       `json:"equal"`
	SchemaMismatch   bool       `json:"schema_mismatch,omitempty"`
	RowCountMismatch bool       `json:"row_count_mismatch,omitempty"`
	ExpectedRows     int        `json:"expected_rows"`
	ActualRows       int        `json:"actual_rows"`
	Mismatches       []Mismatch `json:"mismatches,omitempty"`
	// Truncated is set when the mismatch list hit the collection cap.
	Truncated bool `json:"truncated,omitempty"`
}

// Err returns nil for an equal result, or a coded error summarizing the divergence.
func (r *Result) Err() error {
	if r.Equal {
		return nil
	}
	switch {
	case r.SchemaMismatch:
		return errors.New(errors.CodeResultMismatch, "result schemas are not equivalent")
	case r.RowCountMismatch:
		return errors.Newf(errors.CodeResultMismatch,
			"row count mismatch: expected %d rows, got %d", r.ExpectedRows, r.ActualRows)
	default:
		return errors.Newf(errors.CodeResultMismatch,
			"%d diverging cells (truncated=%v)", len(r.Mismatches), r.Truncated).
			WithDetail("mismatches", r.Mismatches)
	}
}

// Comparator applies precision-aware equivalence rules to result sets.
// It is pure: Compare never mutates its inputs.
type Comparator struct {
	opts Options
}

// New creates a comparator, filling unset options with defaults.
func New(opts Options) *Comparator {
	def := DefaultOptions()
	if opts.MaxMismatches <= 0 {
		opts.MaxMismatches = def.MaxMismatches
	}
	if opts.Tolerance == (Tolerance{}) {
		opts.Tolerance = def.Tolerance
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}
	return &Comparator{opts: opts}
}

// Compare checks two result sets for value equivalence. When ordering is not
// significant, both sides are compared under a total order over all fields,
// nulls first, so the check is invariant to row permutation.
func (c *Comparator) Compare(expected, actual *models.ResultSet) *Result {
	res := &Result{
		ExpectedRows: expected.NumRows(),
		ActualRows:   actual.NumRows(),
	}

	if !models.SchemasEquivalent(expected.Schema, actual.Schema) {
		res.SchemaMismatch = true
		return res
	}
	if expected.NumRows() != actual.NumRows() {
		res.RowCountMismatch = true
		return res
	}

	expRows := expected.Rows
	actRows := actual.Rows
	if !expected.Ordered {
		expRows = sortedView(expRows)
		actRows = sortedView(actRows)
	}

	for i := range expRows {
		for f := 0; f < expected.NumFields(); f++ {
			if c.cellsEquivalent(expRows[i][f], actRows[i][f]) {
				continue
			}
			res.Mismatches = append(res.Mismatches, Mismatch{
				Row:      i,
				Field:    expected.Schema.Field(f).Name,
				Expected: c.formatCell(expRows[i][f]),
				Actual:   c.formatCell(actRows[i][f]),
			})
			if len(res.Mismatches) >= c.opts.MaxMismatches {
				res.Truncated = true
				return res
			}
		}
	}

	res.Equal = len(res.Mismatches) == 0
	return res
}

// cellsEquivalent applies the per-type equivalence rules. A nil cell only ever
// matches another nil cell.
func (c *Comparator) cellsEquivalent(e, a interface{}) bool {
	if e == nil || a == nil {
		return e == nil && a == nil
	}

	switch ev := e.(type) {
	case float64:
		av, ok := a.(float64)
		return ok && c.floatsEquivalent(ev, av)
	case float32:
		av, ok := a.(float32)
		return ok && c.floatsEquivalent(float64(ev), float64(av))
	case time.Time:
		av, ok := a.(time.Time)
		return ok && timesEquivalent(ev, av)
	case string:
		av, ok := a.(string)
		if !ok {
			return false
		}
		if ev == av {
			return true
		}
		if c.opts.StringifiedFloats {
			return c.stringFloatsEquivalent(ev, av)
		}
		return false
	case []float64:
		av, ok := a.([]float64)
		if !ok || len(ev) != len(av) {
			return false
		}
		for i := range ev {
			if !c.floatsEquivalent(ev[i], av[i]) {
				return false
			}
		}
		return true
	case []interface{}:
		av, ok := a.([]interface{})
		if !ok || len(ev) != len(av) {
			return false
		}
		for i := range ev {
			if !c.cellsEquivalent(ev[i], av[i]) {
				return false
			}
		}
		return true
	default:
		return e == a
	}
}

// floatsEquivalent implements the floating-point equivalence relation:
// NaN matches NaN, infinities match by sign, finite values within tolerance.
func (c *Comparator) floatsEquivalent(e, a float64) bool {
	if math.IsNaN(e) || math.IsNaN(a) {
		return math.IsNaN(e) && math.IsNaN(a)
	}
	if math.IsInf(e, 0) || math.IsInf(a, 0) {
		return e == a
	}
	diff := math.Abs(e - a)
	return diff <= math.Max(c.opts.Tolerance.Abs,
		c.opts.Tolerance.Rel*math.Max(math.Abs(e), math.Abs(a)))
}

// stringFloatsEquivalent compares two string-rendered floats numerically,
// tolerating insignificant trailing representation differences. Cells that do
// not parse as floats fall back to the exact comparison that already failed.
func (c *Comparator) stringFloatsEquivalent(e, a string) bool {
	ev, err1 := strconv.ParseFloat(e, 64)
	av, err2 := strconv.ParseFloat(a, 64)
	if err1 != nil || err2 != nil {
		return false
	}
	return c.floatsEquivalent(ev, av)
}

// timesEquivalent compares instants at microsecond granularity. Both sides are
// absolute instants, so the result does not depend on the host timezone.
func timesEquivalent(e, a time.Time) bool {
	return e.UTC().Truncate(time.Microsecond).Equal(a.UTC().Truncate(time.Microsecond))
}

func (c *Comparator) formatCell(v interface{}) string {
	if ts, ok := v.(time.Time); ok {
		return ts.In(c.opts.Location).Format(time.RFC3339Nano)
	}
	return models.FormatCell(v)
}
