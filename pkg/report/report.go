// Package report carries the per-scenario and per-suite outcome records
// exposed by the harness.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/TFMV/parity/pkg/compare"
)

// Status is a scenario outcome.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ScenarioReport is the structured record for one scenario run. It carries
// enough context to understand a failure without re-running: both plan dumps,
// both configurations, and the comparator's cell-level diagnostics.
type ScenarioReport struct {
	RunID     string    `json:"run_id"`
	Scenario  string    `json:"scenario"`
	Status    Status    `json:"status"`
	ErrorCode string    `json:"error_code,omitempty"`
	Failures  []string  `json:"failures,omitempty"`
	StartedAt time.Time `json:"started_at"`

	ReferenceConfig   string `json:"reference_config,omitempty"`
	AcceleratedConfig string `json:"accelerated_config,omitempty"`
	ReferencePlan     string `json:"reference_plan,omitempty"`
	AcceleratedPlan   string `json:"accelerated_plan,omitempty"`

	Comparison *compare.Result `json:"comparison,omitempty"`
	Duration   time.Duration   `json:"duration_ns"`
}

// NewScenarioReport starts a report for the named scenario.
func NewScenarioReport(scenario string) *ScenarioReport {
	return &ScenarioReport{
		RunID:     uuid.NewString(),
		Scenario:  scenario,
		Status:    StatusPassed,
		StartedAt: time.Now().UTC(),
	}
}

// Fail records a failure. The first failure's code wins; later failures are
// appended so a report can show a fallback violation and a value divergence
// from the same run.
func (r *ScenarioReport) Fail(code, message string) {
	r.Status = StatusFailed
	if r.ErrorCode == "" {
		r.ErrorCode = code
	}
	r.Failures = append(r.Failures, fmt.Sprintf("%s: %s", code, message))
}

// Skip marks the scenario skipped with a reason.
func (r *ScenarioReport) Skip(reason string) {
	r.Status = StatusSkipped
	r.Failures = append(r.Failures, reason)
}

// Passed reports whether the scenario passed.
func (r *ScenarioReport) Passed() bool { return r.Status == StatusPassed }

// SuiteReport aggregates scenario reports.
type SuiteReport struct {
	Suite     string            `json:"suite"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration_ns"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
	Scenarios []*ScenarioReport `json:"scenarios"`
}

// NewSuiteReport starts a suite report.
func NewSuiteReport(suite string) *SuiteReport {
	return &SuiteReport{Suite: suite, StartedAt: time.Now().UTC()}
}

// Add appends a scenario report and updates the counters.
func (s *SuiteReport) Add(r *ScenarioReport) {
	s.Scenarios = append(s.Scenarios, r)
	switch r.Status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusSkipped:
		s.Skipped++
	}
}

// OK reports whether no scenario failed.
func (s *SuiteReport) OK() bool { return s.Failed == 0 }

// WriteJSON renders the suite report as indented JSON.
func (s *SuiteReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteSummary renders a human-readable summary.
func (s *SuiteReport) WriteSummary(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "suite %s: %d passed, %d failed, %d skipped (%s)\n",
		s.Suite, s.Passed, s.Failed, s.Skipped, s.Duration.Round(time.Millisecond)); err != nil {
		return err
	}
	for _, r := range s.Scenarios {
		if r.Status == StatusPassed {
			continue
		}
		if _, err := fmt.Fprintf(w, "  [%s] %s\n", r.Status, r.Scenario); err != nil {
			return err
		}
		for _, f := range r.Failures {
			if _, err := fmt.Fprintf(w, "      %s\n", f); err != nil {
				return err
			}
		}
	}
	return nil
}
