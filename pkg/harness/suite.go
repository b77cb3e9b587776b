package harness

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/parity/pkg/errors"
	"github.com/TFMV/parity/pkg/report"
	"github.com/TFMV/parity/pkg/scenario"
)

// Suite is an ordered collection of scenarios run against one controller.
// Scenarios are isolated: a failure or panic in one never aborts the rest.
type Suite struct {
	name      string
	scenarios []*scenario.Scenario
}

// NewSuite creates a suite.
func NewSuite(name string, scenarios ...*scenario.Scenario) *Suite {
	return &Suite{name: name, scenarios: scenarios}
}

// Name returns the suite name.
func (s *Suite) Name() string { return s.name }

// Add appends scenarios to the suite.
func (s *Suite) Add(scenarios ...*scenario.Scenario) *Suite {
	s.scenarios = append(s.scenarios, scenarios...)
	return s
}

// Len returns the scenario count.
func (s *Suite) Len() int { return len(s.scenarios) }

// Run executes every scenario sequentially and aggregates their reports.
func (s *Suite) Run(ctx context.Context, c *Controller) *report.SuiteReport {
	suiteRep := report.NewSuiteReport(s.name)
	start := time.Now()

	log := c.logger.With().Str("suite", s.name).Logger()
	log.Info().Int("scenarios", len(s.scenarios)).Msg("suite started")

	for _, sc := range s.scenarios {
		suiteRep.Add(s.runIsolated(ctx, c, sc, log))
	}

	suiteRep.Duration = time.Since(start)
	log.Info().
		Int("passed", suiteRep.Passed).
		Int("failed", suiteRep.Failed).
		Int("skipped", suiteRep.Skipped).
		Dur("duration", suiteRep.Duration).
		Msg("suite finished")
	return suiteRep
}

// runIsolated runs one scenario, converting a panic into a failed report so
// the remaining scenarios still run.
func (s *Suite) runIsolated(ctx context.Context, c *Controller, sc *scenario.Scenario, log zerolog.Logger) (rep *report.ScenarioReport) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("scenario", sc.Name).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("scenario panicked")
			rep = report.NewScenarioReport(sc.Name)
			rep.Fail(errors.CodeInternal, fmt.Sprintf("panic: %v", r))
		}
	}()

	return c.Run(ctx, sc)
}
