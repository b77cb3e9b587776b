// Package harness runs one logical query twice, under a reference-only and an
// accelerated configuration, and verifies the operator partition and the
// value-level equivalence of the two runs.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/parity/pkg/compare"
	"github.com/TFMV/parity/pkg/engine"
	"github.com/TFMV/parity/pkg/errors"
	"github.com/TFMV/parity/pkg/fallback"
	"github.com/TFMV/parity/pkg/fixture"
	"github.com/TFMV/parity/pkg/metrics"
	"github.com/TFMV/parity/pkg/models"
	"github.com/TFMV/parity/pkg/plan"
	"github.com/TFMV/parity/pkg/report"
	"github.com/TFMV/parity/pkg/scenario"
)

// Options configures a Controller.
type Options struct {
	// Compare sets the suite-wide comparator options; scenarios may override
	// tolerance and the stringified-float flag.
	Compare compare.Options
	// Partitions fixes the partition count for both runs so data distribution
	// is identical. Defaults to a single partition.
	Partitions int
}

// Controller runs scenarios. Within one scenario the two executions are
// strictly sequential: they share mutable ambient state such as the process
// timezone.
type Controller struct {
	engine    engine.Engine
	logger    zerolog.Logger
	collector metrics.Collector
	fixtures  *fixture.Adapter
	opts      Options
}

// NewController creates a controller over the given engine.
func NewController(eng engine.Engine, logger zerolog.Logger, collector metrics.Collector, opts Options) *Controller {
	if collector == nil {
		collector = metrics.NewNoOpCollector()
	}
	if opts.Partitions <= 0 {
		opts.Partitions = 1
	}
	return &Controller{
		engine:    eng,
		logger:    logger.With().Str("component", "controller").Logger(),
		collector: collector,
		fixtures:  fixture.NewAdapter("", logger),
		opts:      opts,
	}
}

// Run executes one scenario end to end and returns its structured report.
func (c *Controller) Run(ctx context.Context, sc *scenario.Scenario) *report.ScenarioReport {
	rep := report.NewScenarioReport(sc.Name)
	start := time.Now()
	defer func() {
		rep.Duration = time.Since(start)
		c.collector.RecordHistogram("parity_scenario_duration_seconds", rep.Duration.Seconds())
		c.collector.IncrementCounter("parity_scenarios_total", "result", string(rep.Status))
	}()

	log := c.logger.With().Str("scenario", sc.Name).Logger()

	if err := sc.Validate(); err != nil {
		rep.Fail(errors.GetCode(err), err.Error())
		return rep
	}
	for _, dt := range sc.RequiredTypes {
		if !c.engine.SupportsType(dt) {
			rep.Skip(fmt.Sprintf("engine %s does not support type %s", c.engine.Name(), dt))
			log.Info().Str("type", dt.String()).Msg("scenario skipped")
			return rep
		}
	}
	for _, cast := range sc.RequiredCasts {
		if !c.engine.CanCast(cast.From, cast.To) {
			rep.Skip(fmt.Sprintf("engine %s cannot cast %s to %s", c.engine.Name(), cast.From, cast.To))
			log.Info().Str("from", cast.From.String()).Str("to", cast.To.String()).Msg("scenario skipped")
			return rep
		}
	}

	if sc.Fixture != nil {
		if err := c.prepareFixture(sc); err != nil {
			rep.Fail(errors.GetCode(err), err.Error())
			log.Error().Err(err).Str("path", sc.Fixture.Path).Msg("fixture preparation failed")
			return rep
		}
	}

	refCfg := c.referenceConfig(sc)
	accCfg := c.acceleratedConfig(sc)
	rep.ReferenceConfig = refCfg.String()
	rep.AcceleratedConfig = accCfg.String()

	var (
		refPlan, accPlan     *plan.Node
		refResult, accResult *models.ResultSet
		refErr, accErr       error
	)

	tzErr := WithTimeZone(accCfg.TimeZone, func() error {
		log.Debug().Str("config", refCfg.String()).Msg("reference run")
		refPlan, refResult, refErr = c.execute(ctx, sc.Query, refCfg)
		if refErr != nil {
			// Nothing trustworthy to compare against.
			return nil
		}

		log.Debug().Str("config", accCfg.String()).Msg("accelerated run")
		accPlan, accResult, accErr = c.execute(ctx, sc.Query, accCfg)
		return nil
	})
	if tzErr != nil {
		rep.Fail(errors.GetCode(tzErr), tzErr.Error())
		return rep
	}

	rep.ReferencePlan = plan.Render(refPlan)
	if accPlan != nil {
		rep.AcceleratedPlan = plan.Render(accPlan)
	}

	if refErr != nil {
		c.collector.IncrementCounter("parity_execution_failures_total", "config", "reference")
		rep.Fail(errors.CodeExecutionFailed, refErr.Error())
		log.Error().Err(refErr).Msg("reference run failed")
		return rep
	}
	if accErr != nil {
		// An accelerated crash after incorrectly accepting an operator is
		// itself a reportable regression; keep whatever plan was captured.
		c.collector.IncrementCounter("parity_execution_failures_total", "config", "accelerated")
		rep.Fail(errors.CodeExecutionFailed, accErr.Error())
		log.Error().Err(accErr).Msg("accelerated run failed")
	}

	if accPlan != nil {
		c.assertPlan(sc, accPlan, rep, log)
	}

	if accErr == nil {
		c.compareResults(sc, refResult, accResult, rep, log)
	}

	if rep.Passed() {
		log.Info().Dur("duration", time.Since(start)).Msg("scenario passed")
	}
	return rep
}

// prepareFixture encodes the scenario's dataset before the runs start, so
// both executions read the same adapter-produced file.
func (c *Controller) prepareFixture(sc *scenario.Scenario) error {
	rec, err := sc.Fixture.Dataset.Record(nil)
	if err != nil {
		return err
	}
	defer rec.Release()

	var version string
	if sc.Config != nil {
		version = sc.Config.FormatVersion
	}
	return c.fixtures.EncodeParquet(sc.Fixture.Path, rec, version)
}

func (c *Controller) execute(ctx context.Context, q engine.Query, cfg *engine.Config) (*plan.Node, *models.ResultSet, error) {
	p, rs, err := c.engine.Execute(ctx, q, cfg)
	if err != nil {
		if _, ok := err.(*engine.ExecutionError); !ok {
			err = &engine.ExecutionError{Config: cfg, Query: q.SQL, Cause: err}
		}
		return p, rs, err
	}
	return p, rs, nil
}

func (c *Controller) assertPlan(sc *scenario.Scenario, accPlan *plan.Node, rep *report.ScenarioReport, log zerolog.Logger) {
	if err := fallback.AssertFallback(accPlan, sc.AllowedFallbacks); err != nil {
		c.collector.IncrementCounter("parity_fallback_violations_total")
		rep.Fail(errors.GetCode(err), err.Error())
		log.Error().Err(err).Msg("fallback assertion failed")
	}
	for _, op := range sc.ExpectReference {
		if err := fallback.AssertNoUnexpectedAcceleration(accPlan, op); err != nil {
			c.collector.IncrementCounter("parity_unexpected_acceleration_total")
			rep.Fail(errors.GetCode(err), err.Error())
			log.Error().Err(err).Msg("acceleration assertion failed")
		}
	}
}

func (c *Controller) compareResults(sc *scenario.Scenario, expected, actual *models.ResultSet, rep *report.ScenarioReport, log zerolog.Logger) {
	res := c.comparator(sc).Compare(expected, actual)
	rep.Comparison = res
	if err := res.Err(); err != nil {
		c.collector.IncrementCounter("parity_result_mismatches_total")
		rep.Fail(errors.GetCode(err), err.Error())
		log.Error().Err(err).Int("mismatches", len(res.Mismatches)).Msg("result comparison failed")
	}
}

func (c *Controller) comparator(sc *scenario.Scenario) *compare.Comparator {
	opts := c.opts.Compare
	if sc.Tolerance != nil {
		opts.Tolerance = *sc.Tolerance
	}
	if sc.StringifiedFloats {
		opts.StringifiedFloats = true
	}
	return compare.New(opts)
}

// referenceConfig derives the reference-only configuration: acceleration off,
// everything else as the scenario requests.
func (c *Controller) referenceConfig(sc *scenario.Scenario) *engine.Config {
	cfg := sc.Config.Clone()
	if cfg == nil {
		cfg = &engine.Config{}
	}
	cfg.Acceleration = false
	cfg.DisabledOperators = nil
	cfg.Partitions = c.opts.Partitions
	return cfg
}

// acceleratedConfig derives the accelerated configuration with the scenario's
// forced-disable set applied.
func (c *Controller) acceleratedConfig(sc *scenario.Scenario) *engine.Config {
	cfg := sc.Config.Clone()
	if cfg == nil {
		cfg = &engine.Config{}
	}
	cfg.Acceleration = true
	cfg.Partitions = c.opts.Partitions
	return cfg
}
