// Package main provides the entry point for the parity differential harness.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TFMV/parity/cmd/parity/config"
	"github.com/TFMV/parity/pkg/compare"
	"github.com/TFMV/parity/pkg/engine/duckdb"
	"github.com/TFMV/parity/pkg/harness"
	"github.com/TFMV/parity/pkg/metrics"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "parity",
	Short: "Parity differential harness",
	Long: `A differential-testing harness for an accelerated columnar query engine.

Parity runs each scenario twice, once with acceleration disabled and once
enabled, then verifies the operator fallback partition and the value-level
equivalence of the two result sets.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the built-in scenario suite",
	Long: `Run the built-in scenario suite against the bundled DuckDB engine.

Example:
  parity run --report ./report.json
  parity run --database ./parity.db --log-level debug`,
	RunE: runHarness,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Flag defaults come from the one authoritative default configuration.
	def := config.DefaultConfig()
	runCmd.Flags().StringP("config", "c", "", "config file path")
	runCmd.Flags().String("database", def.Database, "DuckDB database path (empty for in-memory)")
	runCmd.Flags().String("log-level", def.LogLevel, "log level (debug, info, warn, error)")
	runCmd.Flags().String("scratch", def.ScratchDir, "scratch directory for fixture files (empty for a temp dir)")
	runCmd.Flags().String("report", def.ReportPath, "write the full JSON report to this path")
	runCmd.Flags().Float64("abs-tolerance", def.AbsTolerance, "absolute floating-point tolerance")
	runCmd.Flags().Float64("rel-tolerance", def.RelTolerance, "relative floating-point tolerance")
	runCmd.Flags().Int("max-mismatches", def.MaxMismatches, "cell mismatches collected per scenario")
	runCmd.Flags().Bool("metrics", def.Metrics.Enabled, "enable Prometheus metrics")
	runCmd.Flags().String("metrics-address", def.Metrics.Address, "metrics server address")

	if err := viper.BindPFlags(runCmd.Flags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("PARITY")
	viper.AutomaticEnv()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Parity Differential Harness\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runHarness(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogging(cfg.LogLevel)
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Msg("Starting parity harness")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector metrics.Collector
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector()
		metricsServer = metrics.NewServer(cfg.Metrics.Address)
		go func() {
			logger.Info().Str("address", cfg.Metrics.Address).Msg("Starting metrics server")
			if err := metricsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start metrics server")
			}
		}()
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				logger.Error().Err(err).Msg("Error stopping metrics server")
			}
		}()
	} else {
		collector = metrics.NewNoOpCollector()
	}

	eng, err := duckdb.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer eng.Close()

	scratch := cfg.ScratchDir
	if scratch == "" {
		scratch, err = os.MkdirTemp("", "parity")
		if err != nil {
			return fmt.Errorf("failed to create scratch directory: %w", err)
		}
		defer os.RemoveAll(scratch)
	}

	controller := harness.NewController(eng, logger, collector, harness.Options{
		Compare: compare.Options{
			Tolerance:     compare.Tolerance{Abs: cfg.AbsTolerance, Rel: cfg.RelTolerance},
			MaxMismatches: cfg.MaxMismatches,
			Location:      time.UTC,
		},
	})

	rep := harness.BuiltinSuite(scratch).Run(ctx, controller)

	if cfg.ReportPath != "" {
		f, err := os.Create(cfg.ReportPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		if err := rep.WriteJSON(f); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info().Str("path", cfg.ReportPath).Msg("Report written")
	}
	if err := rep.WriteSummary(os.Stdout); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if !rep.OK() {
		return fmt.Errorf("%d of %d scenarios failed", rep.Failed, len(rep.Scenarios))
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &config.Config{
		Database:      viper.GetString("database"),
		LogLevel:      viper.GetString("log-level"),
		ScratchDir:    viper.GetString("scratch"),
		ReportPath:    viper.GetString("report"),
		AbsTolerance:  viper.GetFloat64("abs-tolerance"),
		RelTolerance:  viper.GetFloat64("rel-tolerance"),
		MaxMismatches: viper.GetInt("max-mismatches"),
		Metrics: config.MetricsConfig{
			Enabled: viper.GetBool("metrics"),
			Address: viper.GetString("metrics-address"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "parity")

	if logLevel == zerolog.DebugLevel {
		logger = logger.Caller()
	}

	return logger.Logger()
}
