package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/cirocosta/tor-bridge-stats-exporter/pkg/collector"
	"github.com/cirocosta/tor-bridge-stats-exporter/pkg/exporter"
)

type command struct{}

func (c *command) Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tor-bridge-stats-exporter",
		Short:        "Prometheus exporter for tor bridge statistics",
		SilenceUsage: true,
		RunE:         c.RunE,
	}

	cmd.Flags().String("address",
		"", "address to listen on (default: all)")

	cmd.Flags().Int("port",
		defaultPort, "port to listen on")

	cmd.Flags().String("telemetry-path",
		"/metrics", "endpoint at which prometheus metrics are served")

	cmd.Flags().Bool("dump-data",
		false, "print collected data and exit")

	cmd.Flags().String("instances-dir",
		collector.DefaultInstancesDir, "directory containing the data "+
			"directories of named tor instances")
	_ = cmd.MarkFlagDirname("instances-dir")

	cmd.Flags().String("default-dir",
		collector.DefaultDataDir, "data directory of the default tor "+
			"instance")
	_ = cmd.MarkFlagDirname("default-dir")

	cmd.Flags().Int("parallelism",
		1, "maximum number of statistics files read concurrently")

	cmd.Flags().Bool("country-summary",
		false, "expose the distribution of users per country of "+
			"each instance")

	cmd.Flags().String("log-level",
		"info", "log level (debug, info, warn, error)")

	cmd.Flags().String("config",
		"", "filepath of a yaml configuration file")
	_ = cmd.MarkFlagFilename("config", "yaml", "yml")

	return cmd
}

func (c *command) RunE(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("new logger: %w", err)
	}

	bridgeCollector, err := collector.New(
		collector.WithLogger(log.WithName("collector")),
		collector.WithInstancesDir(cfg.InstancesDir),
		collector.WithDataDir(cfg.DefaultDir),
		collector.WithParallelism(cfg.Parallelism),
		collector.WithCountrySummary(cfg.CountrySummary),
	)
	if err != nil {
		return fmt.Errorf("new collector: %w", err)
	}

	registry := prometheus.NewRegistry()

	err = registry.Register(collectors.NewGoCollector())
	if err != nil {
		return fmt.Errorf("register go collector: %w", err)
	}

	err = registry.Register(collectors.NewProcessCollector(
		collectors.ProcessCollectorOpts{},
	))
	if err != nil {
		return fmt.Errorf("register process collector: %w", err)
	}

	// bridge stats are gathered outside of the registry so that repeated
	// label sets are served rather than rejected.
	gatherer := exporter.Concat(bridgeCollector, registry)

	if cfg.DumpData {
		if err := exporter.Dump(cmd.OutOrStdout(), gatherer); err != nil {
			return fmt.Errorf("dump: %w", err)
		}

		return nil
	}

	return serve(cfg, log, gatherer)
}

func serve(cfg config, log logr.Logger, gatherer prometheus.Gatherer) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	prometheusExporter, err := exporter.New(
		exporter.WithBindAddress(cfg.BindAddress()),
		exporter.WithTelemetryPath(cfg.TelemetryPath),
		exporter.WithGatherer(gatherer),
		exporter.WithLogger(log.WithName("exporter")),
	)
	if err != nil {
		return fmt.Errorf("new exporter: %w", err)
	}
	defer prometheusExporter.Close()

	err = prometheusExporter.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("prometheus exporter run: %w", err)
	}

	return nil
}
