package collector

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Collector implements the prometheus Collector interface, providing tor
// bridge statistics whenever a prometheus scrape is received.
//
type Collector struct {
	// fs is the filesystem that statistics files are discovered on and
	// read from.
	//
	fs afero.Fs

	// instancesDir is the directory containing one data directory per
	// named tor instance.
	//
	instancesDir string

	// dataDir is the data directory of the default tor instance.
	//
	dataDir string

	// parallelism is the maximum number of statistics files read at the
	// same time during a collection.
	//
	parallelism int

	// countrySummary enables the per-instance summary of users per
	// country.
	//
	countrySummary bool

	log logr.Logger
}

// ensure that we implement prometheus' collector interface.
//
var _ prometheus.Collector = &Collector{}

// Option is a type used by functional arguments to mutate the collector to
// override default behavior.
//
type Option func(c *Collector)

// WithFs overrides the filesystem used for discovering and reading
// statistics files (defaults to the OS filesystem).
//
func WithFs(v afero.Fs) func(c *Collector) {
	return func(c *Collector) {
		c.fs = v
	}
}

// WithInstancesDir overrides the directory under which named tor instances
// are looked for.
//
func WithInstancesDir(v string) func(c *Collector) {
	return func(c *Collector) {
		c.instancesDir = v
	}
}

// WithDataDir overrides the data directory of the default tor instance.
//
func WithDataDir(v string) func(c *Collector) {
	return func(c *Collector) {
		c.dataDir = v
	}
}

// WithParallelism sets how many statistics files can be read concurrently.
// Values lower than 1 are treated as 1.
//
func WithParallelism(v int) func(c *Collector) {
	return func(c *Collector) {
		if v < 1 {
			v = 1
		}

		c.parallelism = v
	}
}

// WithCountrySummary enables the `tor_bridge_stats_country_users` summary.
//
func WithCountrySummary(v bool) func(c *Collector) {
	return func(c *Collector) {
		c.countrySummary = v
	}
}

// WithLogger overrides the default development logger.
//
func WithLogger(v logr.Logger) func(c *Collector) {
	return func(c *Collector) {
		c.log = v
	}
}

// New instantiates a collector with the defaults of a debian-like tor
// installation, mutated by the options given.
//
func New(opts ...Option) (*Collector, error) {
	defaultLogger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("zap new development: %w", err)
	}

	c := &Collector{
		fs:           afero.NewOsFs(),
		instancesDir: DefaultInstancesDir,
		dataDir:      DefaultDataDir,
		parallelism:  1,
		log:          zapr.NewLogger(defaultLogger.Named("collector")),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Register creates a collector and registers it with the given registry,
// making it available for an exporter to collect our metrics.
//
func Register(registerer prometheus.Registerer, opts ...Option) (*Collector, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	if err := registerer.Register(c); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	return c, nil
}

// Describe implements the Describe function of the Collector interface.
//
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	// Because we can present the description of the metrics at collection
	// time, we don't need to write anything to the channel.
}

// Families discovers the tor instances, parses their statistics files and
// assembles the samples into the three bridge stats families.
//
// Failing to read any of the files fails the whole collection.
//
func (c *Collector) Families(ctx context.Context) (Families, error) {
	sources, err := NewDiscoverer(c.fs, c.instancesDir, c.dataDir).Discover()
	if err != nil {
		return Families{}, fmt.Errorf("discover: %w", err)
	}

	stats := make([]InstanceStats, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)

	for idx, source := range sources {
		idx, source := idx, source

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			c.log.V(1).WithValues(
				"instance", source.Name,
				"path", source.Path,
			).Info("parsing")

			lines, err := ParseFile(c.fs, source)
			if err != nil {
				return fmt.Errorf("instance '%s': %w", source.Name, err)
			}

			stats[idx] = InstanceStats{
				Source: source,
				Lines:  lines,
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Families{}, fmt.Errorf("wait: %w", err)
	}

	return Assemble(stats), nil
}

// Collect implements the Collect function of the Collector interface.
//
// Here is where all of the statistics files are read, every single time a
// scrape comes in.
//
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	families, err := c.Families(context.Background())
	if err != nil {
		c.log.Error(err, "families")

		ch <- prometheus.NewInvalidMetric(
			prometheus.NewDesc(
				"tor_bridge_stats_error",
				"error collecting tor bridge statistics",
				nil, nil,
			),
			err,
		)

		return
	}

	for _, family := range families.List() {
		for _, metric := range familyMetrics(family) {
			ch <- metric
		}
	}

	if c.countrySummary {
		for _, metric := range countrySummaryMetrics(families.Countries) {
			ch <- metric
		}
	}
}

// familyMetrics builds one const gauge per sample of a family.
//
func familyMetrics(family *Family) []prometheus.Metric {
	desc := prometheus.NewDesc(
		family.Name,
		family.Help,
		[]string{family.Label, InstanceLabel}, nil,
	)

	metrics := make([]prometheus.Metric, 0, len(family.Samples))
	for _, sample := range family.Samples {
		metrics = append(metrics, prometheus.MustNewConstMetric(
			desc,
			prometheus.GaugeValue,
			sample.Value,
			sample.Key, sample.Instance,
		))
	}

	return metrics
}
