package collector

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/protobuf/proto"
)

// ensure that we can be served directly, without a registry in between.
//
var _ prometheus.Gatherer = &Collector{}

// Gather implements prometheus' Gatherer interface, building the metric
// families straight from the parsed statistics.
//
// Unlike gathering through a registry, samples sharing the same label values
// are all kept (e.g., `us=5` showing up twice for an instance), leaving it to
// the scraper to decide what to do with them.
//
// Families without samples are left out.
//
func (c *Collector) Gather() ([]*dto.MetricFamily, error) {
	families, err := c.Families(context.Background())
	if err != nil {
		c.log.Error(err, "families")
		return nil, fmt.Errorf("families: %w", err)
	}

	result := []*dto.MetricFamily{}

	for _, family := range families.List() {
		mf, err := toMetricFamily(
			family.Name, family.Help, dto.MetricType_GAUGE,
			familyMetrics(family),
		)
		if err != nil {
			return nil, fmt.Errorf("family '%s': %w", family.Name, err)
		}

		if mf != nil {
			result = append(result, mf)
		}
	}

	if c.countrySummary {
		mf, err := toMetricFamily(
			countrySummaryName, countrySummaryHelp, dto.MetricType_SUMMARY,
			countrySummaryMetrics(families.Countries),
		)
		if err != nil {
			return nil, fmt.Errorf("family '%s': %w", countrySummaryName, err)
		}

		if mf != nil {
			result = append(result, mf)
		}
	}

	return result, nil
}

// toMetricFamily writes const metrics into their protobuf form, giving back
// nil if there's nothing to write.
//
func toMetricFamily(
	name, help string, kind dto.MetricType, metrics []prometheus.Metric,
) (*dto.MetricFamily, error) {
	if len(metrics) == 0 {
		return nil, nil
	}

	mf := &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   kind.Enum(),
		Metric: make([]*dto.Metric, 0, len(metrics)),
	}

	for _, metric := range metrics {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err != nil {
			return nil, fmt.Errorf("write: %w", err)
		}

		mf.Metric = append(mf.Metric, pb)
	}

	return mf, nil
}
