package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	countrySummaryName = "tor_bridge_stats_country_users"
	countrySummaryHelp = "distribution of the number of users per country"
)

// countrySummaryMetrics builds, per tor instance, the distribution of the
// number of users coming from each country.
//
func countrySummaryMetrics(countries *Family) []prometheus.Metric {
	desc := prometheus.NewDesc(
		countrySummaryName,
		countrySummaryHelp,
		[]string{InstanceLabel}, nil,
	)

	instances := []string{}
	summaries := map[string]*Summary{}

	for _, sample := range countries.Samples {
		summary, found := summaries[sample.Instance]
		if !found {
			summary = NewSummary()
			summaries[sample.Instance] = summary
			instances = append(instances, sample.Instance)
		}

		summary.Insert(sample.Value)
	}

	metrics := make([]prometheus.Metric, 0, len(instances))
	for _, instance := range instances {
		summary := summaries[instance]

		metrics = append(metrics, prometheus.MustNewConstSummary(
			desc,
			summary.Count(), summary.Sum(), summary.Quantiles(),
			instance,
		))
	}

	return metrics
}
