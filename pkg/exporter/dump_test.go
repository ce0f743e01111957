package exporter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump(t *testing.T) {
	registry := prometheus.NewRegistry()

	gauges := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tor_bridge_stats_countries",
		Help: "number of connected users per country",
	}, []string{"country", "tor_instance"})
	gauges.WithLabelValues("us", "default").Set(16)
	registry.MustRegister(gauges)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, registry))

	assert.Equal(t, `# HELP tor_bridge_stats_countries number of connected users per country
# TYPE tor_bridge_stats_countries gauge
tor_bridge_stats_countries{country="us",tor_instance="default"} 16
`, buf.String())
}

func TestDump_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, prometheus.NewRegistry()))
	assert.Empty(t, buf.String())
}

func TestDump_GatherError(t *testing.T) {
	failure := errors.New("permission denied")

	var buf bytes.Buffer
	err := Dump(&buf, prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		return nil, failure
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Empty(t, buf.String())
}
