package exporter

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Dump gathers the metrics once and writes them to `w` in the prometheus
// text exposition format.
//
// Whatever could be gathered is written even if gathering failed, in which
// case the gathering error is returned afterwards.
//
func Dump(w io.Writer, gatherer prometheus.Gatherer) error {
	families, gatherErr := gatherer.Gather()

	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("metric family to text '%s': %w",
				family.GetName(), err)
		}
	}

	if gatherErr != nil {
		return fmt.Errorf("gather: %w", gatherErr)
	}

	return nil
}
