package exporter

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/multierr"
)

// Concat gives back a gatherer that appends the families of each of the
// gatherers given, in order.
//
// As opposed to `prometheus.Gatherers`, no consistency checks are performed
// across the results: repeated label sets are served as they come. A
// failing gatherer doesn't prevent the others from being served; all errors
// are returned combined.
//
func Concat(gatherers ...prometheus.Gatherer) prometheus.Gatherer {
	return prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		var (
			result []*dto.MetricFamily
			errs   error
		)

		for idx, gatherer := range gatherers {
			families, err := gatherer.Gather()
			if err != nil {
				errs = multierr.Append(errs,
					fmt.Errorf("gatherer %d: %w", idx, err))
			}

			result = append(result, families...)
		}

		return result, errs
	})
}
