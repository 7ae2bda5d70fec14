// Package metrics provides Prometheus metrics for azfluent clients.
//
// Collectors are always updated. They are only exported once Init registers them on
// Registry, so library users who do not scrape metrics pay nothing but the counters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the Prometheus registry holding all azfluent metrics.
	Registry = prometheus.NewRegistry()

	initOnce sync.Once
	initErr  error
)

// Init registers every azfluent collector, plus Go runtime collectors, on Registry.
// Subsequent calls return the result of the first.
func Init() error {
	initOnce.Do(func() {
		initErr = register(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		if initErr != nil {
			return
		}
		if initErr = registerRequestMetrics(); initErr != nil {
			return
		}
		if initErr = registerOperationMetrics(); initErr != nil {
			return
		}
	})
	return initErr
}

// MustInit initializes metrics and panics on error.
func MustInit() {
	if err := Init(); err != nil {
		panic("failed to initialize metrics: " + err.Error())
	}
}

func register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := Registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}
