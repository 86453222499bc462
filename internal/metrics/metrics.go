// Package metrics defines the prometheus metrics recorded while parsing load
// plans and generating reports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	LoadPlansParsed  prometheus.Counter
	ShipmentsParsed  prometheus.Counter
	LinesDropped     prometheus.Counter
	ReportsGenerated *prometheus.CounterVec
	ParseDuration    prometheus.Histogram
	DateFallbacks    prometheus.Counter
	ErrorsCount      *prometheus.CounterVec
}

// New registers the metrics on reg. Pass prometheus.DefaultRegisterer in
// binaries and a fresh prometheus.NewRegistry() in tests.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoadPlansParsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loadplans_parsed_total",
			Help:      "The total number of load plans parsed",
		}),
		ShipmentsParsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipments_parsed_total",
			Help:      "The total number of shipment records extracted",
		}),
		LinesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_dropped_total",
			Help:      "Lines inside the shipment table that matched no rule",
		}),
		ReportsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "The total number of reports generated",
		}, []string{"kind"}),
		ParseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time taken to parse a load plan",
			Buckets:   prometheus.DefBuckets,
		}),
		DateFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "date_fallbacks_total",
			Help:      "Flight dates that could not be parsed and fell back to today",
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}

// NewNop returns metrics registered on a private registry, for callers that
// do not export them.
func NewNop() *Metrics {
	return New("loadplan", prometheus.NewRegistry())
}
