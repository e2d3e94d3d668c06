package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's prometheus collectors.
type Metrics struct {
	SessionsCreated prometheus.Counter
	ActiveSessions  prometheus.Gauge
	Suggestions     prometheus.Counter
	Observations    prometheus.Counter
	Errors          *prometheus.CounterVec
}

// NewMetrics registers the server's collectors with the given
// registerer. Pass nil to use the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "boreal_sessions_created_total",
			Help: "Number of optimization sessions created.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "boreal_active_sessions",
			Help: "Number of optimization sessions currently held.",
		}),
		Suggestions: factory.NewCounter(prometheus.CounterOpts{
			Name: "boreal_suggestions_total",
			Help: "Number of candidate point batches served.",
		}),
		Observations: factory.NewCounter(prometheus.CounterOpts{
			Name: "boreal_observations_total",
			Help: "Number of observations appended across all sessions.",
		}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "boreal_errors_total",
			Help: "Number of request errors by optimization error kind.",
		}, []string{"kind"}),
	}
}
