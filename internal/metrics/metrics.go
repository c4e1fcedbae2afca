// Package metrics exposes Prometheus counters for run and outcome
// accounting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dca_runs_total",
		Help: "Total number of DCA invocations by result",
	}, []string{"result"})

	OutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dca_outcomes_total",
		Help: "Total number of per-currency outcomes",
	}, []string{"currency", "outcome"})

	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dca_orders_placed_total",
		Help: "Total number of limit buy orders placed",
	}, []string{"pair"})
)

// Run result label values.
const (
	RunCompleted   = "completed"
	RunOffHours    = "off_hours"
	RunFailed      = "failed"
	RunConfigError = "config_error"
)
