// Package metrics exposes Prometheus instrumentation for the planner client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "planner"

// Result label values for auth operations.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics holds the counters and gauges the session controller reports into.
type Metrics struct {
	LoginsTotal    *prometheus.CounterVec
	RefreshesTotal *prometheus.CounterVec
	ActiveSession  prometheus.Gauge
}

// New registers the planner metrics with the given registry. Pass
// prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LoginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result",
		}, []string{"result"}),

		RefreshesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Background token refreshes by result",
		}, []string{"result"}),

		ActiveSession: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_active",
			Help:      "1 while an authenticated session is present",
		}),
	}
}
