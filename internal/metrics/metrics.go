package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "savings_actions_total",
		Help: "Orchestrated actions by kind and terminal status.",
	}, []string{"kind", "status"})

	snapshotRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "savings_snapshot_refreshes_total",
		Help: "Portfolio snapshot refreshes by outcome.",
	}, []string{"outcome"})

	confirmationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "savings_confirmation_seconds",
		Help:    "Time from submission to receipt.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})
)

func ObserveAction(kind, status string) {
	actionsTotal.WithLabelValues(kind, status).Inc()
}

func ObserveRefresh(outcome string) {
	snapshotRefreshes.WithLabelValues(outcome).Inc()
}

func ObserveConfirmation(seconds float64) {
	confirmationSeconds.Observe(seconds)
}

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
