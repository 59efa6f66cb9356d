// Package metrics exposes the backend's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the shop backend collectors.
type Metrics struct {
	Requests        *prometheus.CounterVec
	OrdersCompleted prometheus.Counter
	OrderTotal      prometheus.Histogram
}

// New registers and returns the backend collectors.
func New() *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamershub",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamershub",
		Name:      "orders_completed_total",
		Help:      "Total number of completed orders.",
	})
	total := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gamershub",
		Name:      "order_total_dollars",
		Help:      "Distribution of completed order totals.",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000},
	})

	prometheus.MustRegister(requests, completed, total)
	return &Metrics{Requests: requests, OrdersCompleted: completed, OrderTotal: total}
}

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
