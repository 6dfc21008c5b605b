package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "offlinesync"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache reads by outcome (hit, miss, expired, corrupt).",
		},
		[]string{"result"},
	)

	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Queued operations dispatched to the remote backend by entity and result.",
		},
		[]string{"entity", "result"},
	)

	drains = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drains_total",
			Help:      "Drain requests by outcome (ran, offline, busy).",
		},
		[]string{"outcome"},
	)

	pending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending",
			Help:      "Operations waiting in the mutation queue.",
		},
	)

	online = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_online",
			Help:      "1 while the backend is reachable.",
		},
	)
)

// Dispatch result labels.
const (
	ResultSuccess    = "success"
	ResultFailure    = "failure"
	ResultDropped    = "dropped"
	ResultUnroutable = "unroutable"
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, cacheLookups, dispatches, drains, pending, online)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncCache(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

func IncDispatch(entity, result string) {
	dispatches.WithLabelValues(entity, result).Inc()
}

func IncDrain(outcome string) {
	drains.WithLabelValues(outcome).Inc()
}

func SetPending(n int) {
	pending.Set(float64(n))
}

func SetOnline(isOnline bool) {
	if isOnline {
		online.Set(1)
		return
	}
	online.Set(0)
}
