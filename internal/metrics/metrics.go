package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful gateway operations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed gateway operations.
	OutcomeError = "error"
)

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glassbox_gateway",
			Name:      "operations_total",
			Help:      "Total number of gateway operations handled, partitioned by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	operationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "glassbox_gateway",
			Name:      "operation_seconds",
			Help:      "Gateway operation latency in seconds, including the backend call.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	adaptationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glassbox_gateway",
			Name:      "adaptations_total",
			Help:      "Backend payloads adapted, partitioned by detected wire schema.",
		},
		[]string{"schema"},
	)

	danglingConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "glassbox_gateway",
			Name:      "dangling_connections_total",
			Help:      "Connections whose endpoints are missing from the adapted component list.",
		},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glassbox_gateway",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, partitioned by hit or miss.",
		},
		[]string{"result"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "glassbox_gateway",
			Name:      "active_sessions",
			Help:      "Sessions currently holding a result cache.",
		},
	)
)

// Register attaches gateway collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		operationsTotal,
		operationDurationSeconds,
		adaptationsTotal,
		danglingConnectionsTotal,
		cacheLookupsTotal,
		activeSessions,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveOperation records an operation duration and outcome label.
func ObserveOperation(operation string, duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	operationsTotal.WithLabelValues(operation, label).Inc()
	if duration < 0 {
		duration = 0
	}
	operationDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveAdaptation counts an adapted payload and its dangling connections.
func ObserveAdaptation(schema string, dangling int) {
	adaptationsTotal.WithLabelValues(schema).Inc()
	if dangling > 0 {
		danglingConnectionsTotal.Add(float64(dangling))
	}
}

// ObserveCacheLookup counts a result cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()
}

// SetActiveSessions publishes the current session count.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
