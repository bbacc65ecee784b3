package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the coordination layer.
type Metrics struct {
	Requests            *prometheus.CounterVec
	RequestLatency      *prometheus.HistogramVec
	CredentialRefreshes prometheus.Counter
	AuthFailures        prometheus.Counter
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	SessionsCreated     prometheus.Counter
	SessionsRotated     prometheus.Counter
	ConfigWarnings      prometheus.Counter
}

// New creates and registers all Prometheus metrics on reg. Tests pass a
// private registry so suites do not collide on the default one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trolley_requests_total",
			Help: "Total number of API requests, labeled by outcome",
		}, []string{"outcome"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trolley_request_latency_seconds",
			Help:    "Latency of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		CredentialRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "trolley_credential_refreshes_total",
			Help: "Total number of credential refresh attempts",
		}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "trolley_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "trolley_cart_cache_hits_total",
			Help: "Total number of valid cart cache reads",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "trolley_cart_cache_misses_total",
			Help: "Total number of cart cache misses",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "trolley_shopping_sessions_created_total",
			Help: "Total number of shopping session ids generated",
		}),
		SessionsRotated: factory.NewCounter(prometheus.CounterOpts{
			Name: "trolley_shopping_sessions_rotated_total",
			Help: "Total number of shopping session ids cleared",
		}),
		ConfigWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "trolley_config_warnings_total",
			Help: "Total number of base URL misconfiguration warnings emitted",
		}),
	}
}

// ObserveRequest records outcome and latency for a completed request.
func (m *Metrics) ObserveRequest(outcome, path string, seconds float64) {
	m.Requests.WithLabelValues(outcome).Inc()
	m.RequestLatency.WithLabelValues(path).Observe(seconds)
}
