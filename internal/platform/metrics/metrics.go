package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	ProxiedRequests *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec

	TokenExchanges      prometheus.Counter
	TokenExchangeErrors prometheus.Counter
	TokenCacheHits      prometheus.Counter

	SyncUpserts        *prometheus.CounterVec
	SyncFailures       prometheus.Counter
	AuditWriteFailures prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ProxiedRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "helios_gateway_requests_total",
			Help: "Proxied gateway requests by upstream family and status class",
		}, []string{"family", "status_class"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helios_gateway_request_duration_seconds",
			Help:    "End-to-end latency of dispatched gateway requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"family"}),
		TokenExchanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "helios_token_exchanges_total",
			Help: "Total upstream token exchanges performed",
		}),
		TokenExchangeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "helios_token_exchange_errors_total",
			Help: "Total failed upstream token exchanges",
		}),
		TokenCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "helios_token_cache_hits_total",
			Help: "Token cache lookups served without an exchange",
		}),
		SyncUpserts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "helios_sync_upserts_total",
			Help: "Directory entities upserted from proxied responses, by entity type",
		}, []string{"entity_type"}),
		SyncFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "helios_sync_failures_total",
			Help: "Sync extraction or persistence failures (non-fatal)",
		}),
		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "helios_audit_write_failures_total",
			Help: "Audit record persistence failures (non-fatal)",
		}),
	}
}
