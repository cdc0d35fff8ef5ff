package metrics

import (
	"net/http"
	"time"

	"telegram-bridge/internal/cache"
	"telegram-bridge/internal/pool"
	"telegram-bridge/internal/ratelimit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry collects the core's metrics. Counter-style component stats are
// published as gauges synced from their snapshots, since the components own
// the authoritative counters.
type Registry struct {
	reg *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	MessagesSent    prometheus.Counter

	cacheEntries   prometheus.Gauge
	cacheHits      prometheus.Gauge
	cacheMisses    prometheus.Gauge
	cacheEvictions prometheus.Gauge

	poolActive    prometheus.Gauge
	poolAvailable prometheus.Gauge
	poolUnhealthy prometheus.Gauge

	limiterRequests   *prometheus.GaugeVec
	limiterDelayed    *prometheus.GaugeVec
	limiterFloodWaits *prometheus.GaugeVec
}

// NewRegistry constructs and registers all metrics on a private registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bridge_requests_total",
			Help: "Total requests by tool and status",
		}, []string{"tool", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telegram_bridge_request_duration_seconds",
			Help:    "Request duration by tool",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"tool"}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bridge_messages_sent_total",
			Help: "Total messages sent",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telegram_bridge_cache_entries",
			Help: "Number of entries in the cache",
		}),
		cacheHits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telegram_bridge_cache_hits",
			Help: "Cumulative cache hits",
		}),
		cacheMisses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telegram_bridge_cache_misses",
			Help: "Cumulative cache misses",
		}),
		cacheEvictions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telegram_bridge_cache_evictions",
			Help: "Cumulative cache evictions",
		}),
		poolActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telegram_bridge_active_connections",
			Help: "Pool handles currently checked out",
		}),
		poolAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telegram_bridge_available_connections",
			Help: "Pool handles waiting in the availability queue",
		}),
		poolUnhealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telegram_bridge_unhealthy_connections",
			Help: "Pool handles currently disconnected",
		}),
		limiterRequests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telegram_bridge_rate_requests",
			Help: "Cumulative admitted requests per category",
		}, []string{"category"}),
		limiterDelayed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telegram_bridge_rate_delayed",
			Help: "Cumulative delayed admissions per category",
		}, []string{"category"}),
		limiterFloodWaits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telegram_bridge_flood_wait_errors",
			Help: "Cumulative flood-wait backoffs per category",
		}, []string{"category"}),
	}
	r.reg.MustRegister(
		r.Requests, r.RequestDuration, r.MessagesSent,
		r.cacheEntries, r.cacheHits, r.cacheMisses, r.cacheEvictions,
		r.poolActive, r.poolAvailable, r.poolUnhealthy,
		r.limiterRequests, r.limiterDelayed, r.limiterFloodWaits,
	)
	return r
}

// ObserveRequest records one tool invocation.
func (r *Registry) ObserveRequest(tool, status string, d time.Duration) {
	r.Requests.WithLabelValues(tool, status).Inc()
	r.RequestDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// SyncCache publishes a cache snapshot.
func (r *Registry) SyncCache(s cache.Stats) {
	r.cacheEntries.Set(float64(s.Entries))
	r.cacheHits.Set(float64(s.Hits))
	r.cacheMisses.Set(float64(s.Misses))
	r.cacheEvictions.Set(float64(s.Evictions))
}

// SyncPool publishes a pool health snapshot.
func (r *Registry) SyncPool(h pool.Health) {
	r.poolActive.Set(float64(h.InUse))
	r.poolAvailable.Set(float64(h.Available))
	r.poolUnhealthy.Set(float64(h.Unhealthy))
}

// SyncLimiters publishes per-category limiter snapshots.
func (r *Registry) SyncLimiters(stats map[string]ratelimit.Stats) {
	for category, s := range stats {
		r.limiterRequests.WithLabelValues(category).Set(float64(s.TotalRequests))
		r.limiterDelayed.WithLabelValues(category).Set(float64(s.DelayedRequests))
		r.limiterFloodWaits.WithLabelValues(category).Set(float64(s.FloodWaitErrors))
	}
}

// Handler serves the exposition endpoint for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
