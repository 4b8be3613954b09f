// Package metrics defines the prometheus collectors shared across the
// service and exposes the /metrics handler.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts requests by route (art, dat, measurement,
	// article) and response status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ksmserver_requests_total",
		Help: "Total requests handled, by route and HTTP status.",
	}, []string{"route", "status"})

	// BytesServedTotal counts response body bytes streamed per pool.
	BytesServedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ksmserver_bytes_served_total",
		Help: "Total asset body bytes written to clients, by pool.",
	}, []string{"pool"})

	// CacheHitsTotal counts content cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ksmserver_cache_hits_total",
		Help: "Total content cache lookup hits.",
	})

	// CacheMissesTotal counts content cache misses, including stale entries.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ksmserver_cache_misses_total",
		Help: "Total content cache lookup misses.",
	})

	// CacheEvictionsTotal counts entries evicted under weight pressure.
	CacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ksmserver_cache_evictions_total",
		Help: "Total content cache entries evicted.",
	})

	// CacheWeightBytes tracks the current total cache weight.
	CacheWeightBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ksmserver_cache_weight_bytes",
		Help: "Current content cache weight in bytes.",
	})

	// CacheEntries tracks the current number of cache entries.
	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ksmserver_cache_entries",
		Help: "Current number of content cache entries.",
	})
)

// Handler adapts the prometheus exposition handler for gin.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
