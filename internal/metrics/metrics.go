// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Order lifecycle events.
const (
	EventPlaced    = "placed"
	EventCancelled = "cancelled"
	EventConfirmed = "confirmed"
)

var (
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrapdeal_orders_total",
		Help: "Order lifecycle events by type",
	}, []string{"event"})

	OrderRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrapdeal_order_rejections_total",
		Help: "Order operations rejected by a business rule",
	}, []string{"reason"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrapdeal_cache_lookups_total",
		Help: "Product cache lookups by result (hit, miss)",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scrapdeal_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
