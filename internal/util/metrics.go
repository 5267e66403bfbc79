package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reservations_total",
		Help: "Total number of applied inventory reservations",
	}, []string{"kind"})

	ReservationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reservations_failed_total",
		Help: "Total number of refused or failed reservations",
	}, []string{"reason"})

	ReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_reserve_latency_seconds",
		Help:    "Latency of inventory reservation attempts",
		Buckets: prometheus.DefBuckets,
	})

	RelationTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relation_toggles_total",
		Help: "Total number of relation toggles by kind and outcome",
	}, []string{"kind", "outcome"})

	RatingsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratings_submitted_total",
		Help: "Total number of accepted rating submissions",
	})

	AggregateCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_aggregate_cache_hits_total",
		Help: "Total number of rating aggregate cache hits",
	})

	AggregateCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_aggregate_cache_misses_total",
		Help: "Total number of rating aggregate cache misses",
	})

	PurchasesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchases_recorded_total",
		Help: "Total number of purchase history rows recorded from events",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
