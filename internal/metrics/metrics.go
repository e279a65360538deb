// Package metrics provides Prometheus metrics for the catalog service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreRequestsTotal tracks requests sent to the REST data store
	StoreRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billboard",
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the data store by table, method and status",
		},
		[]string{"table", "method", "status"},
	)

	// StoreRequestDuration tracks data store request latency in seconds
	StoreRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "billboard",
			Subsystem: "store",
			Name:      "request_duration_seconds",
			Help:      "Duration of data store requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"table", "method"},
	)

	// CatalogFailuresTotal counts operations absorbed by the catalog's
	// fail-soft boundary
	CatalogFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billboard",
			Subsystem: "catalog",
			Name:      "failures_total",
			Help:      "Total number of catalog operations that failed and were reported as absent/false",
		},
		[]string{"operation"},
	)

	// EventsPublishedTotal tracks catalog events sent to the broker by outcome
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billboard",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of catalog events published by outcome",
		},
		[]string{"outcome"},
	)

	// AuditRecordsTotal tracks events consumed into the audit log by outcome
	AuditRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billboard",
			Subsystem: "audit",
			Name:      "records_total",
			Help:      "Total number of consumed catalog events by outcome",
		},
		[]string{"outcome"},
	)
)
