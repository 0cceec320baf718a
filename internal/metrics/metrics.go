// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package metrics defines the Prometheus instrumentation surface:
// HTTP endpoint latency and throughput, graph store operations,
// recommendation serving and catalog upstream health.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Graph Store Metrics
	GraphOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graph_operation_duration_seconds",
			Help:    "Duration of graph store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "backend"},
	)

	GraphOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_operation_errors_total",
			Help: "Total number of graph store operation errors",
		},
		[]string{"operation", "backend"},
	)

	// Recommendation Metrics
	RecommendationsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Total number of recommendation slates served",
		},
	)

	RecommendationSlateSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_slate_size",
			Help:    "Number of films per served recommendation slate",
			Buckets: []float64{0, 1, 2, 5, 10, 15, 20},
		},
	)

	// Catalog Upstream Metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total number of upstream catalog requests",
		},
		[]string{"endpoint", "result"}, // result: "success", "failure", "rejected"
	)

	// Auth Metrics
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of register and login attempts",
		},
		[]string{"operation", "result"},
	)
)

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveGraphOperation records one graph store operation.
func ObserveGraphOperation(operation, backend string, duration time.Duration, err error) {
	GraphOperationDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
	if err != nil {
		GraphOperationErrors.WithLabelValues(operation, backend).Inc()
	}
}
