// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package metrics exposes Prometheus instrumentation for the refresh
// pipeline and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Refresh pipeline metrics

	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traktboard_refresh_total",
			Help: "Total refresh invocations by user and outcome",
		},
		[]string{"user", "outcome"}, // outcome: success, non_zero_exit, timeout, launch_failure
	)

	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "traktboard_refresh_duration_seconds",
			Help:    "Duration of refresh subprocess invocations in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"user"},
	)

	SchedulerTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traktboard_scheduler_ticks_total",
			Help: "Total scheduler ticks fired",
		},
	)

	SchedulerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "traktboard_scheduler_running",
			Help: "Whether the refresh scheduler is running (1) or stopped (0)",
		},
	)

	// Snapshot cache metrics

	SnapshotItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "traktboard_snapshot_items",
			Help: "Number of history items in the last loaded snapshot per user",
		},
		[]string{"user"},
	)

	CacheFreshHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traktboard_cache_fresh_hits_total",
			Help: "Web refresh requests short-circuited by a fresh snapshot",
		},
	)

	// HTTP API metrics

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traktboard_http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "traktboard_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "traktboard_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Trakt client metrics

	TraktRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traktboard_trakt_requests_total",
			Help: "Total Trakt API requests by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)
)

// RecordRefresh records one refresh invocation outcome.
func RecordRefresh(user, outcome string, duration time.Duration) {
	RefreshTotal.WithLabelValues(user, outcome).Inc()
	if duration > 0 {
		RefreshDuration.WithLabelValues(user).Observe(duration.Seconds())
	}
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest increments the in-flight gauge and returns a
// function that decrements it.
func TrackActiveRequest() func() {
	HTTPActiveRequests.Inc()
	return HTTPActiveRequests.Dec
}
