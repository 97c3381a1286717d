// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package metrics provides Prometheus instrumentation for:
//   - API endpoint latency and throughput
//   - Database query performance
//   - WebSocket connections, rooms, and broadcast fan-out
//   - Message and upload volumes
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of database query errors",
		},
		[]string{"operation", "table"},
	)

	// WebSocket / hub metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_rooms",
			Help: "Current number of conversation rooms with at least one member",
		},
	)

	WSEventsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_sent_total",
			Help: "Total number of WebSocket events fanned out to clients",
		},
		[]string{"type"},
	)

	WSEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_dropped_total",
			Help: "Total number of WebSocket events dropped (full buffers, closed clients, rate limits)",
		},
		[]string{"type", "reason"},
	)

	// Chat domain metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total number of messages persisted",
		},
		[]string{"type"},
	)

	MessagesMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_marked_read_total",
			Help: "Total number of messages flipped to read",
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Total number of upload attempts",
		},
		[]string{"kind", "result"},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upload_bytes_total",
			Help: "Total number of bytes accepted by the upload endpoints",
		},
	)

	// Sync loop metrics
	SyncFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_fetches_total",
			Help: "Total number of sync poll fetches by target and result",
		},
		[]string{"target", "result"},
	)

	SyncBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_breaker_state",
			Help: "Sync circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordAPIRequest records metrics for a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records the duration (and error, if any) of a database query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordMessageSent records a persisted message by content type.
func RecordMessageSent(messageType string) {
	MessagesSent.WithLabelValues(messageType).Inc()
}

// RecordMessagesMarkedRead records a bulk read flip.
func RecordMessagesMarkedRead(count int64) {
	if count > 0 {
		MessagesMarkedRead.Add(float64(count))
	}
}

// RecordUpload records an upload attempt outcome. kind is "attachment" or
// "avatar"; result is "accepted", "rejected_size", or "rejected_type".
func RecordUpload(kind, result string, bytes int64) {
	UploadsTotal.WithLabelValues(kind, result).Inc()
	if result == "accepted" {
		UploadBytes.Add(float64(bytes))
	}
}
