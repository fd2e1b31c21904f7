// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package metrics provides Prometheus instrumentation for the
// recommendation engine: queue throughput, scoring latency, snapshot tier
// health, congestion sampling, and the API surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Update queue metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hestia_queue_depth",
			Help: "Number of catalog refresh jobs waiting in the update queue",
		},
	)

	QueueJobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hestia_queue_jobs_submitted_total",
			Help: "Total number of catalog refresh jobs submitted",
		},
	)

	QueueJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hestia_queue_jobs_total",
			Help: "Total number of processed jobs by result",
		},
		[]string{"result"}, // "completed", "failed"
	)

	QueueJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hestia_queue_job_duration_seconds",
			Help:    "Duration of catalog refresh jobs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// Scoring and recommendation metrics
	ScoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hestia_score_duration_seconds",
			Help:    "Duration of per-property category scoring in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hestia_recommend_requests_total",
			Help: "Total number of recommendation requests by result",
		},
		[]string{"result"}, // "ok", "empty", "error"
	)

	// Snapshot tier metrics
	SnapshotLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hestia_snapshot_loads_total",
			Help: "Snapshot load attempts by dataset, tier, and result",
		},
		[]string{"dataset", "tier", "result"}, // tier: "local", "remote", "source"
	)

	SnapshotSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hestia_snapshot_saves_total",
			Help: "Snapshot save attempts by dataset, tier, and result",
		},
		[]string{"dataset", "tier", "result"},
	)

	// Congestion sampler metrics
	SamplerCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hestia_sampler_cycles_total",
			Help: "Congestion sampling cycles by result",
		},
		[]string{"result"}, // "ok", "partial", "failed"
	)

	SamplerObservations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hestia_sampler_observations_total",
			Help: "Congestion observations appended to the log",
		},
	)

	CongestionRetrains = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hestia_congestion_retrains_total",
			Help: "Congestion model retrains by trigger",
		},
		[]string{"trigger"}, // "scheduled", "on_demand", "startup"
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hestia_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hestia_circuit_breaker_requests_total",
			Help: "Circuit breaker request outcomes",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hestia_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hestia_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)
