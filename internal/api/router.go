// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mledesma/hestia/internal/middleware"
)

// RouterConfig holds HTTP surface settings.
type RouterConfig struct {
	// CORSOrigins lists allowed origins. Empty denies cross-origin use.
	CORSOrigins []string

	// RateLimitRequests per RateLimitWindow, keyed by client IP.
	// Defaults: 100 per minute.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the chi router with the full middleware stack and all
// API routes.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = 100
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		MaxAge:         86400,
	}))
	r.Use(middleware.Compression)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Use(middleware.Metrics)

		r.Post("/recommend", h.Recommend)
		r.Post("/catalog/refresh", h.CatalogRefresh)
		r.Get("/jobs/{id}", h.JobStatus)
		r.Get("/traffic/predict", h.TrafficPredict)
		r.Get("/health", h.Health)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/amenities/rebuild", h.RebuildAmenities)
			r.Post("/traffic/retrain", h.RetrainTraffic)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
