// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mledesma/hestia/internal/catalog"
	"github.com/mledesma/hestia/internal/congestion"
	"github.com/mledesma/hestia/internal/logging"
	"github.com/mledesma/hestia/internal/models"
	"github.com/mledesma/hestia/internal/queue"
	"github.com/mledesma/hestia/internal/recommend"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20

// Handler holds the dependencies the HTTP endpoints read and mutate.
type Handler struct {
	engine    *recommend.Engine
	catalog   *catalog.Catalog
	queue     *queue.Queue
	estimator *congestion.Estimator
	now       func() time.Time
}

// NewHandler creates the endpoint handler set.
func NewHandler(engine *recommend.Engine, cat *catalog.Catalog, q *queue.Queue, est *congestion.Estimator) *Handler {
	return &Handler{
		engine:    engine,
		catalog:   cat,
		queue:     q,
		estimator: est,
		now:       time.Now,
	}
}

// Recommend handles POST /api/v1/recommend.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.RecommendRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	if len(req.Priorities) == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "at least one category priority is required")
		return
	}

	recommendations, err := h.engine.Recommend(r.Context(), req)
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidPriorities) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		logging.Error().Err(err).Msg("Recommendation request failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "recommendation failed")
		return
	}

	writeSuccess(w, http.StatusOK, start, recommendations)
}

// refreshRequest is the catalog refresh submission payload.
type refreshRequest struct {
	OwnerID string `json:"owner_id"`
}

// CatalogRefresh handles POST /api/v1/catalog/refresh. Submission never
// blocks; the job is processed by the single queue worker.
func (h *Handler) CatalogRefresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req refreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "owner_id is required")
		return
	}

	jobID, position := h.queue.Submit(req.OwnerID)
	writeSuccess(w, http.StatusAccepted, start, models.JobSubmitResponse{
		JobID:         jobID,
		QueuePosition: position,
	})
}

// JobStatus handles GET /api/v1/jobs/{id}.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	jobID := chi.URLParam(r, "id")
	status := h.queue.Status(jobID)
	if status == queue.StatusUnknown {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "unknown job ID")
		return
	}

	writeSuccess(w, http.StatusOK, start, models.JobStatusResponse{
		JobID:  jobID,
		Status: string(status),
	})
}

// TrafficPredict handles GET /api/v1/traffic/predict. The optional hour
// parameter overrides the departure hour on today's weekday.
func (h *Handler) TrafficPredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	startLat, err := queryFloat(r, "start_lat", -90, 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	startLng, err := queryFloat(r, "start_lng", -180, 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	endLat, err := queryFloat(r, "end_lat", -90, 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	endLng, err := queryFloat(r, "end_lng", -180, 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	departAt := h.now()
	if raw := r.URL.Query().Get("hour"); raw != "" {
		hour, err := strconv.Atoi(raw)
		if err != nil || hour < 0 || hour > 23 {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "hour must be an integer between 0 and 23")
			return
		}
		departAt = time.Date(departAt.Year(), departAt.Month(), departAt.Day(), hour, 0, 0, 0, departAt.Location())
	}

	h.estimator.EnsureTrained(r.Context())
	prediction := h.estimator.Predict(startLat, startLng, endLat, endLng, departAt)
	writeSuccess(w, http.StatusOK, start, prediction)
}

// RebuildAmenities handles POST /api/v1/admin/amenities/rebuild. It
// fetches the amenity set from the authoritative source, rebuilds the
// spatial index, and persists the snapshot synchronously.
func (h *Handler) RebuildAmenities(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	indexed, err := h.engine.RebuildAmenities(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Amenity rebuild failed")
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "amenity source unavailable")
		return
	}

	writeSuccess(w, http.StatusOK, start, map[string]interface{}{
		"indexed_amenities": indexed,
	})
}

// RetrainTraffic handles POST /api/v1/admin/traffic/retrain.
func (h *Handler) RetrainTraffic(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.estimator.Retrain(r.Context(), "manual"); err != nil {
		logging.Error().Err(err).Msg("Manual congestion retrain failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "retrain failed")
		return
	}

	writeSuccess(w, http.StatusOK, start, h.estimator.ModelStatus())
}

// healthDatasets reports per-dataset hydration state.
type healthDatasets struct {
	Amenities  recommend.IndexStats `json:"amenities"`
	Properties propertyStats        `json:"properties"`
}

type propertyStats struct {
	Records int `json:"records"`
	Owners  int `json:"owners"`
}

type healthResponse struct {
	Status          string            `json:"status"`
	Datasets        healthDatasets    `json:"datasets"`
	QueueDepth      int               `json:"queue_depth"`
	CongestionModel congestion.Status `json:"congestion_model"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	writeSuccess(w, http.StatusOK, start, healthResponse{
		Status: "ok",
		Datasets: healthDatasets{
			Amenities: h.engine.AmenityStats(),
			Properties: propertyStats{
				Records: h.catalog.Len(),
				Owners:  h.catalog.Owners(),
			},
		},
		QueueDepth:      h.queue.Depth(),
		CongestionModel: h.estimator.ModelStatus(),
	})
}

// decodeBody decodes a bounded JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// queryFloat parses a required float query parameter within [min, max].
func queryFloat(r *http.Request, name string, min, max float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be between %g and %g", name, min, max)
	}
	return v, nil
}
