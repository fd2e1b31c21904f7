// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints. Status is "success" or "error"; Error is populated only for
// error responses.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError carries structured error details.
//
// Common codes: VALIDATION_ERROR, NOT_FOUND, NO_DATA, INTERNAL_ERROR.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RecommendRequest is the read-path request payload: non-negative category
// priority weights plus free-form persona identifiers. GroupID optionally
// restricts candidates to one map group.
type RecommendRequest struct {
	Priorities map[string]float64 `json:"priorities"`
	Personas   []string           `json:"personas,omitempty"`
	GroupID    string             `json:"group_id,omitempty"`
}

// Highlight is one matched-amenity summary surfaced with a recommendation.
type Highlight struct {
	Category      string  `json:"category"`
	AmenityName   string  `json:"amenity_name"`
	AmenityType   string  `json:"amenity_type"`
	DistanceKM    float64 `json:"distance_km"`
	PriorityMatch bool    `json:"priority_match"`
}

// Recommendation is one ranked result returned by the read path.
type Recommendation struct {
	PropertyID string      `json:"property_id"`
	Name       string      `json:"name"`
	MatchScore float64     `json:"match_score"`
	Highlights []Highlight `json:"highlights"`
	Headline   string      `json:"headline"`
	Body       string      `json:"body"`
}

// JobSubmitResponse is returned by the queue submit endpoint. The queue
// position counts jobs ahead of this one, for estimated-wait display.
type JobSubmitResponse struct {
	JobID         string `json:"job_id"`
	QueuePosition int    `json:"queue_position"`
}

// JobStatusResponse is returned by the queue status endpoint.
type JobStatusResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// TrafficPrediction is the congestion read-path response.
type TrafficPrediction struct {
	DistanceKM       float64 `json:"distance_km"`
	PredictedMinutes float64 `json:"predicted_minutes"`
	DelayMinutes     float64 `json:"delay_minutes"`
	Severity         string  `json:"severity_band"`
}
