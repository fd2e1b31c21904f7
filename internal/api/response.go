// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package api provides the HTTP surface: chi routing, the standardized
// response envelope, and the request handlers.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/mledesma/hestia/internal/logging"
	"github.com/mledesma/hestia/internal/models"
)

// Error codes carried in the APIResponse envelope.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeNoData        = "NO_DATA"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
)

// writeSuccess writes a success envelope. start stamps the query time.
func writeSuccess(w http.ResponseWriter, status int, start time.Time, data interface{}) {
	writeJSON(w, status, models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// writeError writes an error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, models.APIResponse{
		Status: "error",
		Error:  &models.APIError{Code: code, Message: message},
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload models.APIResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
