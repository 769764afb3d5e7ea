// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package api serves the HTML dashboard and the JSON API over chi.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/traktboard/traktboard/internal/logging"
	"github.com/traktboard/traktboard/internal/models"
)

// Error codes used by JSON endpoints.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeCacheUnavailable = "CACHE_UNAVAILABLE"
	ErrCodeRefreshFailed    = "REFRESH_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// respondJSON writes a success envelope. started stamps query time.
func respondJSON(w http.ResponseWriter, status int, data interface{}, started time.Time, cached bool) {
	resp := models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(started).Milliseconds(),
			Cached:      cached,
		},
	}
	writeJSON(w, status, &resp)
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string) {
	resp := models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	}
	writeJSON(w, status, &resp)
}

func writeJSON(w http.ResponseWriter, status int, resp *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Err(err).Msg("encoding API response failed")
	}
}
