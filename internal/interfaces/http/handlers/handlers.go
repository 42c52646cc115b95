// Package handlers implements the JSON endpoint handlers for the
// heat-score HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/heatsight/heatscore/internal/app"
	"github.com/heatsight/heatscore/internal/store"
	"github.com/heatsight/heatscore/internal/upstream"
)

// Handlers carries the endpoint implementations over the shared app graph.
type Handlers struct {
	app *app.App
}

// New builds the handler set.
func New(a *app.App) *Handlers {
	return &Handlers{app: a}
}

// NotFound is the JSON 404 handler.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "not found")
}

// errorEnvelope is the API-wide error body.
type errorEnvelope struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorEnvelope{Detail: detail})
}

func respondRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

// respondUpstreamError maps upstream error kinds onto API statuses: 4xx
// pass through, unreachable becomes 503, undecodable becomes 502.
func respondUpstreamError(w http.ResponseWriter, err error) {
	var statusErr *upstream.StatusError
	switch {
	case errors.As(err, &statusErr):
		respondError(w, statusErr.Code, statusErr.Detail)
	case errors.Is(err, upstream.ErrMalformed):
		respondError(w, http.StatusBadGateway, "upstream returned a malformed response")
	default:
		respondError(w, http.StatusServiceUnavailable, "upstream unavailable")
	}
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "heat score not found")
		return
	}
	log.Error().Err(err).Msg("Store query failed")
	respondError(w, http.StatusInternalServerError, "internal server error")
}
