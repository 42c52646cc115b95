package handlers

import (
	"net/http"
	"time"
)

// Health is the liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthDetails probes database, cache and upstream.
func (h *Handlers) HealthDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "ok"

	components := make(map[string]any, 3)

	if err := h.app.DB.PingContext(ctx); err != nil {
		components["database"] = map[string]any{"status": "down", "detail": err.Error()}
		status = "degraded"
	} else {
		components["database"] = map[string]any{"status": "up"}
	}

	if err := h.app.Cache.Ping(ctx); err != nil {
		components["cache"] = map[string]any{"status": "down", "backend": h.app.Cache.Backend()}
		status = "degraded"
	} else {
		components["cache"] = map[string]any{"status": "up", "backend": h.app.Cache.Backend()}
	}

	if err := h.app.Upstream.Health(ctx); err != nil {
		components["upstream"] = map[string]any{"status": "down", "detail": err.Error()}
		status = "degraded"
	} else {
		components["upstream"] = map[string]any{"status": "up"}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCache reports cache backend and size.
func (h *Handlers) HealthCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body := map[string]any{
		"backend":   h.app.Cache.Backend(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.app.Cache.Ping(ctx); err != nil {
		body["status"] = "down"
		respondJSON(w, http.StatusOK, body)
		return
	}
	body["status"] = "up"
	if n, err := h.app.Cache.DBSize(ctx); err == nil {
		body["keys"] = n
	}
	respondJSON(w, http.StatusOK, body)
}
