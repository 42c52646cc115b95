package handlers

import (
	"net/http"
	"time"
)

// acceptTask responds immediately while the work runs in the background.
func acceptTask(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "accepted",
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// UpdateHeatScores triggers one fetch-score-persist run.
func (h *Handlers) UpdateHeatScores(w http.ResponseWriter, r *http.Request) {
	h.app.RunAsync("heat_update", true, h.app.RunHeatUpdate)
	acceptTask(w, "heat score update started")
}

// UpdateKeywordHeat triggers a trending-keyword recomputation.
func (h *Handlers) UpdateKeywordHeat(w http.ResponseWriter, r *http.Request) {
	h.app.RunAsync("keyword_update", false, h.app.RunKeywordUpdate)
	acceptTask(w, "keyword heat update started")
}

// UpdateSourceWeights triggers a source-weight relearn.
func (h *Handlers) UpdateSourceWeights(w http.ResponseWriter, r *http.Request) {
	h.app.RunAsync("source_weight_update", false, h.app.RunWeightUpdate)
	acceptTask(w, "source weight update started")
}

// UpdateCategories triggers the category backfill.
func (h *Handlers) UpdateCategories(w http.ResponseWriter, r *http.Request) {
	h.app.RunAsync("category_backfill", true, h.app.RunCategoryBackfill)
	acceptTask(w, "category backfill started")
}
