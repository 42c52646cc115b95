package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/heatsight/heatscore/internal/store"
	"github.com/heatsight/heatscore/internal/weights"
)

// bulkCacheTTL covers the deterministic bulk-lookup cache entries.
const bulkCacheTTL = time.Hour

const maxBulkIDs = 500

type scoresRequest struct {
	NewsIDs []string `json:"news_ids"`
}

func decodeScoresRequest(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var req scoresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if len(req.NewsIDs) == 0 {
		respondError(w, http.StatusBadRequest, "news_ids must not be empty")
		return nil, false
	}
	if len(req.NewsIDs) > maxBulkIDs {
		respondError(w, http.StatusBadRequest, "too many news_ids")
		return nil, false
	}
	return req.NewsIDs, true
}

// bulkCacheKey is deterministic in the requested id set so identical
// lookups share one cache entry regardless of caller or id order.
func bulkCacheKey(kind string, ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return "heatsight:heatscore:" + kind + ":" + hex.EncodeToString(sum[:])[:16]
}

// Scores returns the plain heat value per requested news id.
func (h *Handlers) Scores(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeScoresRequest(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	key := bulkCacheKey("bulk", ids)
	cached := make(map[string]float64)
	if err := h.app.Cache.Get(ctx, key, &cached); err == nil {
		respondJSON(w, http.StatusOK, map[string]any{"heat_scores": cached})
		return
	}

	rows, err := h.app.Store.GetMultiByNewsIDs(ctx, ids)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	scores := make(map[string]float64, len(ids))
	for newsID, row := range rows {
		scores[newsID] = row.HeatScore
	}
	// Ids without a stored score report 0 rather than disappearing.
	for _, id := range ids {
		if _, ok := scores[id]; !ok {
			scores[id] = 0
		}
	}
	if err := h.app.Cache.Set(ctx, key, scores, bulkCacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache bulk scores")
	}
	respondJSON(w, http.StatusOK, map[string]any{"heat_scores": scores})
}

// DetailedScores returns the full latest row per requested news id.
func (h *Handlers) DetailedScores(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeScoresRequest(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	key := bulkCacheKey("detailed", ids)
	cached := make(map[string]*store.HeatScore)
	if err := h.app.Cache.Get(ctx, key, &cached); err == nil {
		respondJSON(w, http.StatusOK, map[string]any{"heat_scores": cached})
		return
	}

	rows, err := h.app.Store.GetMultiByNewsIDs(ctx, ids)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if err := h.app.Cache.Set(ctx, key, rows, bulkCacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache detailed scores")
	}
	respondJSON(w, http.StatusOK, map[string]any{"heat_scores": rows})
}

// Top lists the highest-heat rows in the window. An empty store yields an
// empty list, never an error.
func (h *Handlers) Top(w http.ResponseWriter, r *http.Request) {
	query := store.TopQuery{}

	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		query.Limit = n
	}
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid skip")
			return
		}
		query.Skip = n
	}
	if v := q.Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid min_score")
			return
		}
		query.MinScore = &f
	}
	if v := q.Get("max_age_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid max_age_hours")
			return
		}
		query.MaxAgeHours = n
	}
	if v := q.Get("category"); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				query.Categories = append(query.Categories, c)
			}
		}
	}

	rows, err := h.app.Store.GetTop(r.Context(), query)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if rows == nil {
		rows = []store.HeatScore{}
	}
	respondJSON(w, http.StatusOK, rows)
}

// Keywords serves the cached trending list.
func (h *Handlers) Keywords(w http.ResponseWriter, r *http.Request) {
	limit := 50
	minHeat := 0.0

	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if v := q.Get("min_heat"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid min_heat")
			return
		}
		minHeat = f
	}

	entries, err := h.app.Trending.Get(r.Context(), limit, minHeat)
	if err != nil {
		log.Error().Err(err).Msg("Trending lookup failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total":    len(entries),
		"keywords": entries,
	})
}

// SourceWeights serves the learned weight map merged with upstream source
// metadata. An unpopulated learner cache yields an empty list.
func (h *Handlers) SourceWeights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	minWeight := 0.0
	if v := r.URL.Query().Get("min_weight"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid min_weight")
			return
		}
		minWeight = f
	}

	records, err := h.app.Weights.All(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Source weight lookup failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Metadata merge is best effort; the weights still serve when the
	// upstream is down.
	metadata := make(map[string]map[string]any)
	if sources, err := h.app.Upstream.Sources(ctx, false); err == nil {
		for _, src := range sources {
			if id := src.ID(); id != "" {
				metadata[id] = src
			}
		}
	}

	type entry struct {
		weights.Record
		Metadata map[string]any `json:"metadata,omitempty"`
	}
	list := make([]entry, 0, len(records))
	for id, record := range records {
		if record.Weight < minWeight {
			continue
		}
		list = append(list, entry{Record: record, Metadata: metadata[id]})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Weight != list[j].Weight {
			return list[i].Weight > list[j].Weight
		}
		return list[i].SourceID < list[j].SourceID
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"total_sources": len(list),
		"sources":       list,
	})
}
