package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/heatsight/heatscore/internal/upstream"
)

// Thin passthroughs to the upstream feed. Upstream status codes surface to
// the caller; responses are relayed as-is.

// NewsHot proxies the aggregated hot-news endpoint.
func (h *Handlers) NewsHot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := upstream.HotOptions{
		HotLimit:         intParam(q.Get("hot_limit")),
		RecommendedLimit: intParam(q.Get("recommended_limit")),
		CategoryLimit:    intParam(q.Get("category_limit")),
		ForceUpdate:      q.Get("force_update") == "true",
	}
	raw, err := h.app.Upstream.Hot(r.Context(), opts, opts.ForceUpdate)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondRaw(w, raw)
}

// NewsUnified proxies the paginated unified feed.
func (h *Handlers) NewsUnified(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw, err := h.app.Upstream.Unified(r.Context(), upstream.UnifiedOptions{
		Page:      intParam(q.Get("page")),
		PageSize:  intParam(q.Get("page_size")),
		Category:  q.Get("category"),
		Country:   q.Get("country"),
		Language:  q.Get("language"),
		SourceID:  q.Get("source_id"),
		Keyword:   q.Get("keyword"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	})
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondRaw(w, raw)
}

// NewsSearch proxies full-text search.
func (h *Handlers) NewsSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		respondError(w, http.StatusBadRequest, "query must not be empty")
		return
	}
	raw, err := h.app.Upstream.Search(r.Context(), upstream.SearchOptions{
		Query:    query,
		Page:     intParam(q.Get("page")),
		PageSize: intParam(q.Get("page_size")),
		Category: q.Get("category"),
		SourceID: q.Get("source_id"),
	})
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondRaw(w, raw)
}

// NewsSources proxies the source list.
func (h *Handlers) NewsSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.app.Upstream.Sources(r.Context(), r.URL.Query().Get("force_refresh") == "true")
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

// NewsSource proxies one source's detail payload.
func (h *Handlers) NewsSource(w http.ResponseWriter, r *http.Request) {
	sourceID := mux.Vars(r)["source_id"]
	raw, err := h.app.Upstream.Source(r.Context(), sourceID, r.URL.Query().Get("force_refresh") == "true")
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondRaw(w, raw)
}

func intParam(v string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
