package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// HotOptions selects limits for the aggregated hot-news endpoint.
type HotOptions struct {
	HotLimit         int
	RecommendedLimit int
	CategoryLimit    int
	ForceUpdate      bool
}

func (o HotOptions) withDefaults() HotOptions {
	if o.HotLimit == 0 {
		o.HotLimit = 10
	}
	if o.RecommendedLimit == 0 {
		o.RecommendedLimit = 10
	}
	if o.CategoryLimit == 0 {
		o.CategoryLimit = 5
	}
	return o
}

// Hot fetches the aggregated hot-news payload.
func (c *Client) Hot(ctx context.Context, opts HotOptions, forceRefresh bool) (json.RawMessage, error) {
	opts = opts.withDefaults()
	params := url.Values{}
	params.Set("hot_limit", strconv.Itoa(opts.HotLimit))
	params.Set("recommended_limit", strconv.Itoa(opts.RecommendedLimit))
	params.Set("category_limit", strconv.Itoa(opts.CategoryLimit))
	if opts.ForceUpdate {
		params.Set("force_update", "true")
	}
	return c.GetJSON(ctx, "external/hot", params, GetOptions{Kind: "hot_news", ForceRefresh: forceRefresh})
}

// Sources lists all upstream sources, normalized from either a wrapped
// object or a bare array.
func (c *Client) Sources(ctx context.Context, forceRefresh bool) ([]SourceDescriptor, error) {
	raw, err := c.GetJSON(ctx, "external/sources", nil, GetOptions{Kind: "sources", ForceRefresh: forceRefresh})
	if err != nil {
		return nil, err
	}
	list, ok := extractList(raw, "sources", "items")
	if !ok {
		return nil, fmt.Errorf("%w: unexpected sources shape", ErrMalformed)
	}
	sources := make([]SourceDescriptor, 0, len(list))
	for _, entry := range list {
		var src SourceDescriptor
		if err := json.Unmarshal(entry, &src); err != nil {
			continue
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// Source fetches the raw detail payload for one source.
func (c *Client) Source(ctx context.Context, sourceID string, forceRefresh bool) (json.RawMessage, error) {
	return c.GetJSON(ctx, "external/source/"+url.PathEscape(sourceID), nil, GetOptions{
		Kind:         "source_detail",
		Prefix:       "source_detail:" + sourceID,
		ForceRefresh: forceRefresh,
	})
}

// SourceItems fetches a source's items as normalized NewsItems, stamping the
// source id on items that lack one.
func (c *Client) SourceItems(ctx context.Context, sourceID string, forceRefresh bool) ([]NewsItem, error) {
	raw, err := c.Source(ctx, sourceID, forceRefresh)
	if err != nil {
		return nil, err
	}
	items, ok := decodeItems(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected source detail shape for %s", ErrMalformed, sourceID)
	}
	for i := range items {
		if items[i].SourceID == "" {
			items[i].SourceID = sourceID
		}
	}
	return items, nil
}

// SourceTypes lists the available source type names.
func (c *Client) SourceTypes(ctx context.Context) (json.RawMessage, error) {
	return c.GetJSON(ctx, "external/source-types", nil, GetOptions{Kind: "source_types"})
}

// UnifiedOptions filters the paginated unified-news endpoint. Zero or empty
// fields are omitted from the query.
type UnifiedOptions struct {
	Page      int
	PageSize  int
	Category  string
	Country   string
	Language  string
	SourceID  string
	Keyword   string
	SortBy    string
	SortOrder string
}

func (o UnifiedOptions) values() url.Values {
	if o.Page == 0 {
		o.Page = 1
	}
	if o.PageSize == 0 {
		o.PageSize = 20
	}
	if o.SortBy == "" {
		o.SortBy = "published_at"
	}
	if o.SortOrder == "" {
		o.SortOrder = "desc"
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(o.Page))
	params.Set("page_size", strconv.Itoa(o.PageSize))
	params.Set("sort_by", o.SortBy)
	params.Set("sort_order", o.SortOrder)
	for key, val := range map[string]string{
		"category": o.Category, "country": o.Country, "language": o.Language,
		"source_id": o.SourceID, "keyword": o.Keyword,
	} {
		if val != "" {
			params.Set(key, val)
		}
	}
	return params
}

// Unified fetches a page of the merged news feed.
func (c *Client) Unified(ctx context.Context, opts UnifiedOptions) (json.RawMessage, error) {
	return c.GetJSON(ctx, "external/unified", opts.values(), GetOptions{Kind: "unified_news"})
}

// SearchOptions filters the full-text search endpoint.
type SearchOptions struct {
	Query    string
	Page     int
	PageSize int
	Category string
	SourceID string
}

func (o SearchOptions) values() url.Values {
	if o.Page == 0 {
		o.Page = 1
	}
	if o.PageSize == 0 {
		o.PageSize = 20
	}
	params := url.Values{}
	params.Set("query", o.Query)
	params.Set("page", strconv.Itoa(o.Page))
	params.Set("page_size", strconv.Itoa(o.PageSize))
	if o.Category != "" {
		params.Set("category", o.Category)
	}
	if o.SourceID != "" {
		params.Set("source_id", o.SourceID)
	}
	return params
}

// Search runs a full-text query against the upstream feed.
func (c *Client) Search(ctx context.Context, opts SearchOptions) (json.RawMessage, error) {
	return c.GetJSON(ctx, "external/search", opts.values(), GetOptions{Kind: "search"})
}

// SearchItems runs a search and returns the normalized result items.
func (c *Client) SearchItems(ctx context.Context, opts SearchOptions) ([]NewsItem, error) {
	raw, err := c.Search(ctx, opts)
	if err != nil {
		return nil, err
	}
	items, ok := decodeItems(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected search shape", ErrMalformed)
	}
	return items, nil
}

// Stats fetches per-source statistics.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	return c.GetJSON(ctx, "external/stats", nil, GetOptions{Kind: "sources_stats"})
}

// Health probes the upstream without touching the cache.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.GetJSON(ctx, "health", nil, GetOptions{NoCache: true})
	return err
}
