// Package upstream implements the cached, retrying client for the HeatLink
// feed API. All response-shape normalization (bare lists vs wrapped objects)
// is centralized here so callers always see normalized types.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/heatsight/heatscore/internal/cache"
)

const cachePrefix = "heatlink"

// Per-kind cache TTLs for upstream GETs.
var kindTTLs = map[string]time.Duration{
	"hot_news":      300 * time.Second,
	"unified_news":  300 * time.Second,
	"search":        180 * time.Second,
	"sources":       3600 * time.Second,
	"source_detail": 600 * time.Second,
	"source_types":  3600 * time.Second,
	"sources_stats": 1800 * time.Second,
}

const defaultTTL = 300 * time.Second

// Config holds client tuning. Zero values take the defaults below.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	RateLimit   rate.Limit
	RateBurst   int
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = 10 * time.Second
	}
	if c.RateLimit == 0 {
		c.RateLimit = 20
	}
	if c.RateBurst == 0 {
		c.RateBurst = 10
	}
	return c
}

// Client is the HeatLink API client. It is safe for concurrent use and
// carries no per-request mutable state.
type Client struct {
	config  Config
	httpc   *http.Client
	cache   cache.Cache
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient builds a client over the given cache. The http.Client follows
// redirects by default, which is the behavior the upstream expects.
func NewClient(cfg Config, c cache.Cache) *Client {
	cfg = cfg.withDefaults()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "heatlink",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("Upstream circuit breaker state change")
		},
	})

	return &Client{
		config:  cfg,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		cache:   c,
		breaker: breaker,
		limiter: rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		log:     log.With().Str("component", "upstream").Logger(),
	}
}

// GetOptions controls caching for a single GET.
type GetOptions struct {
	// Kind selects the cache-key prefix and TTL (see kindTTLs).
	Kind string
	// NoCache bypasses the cache entirely.
	NoCache bool
	// ForceRefresh skips the cached value but still stores the fresh one.
	ForceRefresh bool
	// TTL overrides the per-kind TTL when non-zero.
	TTL time.Duration
	// Prefix overrides the per-kind cache-key prefix when non-empty.
	Prefix string
}

func (o GetOptions) ttl() time.Duration {
	if o.TTL > 0 {
		return o.TTL
	}
	if ttl, ok := kindTTLs[o.Kind]; ok {
		return ttl
	}
	return defaultTTL
}

func (o GetOptions) prefix() string {
	if o.Prefix != "" {
		return o.Prefix
	}
	return o.Kind
}

// CacheKey builds the deterministic cache key for an endpoint kind and its
// query parameters: "heatlink:<prefix>:<k=v>:<k=v>…" with sorted parameters.
func CacheKey(prefix string, params url.Values) string {
	parts := []string{cachePrefix, prefix}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range params[k] {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
	}
	return strings.Join(parts, ":")
}

// GetJSON performs a cached GET against the upstream API and returns the raw
// JSON payload.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, opt GetOptions) (json.RawMessage, error) {
	key := CacheKey(opt.prefix(), params)

	if !opt.NoCache && !opt.ForceRefresh {
		var cached json.RawMessage
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			c.log.Debug().Str("key", key).Msg("Upstream cache hit")
			return cached, nil
		}
	}

	raw, err := c.fetch(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	if !opt.NoCache {
		if err := c.cache.Set(ctx, key, raw, opt.ttl()); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("Failed to cache upstream response")
		}
	}
	return raw, nil
}

// fetch performs the GET with rate limiting, circuit breaking and up to
// MaxRetries retries with exponential backoff (base 1s, doubling, capped).
func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	fullURL := c.buildURL(endpoint, params)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.log.Debug().Dur("backoff", backoff).Int("attempt", attempt).
				Str("url", fullURL).Msg("Retrying upstream request")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doRequest(ctx, fullURL)
		})
		if err == nil {
			return result.(json.RawMessage), nil
		}

		// 4xx and decode failures are not retryable.
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: retries exhausted: %v", ErrUnavailable, lastErr)
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, &StatusError{Code: resp.StatusCode, Detail: errorDetail(body)}
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid JSON body", ErrMalformed)
	}
	return json.RawMessage(body), nil
}

// buildURL joins base and endpoint and collapses accidentally duplicated
// /api/ segments that show up when both sides carry the prefix.
func (c *Client) buildURL(endpoint string, params url.Values) string {
	full := strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	for strings.Contains(full, "/api/api/") {
		full = strings.Replace(full, "/api/api/", "/api/", 1)
	}
	if len(params) > 0 {
		full += "?" + params.Encode()
	}
	return full
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.config.BackoffBase << (attempt - 1)
	if d > c.config.BackoffMax {
		d = c.config.BackoffMax
	}
	return d
}

func isRetryable(err error) bool {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return true
	}
	if errors.Is(err, ErrBadStatus) || errors.Is(err, ErrMalformed) {
		return false
	}
	return true
}

func errorDetail(body []byte) string {
	var envelope struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Detail != "" {
		return envelope.Detail
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return detail
}
