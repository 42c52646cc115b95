// Package trending mines recently scored rows for hot keywords, phrases
// and topics.
package trending

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/heatsight/heatscore/internal/cache"
	"github.com/heatsight/heatscore/internal/store"
)

// CacheKey holds the published trending list.
const CacheKey = "heatsight:heatscore:keywords"

const (
	cacheTTL      = 2 * time.Hour
	windowHours   = 12
	minHeatScore  = 20.0
	maxInputRows  = 1000
	maxEntries    = 300
	maxEntryHeat  = 100.0
)

// Per-type source/count thresholds and normalization divisors.
var (
	minSources = map[string]int{
		store.KeywordTypeTopic:   2,
		store.KeywordTypePhrase:  2,
		store.KeywordTypeKeyword: 3,
	}
	minCounts = map[string]int{
		store.KeywordTypePhrase: 2,
	}
	heatDivisors = map[string]float64{
		store.KeywordTypeTopic:   500,
		store.KeywordTypePhrase:  750,
		store.KeywordTypeKeyword: 1000,
	}
)

// Entry is one published trending term.
type Entry struct {
	Keyword   string    `json:"keyword"`
	Type      string    `json:"type"`
	Heat      float64   `json:"heat"`
	Count     int       `json:"count"`
	Sources   []string  `json:"sources"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RowSource lists recently scored rows. Satisfied by *store.Store.
type RowSource interface {
	GetTop(ctx context.Context, q store.TopQuery) ([]store.HeatScore, error)
}

// Aggregator computes and caches the trending list.
type Aggregator struct {
	cache cache.Cache
	log   zerolog.Logger
}

// NewAggregator builds an aggregator over the shared cache.
func NewAggregator(c cache.Cache) *Aggregator {
	return &Aggregator{
		cache: c,
		log:   log.With().Str("component", "trending").Logger(),
	}
}

type bucket struct {
	kind        string
	count       int
	totalWeight float64
	totalHeat   float64
	sources     map[string]struct{}
}

// Update recomputes the trending list from the last 12 hours of scores and
// publishes it to the cache. The computed list is returned for logging and
// tests.
func (a *Aggregator) Update(ctx context.Context, rows RowSource) ([]Entry, error) {
	minScore := minHeatScore
	scored, err := rows.GetTop(ctx, store.TopQuery{
		Limit:       maxInputRows,
		MinScore:    &minScore,
		MaxAgeHours: windowHours,
	})
	if err != nil {
		return nil, err
	}

	entries := Aggregate(scored, time.Now().UTC())
	if len(entries) == 0 {
		a.log.Info().Msg("No trending keywords met the thresholds")
		return entries, nil
	}

	if err := a.cache.Set(ctx, CacheKey, entries, cacheTTL); err != nil {
		return nil, err
	}
	a.log.Info().Int("keywords", len(entries)).Msg("Trending keywords updated")
	return entries, nil
}

// Get reads the published list, filtered by limit and minimum heat. An
// unpopulated cache yields an empty list.
func (a *Aggregator) Get(ctx context.Context, limit int, minHeat float64) ([]Entry, error) {
	var entries []Entry
	if err := a.cache.Get(ctx, CacheKey, &entries); err != nil {
		if err == cache.ErrNotFound {
			return []Entry{}, nil
		}
		return nil, err
	}

	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Heat < minHeat {
			continue
		}
		filtered = append(filtered, e)
		if limit > 0 && len(filtered) == limit {
			break
		}
	}
	return filtered, nil
}

// Aggregate folds keyword occurrences across rows and applies the per-type
// thresholds and scaling. Deterministic for a fixed input set.
func Aggregate(rows []store.HeatScore, now time.Time) []Entry {
	type key struct{ word, kind string }
	buckets := make(map[key]*bucket)

	for _, row := range rows {
		for _, kw := range row.Keywords {
			if kw.Word == "" {
				continue
			}
			kind := kw.Type
			if kind == "" {
				kind = store.KeywordTypeKeyword
			}
			k := key{word: kw.Word, kind: kind}
			b := buckets[k]
			if b == nil {
				b = &bucket{kind: kind, sources: make(map[string]struct{})}
				buckets[k] = b
			}
			weight := kw.Weight
			if weight == 0 {
				weight = 0.5
			}
			b.count++
			b.totalWeight += weight
			b.totalHeat += row.HeatScore
			b.sources[row.SourceID] = struct{}{}
		}
	}

	entries := make([]Entry, 0, len(buckets))
	for k, b := range buckets {
		if len(b.sources) < minSources[b.kind] {
			continue
		}
		if b.count < minCounts[b.kind] {
			continue
		}

		avgWeight := b.totalWeight / float64(b.count)
		avgHeat := b.totalHeat / float64(b.count)
		heat := float64(b.count) * avgWeight * avgHeat * float64(len(b.sources)) / heatDivisors[b.kind]
		if heat > maxEntryHeat {
			heat = maxEntryHeat
		}

		sources := make([]string, 0, len(b.sources))
		for s := range b.sources {
			sources = append(sources, s)
		}
		sort.Strings(sources)

		entries = append(entries, Entry{
			Keyword:   k.word,
			Type:      b.kind,
			Heat:      heat,
			Count:     b.count,
			Sources:   sources,
			UpdatedAt: now,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Heat != entries[j].Heat {
			return entries[i].Heat > entries[j].Heat
		}
		return entries[i].Keyword < entries[j].Keyword
	})
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}
	return entries
}
