// Package score turns upstream news items into persisted heat scores: five
// sub-scores in [0,100] combined into one weighted heat value.
package score

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/heatsight/heatscore/internal/store"
	"github.com/heatsight/heatscore/internal/text"
	"github.com/heatsight/heatscore/internal/upstream"
)

// Sub-score coefficients. They sum to 1 so the final heat stays in [0,100]
// before clamping.
const (
	weightKeyword     = 0.30
	weightRecency     = 0.25
	weightPlatform    = 0.15
	weightCrossSource = 0.20
	weightSource      = 0.10
)

// relevanceKeywords caps how many extracted keywords feed the search-based
// relevance probe.
const relevanceKeywords = 3

// metaKeywordCount is how many leading keyword words land in meta_data.
const metaKeywordCount = 5

// popularityMetrics is the priority order for the raw popularity value.
var popularityMetrics = []string{"view_count", "like_count", "comment_count", "heat"}

// Calculator computes heat scores. It is stateless apart from its injected
// collaborators and safe for concurrent use.
type Calculator struct {
	relevance RelevanceProvider
	weights   SourceWeights
	now       func() time.Time
	log       zerolog.Logger
}

// NewCalculator builds a calculator. relevance may be nil to always use the
// local batch proxy; weights may be nil to always use the fallback table.
func NewCalculator(relevance RelevanceProvider, weights SourceWeights) *Calculator {
	return &Calculator{
		relevance: relevance,
		weights:   weights,
		now:       time.Now,
		log:       log.With().Str("component", "score").Logger(),
	}
}

// Score computes all sub-scores for one item against its batch snapshot and
// returns the row to persist. The batch is only read, never mutated.
func (c *Calculator) Score(ctx context.Context, item upstream.NewsItem, batch []upstream.NewsItem) (*store.HeatScore, error) {
	keywords := text.Extract(item.Title, item.Content)
	now := c.now().UTC()

	publishedAt, err := ParseTime(item.PublishedAt)
	if err != nil {
		return nil, err
	}

	relevanceScore := c.relevanceScore(ctx, item, batch, keywords)
	recencyScore := RecencyScore(publishedAt, now)
	popularityScore := c.popularityScore(item)
	crossSourceScore := c.crossSourceScore(item, batch)
	sourceWeight := c.sourceWeight(item.SourceID)

	heat := clamp(weightKeyword*relevanceScore +
		weightRecency*recencyScore +
		weightPlatform*popularityScore +
		weightCrossSource*crossSourceScore +
		weightSource*sourceWeight)

	category := deriveCategory(item.Category, item.Meta, item.SourceID)

	return &store.HeatScore{
		NewsID:          item.ID,
		SourceID:        item.SourceID,
		Title:           item.Title,
		URL:             item.URL,
		HeatScore:       heat,
		RelevanceScore:  relevanceScore,
		RecencyScore:    recencyScore,
		PopularityScore: popularityScore,
		Keywords:        toKeywordList(keywords),
		PublishedAt:     publishedAt,
		Meta: store.Meta{
			"cross_source_score": crossSourceScore,
			"source_weight":      sourceWeight,
			"keywords":           text.TopWords(keywords, metaKeywordCount),
			"category":           category,
		},
	}, nil
}

// relevanceScore normalizes the provider's match count; when the provider
// is missing or unavailable it falls back to counting near-duplicate titles
// in the current batch.
func (c *Calculator) relevanceScore(ctx context.Context, item upstream.NewsItem, batch []upstream.NewsItem, keywords []text.Keyword) float64 {
	if c.relevance != nil {
		words := text.TopWords(keywords, relevanceKeywords)
		if len(words) > 0 {
			sum, err := c.relevance.MatchCount(ctx, words)
			if err == nil {
				return clamp(sum / baselineFactor * 100)
			}
			c.log.Debug().Err(err).Str("news_id", item.ID).
				Msg("Relevance provider failed, using batch proxy")
		}
	}

	matches := 0.0
	for _, other := range batch {
		if other.ID == item.ID && other.SourceID == item.SourceID {
			continue
		}
		if text.NearDuplicate(item.Title, other.Title) {
			matches++
		}
	}
	return clamp(matches / baselineFactor * 100)
}

func (c *Calculator) popularityScore(item upstream.NewsItem) float64 {
	if len(item.Metrics) == 0 {
		return 0
	}
	for _, metric := range popularityMetrics {
		if raw, ok := item.Metrics[metric]; ok {
			return clamp(raw / PlatformBaseline(item.SourceID) * 100)
		}
	}
	return 0
}

// crossSourceScore counts distinct sources carrying a near-duplicate of
// this title. The item's own source joins the count only when at least one
// other source matches, so a lone item scores zero.
func (c *Calculator) crossSourceScore(item upstream.NewsItem, batch []upstream.NewsItem) float64 {
	sources := make(map[string]struct{})
	for _, other := range batch {
		if other.ID == item.ID && other.SourceID == item.SourceID {
			continue
		}
		if text.NearDuplicate(item.Title, other.Title) {
			sources[other.SourceID] = struct{}{}
		}
	}
	if len(sources) == 0 {
		return 0
	}
	sources[item.SourceID] = struct{}{}
	return clamp(float64(len(sources)) / 10 * 100)
}

func (c *Calculator) sourceWeight(sourceID string) float64 {
	if c.weights != nil {
		if w, ok := c.weights.Weight(sourceID); ok {
			return w
		}
	}
	return FallbackSourceWeight(sourceID)
}

func toKeywordList(keywords []text.Keyword) store.KeywordList {
	if len(keywords) == 0 {
		return nil
	}
	list := make(store.KeywordList, len(keywords))
	for i, kw := range keywords {
		list[i] = store.Keyword{Word: kw.Word, Weight: kw.Weight, Type: kw.Type}
	}
	return list
}
