// Package weights learns per-source quality weights from engagement and
// publishing cadence.
package weights

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/heatsight/heatscore/internal/cache"
	"github.com/heatsight/heatscore/internal/score"
	"github.com/heatsight/heatscore/internal/upstream"
)

// CacheKey holds the learned source_id → Record map.
const CacheKey = "heatsight:heatscore:source_weights"

const cacheTTL = 24 * time.Hour

// Final-weight blend coefficients.
const (
	blendBase       = 0.5
	blendEngagement = 0.3
	blendFrequency  = 0.2
)

const (
	minWeight = 10.0
	maxWeight = 100.0
)

// freqSampleSize is how many leading items feed the cadence estimate.
const freqSampleSize = 5

// defaultFrequencyScore applies when a source has too few items to estimate
// cadence.
const defaultFrequencyScore = 50.0

// Engagement metric multipliers.
const (
	factorView    = 1
	factorLike    = 3
	factorComment = 5
	factorShare   = 10
)

// baseWeights extends the scoring fallback table with sources the learner
// knows more about.
var baseWeights = map[string]float64{
	"bilibili":   80,
	"douyin":     80,
	"36kr":       75,
	"wsj":        85,
	"bbc":        80,
	"v2ex":       65,
	"hackernews": 65,
	"github":     60,
}

// engagementBaselines extends the popularity baselines for sources whose
// engagement numbers run lower.
var engagementBaselines = map[string]float64{
	"bilibili": 3000,
	"36kr":     2000,
}

// Record is the learned weight for one source.
type Record struct {
	SourceID        string    `json:"source_id"`
	Weight          float64   `json:"weight"`
	BaseWeight      float64   `json:"base_weight"`
	EngagementScore float64   `json:"engagement_score"`
	FrequencyScore  float64   `json:"update_frequency"`
	ItemCount       int       `json:"item_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Upstream is the slice of the upstream client the learner needs.
type Upstream interface {
	Sources(ctx context.Context, forceRefresh bool) ([]upstream.SourceDescriptor, error)
	SourceItems(ctx context.Context, sourceID string, forceRefresh bool) ([]upstream.NewsItem, error)
}

// Learner computes and caches source weights.
type Learner struct {
	upstream Upstream
	cache    cache.Cache
	now      func() time.Time
	log      zerolog.Logger
}

// NewLearner builds a learner over the shared upstream client and cache.
func NewLearner(up Upstream, c cache.Cache) *Learner {
	return &Learner{
		upstream: up,
		cache:    c,
		now:      time.Now,
		log:      log.With().Str("component", "weights").Logger(),
	}
}

// Update recomputes every source's weight and publishes the whole map.
// Sources that fail to fetch or have no items are skipped.
func (l *Learner) Update(ctx context.Context) (map[string]Record, error) {
	sources, err := l.upstream.Sources(ctx, false)
	if err != nil {
		return nil, err
	}

	records := make(map[string]Record, len(sources))
	for _, source := range sources {
		sourceID := source.ID()
		if sourceID == "" {
			continue
		}
		items, err := l.upstream.SourceItems(ctx, sourceID, false)
		if err != nil {
			l.log.Warn().Err(err).Str("source_id", sourceID).Msg("Skipping source in weight update")
			continue
		}
		if len(items) == 0 {
			continue
		}
		records[sourceID] = l.learn(sourceID, items)
	}

	if len(records) == 0 {
		l.log.Warn().Msg("No source weights learned")
		return records, nil
	}
	if err := l.cache.Set(ctx, CacheKey, records, cacheTTL); err != nil {
		return nil, err
	}
	l.log.Info().Int("sources", len(records)).Msg("Source weights updated")
	return records, nil
}

// All reads the published map; an unpopulated cache yields an empty map.
func (l *Learner) All(ctx context.Context) (map[string]Record, error) {
	records := make(map[string]Record)
	if err := l.cache.Get(ctx, CacheKey, &records); err != nil {
		if err == cache.ErrNotFound {
			return records, nil
		}
		return nil, err
	}
	return records, nil
}

func (l *Learner) learn(sourceID string, items []upstream.NewsItem) Record {
	base := baseWeight(sourceID)
	engagement := engagementScore(sourceID, items)
	frequency := frequencyScore(items)

	weight := blendBase*base + blendEngagement*engagement + blendFrequency*frequency
	if weight < minWeight {
		weight = minWeight
	}
	if weight > maxWeight {
		weight = maxWeight
	}

	return Record{
		SourceID:        sourceID,
		Weight:          weight,
		BaseWeight:      base,
		EngagementScore: engagement,
		FrequencyScore:  frequency,
		ItemCount:       len(items),
		UpdatedAt:       l.now().UTC(),
	}
}

func baseWeight(sourceID string) float64 {
	if w, ok := baseWeights[sourceID]; ok {
		return w
	}
	return score.FallbackSourceWeight(sourceID)
}

func engagementBaseline(sourceID string) float64 {
	if b, ok := engagementBaselines[sourceID]; ok {
		return b
	}
	return score.PlatformBaseline(sourceID)
}

// engagementScore averages each item's weighted interaction count against
// the per-source baseline.
func engagementScore(sourceID string, items []upstream.NewsItem) float64 {
	baseline := engagementBaseline(sourceID)
	total := 0.0
	for _, item := range items {
		raw := item.Metrics["view_count"]*factorView +
			item.Metrics["like_count"]*factorLike +
			item.Metrics["comment_count"]*factorComment +
			item.Metrics["share_count"]*factorShare
		normalized := raw / baseline * 100
		if normalized > 100 {
			normalized = 100
		}
		total += normalized
	}
	return total / float64(len(items))
}

// frequencyScore estimates publishing cadence from the first five items
// (the upstream returns newest first) and maps the mean interval onto a
// discrete score.
func frequencyScore(items []upstream.NewsItem) float64 {
	if len(items) < freqSampleSize {
		return defaultFrequencyScore
	}

	times := make([]time.Time, 0, freqSampleSize)
	for _, item := range items[:freqSampleSize] {
		t, err := score.ParseTime(item.PublishedAt)
		if err != nil {
			continue
		}
		times = append(times, t)
	}
	if len(times) < 2 {
		return defaultFrequencyScore
	}

	var totalMinutes float64
	for i := 1; i < len(times); i++ {
		interval := times[i-1].Sub(times[i]).Minutes()
		if interval < 0 {
			interval = -interval
		}
		totalMinutes += interval
	}
	avg := totalMinutes / float64(len(times)-1)

	switch {
	case avg <= 5:
		return 100
	case avg <= 10:
		return 90
	case avg <= 30:
		return 80
	case avg <= 60:
		return 70
	case avg <= 120:
		return 60
	case avg <= 240:
		return 50
	default:
		return 40
	}
}
