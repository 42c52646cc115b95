package score

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsight/heatscore/internal/upstream"
)

type stubRelevance struct {
	sum float64
	err error
}

func (s stubRelevance) MatchCount(context.Context, []string) (float64, error) {
	return s.sum, s.err
}

func fixedCalculator(relevance RelevanceProvider, now time.Time) *Calculator {
	c := NewCalculator(relevance, nil)
	c.now = func() time.Time { return now }
	return c
}

func baseItem() upstream.NewsItem {
	return upstream.NewsItem{
		ID:          "n1",
		SourceID:    "weibo",
		Title:       "测试热点：一则示例新闻",
		URL:         "u",
		PublishedAt: "2024-01-01T00:00:00Z",
		Metrics:     map[string]float64{"view_count": 10000},
	}
}

func TestScoreBasicItem(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(nil, now)

	item := baseItem()
	hs, err := c.Score(context.Background(), item, []upstream.NewsItem{item})
	require.NoError(t, err)

	// Lone item: no cross-source matches and no local relevance matches.
	assert.Equal(t, 0.0, hs.RelevanceScore)
	assert.Equal(t, 100.0, hs.RecencyScore)
	assert.Equal(t, 100.0, hs.PopularityScore)
	assert.Equal(t, 0.0, hs.Meta["cross_source_score"])
	assert.Equal(t, 90.0, hs.Meta["source_weight"])

	// 0.25*100 + 0.15*100 + 0.10*90
	assert.InDelta(t, 49.0, hs.HeatScore, 1e-9)
	assert.Equal(t, "social", hs.Meta["category"])
	assert.NotEmpty(t, hs.Keywords)
}

func TestScoreRecencyDecay(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(nil, now)

	item := baseItem()
	hs, err := c.Score(context.Background(), item, []upstream.NewsItem{item})
	require.NoError(t, err)

	assert.InDelta(t, 36.79, hs.RecencyScore, 0.01)
	assert.InDelta(t, 33.20, hs.HeatScore, 0.01)
}

func TestScoreCrossSourceDetection(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(stubRelevance{}, now)

	title := "央行宣布降息政策落地"
	batch := []upstream.NewsItem{
		{ID: "a", SourceID: "weibo", Title: title, PublishedAt: "2024-01-01T00:00:00Z"},
		{ID: "b", SourceID: "zhihu", Title: title, PublishedAt: "2024-01-01T00:00:00Z"},
		{ID: "c", SourceID: "toutiao", Title: "世界杯决赛今晚打响", PublishedAt: "2024-01-01T00:00:00Z"},
	}

	for _, id := range []string{"a", "b"} {
		var item upstream.NewsItem
		for _, cand := range batch {
			if cand.ID == id {
				item = cand
			}
		}
		hs, err := c.Score(context.Background(), item, batch)
		require.NoError(t, err)
		assert.Equal(t, 20.0, hs.Meta["cross_source_score"], "item %s", id)
	}

	hs, err := c.Score(context.Background(), batch[2], batch)
	require.NoError(t, err)
	assert.Equal(t, 0.0, hs.Meta["cross_source_score"])
}

func TestScoreCategoryFallback(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(nil, now)

	item := upstream.NewsItem{
		ID: "k1", SourceID: "36kr", Title: "创业公司完成新一轮融资",
		PublishedAt: "2024-01-01T00:00:00Z",
	}
	hs, err := c.Score(context.Background(), item, []upstream.NewsItem{item})
	require.NoError(t, err)
	assert.Equal(t, "technology", hs.Meta["category"])
}

func TestScoreRelevanceProvider(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(stubRelevance{sum: 5}, now)

	item := baseItem()
	hs, err := c.Score(context.Background(), item, []upstream.NewsItem{item})
	require.NoError(t, err)
	assert.Equal(t, 50.0, hs.RelevanceScore)
}

func TestScoreRelevanceFallsBackToBatchProxy(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(stubRelevance{err: errors.New("upstream down")}, now)

	title := "央行宣布降息政策落地"
	batch := []upstream.NewsItem{
		{ID: "a", SourceID: "weibo", Title: title, PublishedAt: "2024-01-01T00:00:00Z"},
		{ID: "b", SourceID: "zhihu", Title: title, PublishedAt: "2024-01-01T00:00:00Z"},
	}
	hs, err := c.Score(context.Background(), batch[0], batch)
	require.NoError(t, err)
	// One near-duplicate match in the batch.
	assert.Equal(t, 10.0, hs.RelevanceScore)
}

func TestScoreBoundsHold(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(stubRelevance{sum: 1e9}, now)

	item := baseItem()
	item.Metrics = map[string]float64{"view_count": 1e12}
	hs, err := c.Score(context.Background(), item, []upstream.NewsItem{item})
	require.NoError(t, err)

	for name, v := range map[string]float64{
		"heat":       hs.HeatScore,
		"relevance":  hs.RelevanceScore,
		"recency":    hs.RecencyScore,
		"popularity": hs.PopularityScore,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 100.0, name)
	}
}

func TestScoreInvalidTimestamp(t *testing.T) {
	c := NewCalculator(nil, nil)
	item := baseItem()
	item.PublishedAt = "not a time"
	_, err := c.Score(context.Background(), item, []upstream.NewsItem{item})
	assert.Error(t, err)
}

func TestPopularityMetricPriority(t *testing.T) {
	c := NewCalculator(nil, nil)

	item := upstream.NewsItem{SourceID: "zhihu", Metrics: map[string]float64{
		"heat": 99999, "like_count": 2500,
	}}
	// like_count outranks heat.
	assert.Equal(t, 50.0, c.popularityScore(item))

	item.Metrics = nil
	assert.Equal(t, 0.0, c.popularityScore(item))
}

func TestParseTimeVariants(t *testing.T) {
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, input := range []string{
		"2024-01-01T00:00:00Z",
		"2024-01-01T08:00:00+08:00",
		"2024-01-01T00:00:00",
		"2024-01-01 00:00:00",
	} {
		got, err := ParseTime(input)
		require.NoError(t, err, input)
		assert.True(t, got.Equal(want), input)
		assert.Equal(t, time.UTC, got.Location(), input)
	}

	_, err := ParseTime("")
	assert.Error(t, err)
	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}

func TestRecencyMonotonic(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := 101.0
	for hours := 0; hours <= 96; hours += 6 {
		s := RecencyScore(now.Add(-time.Duration(hours)*time.Hour), now)
		assert.Less(t, s, prev)
		prev = s
	}

	// Future publication caps at 100.
	assert.Equal(t, 100.0, RecencyScore(now.Add(2*time.Hour), now))
}
