package trending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsight/heatscore/internal/cache"
	"github.com/heatsight/heatscore/internal/store"
)

func rowWith(sourceID string, heat float64, keywords ...store.Keyword) store.HeatScore {
	return store.HeatScore{
		SourceID:  sourceID,
		HeatScore: heat,
		Keywords:  store.KeywordList(keywords),
	}
}

func TestAggregateTypeThresholds(t *testing.T) {
	now := time.Now().UTC()

	// "AI" as a plain keyword in only 2 sources: excluded (needs 3).
	rows := []store.HeatScore{
		rowWith("weibo", 50, store.Keyword{Word: "AI", Weight: 1, Type: store.KeywordTypeKeyword}),
		rowWith("zhihu", 50, store.Keyword{Word: "AI", Weight: 1, Type: store.KeywordTypeKeyword}),
		rowWith("weibo", 50, store.Keyword{Word: "AI", Weight: 1, Type: store.KeywordTypeKeyword}),
		rowWith("zhihu", 50, store.Keyword{Word: "AI", Weight: 1, Type: store.KeywordTypeKeyword}),
		rowWith("weibo", 50, store.Keyword{Word: "AI", Weight: 1, Type: store.KeywordTypeKeyword}),
	}
	assert.Empty(t, Aggregate(rows, now))

	// The same word as a phrase in 2 sources with count 2: included.
	rows = []store.HeatScore{
		rowWith("weibo", 50, store.Keyword{Word: "AI", Weight: 1, Type: store.KeywordTypePhrase}),
		rowWith("zhihu", 50, store.Keyword{Word: "AI", Weight: 1, Type: store.KeywordTypePhrase}),
	}
	entries := Aggregate(rows, now)
	require.Len(t, entries, 1)
	assert.Equal(t, "AI", entries[0].Keyword)
	assert.Equal(t, store.KeywordTypePhrase, entries[0].Type)
}

func TestAggregateHeatFormula(t *testing.T) {
	now := time.Now().UTC()
	rows := []store.HeatScore{
		rowWith("weibo", 80, store.Keyword{Word: "降息", Weight: 0.8, Type: store.KeywordTypeKeyword}),
		rowWith("zhihu", 60, store.Keyword{Word: "降息", Weight: 0.6, Type: store.KeywordTypeKeyword}),
		rowWith("toutiao", 40, store.Keyword{Word: "降息", Weight: 0.4, Type: store.KeywordTypeKeyword}),
	}
	entries := Aggregate(rows, now)
	require.Len(t, entries, 1)

	// count=3, avgWeight=0.6, avgHeat=60, sources=3, divisor=1000
	assert.InDelta(t, 3*0.6*60*3/1000.0, entries[0].Heat, 1e-9)
	assert.Equal(t, 3, entries[0].Count)
	assert.Equal(t, []string{"toutiao", "weibo", "zhihu"}, entries[0].Sources)
}

func TestAggregateClampAndOrder(t *testing.T) {
	now := time.Now().UTC()
	var rows []store.HeatScore
	// Heavily repeated topic saturates at 100.
	for _, src := range []string{"weibo", "zhihu", "toutiao", "sina", "qq"} {
		for i := 0; i < 50; i++ {
			rows = append(rows, rowWith(src, 100,
				store.Keyword{Word: "热门话题", Weight: 1, Type: store.KeywordTypeTopic},
				store.Keyword{Word: "次要话题", Weight: 0.1, Type: store.KeywordTypeTopic}))
		}
	}
	entries := Aggregate(rows, now)
	require.Len(t, entries, 2)
	assert.Equal(t, "热门话题", entries[0].Keyword)
	assert.Equal(t, 100.0, entries[0].Heat)
	assert.GreaterOrEqual(t, entries[0].Heat, entries[1].Heat)
}

func TestAggregateIdempotent(t *testing.T) {
	now := time.Now().UTC()
	rows := []store.HeatScore{
		rowWith("weibo", 80, store.Keyword{Word: "降息", Weight: 0.8, Type: store.KeywordTypeKeyword}),
		rowWith("zhihu", 60, store.Keyword{Word: "降息", Weight: 0.6, Type: store.KeywordTypeKeyword}),
		rowWith("toutiao", 40, store.Keyword{Word: "降息", Weight: 0.4, Type: store.KeywordTypeKeyword}),
		rowWith("weibo", 70, store.Keyword{Word: "新闻专题", Weight: 1, Type: store.KeywordTypeTopic}),
		rowWith("zhihu", 30, store.Keyword{Word: "新闻专题", Weight: 1, Type: store.KeywordTypeTopic}),
	}
	first := Aggregate(rows, now)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, Aggregate(rows, now))
	}
}

type stubRows struct {
	rows []store.HeatScore
	got  store.TopQuery
}

func (s *stubRows) GetTop(_ context.Context, q store.TopQuery) ([]store.HeatScore, error) {
	s.got = q
	return s.rows, nil
}

func TestUpdatePublishesToCache(t *testing.T) {
	c := cache.NewMemoryCache()
	a := NewAggregator(c)

	rows := &stubRows{rows: []store.HeatScore{
		rowWith("weibo", 80, store.Keyword{Word: "新闻专题", Weight: 1, Type: store.KeywordTypeTopic}),
		rowWith("zhihu", 60, store.Keyword{Word: "新闻专题", Weight: 1, Type: store.KeywordTypeTopic}),
	}}

	entries, err := a.Update(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, maxInputRows, rows.got.Limit)
	assert.Equal(t, windowHours, rows.got.MaxAgeHours)
	require.NotNil(t, rows.got.MinScore)
	assert.Equal(t, minHeatScore, *rows.got.MinScore)

	got, err := a.Get(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "新闻专题", got[0].Keyword)
}

func TestGetEmptyCache(t *testing.T) {
	a := NewAggregator(cache.NewMemoryCache())
	entries, err := a.Get(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGetFilters(t *testing.T) {
	c := cache.NewMemoryCache()
	a := NewAggregator(c)

	stored := []Entry{
		{Keyword: "a", Heat: 90},
		{Keyword: "b", Heat: 50},
		{Keyword: "c", Heat: 10},
	}
	require.NoError(t, c.Set(context.Background(), CacheKey, stored, time.Minute))

	got, err := a.Get(context.Background(), 0, 40)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = a.Get(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Keyword)
}
