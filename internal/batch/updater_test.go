package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsight/heatscore/internal/fetch"
	"github.com/heatsight/heatscore/internal/score"
	"github.com/heatsight/heatscore/internal/store"
	"github.com/heatsight/heatscore/internal/upstream"
)

type fakeUpstream struct {
	sources    []upstream.SourceDescriptor
	sourcesErr error
	items      map[string][]upstream.NewsItem
}

func (f *fakeUpstream) Sources(context.Context, bool) ([]upstream.SourceDescriptor, error) {
	return f.sources, f.sourcesErr
}

func (f *fakeUpstream) SourceItems(_ context.Context, sourceID string, _ bool) ([]upstream.NewsItem, error) {
	return f.items[sourceID], nil
}

type fakePersister struct {
	created []*store.HeatScore
	failOn  map[string]bool
}

func (f *fakePersister) Create(_ context.Context, hs *store.HeatScore) error {
	if f.failOn[hs.NewsID] {
		return errors.New("constraint violation")
	}
	f.created = append(f.created, hs)
	return nil
}

func newUpdater(u *fakeUpstream) *Updater {
	return NewUpdater(u, fetch.NewFanout(u), score.NewCalculator(nil, nil))
}

func TestRunPersistsScoredItems(t *testing.T) {
	fake := &fakeUpstream{
		sources: []upstream.SourceDescriptor{{"source_id": "weibo"}, {"source_id": "zhihu"}},
		items: map[string][]upstream.NewsItem{
			"weibo": {{ID: "n1", SourceID: "weibo", Title: "央行宣布降息政策落地", URL: "u1", PublishedAt: "2026-01-01T00:00:00Z"}},
			"zhihu": {{ID: "n2", SourceID: "zhihu", Title: "世界杯决赛今晚打响", URL: "u2", PublishedAt: "2026-01-01T00:00:00Z"}},
		},
	}
	persister := &fakePersister{}

	results := newUpdater(fake).Run(context.Background(), persister)

	require.Len(t, results, 2)
	assert.Contains(t, results, "n1")
	assert.Contains(t, results, "n2")
	assert.Len(t, persister.created, 2)
	for _, hs := range results {
		assert.GreaterOrEqual(t, hs.HeatScore, 0.0)
		assert.LessOrEqual(t, hs.HeatScore, 100.0)
	}
}

func TestRunSourceDiscoveryFailure(t *testing.T) {
	fake := &fakeUpstream{sourcesErr: upstream.ErrUnavailable}
	results := newUpdater(fake).Run(context.Background(), &fakePersister{})
	assert.Empty(t, results)
}

func TestRunEmptySources(t *testing.T) {
	fake := &fakeUpstream{}
	results := newUpdater(fake).Run(context.Background(), &fakePersister{})
	assert.Empty(t, results)
}

func TestRunSkipsFailingItems(t *testing.T) {
	fake := &fakeUpstream{
		sources: []upstream.SourceDescriptor{{"source_id": "weibo"}},
		items: map[string][]upstream.NewsItem{
			"weibo": {
				{ID: "good", SourceID: "weibo", Title: "央行宣布降息政策落地", URL: "u", PublishedAt: "2026-01-01T00:00:00Z"},
				{ID: "badtime", SourceID: "weibo", Title: "另一则新闻标题示例", URL: "u", PublishedAt: "not a time"},
				{ID: "badstore", SourceID: "weibo", Title: "第三则新闻标题示例", URL: "u", PublishedAt: "2026-01-01T00:00:00Z"},
			},
		},
	}
	persister := &fakePersister{failOn: map[string]bool{"badstore": true}}

	results := newUpdater(fake).Run(context.Background(), persister)

	require.Len(t, results, 1)
	assert.Contains(t, results, "good")
}
