package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/heatsight/heatscore/internal/upstream"
)

type fakeFetcher struct {
	mu         sync.Mutex
	active     int
	maxActive  int
	delay      time.Duration
	failing    map[string]bool
	calls      []string
	itemsPerID int
}

func (f *fakeFetcher) SourceItems(ctx context.Context, sourceID string, _ bool) ([]upstream.NewsItem, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.calls = append(f.calls, sourceID)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failing[sourceID] {
		return nil, errors.New("source exploded")
	}

	n := f.itemsPerID
	if n == 0 {
		n = 1
	}
	items := make([]upstream.NewsItem, n)
	for i := range items {
		items[i] = upstream.NewsItem{ID: sourceID + "-item", SourceID: sourceID}
	}
	return items, nil
}

func descriptors(ids ...string) []upstream.SourceDescriptor {
	out := make([]upstream.SourceDescriptor, len(ids))
	for i, id := range ids {
		out[i] = upstream.SourceDescriptor{"source_id": id}
	}
	return out
}

func TestFetchAllBoundsConcurrency(t *testing.T) {
	fetcher := &fakeFetcher{delay: 20 * time.Millisecond}
	fanout := NewFanout(fetcher)

	items := fanout.FetchAll(context.Background(), descriptors("a", "b", "c", "d", "e", "f", "g"))

	assert.Len(t, items, 7)
	assert.LessOrEqual(t, fetcher.maxActive, chunkSize)
	assert.Len(t, fetcher.calls, 7)
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	fetcher := &fakeFetcher{failing: map[string]bool{"b": true}}
	fanout := NewFanout(fetcher)

	items := fanout.FetchAll(context.Background(), descriptors("a", "b", "c"))

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.SourceID
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)
}

func TestFetchAllSkipsDescriptorsWithoutID(t *testing.T) {
	fetcher := &fakeFetcher{}
	fanout := NewFanout(fetcher)

	sources := []upstream.SourceDescriptor{
		{"source_id": "a"},
		{"weight": 1.0},
		{"name": "c"},
	}
	items := fanout.FetchAll(context.Background(), sources)

	assert.Len(t, items, 2)
	assert.ElementsMatch(t, []string{"a", "c"}, fetcher.calls)
}

func TestFetchAllHonorsCancellation(t *testing.T) {
	fetcher := &fakeFetcher{delay: 10 * time.Millisecond}
	fanout := NewFanout(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := fanout.FetchAll(ctx, descriptors("a", "b", "c", "d"))
	assert.Empty(t, items)
}
