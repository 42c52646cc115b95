// Package fetch pulls items from many upstream sources with bounded
// concurrency.
package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/heatsight/heatscore/internal/upstream"
)

const (
	// chunkSize bounds concurrent per-source fetches.
	chunkSize = 3
	// sourceTimeout bounds one source fetch.
	sourceTimeout = 10 * time.Second
	// chunkYield briefly hands the scheduler back between chunks so the
	// fan-out does not starve other work.
	chunkYield = 100 * time.Millisecond
)

// SourceFetcher is the slice of the upstream client the fan-out needs.
type SourceFetcher interface {
	SourceItems(ctx context.Context, sourceID string, forceRefresh bool) ([]upstream.NewsItem, error)
}

// Fanout fetches source details in chunks of three.
type Fanout struct {
	fetcher SourceFetcher
	log     zerolog.Logger
}

// NewFanout wraps an upstream client.
func NewFanout(fetcher SourceFetcher) *Fanout {
	return &Fanout{
		fetcher: fetcher,
		log:     log.With().Str("component", "fetch").Logger(),
	}
}

// FetchAll pulls items for every source and flattens them into one list.
// Per-source failures are logged and skipped; they never abort siblings.
func (f *Fanout) FetchAll(ctx context.Context, sources []upstream.SourceDescriptor) []upstream.NewsItem {
	var all []upstream.NewsItem

	for start := 0; start < len(sources); start += chunkSize {
		if ctx.Err() != nil {
			break
		}
		end := start + chunkSize
		if end > len(sources) {
			end = len(sources)
		}
		all = append(all, f.fetchChunk(ctx, sources[start:end])...)

		if end < len(sources) {
			select {
			case <-time.After(chunkYield):
			case <-ctx.Done():
				return all
			}
		}
	}
	return all
}

func (f *Fanout) fetchChunk(ctx context.Context, chunk []upstream.SourceDescriptor) []upstream.NewsItem {
	results := make([][]upstream.NewsItem, len(chunk))
	var wg sync.WaitGroup

	for i, source := range chunk {
		sourceID := source.ID()
		if sourceID == "" {
			f.log.Warn().Msg("Skipping source descriptor without an id")
			continue
		}

		wg.Add(1)
		go func(i int, sourceID string) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, sourceTimeout)
			defer cancel()

			items, err := f.fetcher.SourceItems(fetchCtx, sourceID, false)
			if err != nil {
				f.log.Warn().Err(err).Str("source_id", sourceID).Msg("Source fetch failed")
				return
			}
			results[i] = items
		}(i, sourceID)
	}
	wg.Wait()

	var merged []upstream.NewsItem
	for _, items := range results {
		merged = append(merged, items...)
	}
	return merged
}
