// Package batch orchestrates one heat-update run: discover sources, fan out
// for items, score and persist each one.
package batch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/heatsight/heatscore/internal/fetch"
	"github.com/heatsight/heatscore/internal/score"
	"github.com/heatsight/heatscore/internal/store"
	"github.com/heatsight/heatscore/internal/upstream"
)

// sourcesTimeout is the hard bound on source discovery.
const sourcesTimeout = 15 * time.Second

// SourceLister is the slice of the upstream client the updater needs.
type SourceLister interface {
	Sources(ctx context.Context, forceRefresh bool) ([]upstream.SourceDescriptor, error)
}

// Persister writes calculated rows. Satisfied by *store.Store.
type Persister interface {
	Create(ctx context.Context, hs *store.HeatScore) error
}

// Updater runs the fetch-score-persist pipeline.
type Updater struct {
	sources    SourceLister
	fanout     *fetch.Fanout
	calculator *score.Calculator
	log        zerolog.Logger
}

// NewUpdater wires the pipeline stages together.
func NewUpdater(sources SourceLister, fanout *fetch.Fanout, calculator *score.Calculator) *Updater {
	return &Updater{
		sources:    sources,
		fanout:     fanout,
		calculator: calculator,
		log:        log.With().Str("component", "batch").Logger(),
	}
}

// Run executes one update pass and returns the successfully persisted rows
// keyed by news id. Per-item failures are logged and skipped; discovery
// failure or an empty upstream yields a clean empty result.
func (u *Updater) Run(ctx context.Context, persister Persister) map[string]*store.HeatScore {
	results := make(map[string]*store.HeatScore)

	discoverCtx, cancel := context.WithTimeout(ctx, sourcesTimeout)
	sources, err := u.sources.Sources(discoverCtx, true)
	cancel()
	if err != nil {
		u.log.Warn().Err(err).Msg("Source discovery failed, skipping run")
		return results
	}
	if len(sources) == 0 {
		u.log.Info().Msg("No sources discovered, skipping run")
		return results
	}

	items := u.fanout.FetchAll(ctx, sources)
	if len(items) == 0 {
		u.log.Info().Msg("No items fetched, skipping run")
		return results
	}
	u.log.Info().Int("sources", len(sources)).Int("items", len(items)).Msg("Scoring batch")

	for _, item := range items {
		hs, err := u.calculator.Score(ctx, item, items)
		if err != nil {
			u.log.Warn().Err(err).
				Str("news_id", item.ID).Str("source_id", item.SourceID).Str("title", item.Title).
				Msg("Scoring failed, skipping item")
			continue
		}
		if err := persister.Create(ctx, hs); err != nil {
			u.log.Warn().Err(err).
				Str("news_id", item.ID).Str("source_id", item.SourceID).
				Msg("Persisting heat score failed, skipping item")
			continue
		}
		results[hs.NewsID] = hs
	}

	u.log.Info().Int("persisted", len(results)).Msg("Heat update run complete")
	return results
}
