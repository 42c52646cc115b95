// Package app wires the heat-score components together and exposes the
// background task entry points shared by the scheduler and the HTTP API.
package app

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/heatsight/heatscore/internal/batch"
	"github.com/heatsight/heatscore/internal/cache"
	"github.com/heatsight/heatscore/internal/config"
	"github.com/heatsight/heatscore/internal/fetch"
	"github.com/heatsight/heatscore/internal/scheduler"
	"github.com/heatsight/heatscore/internal/score"
	"github.com/heatsight/heatscore/internal/store"
	"github.com/heatsight/heatscore/internal/trending"
	"github.com/heatsight/heatscore/internal/upstream"
	"github.com/heatsight/heatscore/internal/weights"
)

// App owns the process-lifetime singletons: database pool, cache client,
// upstream client and the derived components.
type App struct {
	Config config.Config

	DB       *sqlx.DB
	Store    *store.Store
	Cache    cache.Cache
	Upstream *upstream.Client

	Updater   *batch.Updater
	Trending  *trending.Aggregator
	Weights   *weights.Learner
	Scheduler *scheduler.Scheduler
}

// New connects all backends and builds the component graph.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	c := cache.Connect(ctx, cfg.RedisURL)

	client := upstream.NewClient(upstream.Config{
		BaseURL: cfg.HeatlinkAPIURL,
		Timeout: cfg.HeatlinkTimeout,
	}, c)

	st := store.New(db, 10*time.Second)
	calculator := score.NewCalculator(score.NewUpstreamRelevance(client), weights.NewProvider(c))

	return &App{
		Config:    cfg,
		DB:        db,
		Store:     st,
		Cache:     c,
		Upstream:  client,
		Updater:   batch.NewUpdater(client, fetch.NewFanout(client), calculator),
		Trending:  trending.NewAggregator(c),
		Weights:   weights.NewLearner(client, c),
		Scheduler: scheduler.New(st),
	}, nil
}

// RegisterTasks starts the three periodic background loops.
func (a *App) RegisterTasks() {
	a.Scheduler.Register("heat_update", a.RunHeatUpdate, scheduler.Options{
		Interval:    scheduler.HeatUpdateInterval,
		WithSession: true,
		AutoCommit:  true,
	})
	a.Scheduler.Register("keyword_update", a.RunKeywordUpdate, scheduler.Options{
		Interval: scheduler.KeywordUpdateInterval,
	})
	a.Scheduler.Register("source_weight_update", a.RunWeightUpdate, scheduler.Options{
		Interval: scheduler.WeightUpdateInterval,
	})
}

// RunHeatUpdate executes one fetch-score-persist pass. With a session the
// whole run commits or rolls back as one transaction.
func (a *App) RunHeatUpdate(ctx context.Context, sess *store.Session) error {
	results := a.Updater.Run(ctx, a.taskStore(sess))
	log.Info().Int("scores", len(results)).Msg("Heat update finished")
	return nil
}

// RunKeywordUpdate recomputes the trending keyword list.
func (a *App) RunKeywordUpdate(ctx context.Context, _ *store.Session) error {
	_, err := a.Trending.Update(ctx, a.Store)
	return err
}

// RunWeightUpdate relearns per-source weights.
func (a *App) RunWeightUpdate(ctx context.Context, _ *store.Session) error {
	_, err := a.Weights.Update(ctx)
	return err
}

// RunCategoryBackfill derives categories for rows that predate category
// tracking.
func (a *App) RunCategoryBackfill(ctx context.Context, sess *store.Session) error {
	updated, err := a.taskStore(sess).BackfillCategories(ctx, 0, score.CategoryForSource)
	if err != nil {
		return err
	}
	log.Info().Int("updated", updated).Msg("Category backfill finished")
	return nil
}

// RunAsync executes one task in the background under the same bounded-run
// envelope the scheduler uses. Used by the HTTP update endpoints.
func (a *App) RunAsync(name string, withSession bool, fn func(ctx context.Context, sess *store.Session) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), scheduler.DefaultMaxExecution)
		defer cancel()

		var sess *store.Session
		if withSession {
			var err error
			sess, err = a.Store.Begin(ctx)
			if err != nil {
				log.Error().Err(err).Str("task", name).Msg("Failed to open task session")
				return
			}
		}

		if err := fn(ctx, sess); err != nil {
			log.Error().Err(err).Str("task", name).Msg("Background task failed")
			if sess != nil {
				sess.Rollback()
			}
			return
		}
		if sess != nil {
			if err := sess.Commit(); err != nil {
				log.Error().Err(err).Str("task", name).Msg("Background task commit failed")
			}
		}
		log.Info().Str("task", name).Msg("Background task finished")
	}()
}

func (a *App) taskStore(sess *store.Session) *store.Store {
	if sess != nil {
		return sess.Store()
	}
	return a.Store
}

// Close stops the scheduler and releases the backends.
func (a *App) Close() {
	a.Scheduler.Stop()
	if err := a.Cache.Close(); err != nil {
		log.Warn().Err(err).Msg("Cache close failed")
	}
	if err := a.DB.Close(); err != nil {
		log.Warn().Err(err).Msg("Database close failed")
	}
}
