package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/heatsight/heatscore/internal/app"
	"github.com/heatsight/heatscore/internal/config"
	httpapi "github.com/heatsight/heatscore/internal/interfaces/http"
)

const (
	appName = "heatscore"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "News heat scoring and trending aggregation service",
		Version: version,
		Long: `Heatscore fetches news items from the HeatLink feed, computes per-item
heat scores, learns per-source weights and aggregates trending keywords.

Configuration comes from the environment: DATABASE_URL, REDIS_URL and
HEATLINK_API_URL are required.`,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with background schedulers",
		Long:  "Starts the HTTP server and the periodic heat, keyword and source-weight tasks",
		RunE:  runServe,
	}
	serveCmd.Flags().Bool("no-scheduler", false, "Serve HTTP only, without periodic tasks")

	updateCmd := &cobra.Command{
		Use:       "update [heat|keywords|weights|categories]",
		Short:     "Run one update task and exit",
		Long:      "Runs a single update pass (heat scores, trending keywords, source weights or category backfill) and exits",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"heat", "keywords", "weights", "categories"},
		RunE:      runUpdate,
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Probe database, cache and upstream connectivity",
		RunE:  runHealth,
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(healthCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)
	return app.New(ctx, cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	noScheduler, _ := cmd.Flags().GetBool("no-scheduler")
	if !noScheduler {
		a.RegisterTasks()
	}

	srv := httpapi.NewServer(a)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	log.Info().Str("host", a.Config.Host).Int("port", a.Config.Port).Msg("HTTP server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	started := time.Now()
	switch args[0] {
	case "heat":
		sess, err := a.Store.Begin(ctx)
		if err != nil {
			return err
		}
		if err := a.RunHeatUpdate(ctx, sess); err != nil {
			sess.Rollback()
			return err
		}
		if err := sess.Commit(); err != nil {
			return err
		}
	case "keywords":
		if err := a.RunKeywordUpdate(ctx, nil); err != nil {
			return err
		}
	case "weights":
		if err := a.RunWeightUpdate(ctx, nil); err != nil {
			return err
		}
	case "categories":
		sess, err := a.Store.Begin(ctx)
		if err != nil {
			return err
		}
		if err := a.RunCategoryBackfill(ctx, sess); err != nil {
			sess.Rollback()
			return err
		}
		if err := sess.Commit(); err != nil {
			return err
		}
	}
	log.Info().Str("task", args[0]).Dur("elapsed", time.Since(started)).Msg("Update finished")
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	failed := false
	report := func(component string, err error) {
		if err != nil {
			failed = true
			fmt.Printf("%-10s DOWN  %v\n", component, err)
			return
		}
		fmt.Printf("%-10s UP\n", component)
	}

	report("database", a.DB.PingContext(ctx))
	report("cache", a.Cache.Ping(ctx))
	report("upstream", a.Upstream.Health(ctx))

	if failed {
		return fmt.Errorf("one or more components are down")
	}
	return nil
}
