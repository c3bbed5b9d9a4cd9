package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/lib/pq"

	"stock-track-backend/internal/config"
	"stock-track-backend/internal/logx"
	"stock-track-backend/internal/metrics"
	"stock-track-backend/internal/notify"
	"stock-track-backend/internal/scheduler"
	"stock-track-backend/internal/store"
)

const pushTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	logx.Init(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		logx.Error().Err(err).Msg("Missing or invalid configuration")
		return 1
	}
	logx.Init(cfg.Env, cfg.LogLevel)

	dsn, err := cfg.DSN()
	if err != nil {
		logx.Error().Err(err).Msg("Invalid database configuration")
		return 1
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to open database connection")
		return 1
	}
	defer db.Close()

	// Create context with timeout for the entire job
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logx.Error().Err(err).Msg("Failed to ping database")
		return 1
	}
	logx.Info().Msg("Connected to database")

	opts := scheduler.Options{
		Metrics:  metrics.New(),
		TextOnly: cfg.ContentMode == "text",
		Interval: cfg.CheckInterval,
	}

	if cfg.Redis.URL != "" {
		pub, err := notify.NewRedis(ctx, cfg.Redis)
		if err != nil {
			// alerts are optional; the check itself still runs
			logx.Warn().Err(err).Msg("Redis unavailable, status changes will not be published")
		} else {
			defer pub.Close()
			opts.Notifier = pub
		}
	}

	loader := newLoader(cfg)
	sch := scheduler.New(store.New(db, cfg.ProductsTable), loader, opts)

	sum, err := sch.CheckAllStock(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Stock check aborted")
		return 1
	}

	if cfg.PushgatewayURL != "" {
		pushCtx, cancelPush := context.WithTimeout(context.Background(), pushTimeout)
		if err := opts.Metrics.Push(pushCtx, cfg.PushgatewayURL); err != nil {
			logx.Warn().Err(err).Msg("Failed to push metrics")
		}
		cancelPush()
	}

	logx.Info().Str("run_id", sum.RunID).Msg("Scraper job finished")
	return 0
}

func newLoader(cfg *config.Config) scheduler.PageLoader {
	opts := scheduler.LoaderOptions{
		UserAgent:       cfg.UserAgent,
		Timeout:         cfg.FetchTimeout,
		InstallBrowsers: cfg.InstallBrowsers,
	}
	switch cfg.Fetcher {
	case "chromedp":
		return scheduler.NewChromeScraper(opts)
	case "http":
		return scheduler.NewHTTPScraper(opts)
	default:
		return scheduler.NewScraper(opts)
	}
}
