package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"stock-track-backend/internal/logx"
	"stock-track-backend/internal/metrics"
	"stock-track-backend/internal/notify"
	"stock-track-backend/internal/stock"
)

// ProductStore is the product source the scheduler reads and updates.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]stock.Product, error)
	UpdateProduct(ctx context.Context, id string, fields stock.Fields) error
}

// PageLoader fetches fully loaded page content. Start and Stop bracket a run.
type PageLoader interface {
	Start() error
	LoadPage(ctx context.Context, url string) (string, error)
	Stop()
}

// Notifier is told about every status change that was written.
type Notifier interface {
	StatusChanged(ctx context.Context, c stock.Change) error
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeUnchanged
	outcomeChanged
)

// Options tunes a Scheduler. Zero values pick the defaults.
type Options struct {
	Classifier *stock.Classifier
	Notifier   Notifier
	Metrics    *metrics.Recorder
	// TextOnly classifies visible text instead of the raw page HTML.
	TextOnly bool
	// Interval is the minimum spacing between two page loads.
	Interval time.Duration
	Now      func() time.Time
}

// RunSummary counts what happened during one sweep.
type RunSummary struct {
	RunID      string
	Total      int
	Checked    int
	Changed    int
	Skipped    int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Scheduler runs one sequential sweep over every product.
type Scheduler struct {
	store      ProductStore
	loader     PageLoader
	classifier *stock.Classifier
	notifier   Notifier
	metrics    *metrics.Recorder
	limiter    *rate.Limiter
	textOnly   bool
	now        func() time.Time
}

func New(store ProductStore, loader PageLoader, opts Options) *Scheduler {
	s := &Scheduler{
		store:      store,
		loader:     loader,
		classifier: opts.Classifier,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		textOnly:   opts.TextOnly,
		now:        opts.Now,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	if s.classifier == nil {
		s.classifier = stock.DefaultClassifier()
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Interval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(opts.Interval), 1)
	}
	return s
}

// CheckAllStock reads every product, checks each one in turn and writes back
// the results. It only returns an error when the product list cannot be read
// or the page loader cannot start; per-product failures are logged and counted.
func (s *Scheduler) CheckAllStock(ctx context.Context) (RunSummary, error) {
	sum := RunSummary{RunID: uuid.NewString(), StartedAt: s.now()}
	log := logx.With().Str("run_id", sum.RunID).Logger()

	log.Info().Msg("--- Starting stock check ---")

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return sum, fmt.Errorf("list products: %w", err)
	}
	sum.Total = len(products)

	if len(products) == 0 {
		log.Info().Msg("No products found in database")
		sum.FinishedAt = s.now()
		return sum, nil
	}

	if err := s.loader.Start(); err != nil {
		return sum, fmt.Errorf("start page loader: %w", err)
	}
	defer s.loader.Stop()

	for _, p := range products {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("Run cancelled, leaving remaining products unchecked")
			break
		}

		out, err := s.checkProduct(ctx, log, sum.RunID, p)
		if err != nil {
			sum.Failed++
			log.Error().Err(err).Str("product", p.Name).Str("id", p.ID).Msg("Check failed")
			continue
		}
		switch out {
		case outcomeSkipped:
			sum.Skipped++
		case outcomeChanged:
			sum.Checked++
			sum.Changed++
		case outcomeUnchanged:
			sum.Checked++
		}
	}

	sum.FinishedAt = s.now()
	s.metrics.RunFinished(sum.FinishedAt, sum.Checked)

	log.Info().
		Int("total", sum.Total).
		Int("checked", sum.Checked).
		Int("changed", sum.Changed).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Dur("elapsed", sum.FinishedAt.Sub(sum.StartedAt)).
		Msg("--- Stock check finished ---")

	return sum, nil
}

// checkProduct fetches, classifies and writes back a single product. A
// returned error means the product's row was not updated.
func (s *Scheduler) checkProduct(ctx context.Context, log zerolog.Logger, runID string, p stock.Product) (outcome, error) {
	retailer := s.classifier.RetailerFor(p.BuyURL).Name

	if p.BuyURL == "" {
		log.Info().Str("product", p.Name).Msg("No buy URL, skipping")
		s.metrics.ObserveCheck(retailer, "skipped")
		return outcomeSkipped, nil
	}

	log.Info().Str("product", p.Name).Str("retailer", p.Retailer).Msg("Checking")

	if err := s.limiter.Wait(ctx); err != nil {
		return outcomeSkipped, fmt.Errorf("wait for next page load: %w", err)
	}

	start := time.Now()
	content, err := s.loader.LoadPage(ctx, p.BuyURL)
	s.metrics.ObserveFetch(retailer, time.Since(start))
	if err != nil {
		result := "fetch_error"
		if errors.Is(err, ErrFetchTimeout) {
			result = "timeout"
		}
		s.metrics.ObserveCheck(retailer, result)
		return outcomeSkipped, fmt.Errorf("fetch %s: %w", p.BuyURL, err)
	}

	if s.textOnly {
		if content, err = VisibleText(content); err != nil {
			s.metrics.ObserveCheck(retailer, "fetch_error")
			return outcomeSkipped, fmt.Errorf("extract text: %w", err)
		}
	}

	verdict := s.classifier.Evaluate(p.BuyURL, content)
	status := verdict.Status
	log.Debug().
		Str("product", p.Name).
		Str("rules", verdict.Retailer).
		Str("matched", verdict.Rule).
		Int("content_bytes", len(content)).
		Msg("Classified page")
	log.Info().Str("product", p.Name).Str("status", string(status)).Msg("--> Status found")

	checkedAt := s.now()
	fields := stock.Fields{LastChecked: checkedAt}
	changed := status != p.Status
	if changed {
		fields.Status = status
	}

	if err := s.store.UpdateProduct(ctx, p.ID, fields); err != nil {
		s.metrics.ObserveCheck(retailer, "write_error")
		return outcomeSkipped, fmt.Errorf("write back: %w", err)
	}
	s.metrics.ObserveCheck(retailer, string(status))

	if !changed {
		return outcomeUnchanged, nil
	}

	log.Info().
		Str("product", p.Name).
		Str("from", string(p.Status)).
		Str("to", string(status)).
		Msg("*** UPDATE: status changed ***")
	s.metrics.ObserveChange(retailer, string(status))

	change := stock.Change{
		RunID:     runID,
		ProductID: p.ID,
		Name:      p.Name,
		Retailer:  p.Retailer,
		BuyURL:    p.BuyURL,
		From:      p.Status,
		To:        status,
		CheckedAt: checkedAt,
	}
	if err := s.notifier.StatusChanged(ctx, change); err != nil {
		log.Warn().Err(err).Str("product", p.Name).Msg("Failed to publish status change")
	}

	return outcomeChanged, nil
}
