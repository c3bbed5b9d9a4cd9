package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"

	"stock-track-backend/internal/logx"
)

// ChromeScraper loads product pages through a local Chrome driven by chromedp.
// The browser tab created on Start is reused for every page.
type ChromeScraper struct {
	opts LoaderOptions

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	mu          sync.Mutex
	started     bool
}

func NewChromeScraper(opts LoaderOptions) *ChromeScraper {
	return &ChromeScraper{opts: opts}
}

// Start launches Chrome and opens the tab used for the run.
func (s *ChromeScraper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(s.opts.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// the first Run starts the browser
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("could not launch chrome: %w", err)
	}

	s.allocCancel, s.tabCtx, s.tabCancel = allocCancel, tabCtx, tabCancel
	s.started = true

	logx.Info().Msg("Chrome browser started")
	return nil
}

// Stop closes the tab and the browser.
func (s *ChromeScraper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.tabCancel()
	s.allocCancel()
	s.tabCtx = nil
	s.started = false
	logx.Info().Msg("Chrome browser stopped")
}

// LoadPage navigates the shared tab to url and returns the document HTML.
func (s *ChromeScraper) LoadPage(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return "", errors.New("chrome scraper not started")
	}

	// Deriving from the tab context keeps the tab open when the timeout fires.
	navCtx, cancel := context.WithTimeout(s.tabCtx, s.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s", ErrFetchTimeout, url)
		}
		return "", fmt.Errorf("could not load page: %w", err)
	}

	return html, nil
}
