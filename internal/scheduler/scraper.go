package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"stock-track-backend/internal/logx"
)

// ErrFetchTimeout is returned when a page did not load within the fetch timeout.
var ErrFetchTimeout = errors.New("page load timed out")

// LoaderOptions configures every page loader.
type LoaderOptions struct {
	UserAgent string
	Timeout   time.Duration
	// InstallBrowsers downloads the Playwright driver and Chromium on Start.
	InstallBrowsers bool
}

// Scraper loads product pages in a headless Chromium driven by Playwright.
// One browser page is opened on Start and reused for every LoadPage call.
type Scraper struct {
	opts LoaderOptions

	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	mu      sync.Mutex
	started bool
}

// NewScraper creates a new Scraper instance.
func NewScraper(opts LoaderOptions) *Scraper {
	return &Scraper{opts: opts}
}

// Start launches the browser and opens the page used for the run.
func (s *Scraper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.opts.InstallBrowsers {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return fmt.Errorf("could not install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("could not start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("could not launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(s.opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  1920,
			Height: 1080,
		},
		Locale: playwright.String("en-US"),
		ExtraHttpHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("could not create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		pw.Stop()
		return fmt.Errorf("could not create page: %w", err)
	}

	s.pw, s.browser, s.bctx, s.page = pw, browser, bctx, page
	s.started = true

	logx.Info().Msg("Playwright browser started")
	return nil
}

// Stop closes the browser and cleans up resources. It is safe to call when
// Start failed or was never called.
func (s *Scraper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.bctx != nil {
		s.bctx.Close()
	}
	if s.browser != nil {
		s.browser.Close()
	}
	if s.pw != nil {
		s.pw.Stop()
	}
	s.page, s.bctx, s.browser, s.pw = nil, nil, nil, nil
	s.started = false
	logx.Info().Msg("Playwright browser stopped")
}

// LoadPage navigates the shared page to url and returns its HTML once the DOM
// has loaded.
func (s *Scraper) LoadPage(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return "", errors.New("scraper not started")
	}

	timeout := float64(s.opts.Timeout.Milliseconds())
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(timeout),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return "", fmt.Errorf("%w: %s", ErrFetchTimeout, url)
		}
		return "", fmt.Errorf("could not navigate to page: %w", err)
	}

	if err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(timeout),
	}); err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return "", fmt.Errorf("%w: %s", ErrFetchTimeout, url)
		}
		return "", fmt.Errorf("could not wait for page: %w", err)
	}

	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("could not get page content: %w", err)
	}

	return content, nil
}
