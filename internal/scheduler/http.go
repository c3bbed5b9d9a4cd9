package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxBodyBytes caps how much of a product page is read.
const maxBodyBytes = 8 << 20

// HTTPScraper fetches pages with a plain GET. It runs no JavaScript, so it
// only suits retailers that render availability server side.
type HTTPScraper struct {
	opts   LoaderOptions
	client *http.Client
}

func NewHTTPScraper(opts LoaderOptions) *HTTPScraper {
	return &HTTPScraper{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

func (s *HTTPScraper) Start() error { return nil }

func (s *HTTPScraper) Stop() { s.client.CloseIdleConnections() }

// LoadPage returns the response body of a GET to url.
func (s *HTTPScraper) LoadPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %s", ErrFetchTimeout, url)
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %s", ErrFetchTimeout, url)
		}
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(body), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// VisibleText strips scripts, styles and markup from html and returns the
// remaining document text.
func VisibleText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}
