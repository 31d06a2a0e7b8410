// Package scraper fetches vendor pages and extracts text, pricing hints,
// and feature lists for analysis.
package scraper

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/shortlist-cli/internal/model"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// PageCache stores scraped pages between runs. Implemented by internal/store.
type PageCache interface {
	GetCachedPage(ctx context.Context, url string) (*model.ScrapedPage, error)
	PutCachedPage(ctx context.Context, page *model.ScrapedPage, ttl time.Duration) error
}

// Option configures the Scraper.
type Option func(*Scraper)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		s.client.Timeout = d
	}
}

// WithMaxBodyBytes overrides the response body cap.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Scraper) {
		s.maxBody = n
	}
}

// WithRateLimit throttles outbound fetches to rps requests per second.
func WithRateLimit(rps float64) Option {
	return func(s *Scraper) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			s.limiter = nil
		}
	}
}

// WithCache consults a page cache before fetching.
func WithCache(cache PageCache, ttl time.Duration) Option {
	return func(s *Scraper) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// Scraper fetches and extracts vendor pages over plain HTTP.
type Scraper struct {
	client   *http.Client
	maxBody  int64
	limiter  *rate.Limiter
	cache    PageCache
	cacheTTL time.Duration
}

// New creates a Scraper with browser-like headers and sensible defaults.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return eris.New("scraper: too many redirects")
				}
				return nil
			},
		},
		maxBody: 512 * 1024,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ScrapeOne fetches a single URL and extracts its content.
func (s *Scraper) ScrapeOne(ctx context.Context, targetURL string) (*model.ScrapedPage, error) {
	if s.cache != nil {
		if page, err := s.cache.GetCachedPage(ctx, targetURL); err == nil && page != nil {
			zap.L().Debug("scraper: cache hit", zap.String("url", targetURL))
			return page, nil
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "scraper: rate limit")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "scraper: create request %s", targetURL)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "scraper: fetch %s", targetURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("scraper: status %d for %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return nil, eris.Wrapf(err, "scraper: read body %s", targetURL)
	}

	page, err := extractPage(targetURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	page.ScrapedAt = time.Now().UTC()

	if s.cache != nil {
		if err := s.cache.PutCachedPage(ctx, page, s.cacheTTL); err != nil {
			zap.L().Debug("scraper: cache write failed",
				zap.String("url", targetURL),
				zap.Error(err),
			)
		}
	}

	return page, nil
}

// ScrapeAll fetches URLs concurrently and returns the pages that succeeded.
// Failures are logged and dropped; one bad URL never cancels its siblings.
// Result order follows completion, not input order.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string, maxConcurrent int) []model.ScrapedPage {
	var (
		mu    sync.Mutex
		pages []model.ScrapedPage
	)

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrent)

	for _, u := range urls {
		g.Go(func() error {
			page, err := s.ScrapeOne(ctx, u)
			if err != nil {
				zap.L().Debug("scraper: url failed",
					zap.String("url", u),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			pages = append(pages, *page)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return pages
}
