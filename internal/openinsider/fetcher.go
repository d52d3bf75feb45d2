// Package openinsider fetches and parses OpenInsider listing pages.
package openinsider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bighogz/insider-signal/internal/httpclient"
	"github.com/bighogz/insider-signal/internal/reconcile"
)

// FetchError is returned when a listing page cannot be retrieved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

const (
	DefaultPageDelay = 700 * time.Millisecond
	DefaultRetries   = 3
	backoffBase      = 300 * time.Millisecond
	maxBodyBytes     = 16 << 20
)

var retryStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Fetcher pulls listing pages with pacing between requests and retries on
// throttling and gateway errors.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	retries int
	logger  *zap.Logger
}

type Option func(*Fetcher)

func WithClient(c *http.Client) Option { return func(f *Fetcher) { f.client = c } }

// WithPageDelay sets the minimum spacing between requests; 0 disables pacing.
func WithPageDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

func WithRetries(n int) Option { return func(f *Fetcher) { f.retries = n } }

func NewFetcher(logger *zap.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		client:  httpclient.Default,
		limiter: rate.NewLimiter(rate.Every(DefaultPageDelay), 1),
		retries: DefaultRetries,
		logger:  logger,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FetchPage returns the page body. Throttled and gateway responses are
// retried with exponential backoff; anything else non-2xx fails at once.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	var lastErr *FetchError
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			wait := backoffBase << (attempt - 1)
			f.logger.Debug("retrying listing page",
				zap.String("url", pageURL), zap.Int("attempt", attempt), zap.Duration("wait", wait))
			select {
			case <-ctx.Done():
				return "", &FetchError{URL: pageURL, Err: ctx.Err()}
			case <-time.After(wait):
			}
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return "", &FetchError{URL: pageURL, Err: err}
		}
		body, status, err := f.get(ctx, pageURL)
		switch {
		case err != nil:
			lastErr = &FetchError{URL: pageURL, Err: err}
			if ctx.Err() != nil {
				return "", lastErr
			}
		case status >= 200 && status < 300:
			return body, nil
		case retryStatus[status]:
			lastErr = &FetchError{URL: pageURL, StatusCode: status}
		default:
			return "", &FetchError{URL: pageURL, StatusCode: status}
		}
	}
	return "", lastErr
}

func (f *Fetcher) get(ctx context.Context, pageURL string) (string, int, error) {
	req, err := httpclient.NewBrowserRequest(ctx, pageURL)
	if err != nil {
		return "", 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(b), resp.StatusCode, nil
}

// Scrape fetches pages 1..pages of a listing and parses each. An empty first
// page is skipped; an empty later page ends the listing.
func (f *Fetcher) Scrape(ctx context.Context, baseURL string, pages int) ([]reconcile.Row, error) {
	if pages < 1 {
		return nil, fmt.Errorf("pages must be >= 1, got %d", pages)
	}
	all := make([]reconcile.Row, 0)
	for p := 1; p <= pages; p++ {
		u, err := BuildPageURL(baseURL, p)
		if err != nil {
			return nil, err
		}
		html, err := f.FetchPage(ctx, u)
		if err != nil {
			return nil, err
		}
		rows, err := Parse(html)
		if err != nil {
			return nil, &FetchError{URL: u, Err: err}
		}
		f.logger.Info("parsed listing page", zap.String("url", u), zap.Int("page", p), zap.Int("rows", len(rows)))
		if len(rows) == 0 {
			if p == 1 {
				continue
			}
			break
		}
		all = append(all, rows...)
	}
	return all, nil
}

// ErrBadURL is wrapped when a listing URL cannot be parsed.
var ErrBadURL = errors.New("openinsider: bad listing URL")

// BuildPageURL sets the page number on a listing URL. Listings page with
// either "page" or "p"; "p" is kept only when the URL already uses it.
func BuildPageURL(baseURL string, page int) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrBadURL, baseURL)
	}
	q := u.Query()
	if q.Has("p") && !q.Has("page") {
		q.Set("p", strconv.Itoa(page))
	} else {
		q.Set("page", strconv.Itoa(page))
		q.Del("p")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
