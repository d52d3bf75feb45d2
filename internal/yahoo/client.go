// Package yahoo looks up market capitalisation and last price per ticker.
// Lookups are best-effort: callers treat a failed quote as missing data.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wnjoon/go-yfinance/pkg/ticker"
	"go.uber.org/zap"

	"github.com/bighogz/insider-signal/internal/cache"
	"github.com/bighogz/insider-signal/internal/httpclient"
	"github.com/bighogz/insider-signal/internal/models"
)

// ErrNoQuote means no source returned a usable price or market cap.
var ErrNoQuote = errors.New("yahoo: no quote")

const quoteURL = "https://query1.finance.yahoo.com/v7/finance/quote"

// quoteFunc fetches price and market cap for a Yahoo-format symbol.
type quoteFunc func(ctx context.Context, symbol string) (price, marketCap float64, err error)

type Client struct {
	http     *http.Client
	quoteURL string
	primary  quoteFunc
	cache    *cache.Store
	logger   *zap.Logger
}

type Option func(*Client)

// WithCache serves fresh cached quotes and stores new ones.
func WithCache(s *cache.Store) Option { return func(c *Client) { c.cache = s } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithQuoteURL points the HTTP fallback at another endpoint.
func WithQuoteURL(u string) Option { return func(c *Client) { c.quoteURL = u } }

func withPrimary(f quoteFunc) Option { return func(c *Client) { c.primary = f } }

func New(logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		http:     httpclient.Default,
		quoteURL: quoteURL,
		primary:  yfinanceQuote,
		logger:   logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ToYahooSymbol converts share-class dots to Yahoo's dashes: BRK.B -> BRK-B.
func ToYahooSymbol(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), ".", "-")
}

// FromYahooSymbol converts back: BRK-B -> BRK.B.
func FromYahooSymbol(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", ".")
}

// Quote returns market cap and current price for ticker: cache first, then
// go-yfinance, then the public quote endpoint.
func (c *Client) Quote(ctx context.Context, tickerSym string) (models.Quote, error) {
	tickerSym = strings.ToUpper(strings.TrimSpace(tickerSym))
	if tickerSym == "" {
		return models.Quote{}, ErrNoQuote
	}
	if c.cache != nil {
		q, ok, err := c.cache.Get(ctx, tickerSym)
		if err != nil {
			c.logger.Warn("quote cache read failed", zap.String("ticker", tickerSym), zap.Error(err))
		} else if ok {
			return q, nil
		}
	}

	sym := ToYahooSymbol(tickerSym)
	q, err := c.fromPrimary(ctx, tickerSym, sym)
	if err != nil {
		c.logger.Debug("yfinance quote failed, trying HTTP", zap.String("ticker", tickerSym), zap.Error(err))
		q, err = c.fromHTTP(ctx, tickerSym, sym)
	}
	if err != nil {
		return models.Quote{}, err
	}
	if c.cache != nil {
		if err := c.cache.Put(ctx, q); err != nil {
			c.logger.Warn("quote cache write failed", zap.String("ticker", tickerSym), zap.Error(err))
		}
	}
	return q, nil
}

func (c *Client) fromPrimary(ctx context.Context, tickerSym, sym string) (models.Quote, error) {
	if c.primary == nil {
		return models.Quote{}, ErrNoQuote
	}
	price, mcap, err := c.primary(ctx, sym)
	if err != nil {
		return models.Quote{}, err
	}
	return build(tickerSym, price, mcap)
}

func (c *Client) fromHTTP(ctx context.Context, tickerSym, sym string) (models.Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.quoteURL+"?symbols="+url.QueryEscape(sym), nil)
	if err != nil {
		return models.Quote{}, err
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return models.Quote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Quote{}, fmt.Errorf("%w: HTTP %d for %s", ErrNoQuote, resp.StatusCode, sym)
	}
	var data struct {
		QuoteResponse struct {
			Result []struct {
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				PreviousClose      *float64 `json:"regularMarketPreviousClose"`
				MarketCap          *float64 `json:"marketCap"`
			} `json:"result"`
		} `json:"quoteResponse"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return models.Quote{}, fmt.Errorf("decode quote %s: %w", sym, err)
	}
	for _, r := range data.QuoteResponse.Result {
		if !strings.EqualFold(r.Symbol, sym) {
			continue
		}
		price := r.RegularMarketPrice
		if price == nil {
			price = r.PreviousClose
		}
		var p, m float64
		if price != nil {
			p = *price
		}
		if r.MarketCap != nil {
			m = *r.MarketCap
		}
		return build(tickerSym, p, m)
	}
	return models.Quote{}, fmt.Errorf("%w: %s not in response", ErrNoQuote, sym)
}

// build keeps only positive values; a zero from the provider means unknown.
func build(tickerSym string, price, mcap float64) (models.Quote, error) {
	q := models.Quote{Ticker: tickerSym}
	if price > 0 {
		q.CurrentPrice = &price
	}
	if mcap > 0 {
		q.MarketCap = &mcap
	}
	if q.CurrentPrice == nil && q.MarketCap == nil {
		return models.Quote{}, fmt.Errorf("%w: %s", ErrNoQuote, tickerSym)
	}
	return q, nil
}

func yfinanceQuote(ctx context.Context, symbol string) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	t, err := ticker.New(symbol)
	if err != nil {
		return 0, 0, err
	}
	defer t.Close()
	q, err := t.Quote()
	if err != nil {
		return 0, 0, err
	}
	return float64(q.RegularMarketPrice), float64(q.MarketCap), nil
}
