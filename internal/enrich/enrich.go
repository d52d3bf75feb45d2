// Package enrich attaches market data to trade or feature rows before
// scoring. Quote failures leave the fields missing; enrichment never fails
// the batch.
package enrich

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bighogz/insider-signal/internal/models"
)

// QuoteSource maps a ticker to its market data.
type QuoteSource interface {
	Quote(ctx context.Context, ticker string) (models.Quote, error)
}

// DefaultConcurrency bounds in-flight quote lookups.
const DefaultConcurrency = 4

type Enricher struct {
	source      QuoteSource
	concurrency int
	logger      *zap.Logger
}

func New(source QuoteSource, concurrency int, logger *zap.Logger) *Enricher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{source: source, concurrency: concurrency, logger: logger}
}

// Features sets MarketCap, CurrentPrice and PriceDiffPct on each row and
// fills DaysSinceTrade/DaysSinceFiling from the last dates when absent.
// rows is updated in place and returned.
func (e *Enricher) Features(ctx context.Context, rows []models.TickerFeatureRow, now time.Time) []models.TickerFeatureRow {
	tickers := make([]string, 0, len(rows))
	for _, r := range rows {
		tickers = append(tickers, r.Ticker)
	}
	quotes := e.lookup(ctx, tickers)
	for i := range rows {
		r := &rows[i]
		if q, ok := quotes[r.Ticker]; ok {
			if q.MarketCap != nil {
				r.MarketCap = q.MarketCap
			}
			if q.CurrentPrice != nil {
				r.CurrentPrice = q.CurrentPrice
			}
		}
		if d := models.PriceDiffPct(r.CurrentPrice, r.LatestTradePrice); d != nil {
			r.PriceDiffPct = d
		}
		if r.DaysSinceTrade == nil {
			r.DaysSinceTrade = models.DaysSince(r.LastTradeDate, now)
		}
		if r.DaysSinceFiling == nil {
			r.DaysSinceFiling = models.DaysSince(r.LastFilingDate, now)
		}
	}
	return rows
}

// Trades sets market data on trade-level records, pricing each trade
// against the ticker's current price.
func (e *Enricher) Trades(ctx context.Context, recs []models.TradeRecord) []models.TradeRecord {
	tickers := make([]string, 0, len(recs))
	for _, r := range recs {
		tickers = append(tickers, r.Ticker)
	}
	quotes := e.lookup(ctx, tickers)
	for i := range recs {
		r := &recs[i]
		if q, ok := quotes[r.Ticker]; ok {
			if q.MarketCap != nil {
				r.MarketCap = q.MarketCap
			}
			if q.CurrentPrice != nil {
				r.CurrentPrice = q.CurrentPrice
			}
		}
		if d := models.PriceDiffPct(r.CurrentPrice, r.TradePrice); d != nil {
			r.PriceDiffPct = d
		}
	}
	return recs
}

// lookup fetches one quote per distinct non-empty ticker.
func (e *Enricher) lookup(ctx context.Context, tickers []string) map[string]models.Quote {
	out := make(map[string]models.Quote)
	if e.source == nil {
		return out
	}
	seen := make(map[string]bool)
	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, t := range tickers {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		g.Go(func() error {
			q, err := e.source.Quote(gctx, t)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				e.logger.Debug("quote unavailable", zap.String("ticker", t), zap.Error(err))
				return nil
			}
			out[t] = q
			return nil
		})
	}
	_ = g.Wait()
	e.logger.Info("market data enrichment done",
		zap.Int("tickers", len(seen)), zap.Int("quoted", len(out)), zap.Int("failed", failed))
	return out
}
