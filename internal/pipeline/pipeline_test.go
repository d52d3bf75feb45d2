package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bighogz/insider-signal/internal/enrich"
	"github.com/bighogz/insider-signal/internal/models"
	"github.com/bighogz/insider-signal/internal/reconcile"
	"github.com/bighogz/insider-signal/internal/scoring"
)

var asOf = time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

func params() scoring.Params {
	p := scoring.DefaultParams()
	p.Now = asOf
	return p
}

func tradeRows() []reconcile.Row {
	return []reconcile.Row{
		{"Ticker": "AAA", "Title": "CEO", "Insider Name": "Jane", "Trade Date": "2024-01-19", "Price": "10", "ΔOwn": "+5%"},
		{"Ticker": "AAA", "Title": "CEO", "Insider Name": "Jane", "Trade Date": "2024-01-19", "Price": "10", "ΔOwn": "+5%"},
		{"Ticker": "BBB", "Title": "Dir", "Insider Name": "Bob", "Trade Date": "2024-01-01", "Price": "abc", "ΔOwn": "+1%"},
	}
}

type fakeScraper struct {
	rows []reconcile.Row
	err  error
}

func (f fakeScraper) Scrape(context.Context, string, int) ([]reconcile.Row, error) {
	return f.rows, f.err
}

type fakeQuotes map[string]models.Quote

func (f fakeQuotes) Quote(_ context.Context, t string) (models.Quote, error) {
	q, ok := f[t]
	if !ok {
		return models.Quote{}, errors.New("none")
	}
	return q, nil
}

func TestRankRaw(t *testing.T) {
	res, err := New(nil).Rank(context.Background(), tradeRows(), Options{Params: params()})
	require.NoError(t, err)
	assert.Equal(t, "raw", res.Mode)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "AAA", res.Rows[0].Ticker)
	assert.Equal(t, 2, *res.Rows[0].TradeCount)
	assert.True(t, res.Rows[0].TimingBonus)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 2, res.Warnings[0].Row)
}

func TestRankDedupe(t *testing.T) {
	res, err := New(nil).Rank(context.Background(), tradeRows(), Options{Params: params(), Dedupe: true})
	require.NoError(t, err)
	assert.Equal(t, 1, *res.Rows[0].TradeCount)
}

func TestRankEnrich(t *testing.T) {
	quotes := fakeQuotes{"AAA": {Ticker: "AAA", MarketCap: models.Ptr(5e8), CurrentPrice: models.Ptr(12.0)}}
	p := New(nil, WithEnricher(enrich.New(quotes, 2, nil)))
	res, err := p.Rank(context.Background(), tradeRows(), Options{Params: params(), Enrich: true})
	require.NoError(t, err)
	aaa := res.Rows[0]
	require.Equal(t, "AAA", aaa.Ticker)
	assert.Equal(t, 5e8, *aaa.MarketCap)
	assert.InDelta(t, 0.2, *aaa.PriceDiffPct, 1e-12)
}

func TestRankAggregated(t *testing.T) {
	rows := []reconcile.Row{
		{"ticker": "X", "title_weighted_count": 2.0, "days_since_trade": 1.0},
		{"ticker": "Y", "title_weighted_count": 1.0, "days_since_trade": 9.0},
	}
	res, err := New(nil).Rank(context.Background(), rows, Options{Params: params()})
	require.NoError(t, err)
	assert.Equal(t, "aggregated", res.Mode)
	assert.Equal(t, "X", res.Rows[0].Ticker)
}

func TestRankInvalidParams(t *testing.T) {
	_, err := New(nil).Rank(context.Background(), tradeRows(), Options{})
	var cfgErr *models.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestScrapeAndRank(t *testing.T) {
	p := New(nil, WithScraper(fakeScraper{rows: tradeRows()}))
	res, err := p.ScrapeAndRank(context.Background(), "http://example.test", 1, Options{Params: params()})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)

	boom := errors.New("boom")
	p = New(nil, WithScraper(fakeScraper{err: boom}))
	_, err = p.ScrapeAndRank(context.Background(), "http://example.test", 1, Options{Params: params()})
	assert.ErrorIs(t, err, boom)

	_, err = New(nil).ScrapeAndRank(context.Background(), "http://example.test", 1, Options{Params: params()})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	res, err := New(nil).Rank(context.Background(), tradeRows(), Options{Params: params()})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res.Rows))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, csvHeader, recs[0])
	assert.Equal(t, []string{"1", "AAA"}, recs[1][:2])
	assert.Equal(t, "2024-01-19", recs[1][11])
}
