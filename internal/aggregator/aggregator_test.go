package aggregator

import (
	"errors"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bighogz/insider-signal/internal/models"
)

var asOf = time.Date(2024, 1, 20, 15, 30, 0, 0, time.UTC)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func str(s string) *string   { return &s }
func num(v float64) *float64 { return &v }
func qty(v int64) *int64     { return &v }

func opts() Options {
	o := DefaultOptions()
	o.Now = asOf
	return o
}

func exampleTrades() []models.TradeRecord {
	return []models.TradeRecord{
		{Ticker: "AAA", Title: str("CEO"), OwnershipChangePct: num(5), TradeDate: day("2024-01-01")},
		{Ticker: "AAA", Title: str("VP"), OwnershipChangePct: num(-2), TradeDate: day("2024-01-02")},
		{Ticker: "BBB", Title: str("DIRECTOR"), OwnershipChangePct: num(50), TradeDate: day("2024-01-10")},
	}
}

func TestRollupWorkedExample(t *testing.T) {
	rows, err := Rollup(exampleTrades(), opts())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	aaa, bbb := rows[0], rows[1]
	assert.Equal(t, "AAA", aaa.Ticker)
	assert.Equal(t, 2, *aaa.TradeCount)
	assert.InDelta(t, 1.50, *aaa.TitleWeightedCount, 1e-12)
	assert.Equal(t, 5.0, *aaa.OwnershipChangeAgg)
	assert.Equal(t, 2, *aaa.ClusterCount)
	assert.Equal(t, *day("2024-01-02"), *aaa.LastTradeDate)
	assert.Equal(t, 18, *aaa.DaysSinceTrade)
	assert.Nil(t, aaa.LastFilingDate)
	assert.Nil(t, aaa.DaysSinceFiling)

	assert.Equal(t, "BBB", bbb.Ticker)
	assert.Equal(t, 1, *bbb.TradeCount)
	assert.InDelta(t, 0.75, *bbb.TitleWeightedCount, 1e-12)
	assert.Equal(t, 50.0, *bbb.OwnershipChangeAgg)
	assert.Equal(t, 10, *bbb.DaysSinceTrade)
}

func TestRollupOwnModes(t *testing.T) {
	recs := []models.TradeRecord{
		{Ticker: "X", OwnershipChangePct: num(10)},
		{Ticker: "X", OwnershipChangePct: num(-4)},
		{Ticker: "X", OwnershipChangePct: nil},
		{Ticker: "X", OwnershipChangePct: num(5000)},
	}
	tests := []struct {
		mode OwnMode
		want float64
	}{
		{OwnSumPositive, 1010},
		{OwnMeanAbs, (10 + 4 + 1000) / 3.0},
		{OwnMeanSigned, (10 - 4 + 1000) / 3.0},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			o := opts()
			o.OwnMode = tt.mode
			rows, err := Rollup(recs, o)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, *rows[0].OwnershipChangeAgg, 1e-9)
		})
	}
}

func TestRollupMeanOfNothingIsMissing(t *testing.T) {
	o := opts()
	o.OwnMode = OwnMeanAbs
	rows, err := Rollup([]models.TradeRecord{{Ticker: "X"}}, o)
	require.NoError(t, err)
	assert.Nil(t, rows[0].OwnershipChangeAgg)

	rows, err = Rollup([]models.TradeRecord{{Ticker: "X"}}, opts())
	require.NoError(t, err)
	assert.Equal(t, 0.0, *rows[0].OwnershipChangeAgg)
}

func TestRollupClusterCount(t *testing.T) {
	recs := []models.TradeRecord{
		{Ticker: "C", TradeDate: day("2024-01-01")},
		{Ticker: "C", TradeDate: day("2024-01-08")},
		{Ticker: "C", TradeDate: day("2024-01-15")},
		{Ticker: "C"},
		{Ticker: "D"},
		{Ticker: "D"},
	}
	rows, err := Rollup(recs, opts())
	require.NoError(t, err)
	assert.Equal(t, 2, *rows[0].ClusterCount, "window is [Jan 8, Jan 15]")
	assert.Equal(t, 4, *rows[0].TradeCount)
	assert.Equal(t, 2, *rows[1].ClusterCount, "no trade dates counts every record")

	o := opts()
	o.ClusterDays = 0
	rows, err = Rollup(recs, o)
	require.NoError(t, err)
	assert.Equal(t, 1, *rows[0].ClusterCount)
}

func TestRollupDistinctInsiders(t *testing.T) {
	recs := []models.TradeRecord{
		{Ticker: "N", InsiderName: str("Smith John")},
		{Ticker: "N", InsiderName: str("Smith John")},
		{Ticker: "N", InsiderName: str("Doe Jane")},
		{Ticker: "R", NumInsiders: models.Ptr(3)},
		{Ticker: "R", NumInsiders: models.Ptr(5)},
		{Ticker: "P"},
		{Ticker: "P"},
	}
	rows, err := Rollup(recs, opts())
	require.NoError(t, err)
	assert.Equal(t, 2, *rows[0].DistinctInsiders)
	assert.Equal(t, 5, *rows[1].DistinctInsiders)
	assert.Equal(t, 2, *rows[2].DistinctInsiders)
}

func TestRollupTotalsAndPrices(t *testing.T) {
	recs := []models.TradeRecord{
		{Ticker: "T", TradePrice: num(10), ValueUSD: num(1000), Quantity: qty(100), FilingDate: day("2024-01-18")},
		{Ticker: "T", TradePrice: num(12), FilingDate: day("2024-01-19")},
		{Ticker: "T", ValueUSD: num(500)},
		{Ticker: "U", CompanyName: str("U Corp")},
	}
	rows, err := Rollup(recs, opts())
	require.NoError(t, err)
	tr := rows[0]
	assert.Equal(t, 12.0, *tr.LatestTradePrice)
	assert.Equal(t, 1500.0, *tr.TotalValueUSD)
	assert.Equal(t, 100.0, *tr.TotalQty)
	assert.Equal(t, 1, *tr.DaysSinceFiling)

	u := rows[1]
	assert.Nil(t, u.TotalValueUSD)
	assert.Nil(t, u.TotalQty)
	assert.Nil(t, u.LatestTradePrice)
	assert.Equal(t, "U Corp", *u.CompanyName)
}

func TestRollupDerivesPriceDiffFromEnrichedTrades(t *testing.T) {
	recs := []models.TradeRecord{
		{Ticker: "E", TradePrice: num(20), CurrentPrice: num(15), MarketCap: num(1e9)},
	}
	rows, err := Rollup(recs, opts())
	require.NoError(t, err)
	assert.InDelta(t, -0.25, *rows[0].PriceDiffPct, 1e-12)
	assert.Equal(t, 1e9, *rows[0].MarketCap)
}

func TestRollupDropsMissingTicker(t *testing.T) {
	rows, err := Rollup([]models.TradeRecord{{Ticker: ""}, {Ticker: "  "}, {Ticker: "aaa"}}, opts())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AAA", rows[0].Ticker)
}

func TestRollupEmpty(t *testing.T) {
	rows, err := Rollup(nil, opts())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRollupRejectsBadOptions(t *testing.T) {
	o := opts()
	o.ClusterDays = -1
	_, err := Rollup(exampleTrades(), o)
	var cfgErr *models.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))

	o = opts()
	o.OwnMode = "median"
	_, err = Rollup(exampleTrades(), o)
	require.True(t, errors.As(err, &cfgErr))
}

func TestRollupPermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tickers := []string{"AAA", "BBB", "CCC"}
	titlesPool := []string{"CEO", "Dir", "VP", "10% Owner", "Secretary"}
	recs := make([]models.TradeRecord, 0, 60)
	for i := 0; i < 60; i++ {
		d := time.Date(2024, 1, 1+rng.Intn(19), 0, 0, 0, 0, time.UTC)
		recs = append(recs, models.TradeRecord{
			Ticker:             tickers[rng.Intn(len(tickers))],
			InsiderName:        str(string(rune('a' + rng.Intn(8)))),
			Title:              str(titlesPool[rng.Intn(len(titlesPool))]),
			OwnershipChangePct: num(float64(rng.Intn(60) - 20)),
			TradeDate:          &d,
			Quantity:           qty(int64(rng.Intn(1000))),
		})
	}

	base := rollupSorted(t, recs)
	for k := 0; k < 5; k++ {
		shuffled := append([]models.TradeRecord(nil), recs...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := rollupSorted(t, shuffled)
		require.Len(t, got, len(base))
		for i := range base {
			assert.Equal(t, base[i].Ticker, got[i].Ticker)
			assert.Equal(t, *base[i].TradeCount, *got[i].TradeCount)
			assert.Equal(t, *base[i].DistinctInsiders, *got[i].DistinctInsiders)
			assert.Equal(t, *base[i].TitleWeightedCount, *got[i].TitleWeightedCount)
			assert.Equal(t, *base[i].OwnershipChangeAgg, *got[i].OwnershipChangeAgg)
			assert.Equal(t, *base[i].ClusterCount, *got[i].ClusterCount)
			assert.LessOrEqual(t, *got[i].ClusterCount, *got[i].TradeCount)
			assert.Equal(t, *base[i].LastTradeDate, *got[i].LastTradeDate)
			assert.Equal(t, *base[i].TotalQty, *got[i].TotalQty)
		}
	}
}

func TestRollupSameTradesSameTotals(t *testing.T) {
	mk := func(ticker string, ts ...string) []models.TradeRecord {
		out := make([]models.TradeRecord, 0, len(ts))
		for i, title := range ts {
			out = append(out, models.TradeRecord{
				Ticker:             ticker,
				Title:              str(title),
				OwnershipChangePct: num([]float64{0.1, 0.2, 0.3}[i]),
				ValueUSD:           num([]float64{0.1, 0.2, 0.3}[i]),
			})
		}
		return out
	}
	recs := append(mk("X", "CEO", "CFO", "COO"), mk("Y", "COO", "CEO", "CFO")...)
	// Y carries the same ΔOwn and value multiset as X in a different order.
	recs[3].OwnershipChangePct, recs[5].OwnershipChangePct = recs[5].OwnershipChangePct, recs[3].OwnershipChangePct
	recs[3].ValueUSD, recs[5].ValueUSD = recs[5].ValueUSD, recs[3].ValueUSD

	for _, mode := range []OwnMode{OwnSumPositive, OwnMeanAbs, OwnMeanSigned} {
		o := opts()
		o.OwnMode = mode
		rows, err := Rollup(recs, o)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, *rows[0].TitleWeightedCount, *rows[1].TitleWeightedCount)
		assert.Equal(t, *rows[0].OwnershipChangeAgg, *rows[1].OwnershipChangeAgg, mode)
		assert.Equal(t, *rows[0].TotalValueUSD, *rows[1].TotalValueUSD)
	}
}

func rollupSorted(t *testing.T, recs []models.TradeRecord) []models.TickerFeatureRow {
	t.Helper()
	rows, err := Rollup(recs, opts())
	require.NoError(t, err)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Ticker < rows[j].Ticker })
	return rows
}

func TestDedupe(t *testing.T) {
	recs := []models.TradeRecord{
		{Ticker: "A", InsiderName: str("x"), TradeDate: day("2024-01-01"), Quantity: qty(10)},
		{Ticker: "a", InsiderName: str("x"), TradeDate: day("2024-01-01"), Quantity: qty(10)},
		{Ticker: "A", InsiderName: str("x"), TradeDate: day("2024-01-01"), Quantity: qty(11)},
	}
	assert.Len(t, Dedupe(recs), 2)
}

func TestParseOwnMode(t *testing.T) {
	m, err := ParseOwnMode("")
	require.NoError(t, err)
	assert.Equal(t, OwnSumPositive, m)
	m, err = ParseOwnMode("MEAN_ABS")
	require.NoError(t, err)
	assert.Equal(t, OwnMeanAbs, m)
	_, err = ParseOwnMode("max")
	assert.Error(t, err)
}
