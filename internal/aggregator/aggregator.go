// Package aggregator rolls trade-level insider records up into one feature
// row per ticker.
package aggregator

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/bighogz/insider-signal/internal/models"
	"github.com/bighogz/insider-signal/internal/titles"
)

// OwnMode selects how ΔOwn values of one ticker are combined.
type OwnMode string

const (
	OwnSumPositive OwnMode = "sum_pos"
	OwnMeanAbs     OwnMode = "mean_abs"
	OwnMeanSigned  OwnMode = "mean_signed"
)

// ParseOwnMode accepts the three mode names; empty means sum_pos.
func ParseOwnMode(s string) (OwnMode, error) {
	switch m := OwnMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return OwnSumPositive, nil
	case OwnSumPositive, OwnMeanAbs, OwnMeanSigned:
		return m, nil
	default:
		return "", models.NewConfigurationError("own mode %q: want sum_pos, mean_abs or mean_signed", s)
	}
}

type Options struct {
	TitleWeights map[string]float64
	OwnMode      OwnMode
	ClusterDays  int
	// Now anchors DaysSinceTrade/DaysSinceFiling; it is truncated to UTC midnight.
	Now time.Time
}

// DefaultOptions uses the default title weights, sum_pos and a 7 day window.
func DefaultOptions() Options {
	return Options{
		TitleWeights: titles.Defaults(),
		OwnMode:      OwnSumPositive,
		ClusterDays:  7,
	}
}

func (o Options) validate() error {
	var problems []string
	if o.ClusterDays < 0 {
		problems = append(problems, fmt.Sprintf("cluster days must be >= 0, got %d", o.ClusterDays))
	}
	if _, err := ParseOwnMode(string(o.OwnMode)); err != nil {
		problems = append(problems, fmt.Sprintf("own mode %q is not supported", o.OwnMode))
	}
	if len(problems) > 0 {
		return &models.ConfigurationError{Problems: problems}
	}
	return nil
}

type group struct {
	ticker  string
	records []models.TradeRecord
}

// Rollup groups records by ticker and computes one TickerFeatureRow each.
// Records without a ticker are dropped. Output follows the order in which
// tickers first appear.
func Rollup(records []models.TradeRecord, opts Options) ([]models.TickerFeatureRow, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.TitleWeights == nil {
		opts.TitleWeights = titles.Defaults()
	}
	if opts.OwnMode == "" {
		opts.OwnMode = OwnSumPositive
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	byTicker := make(map[string]*group)
	order := make([]*group, 0)
	for _, r := range records {
		t := NormalizeTicker(r.Ticker)
		if t == "" {
			continue
		}
		g, ok := byTicker[t]
		if !ok {
			g = &group{ticker: t}
			byTicker[t] = g
			order = append(order, g)
		}
		g.records = append(g.records, r)
	}

	out := make([]models.TickerFeatureRow, 0, len(order))
	for _, g := range order {
		out = append(out, rollupGroup(g, opts, now))
	}
	return out, nil
}

// NormalizeTicker upper-cases and trims a symbol.
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

func rollupGroup(g *group, opts Options, now time.Time) models.TickerFeatureRow {
	row := models.TickerFeatureRow{Ticker: g.ticker}
	n := len(g.records)

	var (
		twc, own, values, qtys, diffs []float64
		lastTrade, lastFiling         *time.Time
		insiders                      = make(map[string]struct{})
		maxReported                   *int
	)
	for _, r := range g.records {
		if r.CompanyName != nil {
			row.CompanyName = r.CompanyName
		}
		if r.Industry != nil {
			row.Industry = r.Industry
		}
		twc = append(twc, titles.Classify(r.Title, opts.TitleWeights))
		if v := models.ClampOwnershipChange(r.OwnershipChangePct); v != nil && !math.IsNaN(*v) {
			own = append(own, *v)
		}
		lastTrade = maxDate(lastTrade, r.TradeDate)
		lastFiling = maxDate(lastFiling, r.FilingDate)
		if r.TradePrice != nil {
			row.LatestTradePrice = r.TradePrice
		}
		if r.ValueUSD != nil {
			values = append(values, *r.ValueUSD)
		}
		if r.Quantity != nil {
			qtys = append(qtys, float64(*r.Quantity))
		}
		if r.InsiderName != nil && strings.TrimSpace(*r.InsiderName) != "" {
			insiders[strings.TrimSpace(*r.InsiderName)] = struct{}{}
		}
		if r.NumInsiders != nil && (maxReported == nil || *r.NumInsiders > *maxReported) {
			maxReported = r.NumInsiders
		}
		if r.MarketCap != nil {
			row.MarketCap = r.MarketCap
		}
		if r.CurrentPrice != nil {
			row.CurrentPrice = r.CurrentPrice
		}
		if r.PriceDiffPct != nil {
			diffs = append(diffs, *r.PriceDiffPct)
		}
	}

	distinct := n
	switch {
	case len(insiders) > 0:
		distinct = len(insiders)
	case maxReported != nil:
		distinct = *maxReported
	}

	row.TradeCount = models.Ptr(n)
	row.DistinctInsiders = models.Ptr(distinct)
	row.TitleWeightedCount = models.Ptr(sortedSum(twc))
	row.OwnershipChangeAgg = aggregateOwnership(own, opts.OwnMode)
	row.ClusterCount = models.Ptr(clusterCount(g.records, lastTrade, opts.ClusterDays))
	row.LastTradeDate = lastTrade
	row.LastFilingDate = lastFiling
	if len(values) > 0 {
		row.TotalValueUSD = models.Ptr(sortedSum(values))
	}
	if len(qtys) > 0 {
		row.TotalQty = models.Ptr(sortedSum(qtys))
	}
	if len(diffs) > 0 {
		row.PriceDiffPct = models.Ptr(sortedSum(diffs) / float64(len(diffs)))
	} else {
		row.PriceDiffPct = models.PriceDiffPct(row.CurrentPrice, row.LatestTradePrice)
	}
	row.DaysSinceTrade = models.DaysSince(lastTrade, now)
	row.DaysSinceFiling = models.DaysSince(lastFiling, now)
	return row
}

// aggregateOwnership combines the present ΔOwn values. sum_pos of nothing is
// 0; a mean of nothing is missing.
func aggregateOwnership(vals []float64, mode OwnMode) *float64 {
	switch mode {
	case OwnMeanAbs, OwnMeanSigned:
		if len(vals) == 0 {
			return nil
		}
		terms := make([]float64, len(vals))
		for i, v := range vals {
			if mode == OwnMeanAbs {
				v = math.Abs(v)
			}
			terms[i] = v
		}
		return models.Ptr(sortedSum(terms) / float64(len(vals)))
	default:
		var terms []float64
		for _, v := range vals {
			if v > 0 {
				terms = append(terms, v)
			}
		}
		return models.Ptr(sortedSum(terms))
	}
}

// sortedSum adds vals in ascending order so that the same multiset of values
// always yields bit-identical totals, whatever order the records came in.
// vals is sorted in place.
func sortedSum(vals []float64) float64 {
	slices.Sort(vals)
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum
}

// clusterCount counts records traded within days of the group's latest trade
// date. Records without a trade date are outside every window. With no trade
// dates at all every record counts.
func clusterCount(records []models.TradeRecord, last *time.Time, days int) int {
	if last == nil {
		return len(records)
	}
	windowStart := models.DayUTC(*last).AddDate(0, 0, -days)
	count := 0
	for _, r := range records {
		if r.TradeDate != nil && !models.DayUTC(*r.TradeDate).Before(windowStart) {
			count++
		}
	}
	return count
}

func maxDate(cur, d *time.Time) *time.Time {
	if d == nil {
		return cur
	}
	day := models.DayUTC(*d)
	if cur == nil || day.After(*cur) {
		return &day
	}
	return cur
}

// Dedupe drops records that repeat the ticker, trade date, insider and
// quantity of an earlier record. Listing pages overlap when new filings
// arrive between page fetches.
func Dedupe(records []models.TradeRecord) []models.TradeRecord {
	seen := make(map[string]bool)
	out := make([]models.TradeRecord, 0, len(records))
	for _, r := range records {
		key := keyFor(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func keyFor(r models.TradeRecord) string {
	ins := ""
	if r.InsiderName != nil {
		ins = *r.InsiderName
	}
	date := ""
	if r.TradeDate != nil {
		date = r.TradeDate.Format("2006-01-02")
	}
	qty := ""
	if r.Quantity != nil {
		qty = fmt.Sprintf("%d", *r.Quantity)
	}
	return NormalizeTicker(r.Ticker) + "|" + date + "|" + ins + "|" + qty
}
