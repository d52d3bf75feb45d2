package pipeline

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/bighogz/insider-signal/internal/models"
)

var csvHeader = []string{
	"rank", "ticker", "company_name", "industry", "total_score", "timing_bonus",
	"trade_count", "distinct_insiders", "title_weighted_count", "ownership_change_agg",
	"cluster_count", "last_trade_date", "last_filing_date", "latest_trade_price",
	"market_cap", "current_price", "price_diff_pct", "recent_days",
	"comp_twc", "comp_trades", "comp_ownagg", "comp_ownchg", "comp_cluster",
	"comp_mcap", "comp_time", "comp_price",
}

// WriteCSV writes the ranked table. Missing values are empty cells.
func WriteCSV(w io.Writer, rows []models.ScoredRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		c := r.Components
		rec := []string{
			strconv.Itoa(r.Rank), r.Ticker, str(r.CompanyName), str(r.Industry),
			num(r.TotalScore), strconv.FormatBool(r.TimingBonus),
			integer(r.TradeCount), integer(r.DistinctInsiders), opt(r.TitleWeightedCount), opt(r.OwnershipChangeAgg),
			integer(r.ClusterCount), date(r.LastTradeDate), date(r.LastFilingDate), opt(r.LatestTradePrice),
			opt(r.MarketCap), opt(r.CurrentPrice), opt(r.PriceDiffPct), integer(r.RecentDays),
			num(c.TitleWeightedCount), num(c.NumTrades), num(c.OwnershipAgg), num(c.OwnershipChange), num(c.ClusterCount),
			num(c.MarketCap), num(c.TimeSinceTrade), num(c.PriceDiff),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func opt(f *float64) string {
	if f == nil {
		return ""
	}
	return num(*f)
}

func integer(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
