package scoring

import (
	"time"

	"github.com/bighogz/insider-signal/internal/models"
	"github.com/bighogz/insider-signal/internal/percentile"
)

// columns are the scorer's feature columns after harmonization. Absent
// values stay nil and contribute nothing.
type columns struct {
	titleWeighted []*float64
	numTrades     []*float64
	ownAgg        []*float64
	ownChange     []*float64
	cluster       []*float64
	marketCap     []*float64
	priceDiff     []*float64
	cheapness     []*float64
	recentDays    []*int
}

func extract(rows []models.TickerFeatureRow, now time.Time) columns {
	n := len(rows)
	c := columns{
		titleWeighted: make([]*float64, n),
		ownAgg:        make([]*float64, n),
		ownChange:     make([]*float64, n),
		marketCap:     make([]*float64, n),
		priceDiff:     make([]*float64, n),
		cheapness:     make([]*float64, n),
		recentDays:    make([]*int, n),
	}
	trades := make([]*int, n)
	insiders := make([]*int, n)
	cluster := make([]*int, n)
	haveTradeCount := false

	for i, r := range rows {
		c.titleWeighted[i] = r.TitleWeightedCount
		c.ownAgg[i] = r.OwnershipChangeAgg
		c.ownChange[i] = r.OwnershipChangePct
		c.marketCap[i] = r.MarketCap
		trades[i] = r.TradeCount
		insiders[i] = r.DistinctInsiders
		cluster[i] = r.ClusterCount
		if r.TradeCount != nil {
			haveTradeCount = true
		}

		diff := r.PriceDiffPct
		if diff == nil {
			diff = models.PriceDiffPct(r.CurrentPrice, r.LatestTradePrice)
		}
		c.priceDiff[i] = diff
		if diff != nil {
			c.cheapness[i] = models.Ptr(-*diff)
		}
		c.recentDays[i] = recentDays(r, now)
	}

	// One source for the whole column: mixing trade counts with insider
	// counts would rank unlike quantities against each other.
	if haveTradeCount {
		c.numTrades = percentile.Ints(trades)
	} else {
		c.numTrades = percentile.Ints(insiders)
	}
	c.cluster = percentile.Ints(cluster)
	return c
}

// recentDays prefers the reported days since filing, then days since trade,
// then derives days from the latest filing or trade date. Reported values
// below zero count as today, matching models.DaysSince.
func recentDays(r models.TickerFeatureRow, now time.Time) *int {
	switch {
	case r.DaysSinceFiling != nil:
		return models.Ptr(max(*r.DaysSinceFiling, 0))
	case r.DaysSinceTrade != nil:
		return models.Ptr(max(*r.DaysSinceTrade, 0))
	case r.LastFilingDate != nil:
		return models.DaysSince(r.LastFilingDate, now)
	default:
		return models.DaysSince(r.LastTradeDate, now)
	}
}
