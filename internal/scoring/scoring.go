// Package scoring ranks tickers by insider-trading signal strength.
//
// Each feature column is percentile-normalized across the batch, weighted,
// and summed. Rows with very recent activity get a multiplicative timing
// bonus. The package is pure: no I/O, no shared state, deterministic for a
// given input and Params.
package scoring

import (
	"sort"

	"github.com/bighogz/insider-signal/internal/aggregator"
	"github.com/bighogz/insider-signal/internal/models"
	"github.com/bighogz/insider-signal/internal/percentile"
)

// Score rolls up raw trades when needed and returns the ranked table, best
// first. Equal scores keep their input order (first appearance of the ticker
// for raw trades).
func Score(in models.Input, p Params) ([]models.ScoredRow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	r := p.resolve()

	var rows []models.TickerFeatureRow
	switch v := in.(type) {
	case models.RawTrades:
		agg, err := aggregator.Rollup(v, aggregator.Options{
			TitleWeights: r.titleWeights,
			OwnMode:      r.OwnMode,
			ClusterDays:  r.ClusterDays,
			Now:          r.now,
		})
		if err != nil {
			return nil, err
		}
		rows = agg
	case models.Aggregated:
		rows = v
	case nil:
		return []models.ScoredRow{}, nil
	}
	return scoreRows(rows, r), nil
}

func scoreRows(rows []models.TickerFeatureRow, r resolved) []models.ScoredRow {
	out := make([]models.ScoredRow, len(rows))
	if len(rows) == 0 {
		return out
	}

	f := extract(rows, r.now)
	pTWC := percentile.Rank(f.titleWeighted)
	pTrades := percentile.Rank(f.numTrades)
	pOwnAgg := percentile.Rank(f.ownAgg)
	pOwnChg := percentile.Rank(f.ownChange)
	pCluster := percentile.Rank(f.cluster)
	pMcapInv := percentile.Inverse(f.marketCap)
	pRecent := percentile.Inverse(percentile.Ints(f.recentDays))
	pPrice := percentile.Rank(f.cheapness)

	w := r.weights
	for i, row := range rows {
		row.PriceDiffPct = f.priceDiff[i]
		s := models.ScoredRow{
			TickerFeatureRow: row,
			RecentDays:       f.recentDays[i],
			Percentiles: models.Percentiles{
				TitleWeightedCount: pTWC[i],
				NumTrades:          pTrades[i],
				OwnershipAgg:       pOwnAgg[i],
				OwnershipChange:    pOwnChg[i],
				ClusterCount:       pCluster[i],
				MarketCapInv:       pMcapInv[i],
				Recent:             pRecent[i],
				PriceRel:           pPrice[i],
			},
		}
		s.Components = models.Components{
			TitleWeightedCount: w[TitleWeightedCount] * pTWC[i],
			NumTrades:          w[NumTrades] * pTrades[i],
			OwnershipAgg:       w[OwnershipAgg] * pOwnAgg[i],
			OwnershipChange:    w[OwnershipChange] * pOwnChg[i],
			ClusterCount:       w[ClusterCount] * pCluster[i],
			MarketCap:          w[MarketCap] * pMcapInv[i],
			TimeSinceTrade:     w[TimeSinceTrade] * pRecent[i],
			PriceDiff:          w[PriceDiff] * pPrice[i],
		}
		s.TotalScore = s.Components.Sum()
		if s.RecentDays != nil && *s.RecentDays <= r.TimingBonusDays {
			s.TotalScore *= r.TimingBonusMult
			s.TimingBonus = true
		}
		out[i] = s
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].TotalScore > out[b].TotalScore })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
