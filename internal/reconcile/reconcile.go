// Package reconcile turns loosely typed tabular rows (listing scrapes, CSV
// exports, JSON payloads) into the scorer's tagged input. Whether the rows
// are trade-level or already rolled up is decided once, here.
package reconcile

import (
	"github.com/bighogz/insider-signal/internal/models"
)

// Row is one record keyed by column header. Values may be strings (scrapes,
// CSV) or JSON scalars.
type Row map[string]any

// Canonicalize renames known headers to their canonical column. Unknown
// headers keep their original spelling.
func Canonicalize(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		if c, ok := Canonical(k); ok {
			out[c] = v
			continue
		}
		out[k] = v
	}
	return out
}

// IsAggregated reports whether any row carries a rolled-up column. One such
// column anywhere is enough to treat the whole input as pre-aggregated; the
// column counts as present even when its cells are blank.
func IsAggregated(rows []Row) bool {
	for _, r := range rows {
		for _, m := range aggregatedMarkers {
			if _, ok := r[m]; ok {
				return true
			}
		}
	}
	return false
}

// Decode resolves rows into RawTrades or Aggregated. Cells that cannot be
// read become missing and are reported as warnings; Decode never fails.
func Decode(rows []Row) (models.Input, []models.CoercionWarning) {
	canon := make([]Row, len(rows))
	for i, r := range rows {
		canon[i] = Canonicalize(r)
	}
	d := &decoder{}
	if IsAggregated(canon) {
		out := make(models.Aggregated, 0, len(canon))
		for i, r := range canon {
			d.row = i
			out = append(out, d.feature(r))
		}
		return out, d.warnings
	}
	out := make(models.RawTrades, 0, len(canon))
	for i, r := range canon {
		d.row = i
		out = append(out, d.trade(r))
	}
	return out, d.warnings
}

func (d *decoder) trade(r Row) models.TradeRecord {
	t := models.TradeRecord{
		CompanyName:        d.textCell(r[ColCompany]),
		Industry:           d.textCell(r[ColIndustry]),
		InsiderName:        d.textCell(r[ColInsider]),
		Title:              d.textCell(r[ColTitle]),
		TradeType:          d.textCell(r[ColTradeType]),
		TradeDate:          d.dateCell(ColTradeDate, r[ColTradeDate]),
		FilingDate:         d.dateCell(ColFilingDate, r[ColFilingDate]),
		TradePrice:         d.floatCell(ColTradePrice, r[ColTradePrice]),
		Quantity:           d.int64Cell(ColQty, r[ColQty]),
		Owned:              d.int64Cell(ColOwned, r[ColOwned]),
		NumInsiders:        d.intCell(ColNumInsiders, r[ColNumInsiders]),
		OwnershipChangePct: models.ClampOwnershipChange(d.floatCell(ColOwnershipChangePct, r[ColOwnershipChangePct])),
		ValueUSD:           d.floatCell(ColValueUSD, r[ColValueUSD]),
		MarketCap:          d.floatCell(ColMarketCap, r[ColMarketCap]),
		CurrentPrice:       d.floatCell(ColCurrentPrice, r[ColCurrentPrice]),
		PriceDiffPct:       d.floatCell(ColPriceDiffPct, r[ColPriceDiffPct]),
	}
	if tk := d.textCell(r[ColTicker]); tk != nil {
		t.Ticker = CleanTicker(*tk)
	}
	return t
}

// typedFeatureColumns are consumed by feature; everything else goes to Extra.
var typedFeatureColumns = map[string]bool{
	ColTicker: true, ColCompany: true, ColIndustry: true,
	ColTradeCount: true, ColDistinctInsiders: true, ColTitleWeightedCount: true,
	ColOwnershipChangeAgg: true, ColOwnershipChangePct: true, ColClusterCount: true,
	ColLastTradeDate: true, ColLastFilingDate: true, ColLatestTradePrice: true,
	ColTradePrice: true, ColTotalValueUSD: true, ColTotalQty: true,
	ColMarketCap: true, ColCurrentPrice: true, ColPriceDiffPct: true,
	ColDaysSinceTrade: true, ColDaysSinceFiling: true,
}

func (d *decoder) feature(r Row) models.TickerFeatureRow {
	f := models.TickerFeatureRow{
		CompanyName:        d.textCell(r[ColCompany]),
		Industry:           d.textCell(r[ColIndustry]),
		TradeCount:         d.intCell(ColTradeCount, r[ColTradeCount]),
		DistinctInsiders:   d.intCell(ColDistinctInsiders, r[ColDistinctInsiders]),
		TitleWeightedCount: d.floatCell(ColTitleWeightedCount, r[ColTitleWeightedCount]),
		OwnershipChangeAgg: d.floatCell(ColOwnershipChangeAgg, r[ColOwnershipChangeAgg]),
		OwnershipChangePct: models.ClampOwnershipChange(d.floatCell(ColOwnershipChangePct, r[ColOwnershipChangePct])),
		ClusterCount:       d.intCell(ColClusterCount, r[ColClusterCount]),
		LastTradeDate:      d.dateCell(ColLastTradeDate, r[ColLastTradeDate]),
		LastFilingDate:     d.dateCell(ColLastFilingDate, r[ColLastFilingDate]),
		LatestTradePrice:   d.floatCell(ColLatestTradePrice, r[ColLatestTradePrice]),
		TotalValueUSD:      d.floatCell(ColTotalValueUSD, r[ColTotalValueUSD]),
		TotalQty:           d.floatCell(ColTotalQty, r[ColTotalQty]),
		MarketCap:          d.floatCell(ColMarketCap, r[ColMarketCap]),
		CurrentPrice:       d.floatCell(ColCurrentPrice, r[ColCurrentPrice]),
		PriceDiffPct:       d.floatCell(ColPriceDiffPct, r[ColPriceDiffPct]),
		DaysSinceTrade:     d.intCell(ColDaysSinceTrade, r[ColDaysSinceTrade]),
		DaysSinceFiling:    d.intCell(ColDaysSinceFiling, r[ColDaysSinceFiling]),
	}
	if tk := d.textCell(r[ColTicker]); tk != nil {
		f.Ticker = CleanTicker(*tk)
	}
	// enriched exports name the insider price TradePrice
	if f.LatestTradePrice == nil {
		f.LatestTradePrice = d.floatCell(ColTradePrice, r[ColTradePrice])
	}
	for k, v := range r {
		if typedFeatureColumns[k] {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string]any)
		}
		f.Extra[k] = v
	}
	return f
}
