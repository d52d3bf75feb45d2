package reconcile

import (
	"regexp"
	"strings"
)

// Canonical column names. Listing headers, snake_case exports and
// CamelCase exports all normalize onto these.
const (
	ColTicker             = "Ticker"
	ColCompany            = "Company"
	ColIndustry           = "Industry"
	ColInsider            = "Insider"
	ColTitle              = "Title"
	ColTradeType          = "TradeType"
	ColTradeDate          = "TradeDate"
	ColFilingDate         = "FilingDate"
	ColTradePrice         = "TradePrice"
	ColQty                = "Qty"
	ColOwned              = "Owned"
	ColNumInsiders        = "NumInsiders"
	ColOwnershipChangePct = "OwnershipChangePct"
	ColValueUSD           = "ValueUSD"

	ColTradeCount         = "TradeCount"
	ColDistinctInsiders   = "DistinctInsiders"
	ColTitleWeightedCount = "TitleWeightedCount"
	ColOwnershipChangeAgg = "OwnershipChangeAgg"
	ColClusterCount       = "ClusterCount"
	ColLastTradeDate      = "LastTradeDate"
	ColLastFilingDate     = "LastFilingDate"
	ColLatestTradePrice   = "LatestTradePrice"
	ColTotalValueUSD      = "TotalValueUSD"
	ColTotalQty           = "TotalQty"
	ColMarketCap          = "MarketCap"
	ColCurrentPrice       = "CurrentPrice"
	ColPriceDiffPct       = "PriceDiffPct"
	ColDaysSinceTrade     = "DaysSinceTrade"
	ColDaysSinceFiling    = "DaysSinceFiling"
)

// aggregatedMarkers: any one of these columns marks an input as rolled up.
var aggregatedMarkers = []string{ColTitleWeightedCount, ColTradeCount, ColOwnershipChangeAgg}

var canonical = map[string]string{
	"x":                  "X",
	"filingdate":         ColFilingDate,
	"tradedate":          ColTradeDate,
	"ticker":             ColTicker,
	"symbol":             ColTicker,
	"companyname":        ColCompany,
	"company":            ColCompany,
	"industry":           ColIndustry,
	"insidername":        ColInsider,
	"insider":            ColInsider,
	"title":              ColTitle,
	"ins":                ColNumInsiders,
	"numinsiders":        ColNumInsiders,
	"tradetype":          ColTradeType,
	"price":              ColTradePrice,
	"tradeprice":         ColTradePrice,
	"qty":                ColQty,
	"quantity":           ColQty,
	"owned":              ColOwned,
	"deltaown":           ColOwnershipChangePct,
	"ownershipchangepct": ColOwnershipChangePct,
	"value":              ColValueUSD,
	"valueusd":           ColValueUSD,
	"1d":                 "Perf1d",
	"1w":                 "Perf1w",
	"1m":                 "Perf1m",
	"6m":                 "Perf6m",

	"tradecount":         ColTradeCount,
	"distinctinsiders":   ColDistinctInsiders,
	"titleweightedcount": ColTitleWeightedCount,
	"ownershipchangeagg": ColOwnershipChangeAgg,
	"clustercount":       ColClusterCount,
	"lasttradedate":      ColLastTradeDate,
	"lastfilingdate":     ColLastFilingDate,
	"latesttradeprice":   ColLatestTradePrice,
	"totalvalueusd":      ColTotalValueUSD,
	"totalqty":           ColTotalQty,
	"marketcap":          ColMarketCap,
	"currentprice":       ColCurrentPrice,
	"pricediffpct":       ColPriceDiffPct,
	"dayssincetrade":     ColDaysSinceTrade,
	"dayssincefiling":    ColDaysSinceFiling,
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeHeader folds a header to lowercase alphanumerics. The listing
// renders ΔOwn with a Greek delta and pads with non-breaking spaces.
func NormalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\u00a0", " ")
	h = strings.ReplaceAll(h, "Δ", "Delta")
	h = strings.ToLower(strings.TrimSpace(h))
	return nonAlnum.ReplaceAllString(h, "")
}

// Canonical maps a header to its canonical column name.
func Canonical(header string) (string, bool) {
	c, ok := canonical[NormalizeHeader(header)]
	return c, ok
}
