package models

import "time"

// MaxOwnershipChangePct caps ΔOwn values; listings print ">999%" style
// artifacts for brand-new positions.
const MaxOwnershipChangePct = 1000.0

// TradeRecord is one insider transaction as parsed from a listing page.
type TradeRecord struct {
	Ticker             string     `json:"ticker"`
	CompanyName        *string    `json:"company_name,omitempty"`
	Industry           *string    `json:"industry,omitempty"`
	InsiderName        *string    `json:"insider_name,omitempty"`
	Title              *string    `json:"title,omitempty"`
	TradeType          *string    `json:"trade_type,omitempty"`
	TradeDate          *time.Time `json:"trade_date,omitempty"`
	FilingDate         *time.Time `json:"filing_date,omitempty"`
	TradePrice         *float64   `json:"trade_price,omitempty"`
	Quantity           *int64     `json:"qty,omitempty"`
	Owned              *int64     `json:"owned,omitempty"`
	NumInsiders        *int       `json:"num_insiders,omitempty"`
	OwnershipChangePct *float64   `json:"ownership_change_pct,omitempty"`
	ValueUSD           *float64   `json:"value_usd,omitempty"`

	// Market data, present only when the trade rows were enriched before rollup.
	MarketCap    *float64 `json:"market_cap,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	PriceDiffPct *float64 `json:"price_diff_pct,omitempty"`
}

// TickerFeatureRow is the per-ticker rollup consumed by the scorer. Every
// field except Ticker is optional so that partially populated, pre-aggregated
// inputs can be scored as-is.
type TickerFeatureRow struct {
	Ticker             string     `json:"ticker"`
	CompanyName        *string    `json:"company_name,omitempty"`
	Industry           *string    `json:"industry,omitempty"`
	TradeCount         *int       `json:"trade_count,omitempty"`
	DistinctInsiders   *int       `json:"distinct_insiders,omitempty"`
	TitleWeightedCount *float64   `json:"title_weighted_count,omitempty"`
	OwnershipChangeAgg *float64   `json:"ownership_change_agg,omitempty"`
	OwnershipChangePct *float64   `json:"ownership_change_pct,omitempty"`
	ClusterCount       *int       `json:"cluster_count,omitempty"`
	LastTradeDate      *time.Time `json:"last_trade_date,omitempty"`
	LastFilingDate     *time.Time `json:"last_filing_date,omitempty"`
	LatestTradePrice   *float64   `json:"latest_trade_price,omitempty"`
	TotalValueUSD      *float64   `json:"total_value_usd,omitempty"`
	TotalQty           *float64   `json:"total_qty,omitempty"`
	MarketCap          *float64   `json:"market_cap,omitempty"`
	CurrentPrice       *float64   `json:"current_price,omitempty"`
	PriceDiffPct       *float64   `json:"price_diff_pct,omitempty"`
	DaysSinceTrade     *int       `json:"days_since_trade,omitempty"`
	DaysSinceFiling    *int       `json:"days_since_filing,omitempty"`

	// Extra holds columns of a pre-aggregated input that have no typed field.
	Extra map[string]any `json:"extra,omitempty"`
}

// Percentiles are the [0,1] feature scores before weighting.
type Percentiles struct {
	TitleWeightedCount float64 `json:"p_twc"`
	NumTrades          float64 `json:"p_num_trades"`
	OwnershipAgg       float64 `json:"p_ownagg"`
	OwnershipChange    float64 `json:"p_ownchg"`
	ClusterCount       float64 `json:"p_cluster"`
	MarketCapInv       float64 `json:"p_mcap_inv"`
	Recent             float64 `json:"p_recent"`
	PriceRel           float64 `json:"p_price_rel"`
}

// Components are the weighted percentiles that sum to the total score.
type Components struct {
	TitleWeightedCount float64 `json:"comp_twc"`
	NumTrades          float64 `json:"comp_trades"`
	OwnershipAgg       float64 `json:"comp_ownagg"`
	OwnershipChange    float64 `json:"comp_ownchg"`
	ClusterCount       float64 `json:"comp_cluster"`
	MarketCap          float64 `json:"comp_mcap"`
	TimeSinceTrade     float64 `json:"comp_time"`
	PriceDiff          float64 `json:"comp_price"`
}

// Sum adds the eight components.
func (c Components) Sum() float64 {
	return c.TitleWeightedCount + c.NumTrades + c.OwnershipAgg + c.OwnershipChange +
		c.ClusterCount + c.MarketCap + c.TimeSinceTrade + c.PriceDiff
}

type ScoredRow struct {
	Rank int `json:"rank"`
	TickerFeatureRow
	RecentDays  *int        `json:"recent_days,omitempty"`
	Percentiles Percentiles `json:"percentiles"`
	Components  Components  `json:"components"`
	TimingBonus bool        `json:"timing_bonus"`
	TotalScore  float64     `json:"total_score"`
}

// Quote is the best-effort market data for one ticker.
type Quote struct {
	Ticker       string   `json:"ticker"`
	MarketCap    *float64 `json:"market_cap,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
}
