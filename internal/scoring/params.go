package scoring

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bighogz/insider-signal/internal/aggregator"
	"github.com/bighogz/insider-signal/internal/models"
	"github.com/bighogz/insider-signal/internal/titles"
)

// Component names, used as weight keys.
const (
	TitleWeightedCount = "title_weighted_count"
	NumTrades          = "num_trades"
	OwnershipAgg       = "ownership_agg"
	OwnershipChange    = "ownership_change"
	ClusterCount       = "cluster_count"
	MarketCap          = "market_cap"
	TimeSinceTrade     = "time_since_trade"
	PriceDiff          = "price_diff"
)

// The rolled-up features carry the weight by default; num_trades and
// ownership_change are kept low or off to avoid double counting.
var defaultWeights = map[string]float64{
	TitleWeightedCount: 0.90,
	NumTrades:          0.10,
	OwnershipAgg:       0.85,
	OwnershipChange:    0.00,
	ClusterCount:       0.60,
	MarketCap:          0.60,
	TimeSinceTrade:     0.75,
	PriceDiff:          0.70,
}

// DefaultWeights returns a fresh copy of the default component weights.
func DefaultWeights() map[string]float64 {
	return maps.Clone(defaultWeights)
}

// MergeWeights overlays overrides onto the defaults in a new map.
func MergeWeights(overrides map[string]float64) map[string]float64 {
	out := DefaultWeights()
	maps.Copy(out, overrides)
	return out
}

// Params configures one scoring call. Weights and TitleWeights hold
// overrides only; they are merged onto the defaults per call.
type Params struct {
	Weights         map[string]float64 `validate:"dive,keys,oneof=title_weighted_count num_trades ownership_agg ownership_change cluster_count market_cap time_since_trade price_diff,endkeys,gte=0,lte=1"`
	TitleWeights    map[string]float64 `validate:"dive,keys,required,endkeys,gte=0,lte=1"`
	OwnMode         aggregator.OwnMode `validate:"omitempty,oneof=sum_pos mean_abs mean_signed"`
	ClusterDays     int                `validate:"gte=0"`
	TimingBonusDays int                `validate:"gte=0"`
	TimingBonusMult float64            `validate:"gte=1"`
	// Now anchors every days-since computation; zero means time.Now().
	Now time.Time
}

// DefaultParams: sum_pos, 7 day clusters, ×1.10 for activity within 2 days.
func DefaultParams() Params {
	return Params{
		OwnMode:         aggregator.OwnSumPositive,
		ClusterDays:     7,
		TimingBonusDays: 2,
		TimingBonusMult: 1.10,
	}
}

var validate = validator.New()

// Validate reports every out-of-range parameter as one ConfigurationError.
func (p Params) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &models.ConfigurationError{Problems: []string{err.Error()}}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s: %v fails %s=%s", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param()))
	}
	return &models.ConfigurationError{Problems: problems}
}

type resolved struct {
	weights      map[string]float64
	titleWeights map[string]float64
	now          time.Time
	Params
}

func (p Params) resolve() resolved {
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	own := p.OwnMode
	if own == "" {
		own = aggregator.OwnSumPositive
	}
	p.OwnMode = own
	return resolved{
		weights:      MergeWeights(p.Weights),
		titleWeights: titles.Merge(p.TitleWeights),
		now:          models.DayUTC(now),
		Params:       p,
	}
}
