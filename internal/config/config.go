// Package config loads runtime settings from the environment (and an
// optional .env file) and turns them into scoring parameters.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/bighogz/insider-signal/internal/aggregator"
	"github.com/bighogz/insider-signal/internal/scoring"
)

// Prefix for every environment variable, e.g. INSIDER_PORT.
const Prefix = "INSIDER"

type Settings struct {
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogDev        bool   `envconfig:"LOG_DEV" default:"false"`
	TraceExporter string `envconfig:"TRACE_EXPORTER" default:"none"`

	DataDir          string        `envconfig:"DATA_DIR" default:"data"`
	QuoteCacheTTL    time.Duration `envconfig:"QUOTE_CACHE_TTL" default:"24h"`
	QuoteConcurrency int           `envconfig:"QUOTE_CONCURRENCY" default:"4"`
	FetchDelay       time.Duration `envconfig:"FETCH_DELAY" default:"700ms"`
	FetchRetries     int           `envconfig:"FETCH_RETRIES" default:"3"`
	DefaultURL       string        `envconfig:"DEFAULT_URL" default:"http://openinsider.com/screener?s=&o=&pl=&ph=&ll=&lh=&fd=30&fdr=&td=0&tdr=&fdlyl=&fdlyh=&daysago=&xp=1&vl=25&vh=&ocl=&och=&sic1=-1&sicl=100&sich=9999&grp=0&nfl=&nfh=&nil=&nih=&nol=&noh=&v2l=&v2h=&oc2l=&oc2h=&sortcol=0&cnt=100&page=1"`

	Port         int     `envconfig:"PORT" default:"8080"`
	AdminAPIKey  string  `envconfig:"ADMIN_API_KEY"`
	RateLimitRPS float64 `envconfig:"RATE_LIMIT_RPS" default:"1"`
	RateBurst    int     `envconfig:"RATE_LIMIT_BURST" default:"30"`
	// TrustProxy keys the rate limiter on X-Forwarded-For; set only behind a
	// proxy that overwrites the header.
	TrustProxy bool `envconfig:"TRUST_PROXY" default:"false"`
	MaxPages   int  `envconfig:"MAX_PAGES" default:"10"`

	Weights         map[string]float64 `envconfig:"WEIGHTS"`
	TitleWeights    map[string]float64 `envconfig:"TITLE_WEIGHTS"`
	OwnMode         string             `envconfig:"OWN_MODE" default:"sum_pos"`
	ClusterDays     int                `envconfig:"CLUSTER_DAYS" default:"7"`
	TimingBonusDays int                `envconfig:"TIMING_BONUS_DAYS" default:"2"`
	TimingBonusMult float64            `envconfig:"TIMING_BONUS_MULT" default:"1.10"`
}

// Load reads .env when present, then the INSIDER_* environment.
func Load() (*Settings, error) {
	_ = godotenv.Load(".env")
	var s Settings
	if err := envconfig.Process(Prefix, &s); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	return &s, nil
}

// Params builds validated scoring parameters from the settings.
func (s *Settings) Params() (scoring.Params, error) {
	mode, err := aggregator.ParseOwnMode(s.OwnMode)
	if err != nil {
		return scoring.Params{}, err
	}
	p := scoring.Params{
		Weights:         s.Weights,
		TitleWeights:    s.TitleWeights,
		OwnMode:         mode,
		ClusterDays:     s.ClusterDays,
		TimingBonusDays: s.TimingBonusDays,
		TimingBonusMult: s.TimingBonusMult,
	}
	if err := p.Validate(); err != nil {
		return scoring.Params{}, err
	}
	return p, nil
}

// ParseWeights reads "key=value,key=value" overrides as given on the
// command line. Keys are kept as written.
func ParseWeights(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("weight %q: want key=value", pair)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", pair, err)
		}
		out[strings.TrimSpace(k)] = f
	}
	return out, nil
}
