package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bighogz/insider-signal/internal/aggregator"
	"github.com/bighogz/insider-signal/internal/cache"
	"github.com/bighogz/insider-signal/internal/config"
	"github.com/bighogz/insider-signal/internal/enrich"
	"github.com/bighogz/insider-signal/internal/httpclient"
	"github.com/bighogz/insider-signal/internal/logging"
	"github.com/bighogz/insider-signal/internal/models"
	"github.com/bighogz/insider-signal/internal/openinsider"
	"github.com/bighogz/insider-signal/internal/pipeline"
	"github.com/bighogz/insider-signal/internal/reconcile"
	"github.com/bighogz/insider-signal/internal/scoring"
	"github.com/bighogz/insider-signal/internal/telemetry"
	"github.com/bighogz/insider-signal/internal/yahoo"
)

type flags struct {
	url             string
	pages           int
	input           string
	csvPath         string
	weights         string
	titleWeights    string
	ownMode         string
	clusterDays     int
	timingBonusDays int
	timingBonusMult float64
	asOf            string
	enrich          bool
	dedupe          bool
	top             int
}

func parseFlags(args []string, s *config.Settings) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.StringVar(&f.url, "url", s.DefaultURL, "Listing URL to scrape")
	fs.IntVar(&f.pages, "pages", 1, "Number of listing pages")
	fs.StringVar(&f.input, "input", "", "Read rows from this CSV instead of scraping")
	fs.StringVar(&f.csvPath, "csv", "", "Write the ranked table to CSV")
	fs.StringVar(&f.weights, "weights", "", "Component weight overrides, e.g. ownership_agg=0.5,price_diff=0")
	fs.StringVar(&f.titleWeights, "title-weights", "", "Title weight overrides, e.g. CEO=1,DIRECTOR=0.5")
	fs.StringVar(&f.ownMode, "own-mode", s.OwnMode, "Ownership aggregation: sum_pos, mean_abs or mean_signed")
	fs.IntVar(&f.clusterDays, "cluster-days", s.ClusterDays, "Cluster window in days")
	fs.IntVar(&f.timingBonusDays, "timing-bonus-days", s.TimingBonusDays, "Recency window for the timing bonus")
	fs.Float64Var(&f.timingBonusMult, "timing-bonus-mult", s.TimingBonusMult, "Timing bonus multiplier")
	fs.StringVar(&f.asOf, "as-of", "", "As-of date YYYY-MM-DD")
	fs.BoolVar(&f.enrich, "enrich", false, "Look up market cap and current price")
	fs.BoolVar(&f.dedupe, "dedupe", true, "Drop repeated trade rows")
	fs.IntVar(&f.top, "top", 25, "Rows to print (0 for all)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *flags) params(s *config.Settings) (scoring.Params, error) {
	mode, err := aggregator.ParseOwnMode(f.ownMode)
	if err != nil {
		return scoring.Params{}, err
	}
	p := scoring.Params{
		Weights:         s.Weights,
		TitleWeights:    s.TitleWeights,
		OwnMode:         mode,
		ClusterDays:     f.clusterDays,
		TimingBonusDays: f.timingBonusDays,
		TimingBonusMult: f.timingBonusMult,
	}
	if f.weights != "" {
		if p.Weights, err = config.ParseWeights(f.weights); err != nil {
			return scoring.Params{}, err
		}
	}
	if f.titleWeights != "" {
		if p.TitleWeights, err = config.ParseWeights(f.titleWeights); err != nil {
			return scoring.Params{}, err
		}
	}
	if f.asOf != "" {
		t, err := time.Parse(time.DateOnly, f.asOf)
		if err != nil {
			return scoring.Params{}, fmt.Errorf("invalid as-of date: %w", err)
		}
		p.Now = t
	}
	return p, p.Validate()
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	f, err := parseFlags(args, settings)
	if err != nil {
		return err
	}
	params, err := f.params(settings)
	if err != nil {
		return err
	}
	logger, err := logging.New(settings.LogLevel, settings.LogDev)
	if err != nil {
		return err
	}
	defer logger.Sync()
	tracer, shutdownTracing, err := telemetry.Setup(settings.TraceExporter, os.Stderr)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []pipeline.Option{pipeline.WithTracer(tracer)}
	if f.enrich {
		store, err := cache.Open(filepath.Join(settings.DataDir, "quotes.db"), settings.QuoteCacheTTL)
		if err != nil {
			return err
		}
		defer store.Close()
		quotes := yahoo.New(logger, yahoo.WithCache(store), yahoo.WithHTTPClient(httpclient.Default))
		opts = append(opts, pipeline.WithEnricher(enrich.New(quotes, settings.QuoteConcurrency, logger)))
	}
	if f.input == "" {
		opts = append(opts, pipeline.WithScraper(openinsider.NewFetcher(logger,
			openinsider.WithClient(httpclient.Default),
			openinsider.WithPageDelay(settings.FetchDelay),
			openinsider.WithRetries(settings.FetchRetries),
		)))
	}
	p := pipeline.New(logger, opts...)
	popts := pipeline.Options{Params: params, Enrich: f.enrich, Dedupe: f.dedupe}

	var res *pipeline.Result
	if f.input != "" {
		rows, err := readInput(f.input)
		if err != nil {
			return err
		}
		logger.Info("loaded input", zap.String("path", f.input), zap.Int("rows", len(rows)))
		res, err = p.Rank(ctx, rows, popts)
		if err != nil {
			return err
		}
	} else {
		res, err = p.ScrapeAndRank(ctx, f.url, f.pages, popts)
		if err != nil {
			return err
		}
	}

	printTable(out, res, f.top)

	if f.csvPath != "" {
		if err := writeOutput(f.csvPath, res.Rows); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nWrote %s.\n", f.csvPath)
	}
	return nil
}

func readInput(path string) ([]reconcile.Row, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return reconcile.ReadCSV(fh)
}

func writeOutput(path string, rows []models.ScoredRow) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create CSV: %w", err)
	}
	if err := pipeline.WriteCSV(fh, rows); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func printTable(w io.Writer, res *pipeline.Result, top int) {
	fmt.Fprintf(w, "Ranked %d tickers (%s input).\n", len(res.Rows), res.Mode)
	if len(res.Warnings) > 0 {
		fmt.Fprintf(w, "%d cells could not be read and were treated as missing.\n", len(res.Warnings))
	}
	if len(res.Rows) == 0 {
		fmt.Fprintln(w, "  (No data)")
		return
	}
	rows := res.Rows
	if top > 0 && top < len(rows) {
		rows = rows[:top]
	}
	fmt.Fprintf(w, "\n%4s  %-8s  %7s  %-5s  %s\n", "rank", "ticker", "score", "bonus", "company")
	fmt.Fprintln(w, strings.Repeat("-", 48))
	for _, r := range rows {
		company := ""
		if r.CompanyName != nil {
			company = *r.CompanyName
		}
		bonus := ""
		if r.TimingBonus {
			bonus = "yes"
		}
		fmt.Fprintf(w, "%4d  %-8s  %7.3f  %-5s  %s\n", r.Rank, r.Ticker, r.TotalScore, bonus, company)
	}
}
