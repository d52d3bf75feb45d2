// Package pipeline runs the end-to-end flow: rows in, ranked tickers out.
package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/bighogz/insider-signal/internal/aggregator"
	"github.com/bighogz/insider-signal/internal/enrich"
	"github.com/bighogz/insider-signal/internal/models"
	"github.com/bighogz/insider-signal/internal/reconcile"
	"github.com/bighogz/insider-signal/internal/scoring"
)

// Scraper fetches listing pages as rows.
type Scraper interface {
	Scrape(ctx context.Context, baseURL string, pages int) ([]reconcile.Row, error)
}

type Pipeline struct {
	scraper  Scraper
	enricher *enrich.Enricher
	logger   *zap.Logger
	tracer   trace.Tracer
}

type Option func(*Pipeline)

func WithScraper(s Scraper) Option { return func(p *Pipeline) { p.scraper = s } }

func WithEnricher(e *enrich.Enricher) Option { return func(p *Pipeline) { p.enricher = e } }

func WithTracer(t trace.Tracer) Option { return func(p *Pipeline) { p.tracer = t } }

func New(logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{logger: logger}
	for _, o := range opts {
		o(p)
	}
	if p.tracer == nil {
		p.tracer = noop.NewTracerProvider().Tracer("")
	}
	return p
}

type Options struct {
	Params scoring.Params
	// Enrich attaches market data before scoring; needs an enricher.
	Enrich bool
	// Dedupe drops repeated trade rows (raw input only).
	Dedupe bool
}

type Result struct {
	Rows     []models.ScoredRow       `json:"rows"`
	Mode     string                   `json:"mode"`
	Warnings []models.CoercionWarning `json:"-"`
}

// Rank decodes rows, optionally enriches them, and scores them.
func (p *Pipeline) Rank(ctx context.Context, rows []reconcile.Row, opts Options) (*Result, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	ctx, span := p.tracer.Start(ctx, "pipeline.rank")
	defer span.End()

	_, dspan := p.tracer.Start(ctx, "decode")
	input, warns := reconcile.Decode(rows)
	mode := models.Mode(input)
	dspan.SetAttributes(attribute.Int("rows", len(rows)), attribute.String("mode", mode), attribute.Int("warnings", len(warns)))
	dspan.End()
	for _, w := range warns {
		p.logger.Debug("cell coercion", zap.Stringer("warning", w))
	}
	if len(warns) > 0 {
		p.logger.Warn("some cells could not be read", zap.Int("count", len(warns)))
	}

	if raw, ok := input.(models.RawTrades); ok && opts.Dedupe {
		input = models.RawTrades(aggregator.Dedupe(raw))
	}

	if opts.Enrich && p.enricher != nil {
		ectx, espan := p.tracer.Start(ctx, "enrich")
		switch in := input.(type) {
		case models.RawTrades:
			input = models.RawTrades(p.enricher.Trades(ectx, in))
		case models.Aggregated:
			now := opts.Params.Now
			if now.IsZero() {
				now = time.Now()
			}
			input = models.Aggregated(p.enricher.Features(ectx, in, now))
		}
		espan.End()
	}

	_, sspan := p.tracer.Start(ctx, "score")
	scored, err := scoring.Score(input, opts.Params)
	if err != nil {
		sspan.RecordError(err)
		sspan.SetStatus(codes.Error, err.Error())
		sspan.End()
		return nil, err
	}
	sspan.SetAttributes(attribute.Int("tickers", len(scored)))
	sspan.End()

	p.logger.Info("ranked",
		zap.String("mode", mode), zap.Int("rows", len(rows)), zap.Int("tickers", len(scored)))
	return &Result{Rows: scored, Mode: mode, Warnings: warns}, nil
}

// ScrapeAndRank fetches pages of a listing and ranks what it found.
func (p *Pipeline) ScrapeAndRank(ctx context.Context, url string, pages int, opts Options) (*Result, error) {
	if p.scraper == nil {
		return nil, models.NewConfigurationError("no scraper configured")
	}
	fctx, span := p.tracer.Start(ctx, "fetch", trace.WithAttributes(
		attribute.String("url", url), attribute.Int("pages", pages)))
	rows, err := p.scraper.Scrape(fctx, url, pages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	span.End()
	return p.Rank(ctx, rows, opts)
}
