package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bighogz/insider-signal/internal/aggregator"
	"github.com/bighogz/insider-signal/internal/config"
	"github.com/bighogz/insider-signal/internal/models"
	"github.com/bighogz/insider-signal/internal/openinsider"
	"github.com/bighogz/insider-signal/internal/pipeline"
	"github.com/bighogz/insider-signal/internal/reconcile"
	"github.com/bighogz/insider-signal/internal/scoring"
)

const maxBodyBytes = 8 << 20

type ranker interface {
	Rank(ctx context.Context, rows []reconcile.Row, opts pipeline.Options) (*pipeline.Result, error)
	ScrapeAndRank(ctx context.Context, url string, pages int, opts pipeline.Options) (*pipeline.Result, error)
}

type server struct {
	pipeline   ranker
	defaults   scoring.Params
	adminKey   string
	defaultURL string
	maxPages   int
	limiter    *ipLimiter
	logger     *zap.Logger
}

func newServer(s *config.Settings, p ranker, logger *zap.Logger) (*server, error) {
	defaults, err := s.Params()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &server{
		pipeline:   p,
		defaults:   defaults,
		adminKey:   s.AdminAPIKey,
		defaultURL: s.DefaultURL,
		maxPages:   s.MaxPages,
		limiter:    newIPLimiter(s.RateLimitRPS, s.RateBurst, s.TrustProxy),
		logger:     logger,
	}, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/rank", http.HandlerFunc(s.handleRank))
	mux.Handle("POST /api/scan", requireAdmin(s.adminKey, s.limiter.middleware(http.HandlerFunc(s.handleScan))))
	mux.HandleFunc("GET /api/health", handleHealth)
	return securityHeaders(mux)
}

// paramsRequest overrides the server's default scoring parameters.
type paramsRequest struct {
	Weights         map[string]float64 `json:"weights"`
	TitleWeights    map[string]float64 `json:"title_weights"`
	OwnMode         *string            `json:"own_mode"`
	ClusterDays     *int               `json:"cluster_days"`
	TimingBonusDays *int               `json:"timing_bonus_days"`
	TimingBonusMult *float64           `json:"timing_bonus_mult"`
	AsOf            string             `json:"as_of"`
	Enrich          bool               `json:"enrich"`
	Dedupe          bool               `json:"dedupe"`
	Limit           int                `json:"limit"`
}

type rankRequest struct {
	Rows []reconcile.Row `json:"rows"`
	paramsRequest
}

type scanRequest struct {
	URL   string `json:"url"`
	Pages int    `json:"pages"`
	paramsRequest
}

type rankResponse struct {
	Mode     string             `json:"mode"`
	Count    int                `json:"count"`
	Warnings []string           `json:"warnings,omitempty"`
	Rows     []models.ScoredRow `json:"rows"`
}

func (s *server) options(req paramsRequest) (pipeline.Options, error) {
	p := s.defaults
	if req.Weights != nil {
		p.Weights = req.Weights
	}
	if req.TitleWeights != nil {
		p.TitleWeights = req.TitleWeights
	}
	if req.OwnMode != nil {
		mode, err := aggregator.ParseOwnMode(*req.OwnMode)
		if err != nil {
			return pipeline.Options{}, err
		}
		p.OwnMode = mode
	}
	if req.ClusterDays != nil {
		p.ClusterDays = *req.ClusterDays
	}
	if req.TimingBonusDays != nil {
		p.TimingBonusDays = *req.TimingBonusDays
	}
	if req.TimingBonusMult != nil {
		p.TimingBonusMult = *req.TimingBonusMult
	}
	if req.AsOf != "" {
		t, err := time.Parse(time.DateOnly, req.AsOf)
		if err != nil {
			return pipeline.Options{}, models.NewConfigurationError("as_of %q: want YYYY-MM-DD", req.AsOf)
		}
		p.Now = t
	}
	return pipeline.Options{Params: p, Enrich: req.Enrich, Dedupe: req.Dedupe}, nil
}

func (s *server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !decodeBody(w, r, &req) {
		return
	}
	opts, err := s.options(req.paramsRequest)
	if err != nil {
		s.fail(w, err)
		return
	}
	res, err := s.pipeline.Rank(r.Context(), req.Rows, opts)
	if err != nil {
		s.fail(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, respond(res, req.Limit))
}

func (s *server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	opts, err := s.options(req.paramsRequest)
	if err != nil {
		s.fail(w, err)
		return
	}
	url := req.URL
	if url == "" {
		url = s.defaultURL
	}
	pages := clamp(req.Pages, 1, s.maxPages)
	res, err := s.pipeline.ScrapeAndRank(r.Context(), url, pages, opts)
	if err != nil {
		s.fail(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, respond(res, req.Limit))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respond(res *pipeline.Result, limit int) rankResponse {
	rows := res.Rows
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []models.ScoredRow{}
	}
	out := rankResponse{Mode: res.Mode, Count: len(res.Rows), Rows: rows}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.String())
	}
	return out
}

func (s *server) fail(w http.ResponseWriter, err error) {
	var cfgErr *models.ConfigurationError
	var fetchErr *openinsider.FetchError
	switch {
	case errors.As(err, &cfgErr):
		jsonResponse(w, http.StatusBadRequest, map[string]any{"error": "invalid parameters", "problems": cfgErr.Problems})
	case errors.Is(err, openinsider.ErrBadURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &fetchErr):
		s.logger.Warn("scrape failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream listing unavailable")
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
