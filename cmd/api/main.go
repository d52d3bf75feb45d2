package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bighogz/insider-signal/internal/cache"
	"github.com/bighogz/insider-signal/internal/config"
	"github.com/bighogz/insider-signal/internal/enrich"
	"github.com/bighogz/insider-signal/internal/httpclient"
	"github.com/bighogz/insider-signal/internal/logging"
	"github.com/bighogz/insider-signal/internal/openinsider"
	"github.com/bighogz/insider-signal/internal/pipeline"
	"github.com/bighogz/insider-signal/internal/telemetry"
	"github.com/bighogz/insider-signal/internal/yahoo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(settings.LogLevel, settings.LogDev)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, shutdownTracing, err := telemetry.Setup(settings.TraceExporter, nil)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	store, err := cache.Open(filepath.Join(settings.DataDir, "quotes.db"), settings.QuoteCacheTTL)
	if err != nil {
		return err
	}
	defer store.Close()

	quotes := yahoo.New(logger, yahoo.WithCache(store), yahoo.WithHTTPClient(httpclient.Default))
	fetcher := openinsider.NewFetcher(logger,
		openinsider.WithClient(httpclient.Default),
		openinsider.WithPageDelay(settings.FetchDelay),
		openinsider.WithRetries(settings.FetchRetries),
	)
	p := pipeline.New(logger,
		pipeline.WithScraper(fetcher),
		pipeline.WithEnricher(enrich.New(quotes, settings.QuoteConcurrency, logger)),
		pipeline.WithTracer(tracer),
	)
	srv, err := newServer(settings, p, logger)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(settings.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpSrv.Addr))
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
