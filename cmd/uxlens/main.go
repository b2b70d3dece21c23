// Package main wires together the audit service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/uxlens/uxlens/internal/api"
	"github.com/uxlens/uxlens/internal/audit"
	"github.com/uxlens/uxlens/internal/capture"
	"github.com/uxlens/uxlens/internal/clock/system"
	"github.com/uxlens/uxlens/internal/config"
	"github.com/uxlens/uxlens/internal/crawl"
	"github.com/uxlens/uxlens/internal/id/uuid"
	"github.com/uxlens/uxlens/internal/inference"
	"github.com/uxlens/uxlens/internal/logging"
	"github.com/uxlens/uxlens/internal/metrics"
	"github.com/uxlens/uxlens/internal/pipeline"
	memorypublisher "github.com/uxlens/uxlens/internal/publisher/memory"
	nooppublisher "github.com/uxlens/uxlens/internal/publisher/noop"
	pubsubpublisher "github.com/uxlens/uxlens/internal/publisher/pubsub"
	"github.com/uxlens/uxlens/internal/quota"
	"github.com/uxlens/uxlens/internal/recorder"
	"github.com/uxlens/uxlens/internal/session"
	"github.com/uxlens/uxlens/internal/storage/gcs"
	memorystorage "github.com/uxlens/uxlens/internal/storage/memory"
	"github.com/uxlens/uxlens/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	clock := system.New()
	idGen := uuid.New()

	usageStore, reportStore, closeStores, err := buildStores(ctx, cfg)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer closeStores()

	blobStore, err := buildBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}

	publisher, closePublisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	defer closePublisher()

	renderer, closeRenderer, err := buildRenderer(cfg)
	if err != nil {
		logger.Fatal("renderer init failed", zap.Error(err))
	}
	defer closeRenderer()

	acquirer := capture.New(renderer, capture.Config{
		MinBytes:      cfg.Capture.MinBytes,
		Attempts:      cfg.Capture.Attempts,
		Delay:         time.Duration(cfg.Capture.DelayMs) * time.Millisecond,
		CrawlAttempts: cfg.Capture.CrawlAttempts,
		CrawlDelay:    time.Duration(cfg.Capture.CrawlDelayMs) * time.Millisecond,
	}, logger.Named("capture"))

	fetcher := crawl.NewCollyFetcher(crawl.FetcherConfig{
		UserAgent: cfg.Crawl.UserAgent,
		Timeout:   time.Duration(cfg.Crawl.FetchTimeout) * time.Second,
	})
	discoverer := crawl.NewDiscoverer(fetcher, acquirer, cfg.Crawl.MaxExtraPages, logger.Named("crawl"))

	model := inference.NewClient(inference.ClientConfig{
		BaseURL:     cfg.Inference.BaseURL,
		APIKey:      cfg.Inference.APIKey,
		Model:       cfg.Inference.Model,
		Temperature: cfg.Inference.Temperature,
		Timeout:     time.Duration(cfg.Inference.TimeoutSeconds) * time.Second,
	})
	dispatcher := inference.NewDispatcher(model, cfg.Inference.MaxParallel, logger.Named("inference"))

	ledger := quota.NewLedger(usageStore, reportStore, clock, logger.Named("quota"))
	rec := recorder.New(reportStore, usageStore, publisher, idGen, clock, cfg.Events.Topic, logger.Named("recorder"))
	pipe := pipeline.New(ledger, acquirer, discoverer, dispatcher, model, blobStore, rec, idGen, logger.Named("pipeline"))

	sessions := session.NewHeaderProvider(cfg.Auth.UserHeader)
	apiServer := api.NewServer(pipe, ledger, reportStore, sessions, cfg.RequestTimeout(), logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildStores(ctx context.Context, cfg config.Config) (audit.UsageStore, audit.ReportStore, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{DSN: cfg.DB.DSN})
		if err != nil {
			return nil, nil, nil, err
		}
		usage, err := postgres.NewUsageStore(pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		reports, err := postgres.NewReportStore(pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return usage, reports, pool.Close, nil
	case "memory":
		return memorystorage.NewUsageStore(), memorystorage.NewReportStore(), func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown db provider %q", cfg.DB.Provider)
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config) (audit.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket, Prefix: cfg.Storage.Prefix})
	case "memory":
		return memorystorage.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (audit.Publisher, func(), error) {
	switch cfg.Events.Provider {
	case "pubsub":
		client, err := gpubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		pub, err := pubsubpublisher.New(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return pub, func() { _ = pub.Close() }, nil
	case "memory":
		return memorypublisher.New(), func() {}, nil
	case "noop":
		return nooppublisher.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown events provider %q", cfg.Events.Provider)
	}
}

func buildRenderer(cfg config.Config) (audit.Renderer, func(), error) {
	switch cfg.Capture.Provider {
	case "mshots":
		return capture.NewMshots(capture.MshotsConfig{
			Width:  cfg.Capture.Width,
			Height: cfg.Capture.Height,
		}), func() {}, nil
	case "chromedp":
		renderer, err := capture.NewChromedp(capture.ChromedpConfig{
			MaxParallel: cfg.Capture.MaxParallel,
			UserAgent:   cfg.Crawl.UserAgent,
			Width:       int64(cfg.Capture.Width),
			Height:      int64(cfg.Capture.Height),
		})
		if err != nil {
			return nil, nil, err
		}
		return renderer, renderer.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown capture provider %q", cfg.Capture.Provider)
	}
}
