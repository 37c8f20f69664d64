// Package main wires together the socialpulse service binary.
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

	gcppubsub "cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/socialpulse/internal/analytics"
	"github.com/JakeFAU/socialpulse/internal/api"
	"github.com/JakeFAU/socialpulse/internal/clock/system"
	"github.com/JakeFAU/socialpulse/internal/config"
	"github.com/JakeFAU/socialpulse/internal/discover"
	"github.com/JakeFAU/socialpulse/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/socialpulse/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/socialpulse/internal/fetcher/headless"
	"github.com/JakeFAU/socialpulse/internal/hash/sha256"
	"github.com/JakeFAU/socialpulse/internal/headless/detector"
	"github.com/JakeFAU/socialpulse/internal/id/uuid"
	"github.com/JakeFAU/socialpulse/internal/logging"
	"github.com/JakeFAU/socialpulse/internal/metrics"
	"github.com/JakeFAU/socialpulse/internal/notify"
	"github.com/JakeFAU/socialpulse/internal/progress"
	progresssinks "github.com/JakeFAU/socialpulse/internal/progress/sinks"
	memorypublisher "github.com/JakeFAU/socialpulse/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/socialpulse/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/socialpulse/internal/queue/memory"
	"github.com/JakeFAU/socialpulse/internal/scraper"
	"github.com/JakeFAU/socialpulse/internal/snapshot"
	"github.com/JakeFAU/socialpulse/internal/social"
	"github.com/JakeFAU/socialpulse/internal/storage/gcs"
	"github.com/JakeFAU/socialpulse/internal/storage/local"
	memoryStorage "github.com/JakeFAU/socialpulse/internal/storage/memory"
	"github.com/JakeFAU/socialpulse/internal/storage/postgres"
	"github.com/JakeFAU/socialpulse/internal/worker"
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
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobStore := memoryStorage.NewJobStore()
	queue := queueMemory.NewQueue(cfg.Jobs.QueueDepth)
	hasher := sha256.New()
	clock := system.New()
	idGen := uuid.New()

	profileStore, closeProfiles, err := buildProfileStore(ctx, cfg)
	if err != nil {
		logger.Fatal("profile store init failed", zap.Error(err))
	}
	defer closeProfiles()

	blobStore, err := buildBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}

	publisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}

	var archiver *snapshot.Archiver
	if cfg.Scraper.SnapshotRawPages {
		archiver = snapshot.New(blobStore, hasher, clock, snapshot.Config{
			Prefix:      cfg.Storage.Prefix,
			ContentType: cfg.Storage.ContentType,
		}, logger.Named("snapshot"))
	}

	prober := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   time.Duration(cfg.Scraper.ProbeTimeoutSec) * time.Second,
	})
	var (
		browser *headlessfetcher.Browser
		detect  scraper.PromotionDetector
	)
	if cfg.Headless.Enabled {
		browser, err = headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Scraper.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless browser init failed, running probe-only", zap.Error(err))
			browser = nil
		} else {
			defer browser.Close()
			detect = detector.NewHeuristic(cfg.Headless.PromotionThresh)
		}
	}

	minDelay, maxDelay := cfg.ScrapeDelayWindow()
	var renderer scraper.Renderer
	if browser != nil {
		renderer = browser
	}
	scrape, err := scraper.New(scraper.Config{
		BaseURL:         cfg.Scraper.BaseURL,
		MinDelay:        minDelay,
		MaxDelay:        maxDelay,
		MaxStaleScrolls: cfg.Scraper.MaxStaleScrolls,
	}, prober, renderer, detect, archiver, logger.Named("scraper"))
	if err != nil {
		logger.Fatal("scraper init failed", zap.Error(err))
	}

	notifier := notify.NewCallbackNotifier(notify.Config{
		Timeout: time.Duration(cfg.Callback.TimeoutSeconds) * time.Second,
	}, logger.Named("notify"))

	discovery := discover.New(scrape, profileStore, notifier, cfg.Discovery, logger.Named("discover"))

	promSink, err := progresssinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("progress collectors init failed", zap.Error(err))
	}
	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		progresssinks.NewLogSink(logger.Named("progress")),
		promSink,
		progresssinks.NewStoreSink(jobStore, logger.Named("progress")),
	)

	workerCfg := worker.Config{
		SyncPosts: cfg.Jobs.SyncPosts,
		Topic:     cfg.PubSub.TopicName,
	}
	var workers []*worker.Worker
	for i := 0; i < cfg.Jobs.Concurrency; i++ {
		workers = append(workers, worker.New(
			queue,
			jobStore,
			profileStore,
			scrape,
			discovery,
			notifier,
			publisher,
			hub,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	apiServer := api.NewServer(
		scrape,
		profileStore,
		jobStore,
		dispatch,
		analytics.NewEngine(),
		idGen,
		clock,
		cfg,
		logger.Named("api"),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(ctx)
	}()

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
	queue.Close()
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Error("progress hub shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildProfileStore(ctx context.Context, cfg config.Config) (social.ProfileStore, func(), error) {
	if cfg.DB.DSN == "" {
		return memoryStorage.NewProfileStore(), func() {}, nil
	}
	store, err := postgres.NewProfileStore(ctx, postgres.ProfileStoreConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: int32(cfg.DB.MaxOpenConns),
		MinConns: int32(cfg.DB.MaxIdleConns),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("postgres profile store: %w", err)
	}
	return store, store.Close, nil
}

func buildBlobStore(ctx context.Context, cfg config.Config) (social.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.Storage.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store: %w", err)
		}
		return store, nil
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store: %w", err)
		}
		return store, nil
	default:
		return memoryStorage.NewBlobStore(), nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (social.Publisher, error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		logger.Info("pubsub not configured, using memory publisher")
		return memorypublisher.New(), nil
	}
	client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	pub, err := pubsubpublisher.New(client)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher: %w", err)
	}
	return pub, nil
}
