package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/your-org/geostream-archiver/internal/archive"
	"github.com/your-org/geostream-archiver/internal/stream"
	"github.com/your-org/geostream-archiver/pkg/config"
	"github.com/your-org/geostream-archiver/pkg/kafka"
	"github.com/your-org/geostream-archiver/pkg/logger"
	"github.com/your-org/geostream-archiver/pkg/metrics"
	"github.com/your-org/geostream-archiver/pkg/storage/objectstore"
	"github.com/your-org/geostream-archiver/pkg/tracing"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:     cfg.Tracing.Endpoint,
		Insecure:     cfg.Tracing.Insecure,
		SampleRatio:  cfg.Tracing.SampleRatio,
		ResourceAttr: cfg.Tracing.ResourceAttr,
		ServiceName:  cfg.App.Name,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	store, err := objectstore.New(objectstore.Config{
		Provider:  cfg.Storage.Provider,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Archive.Container,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		logr.Fatal("init object store", zap.Error(err))
	}

	var producer *kafka.Producer
	var notifier archive.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.NotifyTopic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			MaxAttempts:  cfg.Kafka.Retries,
		})
		notifier = producer
	}

	m := metrics.New()

	handler := archive.NewHandler(archive.HandlerParams{
		Stage:    archive.NewStageWriter(cfg.Archive.StagingDir),
		Uploader: archive.NewUploader(store, cfg.Archive.Container, cfg.Archive.KeyPrefix, cfg.Archive.UploadTimeout),
		Notifier: notifier,
		Logger:   logr,
		Metrics:  m,
		Delay:    cfg.Archive.InterEventDelay,
	})

	if cfg.Archive.SweepOnStart {
		if err := handler.Recover(ctx); err != nil {
			logr.Warn("startup staging sweep failed", zap.Error(err))
		}
	}

	client := stream.NewClient(cfg.Feed.StreamURL, stream.Credentials{
		ConsumerKey:       cfg.Feed.ConsumerKey,
		ConsumerSecret:    cfg.Feed.ConsumerSecret,
		AccessToken:       cfg.Feed.AccessToken,
		AccessTokenSecret: cfg.Feed.AccessTokenSecret,
	}, logr)

	bb := cfg.Feed.BoundingBox
	supervisor := stream.NewSupervisor(stream.SupervisorConfig{
		Source:         client,
		Handler:        handler,
		Box:            stream.BoundingBox{West: bb[0], South: bb[1], East: bb[2], North: bb[3]},
		Logger:         logr,
		Metrics:        m,
		InitialBackoff: cfg.Feed.ReconnectBackoff,
		MaxBackoff:     cfg.Feed.ReconnectMax,
		MaxAttempts:    cfg.Feed.ReconnectAttempts,
	})

	ops := archive.NewOpsHandler(handler, logr, m)
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      ops.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logr.Info("ops server starting", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Error("ops server failed", zap.Error(err))
		}
	}()

	logr.Info("archiver starting",
		zap.String("container", cfg.Archive.Container),
		zap.String("staging_dir", cfg.Archive.StagingDir),
		zap.Duration("inter_event_delay", cfg.Archive.InterEventDelay),
	)
	runErr := supervisor.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("ops server shutdown failed", zap.Error(err))
	}
	if producer != nil {
		if err := producer.Close(shutdownCtx); err != nil {
			logr.Error("producer shutdown failed", zap.Error(err))
		}
	}
	if err := store.Close(); err != nil {
		logr.Error("object store shutdown failed", zap.Error(err))
	}

	if runErr != nil {
		logr.Fatal("subscription failed", zap.Error(runErr))
	}
	logr.Info("archiver exiting")
}
