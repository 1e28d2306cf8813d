package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/EvershineMarbles/EvershineBackend/internal/bizkey"
	"github.com/EvershineMarbles/EvershineBackend/internal/config"
	"github.com/EvershineMarbles/EvershineBackend/internal/event"
	"github.com/EvershineMarbles/EvershineBackend/internal/http"
	"github.com/EvershineMarbles/EvershineBackend/internal/http/metric"
	"github.com/EvershineMarbles/EvershineBackend/internal/log"
	"github.com/EvershineMarbles/EvershineBackend/internal/relay"
	"github.com/EvershineMarbles/EvershineBackend/internal/repository"
	"github.com/EvershineMarbles/EvershineBackend/internal/service"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/cache"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/db"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/mq"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/objstore"
	"github.com/EvershineMarbles/EvershineBackend/internal/telemetry"
	"github.com/EvershineMarbles/EvershineBackend/internal/validation"
	"github.com/EvershineMarbles/EvershineBackend/pkg/cmdutil"
	"github.com/EvershineMarbles/EvershineBackend/pkg/validator"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running standalone application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
		HTTP     config.HTTP
		Relay    config.Relay
		Kafka    config.Kafka
		Otel     config.Otel
		S3       config.S3
		Upload   config.Upload
		Redis    config.Redis
		BizKey   config.BizKey
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	dbClient := db.NewClient(pgxPool)

	kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("error creating kafka producer: %w", err)
	}
	defer kafkaProducer.Close()

	kafkaConsumer, err := mq.NewKafkaConsumer(ctx, cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("error creating kafka consumer: %w", err)
	}

	s3Client, err := objstore.NewS3Client(ctx, cfg.S3)
	if err != nil {
		return fmt.Errorf("error creating s3 client: %w", err)
	}
	imageStore := objstore.NewS3Store(cfg.S3, s3Client, logger)

	keys, err := bizkey.NewSnowflakeGenerator(cfg.BizKey.NodeID)
	if err != nil {
		return fmt.Errorf("error creating business key generator: %w", err)
	}

	structValidator, err := validator.NewDefaultValidator()
	if err != nil {
		return fmt.Errorf("error creating validator: %w", err)
	}
	inputValidator := validation.New(validation.FileRules{
		MaxFileSize:  cfg.Upload.MaxFileSize,
		AllowedTypes: cfg.Upload.AllowedTypes,
	})

	productRepository := repository.NewProductRepository(dbClient, structValidator)
	outboxMsgRepository := repository.NewOutboxMsgRepository(dbClient)

	productService := service.NewProductService(
		logger,
		dbClient,
		productRepository,
		outboxMsgRepository,
		inputValidator,
		imageStore,
		keys,
	)

	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("error creating redis client: %w", err)
		}
		defer redisClient.Close() //nolint:errcheck

		productService = service.NewCachedProductService(productService, redisClient, cfg.Redis.CacheTTL, logger)
		logger.InfoContext(ctx, "product cache enabled", slog.String("addr", cfg.Redis.Addr))
	}

	registry := metric.NewRegistry()

	interruptChan := cmdutil.InterruptChan()
	var wg sync.WaitGroup

	wg.Go(func() {
		svc := event.New(logger, kafkaConsumer, imageStore)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running event service: %w", err))
		}
		logger.InfoContext(ctx, "event service started")

		<-interruptChan

		logger.InfoContext(ctx, "event service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "event service is stopped")
	})

	wg.Go(func() {
		svc := http.New(cfg.HTTP, cfg.Upload, logger, registry, productService, dbClient)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running http service: %w", err))
		}

		logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

		<-interruptChan

		logger.InfoContext(ctx, "http service is shutting down")
		if err := cleanup(ctx); err != nil {
			logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
		}

		logger.InfoContext(ctx, "http service is stopped")
	})

	wg.Go(func() {
		svc := relay.NewService(cfg.Relay, logger, registry, dbClient, outboxMsgRepository, kafkaProducer)
		cleanup := svc.Run(ctx)
		logger.InfoContext(ctx, "relay service started")

		<-interruptChan

		logger.InfoContext(ctx, "relay service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "relay service is stopped")
	})

	wg.Wait()

	return nil
}
