package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"imagestudio/internal/adapter/repo"
	"imagestudio/internal/events"
	"imagestudio/internal/http/handlers"
	httpapi "imagestudio/internal/http/httpapi"
	"imagestudio/internal/infra"
	"imagestudio/internal/infra/credentials"
	"imagestudio/internal/infra/geoip"
	"imagestudio/internal/jobs"
	"imagestudio/internal/middleware"
	"imagestudio/internal/providers/gemini"
	"imagestudio/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	runner.SlowThreshold = cfg.SlowQuery
	if cfg.AutoMigrate {
		if err := repo.EnsureSchema(ctx, runner); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure schema")
		}
	}

	storeOpts := []storage.Option{storage.WithLogger(logger)}
	if cfg.MinioEnabled() {
		mirror, err := storage.NewMinioMirror(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object storage mirror")
		}
		storeOpts = append(storeOpts, storage.WithMirror(mirror))
		logger.Info().Str("bucket", cfg.MinioBucket).Msg("mirroring assets to object storage")
	}
	store, err := storage.NewFileStore(cfg.StorageBaseDir, cfg.StorageInputDir, cfg.StorageOutputDir, storeOpts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init file store")
	}

	generators := gemini.NewFactory(gemini.Options{
		APIKey:    cfg.GeminiAPIKey,
		Model:     cfg.GeminiModel,
		ImageSize: cfg.GeminiImageSize,
		Keys:      credentials.NewStore(runner),
		Logger:    &logger,
	})

	var publisher jobs.EventPublisher
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect message broker")
		}
		defer amqpPub.Close()
		publisher = amqpPub
	}

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	var lookup middleware.CountryLookup
	if geo.Enabled() {
		defer geo.Close()
		lookup = geo.Lookup
	}

	svc := jobs.NewService(jobs.Deps{
		Jobs:       repo.NewJobRepository(runner),
		Assets:     repo.NewAssetRepository(runner),
		Store:      store,
		Generators: generators,
		Events:     publisher,
		Logger:     logger,
		Timeout:    cfg.GenerationTimeout,
	})

	app := &handlers.App{
		Jobs:         svc,
		Files:        store,
		Keys:         generators,
		DB:           runner,
		Logger:       logger,
		MaxBodyBytes: cfg.MaxRequestBytes,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		CORSOrigins:    cfg.CORSOrigins,
		CountryLookup:  lookup,
		GenerateLimit:  cfg.RateLimitPerMin,
		GenerateWindow: time.Minute,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Msgf("API listening on %s", server.Addr())
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return
	}
	logger.Info().Msg("server stopped")
}
