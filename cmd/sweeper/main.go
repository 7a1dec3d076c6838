package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"imagestudio/internal/adapter/repo"
	"imagestudio/internal/events"
	"imagestudio/internal/infra"
	"imagestudio/internal/jobs"
)

func main() {
	once := flag.Bool("once", false, "sweep a single time and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "sweeper").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	var publisher jobs.EventPublisher
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			logger.Fatal().Err(err).Msg("sweeper: broker connection failed")
		}
		defer amqpPub.Close()
		publisher = amqpPub
	}

	svc := jobs.NewService(jobs.Deps{
		Jobs:   repo.NewJobRepository(runner),
		Assets: repo.NewAssetRepository(runner),
		Events: publisher,
		Logger: logger,
	})
	sweeper := jobs.NewSweeper(svc, cfg.SweepInterval, cfg.StaleJobAfter, logger)

	if *once {
		n := sweeper.SweepOnce(ctx)
		logger.Info().Int("failed", n).Msg("sweep finished")
		return
	}

	logger.Info().
		Dur("interval", cfg.SweepInterval).
		Dur("older_than", cfg.StaleJobAfter).
		Msg("sweeper started")
	if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("sweeper stopped with error")
		return
	}
	logger.Info().Msg("sweeper stopped")
}
