// Command worker consumes upload tasks and runs the processing pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/StreetPass/internal/app"
	"github.com/dharsanguruparan/StreetPass/internal/config"
	"github.com/dharsanguruparan/StreetPass/internal/database"
	"github.com/dharsanguruparan/StreetPass/internal/logging"
	"github.com/dharsanguruparan/StreetPass/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := database.Migrate(cfg.DatabaseURL, logger); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init app", zap.Error(err))
	}
	defer a.Close()

	server := asynq.NewServer(app.RedisOpt(cfg), asynq.Config{
		Concurrency: cfg.Workers,
		Logger:      logger.Named("asynq").Sugar(),
	})
	handler := worker.NewHandler(a.Pipeline, logger.Named("worker"))

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info("worker started", zap.Int("concurrency", cfg.Workers))
	if err := server.Run(handler.Mux()); err != nil {
		logger.Error("worker stopped", zap.Error(err))
		os.Exit(1)
	}
}
