// Command server accepts uploads over HTTP and serves audit logs and
// contact queries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/StreetPass/internal/api"
	"github.com/dharsanguruparan/StreetPass/internal/app"
	"github.com/dharsanguruparan/StreetPass/internal/config"
	"github.com/dharsanguruparan/StreetPass/internal/logging"
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

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init app", zap.Error(err))
	}
	defer a.Close()

	srv := api.New(api.Deps{
		Uploads:  a.Objects,
		Queue:    a.Queue,
		Logs:     a.Logs,
		Contacts: a.Contacts,
		Exposure: app.ExposureFilter(cfg),
		Logger:   logger.Named("api"),
	}, api.Options{
		Address:        cfg.Address,
		Bucket:         a.Objects.UploadBucket(),
		RecordsDir:     cfg.RecordsDir,
		RecordsExt:     cfg.RecordsExt,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
