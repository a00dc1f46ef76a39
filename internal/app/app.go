// Package app builds the StreetPass object graph once per process.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/StreetPass/internal/aggregate"
	"github.com/dharsanguruparan/StreetPass/internal/audit"
	"github.com/dharsanguruparan/StreetPass/internal/config"
	"github.com/dharsanguruparan/StreetPass/internal/database"
	"github.com/dharsanguruparan/StreetPass/internal/forwarder"
	"github.com/dharsanguruparan/StreetPass/internal/pipeline"
	"github.com/dharsanguruparan/StreetPass/internal/repository"
	"github.com/dharsanguruparan/StreetPass/internal/s3storage"
	"github.com/dharsanguruparan/StreetPass/internal/tempid"
	"github.com/dharsanguruparan/StreetPass/internal/token"
	"github.com/dharsanguruparan/StreetPass/internal/validation"
)

// App holds the long-lived clients. Build it in main and Close it on exit.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Pool     *pgxpool.Pool
	Objects  *s3storage.Storage
	Queue    *asynq.Client
	Logs     *repository.UploadLogRepository
	Contacts *repository.ContactRepository
	Tokens   *token.Service
	Pipeline *pipeline.Pipeline

	kafka *kgo.Client
}

// New connects to Postgres, S3, Redis and (for the kafka forwarder) Kafka,
// and assembles the pipeline.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Tokens: token.NewService(cfg.TokenSecret, cfg.TokenIssuer)}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.Pool = pool
	a.Logs = repository.NewUploadLogRepository(pool)
	a.Contacts = repository.NewContactRepository(pool)

	a.Objects, err = s3storage.New(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Objects.EnsureBuckets(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure buckets: %w", err)
	}

	a.Queue = asynq.NewClient(RedisOpt(cfg))

	fwd, err := a.forwarder()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Pipeline, err = NewPipeline(cfg, logger, Stores{
		Objects:   a.Objects,
		Audit:     a.Logs,
		Forwarder: fwd,
	}, a.Tokens)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) forwarder() (pipeline.Forwarder, error) {
	switch a.Config.Forwarder {
	case config.ForwarderKafka:
		client, err := forwarder.NewKafkaClient(a.Config.KafkaBrokers, a.Config.KafkaTopic)
		if err != nil {
			return nil, err
		}
		a.kafka = client
		return forwarder.NewKafka(client, a.Config.KafkaTopic)
	default:
		policy, err := aggregate.ParsePolicy(a.Config.MergePolicy)
		if err != nil {
			return nil, err
		}
		return forwarder.NewDocument(a.Contacts, policy, a.Logger.Named("forwarder"))
	}
}

// Close releases every client that was opened.
func (a *App) Close() error {
	var errs []error
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close queue: %w", err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	return errors.Join(errs...)
}

// RedisOpt is the asynq connection for cfg.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// Stores are the storage-facing collaborators of a pipeline.
type Stores struct {
	Objects   pipeline.ObjectStore
	Audit     audit.Store
	Forwarder pipeline.Forwarder
}

// NewPipeline assembles the validation chain from cfg around stores.
func NewPipeline(cfg *config.Config, logger *zap.Logger, stores Stores, tokens pipeline.TokenValidator) (*pipeline.Pipeline, error) {
	keys, err := tempid.ParseKeys(cfg.TempIDKeys)
	if err != nil {
		return nil, fmt.Errorf("parse temp id keys: %w", err)
	}
	if len(keys) == 0 {
		logger.Warn("no temp id keys configured, every record will fail decryption")
	}
	var decrypter validation.Decrypter = tempid.Codec{}
	if cfg.DecryptCacheSize > 0 {
		decrypter = tempid.NewCachingDecrypter(tempid.Codec{}, cfg.DecryptCacheSize, cfg.DecryptCacheTTL)
	}
	validator, err := validation.New(decrypter, keys,
		validation.WithValidToCheck(cfg.EnforceValidTo),
		validation.WithLogger(logger.Named("validation")),
	)
	if err != nil {
		return nil, err
	}
	auditLog := audit.NewLogger(stores.Audit, logger.Named("audit"))
	return pipeline.New(pipeline.Deps{
		Objects:    stores.Objects,
		Tokens:     tokens,
		Validator:  validator,
		Aggregator: aggregate.New(cfg.ContactWindow),
		Forwarder:  stores.Forwarder,
		Audit:      auditLog,
		History:    auditLog,
		Logger:     logger.Named("pipeline"),
	}, pipeline.Options{
		RecordsDir: cfg.RecordsDir,
		Extension:  cfg.RecordsExt,
		Timeout:    cfg.PipelineTimeout,
	})
}

// ExposureFilter is the contact query filter configured in cfg.
func ExposureFilter(cfg *config.Config) aggregate.ExposureFilter {
	return aggregate.ExposureFilter{MinContact: cfg.ExposureMin, MaxAge: cfg.ExposureMaxAge}
}
