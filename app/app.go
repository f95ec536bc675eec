// Package app wires configuration into a ready try-on orchestrator. The server and the CLI
// share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raushankrgupta/fitly-tryon/bus"
	"github.com/raushankrgupta/fitly-tryon/config"
	"github.com/raushankrgupta/fitly-tryon/fal"
	"github.com/raushankrgupta/fitly-tryon/repository"
	"github.com/raushankrgupta/fitly-tryon/tryon"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

// App holds the long lived clients of one process.
type App struct {
	Config       *config.Config
	Store        repository.Store
	Objects      *utils.S3Store
	Orchestrator *tryon.Orchestrator
	Buckets      tryon.Buckets

	nats *bus.Client
}

// New connects every backend named by cfg and builds the orchestrator. Sessions are supplied
// by the caller: the server reads them from request tokens, the CLI from a flag.
func New(ctx context.Context, cfg *config.Config, sessions tryon.SessionProvider, logger *slog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("record store ready", "backend", cfg.RecordStore)

	objects, err := utils.NewS3Store(ctx, cfg)
	if err != nil {
		store.Close(context.Background())
		return nil, err
	}
	buckets := tryon.Buckets{Model: cfg.ModelBucket, Garment: cfg.GarmentBucket, Result: cfg.ResultBucket}
	objects.EnsureBuckets(ctx, logger, []utils.BucketSpec{
		{Name: buckets.Model},
		{Name: buckets.Garment},
		{Name: buckets.Result, Public: true},
	})

	a := &App{Config: cfg, Store: store, Objects: objects, Buckets: buckets}

	opts := []tryon.Option{
		tryon.WithLogger(logger),
		tryon.WithBuckets(buckets),
		tryon.WithMaxWidth(cfg.MaxImageWidth),
		tryon.WithPollPolicy(tryon.PollPolicy{Interval: cfg.PollInterval, MaxAttempts: cfg.PollMaxAttempts}),
	}
	if cfg.NATSURL != "" {
		nc, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			// events are optional
			logger.Warn("NATS unavailable, try-on events disabled", "url", cfg.NATSURL, "err", err)
		} else {
			a.nats = nc
			opts = append(opts, tryon.WithEvents(bus.NewEventPublisher(nc, cfg.NATSSubject)))
			logger.Info("publishing try-on events", "subject", cfg.NATSSubject)
		}
	}

	a.Orchestrator = tryon.New(tryon.Deps{
		Sessions: sessions,
		Synth:    fal.NewClient(cfg.FalAPIKey, fal.WithBaseURL(cfg.FalBaseURL)),
		Objects:  objects,
		Records:  store,
	}, opts...)
	return a, nil
}

// OpenStore connects the record store selected by RECORD_STORE.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.RecordStore {
	case config.RecordStorePostgres:
		return repository.OpenPostgres(ctx, cfg.DatabaseURL)
	case config.RecordStoreMongo:
		client, err := utils.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		store, err := repository.NewMongoStore(ctx, client, cfg.MongoDatabase)
		if err != nil {
			client.Disconnect(context.Background())
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown record store %q", cfg.RecordStore)
	}
}

// Close releases the bus connection and the record store.
func (a *App) Close(ctx context.Context) error {
	if a.nats != nil {
		a.nats.Close()
	}
	return a.Store.Close(ctx)
}
