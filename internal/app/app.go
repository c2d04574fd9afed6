// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the scrape and sources commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/api"
	"github.com/JakeFAU/opinion-crawler/internal/change"
	"github.com/JakeFAU/opinion-crawler/internal/clock/system"
	"github.com/JakeFAU/opinion-crawler/internal/config"
	"github.com/JakeFAU/opinion-crawler/internal/crawler"
	"github.com/JakeFAU/opinion-crawler/internal/extraction"
	collyfetcher "github.com/JakeFAU/opinion-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/opinion-crawler/internal/hash"
	"github.com/JakeFAU/opinion-crawler/internal/id/uuid"
	"github.com/JakeFAU/opinion-crawler/internal/ingest"
	"github.com/JakeFAU/opinion-crawler/internal/mime"
	"github.com/JakeFAU/opinion-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/opinion-crawler/internal/report"
	"github.com/JakeFAU/opinion-crawler/internal/scheduler"
	"github.com/JakeFAU/opinion-crawler/internal/source"
	badgerstore "github.com/JakeFAU/opinion-crawler/internal/storage/badger"
	"github.com/JakeFAU/opinion-crawler/internal/storage/gcs"
	"github.com/JakeFAU/opinion-crawler/internal/storage/local"
	"github.com/JakeFAU/opinion-crawler/internal/storage/memory"
	"github.com/JakeFAU/opinion-crawler/internal/storage/postgres"
	"github.com/JakeFAU/opinion-crawler/internal/worker"
)

// stateStore is the persistence surface the crawl needs from one backend.
type stateStore interface {
	crawler.DocumentStore
	crawler.BaselineStore
	crawler.ErrorLog
}

// App holds the shared, long-lived services for one process.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	registry  *source.Registry
	scheduler *scheduler.Scheduler
	ops       *api.Server
	closers   []func() error
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Sources returns the source registry.
func (a *App) Sources() *source.Registry {
	return a.registry
}

// Scheduler returns the crawl scheduler.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// OpsServer returns the operations HTTP server, or nil when server.port is 0.
func (a *App) OpsServer() *api.Server {
	return a.ops
}

// OpsAddr is the listen address for the operations server.
func (a *App) OpsAddr() string {
	return ":" + strconv.Itoa(a.cfg.Server.Port)
}

// NewApp builds every service named by cfg. It fails fast when a backend
// cannot be reached; whatever was opened before the failure is closed.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.registry, err = source.NewRegistry(cfg.Sources)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crawler.ErrSetup, err)
	}
	hasher, err := hash.New(cfg.Crawler.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crawler.ErrSetup, err)
	}
	clock := system.New()

	store, err := a.openStateStore(ctx)
	if err != nil {
		return nil, err
	}
	blobs, err := a.openBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	dispatcher, err := a.openDispatcher(ctx)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
	})
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Crawler.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		MaxHops:      cfg.Fetch.MaxMetaRefreshHops,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	}, limiter, logger.Named("fetcher"))

	reporter := report.New(store, clock, logger.Named("errors"))
	writer := ingest.New(blobs, store, dispatcher, uuid.New(), clock, reporter,
		ingest.Config{BlobPrefix: cfg.Storage.Prefix}, logger.Named("ingest"))
	adapter := source.NewHTMLAdapter(a.registry, fetcher, hasher, reporter, logger.Named("source"))
	scanner := worker.New(
		adapter,
		change.New(store, logger.Named("change")),
		store,
		fetcher,
		hasher,
		mime.New(),
		writer,
		reporter,
		worker.Config{
			DupThreshold: cfg.Crawler.DupThreshold,
			NonMonotonic: a.registry.NonMonotonic,
		},
		logger.Named("worker"),
	)
	a.scheduler = scheduler.New(scanner, reporter, clock, logger.Named("scheduler"))

	if cfg.Server.Port > 0 {
		a.ops = api.NewServer(a.registry, logger.Named("ops"))
	}
	logger.Info("application services initialized",
		zap.Int("sources", len(a.registry.IDs())),
		zap.String("db", cfg.DB.Provider),
		zap.String("storage", cfg.Storage.Provider),
		zap.String("pubsub", cfg.PubSub.Provider),
		zap.String("content_hash", hasher.Name()),
	)
	return a, nil
}

func (a *App) openStateStore(ctx context.Context) (stateStore, error) {
	switch a.cfg.DB.Provider {
	case "postgres":
		a.logger.Info("connecting to postgres")
		store, err := postgres.NewStore(ctx, postgres.Config{
			DSN:             a.cfg.DB.DSN,
			Schema:          a.cfg.DB.Schema,
			MaxConns:        a.cfg.DB.MaxConns,
			MinConns:        a.cfg.DB.MinConns,
			MaxConnLifetime: a.cfg.ConnLifetime(),
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		if a.cfg.DB.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		return store, nil
	case "badger":
		a.logger.Info("opening badger store", zap.String("dir", a.cfg.DB.BadgerDir))
		store, err := badgerstore.Open(a.cfg.DB.BadgerDir, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init badger store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "memory":
		a.logger.Warn("using in-memory state store; baselines and documents are lost on exit")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown db provider %q", crawler.ErrSetup, a.cfg.DB.Provider)
	}
}

func (a *App) openBlobStore(ctx context.Context) (crawler.BlobStore, error) {
	switch a.cfg.Storage.Provider {
	case "gcs":
		a.logger.Info("using gcs blob store", zap.String("bucket", a.cfg.Storage.GCSBucket))
		store, err := gcs.Open(ctx, gcs.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs blob store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "local":
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local blob store: %w", err)
		}
		return store, nil
	case "memory":
		a.logger.Warn("using in-memory blob store; binaries are discarded on exit")
		return memory.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage provider %q", crawler.ErrSetup, a.cfg.Storage.Provider)
	}
}

func (a *App) openDispatcher(ctx context.Context) (crawler.Dispatcher, error) {
	switch a.cfg.PubSub.Provider {
	case "pubsub":
		a.logger.Info("connecting to pubsub", zap.String("topic", a.cfg.PubSub.TopicName))
		client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create pubsub client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		topic := client.Topic(a.cfg.PubSub.TopicName)
		exists, err := topic.Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("check pubsub topic: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: pubsub topic %q does not exist", crawler.ErrSetup, a.cfg.PubSub.TopicName)
		}
		dispatcher, err := extraction.NewPubSub(topic, a.logger.Named("extraction"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, dispatcher.Close)
		return dispatcher, nil
	case "memory":
		return extraction.NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: unknown pubsub provider %q", crawler.ErrSetup, a.cfg.PubSub.Provider)
	}
}

// Close releases every opened backend in reverse order. The dispatcher is
// flushed before the client that owns it is closed.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error closing services", zap.Error(err))
	}
}
