// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/api"
	"github.com/JakeFAU/newopenings-crawler/internal/archive"
	"github.com/JakeFAU/newopenings-crawler/internal/catalog"
	"github.com/JakeFAU/newopenings-crawler/internal/clock/system"
	"github.com/JakeFAU/newopenings-crawler/internal/config"
	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/discovery"
	"github.com/JakeFAU/newopenings-crawler/internal/discovery/listings"
	"github.com/JakeFAU/newopenings-crawler/internal/discovery/places"
	"github.com/JakeFAU/newopenings-crawler/internal/discovery/structured"
	"github.com/JakeFAU/newopenings-crawler/internal/dispatcher"
	"github.com/JakeFAU/newopenings-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/newopenings-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/newopenings-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/newopenings-crawler/internal/hash/sha256"
	"github.com/JakeFAU/newopenings-crawler/internal/headless/detector"
	"github.com/JakeFAU/newopenings-crawler/internal/id/uuid"
	"github.com/JakeFAU/newopenings-crawler/internal/metrics"
	"github.com/JakeFAU/newopenings-crawler/internal/pipeline"
	"github.com/JakeFAU/newopenings-crawler/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/newopenings-crawler/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/newopenings-crawler/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/newopenings-crawler/internal/queue/memory"
	"github.com/JakeFAU/newopenings-crawler/internal/reconcile"
	"github.com/JakeFAU/newopenings-crawler/internal/scheduler"
	gcsstore "github.com/JakeFAU/newopenings-crawler/internal/storage/gcs"
	localstore "github.com/JakeFAU/newopenings-crawler/internal/storage/local"
	memoryStorage "github.com/JakeFAU/newopenings-crawler/internal/storage/memory"
	"github.com/JakeFAU/newopenings-crawler/internal/storage/postgres"
	"github.com/JakeFAU/newopenings-crawler/internal/storage/sqlite"
	"github.com/JakeFAU/newopenings-crawler/internal/store"
	"github.com/JakeFAU/newopenings-crawler/internal/worker"
)

// cardMarker shows a static listing page already carries server-rendered cards.
const cardMarker = "poi-list-item"

// App holds all the shared, long-lived services for the application.
// It is initialized once at startup and passed to the commands that need it.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	location   *time.Location
	store      store.Repository
	pipeline   *pipeline.Pipeline
	catalog    *catalog.Catalog
	queue      *queueMemory.Queue
	dispatcher *dispatcher.Dispatcher
	scheduler  *scheduler.Scheduler
	ids        crawler.IDGenerator
	clock      crawler.Clock
	server     *api.Server

	// closers run in reverse order on Close.
	closers []func() error
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger { return a.logger }

// GetConfig returns the configuration the App was built from.
func (a *App) GetConfig() config.Config { return a.cfg }

// NewApp creates and initializes all services from cfg. It fails fast if any configured
// backend cannot be reached; whatever was opened before the failure is closed again.
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

	logger.Info("initializing application services")
	metrics.Init()

	a.location, err = system.LoadLocation(cfg.Retention.Timezone)
	if err != nil {
		return nil, err
	}
	scheduleLoc, err := system.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, err
	}
	clock := system.New()
	a.clock = clock
	a.ids = uuid.New()

	// 1. Restaurant store.
	if a.store, err = a.openStore(ctx); err != nil {
		return nil, err
	}
	if err = a.store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate %s store: %w", cfg.Store.Driver, err)
	}

	// 2. Page archive.
	blobs, err := a.openArchive(ctx)
	if err != nil {
		return nil, err
	}
	archiver := archive.New(archive.Config{
		Store:    blobs,
		Hasher:   sha256.New(),
		Clock:    clock,
		Location: a.location,
		Prefix:   cfg.Archive.Prefix,
	}, logger)

	// 3. Run notifications.
	publisher, err := a.openPublisher(ctx)
	if err != nil {
		return nil, err
	}

	// 4. Discovery chain.
	sources := a.buildSources(archiver)
	coordinator := discovery.NewCoordinator(logger, sources...)

	reconciler := reconcile.New(a.store, clock, a.location, logger)
	a.pipeline = pipeline.New(coordinator, reconciler, publisher, clock, pipeline.Config{Topic: cfg.PubSub.TopicName}, logger)
	a.catalog = catalog.New(a.store, clock, a.location, logger)

	// 5. Trigger plumbing: one worker, so queued runs execute one after another.
	a.queue = queueMemory.NewQueue(cfg.Server.QueueDepth)
	a.closers = append(a.closers, func() error { a.queue.Close(); return nil })
	w := worker.New(a.queue, a.pipeline.Handle, worker.Config{}, logger)
	a.dispatcher = dispatcher.New(a.queue, []*worker.Worker{w}, a.ids, clock)
	a.server = api.NewServer(a.catalog, a.dispatcher, cfg, logger)

	a.scheduler = scheduler.New(scheduleLoc, logger)
	if cfg.Schedule.Enabled {
		if err = a.scheduler.Register(scheduler.Job{
			ID:   cfg.Schedule.JobID,
			Spec: cfg.Schedule.Cron,
			Run:  a.scheduledRun,
		}); err != nil {
			return nil, fmt.Errorf("register schedule: %w", err)
		}
	}

	logger.Info("application services initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("archive", cfg.Archive.Driver),
		zap.Int("sources", len(sources)))
	return a, nil
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// RunWorkers drains queued runs until ctx finishes.
func (a *App) RunWorkers(ctx context.Context) { a.dispatcher.Run(ctx) }

// StartScheduler begins firing the weekly trigger and logs when it fires next.
func (a *App) StartScheduler() {
	a.scheduler.Start()
	if next, ok := a.scheduler.Next(a.cfg.Schedule.JobID); ok {
		a.logger.Info("next scheduled run", zap.Time("at", next))
	}
}

// StopScheduler stops the trigger and waits for an in-flight fire until ctx expires.
func (a *App) StopScheduler(ctx context.Context) error { return a.scheduler.Stop(ctx) }

// RunNow executes one pipeline run synchronously, bypassing the queue.
func (a *App) RunNow(ctx context.Context, trigger crawler.Trigger) (pipeline.RunEvent, error) {
	id, err := a.ids.NewID()
	if err != nil {
		return pipeline.RunEvent{}, fmt.Errorf("generate run id: %w", err)
	}
	return a.pipeline.Run(ctx, crawler.RunRequest{ID: id, Trigger: trigger, Submitted: a.clock.Now().UTC()})
}

func (a *App) scheduledRun(ctx context.Context) {
	req, err := a.dispatcher.Submit(ctx, crawler.TriggerSchedule)
	if err != nil {
		a.logger.Warn("scheduled run not queued", zap.Error(err))
		return
	}
	a.logger.Info("scheduled run queued", zap.String("run_id", req.ID))
}

// SeedIfEmpty queues a startup run when the store holds no restaurants.
func (a *App) SeedIfEmpty(ctx context.Context) (bool, error) {
	n, err := a.store.CountRestaurants(ctx)
	if err != nil {
		return false, fmt.Errorf("count restaurants: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	req, err := a.dispatcher.Submit(ctx, crawler.TriggerStartup)
	if err != nil {
		return false, err
	}
	a.logger.Info("store empty; startup run queued", zap.String("run_id", req.ID))
	return true, nil
}

func (a *App) openStore(ctx context.Context) (store.Repository, error) {
	cfg := a.cfg.Store
	switch cfg.Driver {
	case "memory":
		a.logger.Info("using in-memory store; restaurants are lost on exit")
		return memoryStorage.NewRestaurantStore(), nil
	case "sqlite":
		s, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case "postgres":
		s, err := postgres.New(ctx, postgres.Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

func (a *App) openArchive(ctx context.Context) (crawler.BlobStore, error) {
	cfg := a.cfg.Archive
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return memoryStorage.NewBlobStore(), nil
	case "local":
		s, err := localstore.New(localstore.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("open local archive: %w", err)
		}
		return s, nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		s, err := gcsstore.New(client, gcsstore.Config{Bucket: cfg.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("open gcs archive: %w", err)
		}
		a.logger.Info("archiving pages to gcs", zap.String("bucket", cfg.GCSBucket))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown archive driver: %s", cfg.Driver)
	}
}

func (a *App) openPublisher(ctx context.Context) (crawler.Publisher, error) {
	cfg := a.cfg.PubSub
	if cfg.TopicName == "" {
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	p := pubsubpublisher.New(client, cfg.TopicName)
	a.closers = append(a.closers, func() error { p.Close(); return nil })
	a.logger.Info("publishing run events", zap.String("topic", cfg.TopicName))
	return p, nil
}

// buildSources returns the enabled adapters in priority order: places, listings, structured.
func (a *App) buildSources(archiver *archive.Archiver) []discovery.Source {
	cfg := a.cfg
	minPause, maxPause := cfg.PauseBounds()
	pacer := ratelimit.New(ratelimit.Config{
		MinPause: minPause,
		MaxPause: maxPause,
		Observe:  metrics.ObservePacingDelay,
	})
	static := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.RequestTimeout(),
		Pacer:         pacer,
	})

	var browser crawler.Fetcher = headlessfetcher.NewNoop()
	if cfg.Headless.Enabled {
		chrome, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			WaitSelector:      "." + cardMarker,
		})
		if err != nil {
			a.logger.Warn("headless fetcher init failed; listings use static html only", zap.Error(err))
		} else {
			browser = chrome
			a.closers = append(a.closers, func() error { chrome.Close(); return nil })
		}
	}
	pages := &headlessfetcher.Promoting{
		Static:    static,
		Browser:   browser,
		Detector:  detector.NewHeuristic(cfg.Headless.PromotionThresh, cardMarker),
		Pacer:     pacer,
		OnPromote: metrics.ObserveHeadlessPromotion,
		Logger:    a.logger.Named("headless"),
	}

	var sources []discovery.Source
	if cfg.Places.Enabled {
		if cfg.Places.APIKey == "" {
			a.logger.Warn("places api key not set; the places source will report a missing credential")
		}
		sources = append(sources, places.New(places.Config{
			APIKey:        cfg.Places.APIKey,
			Endpoint:      cfg.Places.Endpoint,
			QueryTemplate: cfg.Places.QueryTemplate,
			Areas:         cfg.Places.Areas,
			MaxPerArea:    cfg.Places.MaxPerArea,
			Placeholder:   cfg.Listings.Placeholder,
		}, static, a.logger))
	}
	if cfg.Listings.Enabled {
		engine := extract.New(extract.Options{
			MaxCards:    cfg.Listings.MaxCards,
			Placeholder: cfg.Listings.Placeholder,
			Districts:   cfg.Listings.Districts,
		})
		sources = append(sources, listings.New(listings.Config{
			URLs:       cfg.Listings.URLs,
			SearchURLs: cfg.Listings.SearchURLs,
			MinResults: cfg.Listings.MinResults,
		}, pages, engine, archiver, a.logger))
	}
	if cfg.Structured.Enabled {
		sources = append(sources, structured.New(structured.Config{
			URLs:        cfg.Structured.URLs,
			Placeholder: cfg.Listings.Placeholder,
		}, pages, archiver, a.logger))
	}
	return sources
}

// Close gracefully shuts down all services in reverse order of creation.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
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
