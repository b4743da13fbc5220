// Package app assembles SheetDrop from configuration: it picks the store,
// file backend and job dispatcher, builds the services and runs the API or
// the queue worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/SheetDrop/internal/api"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/config"
	"github.com/dharsanguruparan/SheetDrop/internal/database"
	"github.com/dharsanguruparan/SheetDrop/internal/filestore"
	"github.com/dharsanguruparan/SheetDrop/internal/genai"
	"github.com/dharsanguruparan/SheetDrop/internal/logging"
	"github.com/dharsanguruparan/SheetDrop/internal/processing"
	"github.com/dharsanguruparan/SheetDrop/internal/queue"
	"github.com/dharsanguruparan/SheetDrop/internal/repository"
	"github.com/dharsanguruparan/SheetDrop/internal/s3storage"
	"github.com/dharsanguruparan/SheetDrop/internal/server"
	"github.com/dharsanguruparan/SheetDrop/internal/service"
	"github.com/dharsanguruparan/SheetDrop/internal/signing"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
	"github.com/dharsanguruparan/SheetDrop/internal/worker"
)

// App holds the wired services.
type App struct {
	Config   *config.Config
	Store    storage.Store
	Files    filestore.Files
	Tokens   *auth.TokenManager
	Activity *service.ActivityLog
	Auth     *service.AuthService
	Datasets *service.DatasetService
	Charts   *service.ChartService
	Admin    *service.AdminService
	AI       *service.AIService

	// Pool runs analysis in-process when no Redis queue is configured.
	Pool *processing.Pool

	db      api.Pinger
	closers []func()
}

// SetupLogging applies the logging section.
func SetupLogging(cfg *config.Config) {
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
}

// New connects the configured backends. Close releases them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openFiles(ctx); err != nil {
		a.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("token manager: %w", err)
	}
	a.Tokens = tokens
	a.Activity = service.NewActivityLog(a.Store)
	a.Auth = service.NewAuthService(a.Store.Users(), tokens, a.Activity)
	a.Datasets = service.NewDatasetService(service.DatasetDeps{
		Datasets:     a.Store.Datasets(),
		Files:        a.Files,
		Activity:     a.Activity,
		Signer:       signing.NewSigner([]byte(cfg.Auth.SigningSecret)),
		Upload:       cfg.Upload,
		SignedURLTTL: cfg.Auth.SignedURLTTL,
	})
	a.Charts = service.NewChartService(a.Datasets, a.Activity)
	a.Admin = service.NewAdminService(a.Store, a.Datasets, a.Activity)
	a.AI = service.NewAIService(a.Store.Datasets(), genai.New(cfg.AI))

	if cfg.Redis.Addr != "" {
		client := queue.NewClient(queue.RedisOpt(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB))
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.Datasets.SetDispatcher(client)
		logging.Info().Str("redis", cfg.Redis.Addr).Msg("analysis jobs go through the redis queue")
	} else {
		a.Pool = processing.New(a.Datasets.Process, cfg.Upload.Workers)
		a.Datasets.SetDispatcher(a.Pool)
		logging.Info().Int("workers", cfg.Upload.Workers).Msg("analysis jobs run in-process")
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	if a.Config.Database.URL == "" {
		logging.Warn().Msg("DATABASE_URL not set, using in-memory store")
		a.Store = storage.NewMemoryStore()
		return nil
	}
	pool, err := database.Connect(ctx, a.Config.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	repo := repository.New(pool)
	a.Store = repo
	a.db = repo
	return nil
}

func (a *App) openFiles(ctx context.Context) error {
	switch a.Config.Storage.Backend {
	case config.BackendS3:
		s3, err := s3storage.New(a.Config.Storage)
		if err != nil {
			return fmt.Errorf("init s3 storage: %w", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
		a.Files = s3
	default:
		local, err := filestore.NewLocal(a.Config.Storage.Dir)
		if err != nil {
			return fmt.Errorf("init upload dir: %w", err)
		}
		a.Files = local
	}
	return nil
}

// Handler builds the HTTP router.
func (a *App) Handler() http.Handler {
	return api.New(api.Deps{
		Config:   a.Config,
		Gate:     auth.NewGate(a.Tokens, a.Store.Users()),
		Auth:     a.Auth,
		Datasets: a.Datasets,
		Charts:   a.Charts,
		Admin:    a.Admin,
		AI:       a.AI,
		DB:       a.db,
	}).Routes()
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// RunServer serves the API until ctx is cancelled.
func RunServer(ctx context.Context, cfg *config.Config) error {
	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var bg server.Background
	if a.Pool != nil {
		bg = a.Pool
	}
	srv := server.New(cfg.ListenAddress(), a.Handler(), bg, cfg.Server.ShutdownTimeout)
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("storage", cfg.Storage.Backend).
		Msg("sheetdrop api starting")
	return srv.Serve(ctx)
}

// RunWorker consumes analyze tasks from Redis until ctx is cancelled. The
// worker shares the database and file backend with the API, so both must be
// external.
func RunWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.Redis.Addr == "" {
		return errors.New("REDIS_ADDR is required to run the worker")
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required to run the worker")
	}
	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := asynq.NewServer(queue.RedisOpt(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), asynq.Config{
		Concurrency: cfg.Upload.Workers,
	})
	processor := worker.NewProcessor(a.Datasets)
	if err := srv.Start(processor.Handler()); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	logging.Info().Int("concurrency", cfg.Upload.Workers).Msg("sheetdrop worker started")
	<-ctx.Done()
	logging.Info().Msg("shutting down worker")
	srv.Shutdown()
	return nil
}

// Migrate applies the schema to DATABASE_URL.
func Migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	return database.EnsureSchema(ctx, pool)
}
