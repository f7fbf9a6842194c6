package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"swile-balance-agent/internal/agent"
	"swile-balance-agent/internal/cache"
	"swile-balance-agent/internal/config"
	"swile-balance-agent/internal/database"
	"swile-balance-agent/internal/diff"
	"swile-balance-agent/internal/emitter"
	"swile-balance-agent/internal/metrics"
	"swile-balance-agent/internal/models"
	"swile-balance-agent/internal/snapshot"
	"swile-balance-agent/internal/store"
	"swile-balance-agent/internal/swile"
	"swile-balance-agent/internal/token"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	// DbService is the SQLite event log, nil with the memory backend
	DbService  *database.Service
	Cache      *cache.RedisStore
	Memory     store.MemoryStore
	HttpClient *http.Client
	Tokens     token.Provider
	Fetcher    agent.Fetcher
	Emitter    emitter.Emitter
	Metrics    *metrics.Recorder
}

// InitializeLogger installs the global zap logger. Debug enables debug level
// output on top of the production configuration.
func InitializeLogger(debug bool) (*zap.Logger, func()) {
	zapCfg := zap.NewProductionConfig()
	if debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	services := &Services{Metrics: metrics.NewRecorder()}

	if err := services.initializeStore(ctx, cfg); err != nil {
		return nil, err
	}

	httpClient, err := swile.NewHttpClient(cfg.Api.RequestTimeout)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.HttpClient = httpClient

	auth := swile.NewAuthClient(httpClient, cfg.Api.TokenUrl)
	services.Tokens, err = token.NewProvider(cfg.Agent, services.Memory, auth)
	if err != nil {
		services.Close()
		return nil, err
	}

	switch cfg.Agent.Variant {
	case models.ShapeWallets:
		services.Fetcher = swile.NewWalletsFetcher(httpClient, cfg.Api.WalletsUrl)
	default:
		services.Fetcher = swile.NewGraphQLFetcher(httpClient, cfg.Api.GraphQLUrl, cfg.Agent.ApiKey)
	}

	emitters := emitter.Multi{emitter.LogEmitter{}}
	if services.DbService != nil {
		emitters = append(emitters, emitter.NewEventLog(services.DbService))
	}
	services.Emitter = emitters

	zap.L().Info("Services initialized",
		zap.String("variant", string(cfg.Agent.Variant)),
		zap.String("store_backend", cfg.Store.Backend),
		zap.Bool("event_log", services.DbService != nil))

	return services, nil
}

// initializeStore opens the memory backend. The SQLite event log is opened for
// every backend except the in-process one.
func (cs *Services) initializeStore(ctx context.Context, cfg *models.Config) error {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		zap.L().Warn("Using in-process memory, snapshots and events are not persisted")
		cs.Memory = store.NewMemory()
		return nil
	case config.BackendSQLite, config.BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	dbService, err := database.NewService(ctx, cfg.Store, cfg.Agent.Name)
	if err != nil {
		return err
	}
	cs.DbService = dbService
	cs.Memory = dbService

	if cfg.Store.Backend == config.BackendRedis {
		redisStore, err := cache.NewRedisStore(ctx, cfg.Store, cfg.Agent.Name)
		if err != nil {
			dbService.Close()
			return err
		}
		cs.Cache = redisStore
		cs.Memory = redisStore
	}
	return nil
}

// InitializeDatabaseOnly initializes just the event log without any Swile client
// Useful for read-only operations like listing events
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Store, cfg.Agent.Name)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// NewAgent builds the balance agent from initialized services
func (cs *Services) NewAgent(cfg *models.Config) *agent.Agent {
	var policy diff.Policy
	if cfg.Agent.ComparePolicy != "" {
		policy = diff.Policy(cfg.Agent.ComparePolicy)
	}

	var events agent.EventTimes
	if cs.DbService != nil {
		events = cs.DbService
	}

	return agent.NewAgent(agent.Config{
		Name:                  cfg.Agent.Name,
		Tokens:                cs.Tokens,
		Fetcher:               cs.Fetcher,
		Snapshots:             snapshot.NewStore(cs.Memory),
		Emitter:               cs.Emitter,
		Events:                events,
		Metrics:               cs.Metrics,
		Mode:                  diff.ModeFor(cfg.Agent.ChangesOnly),
		Policy:                policy,
		Debug:                 cfg.Agent.Debug,
		ExpectedReceivePeriod: cfg.Agent.ExpectedReceivePeriod(),
		Schedule:              cfg.Scheduler.Schedule,
		CycleTimeout:          cfg.Scheduler.CycleTimeout,
	})
}

// StartMetricsServer serves metrics and the agent health check in the background
func (cs *Services) StartMetricsServer(addr string, a *agent.Agent) *http.Server {
	server := metrics.NewServer(addr, cs.Metrics, func(ctx context.Context) error {
		return a.Working(ctx, time.Now())
	})

	go func() {
		zap.L().Info("Metrics server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("Metrics server failed", zap.Error(err))
		}
	}()

	return server
}

func (cs *Services) Close() {
	if cs.Cache != nil {
		cs.Cache.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
