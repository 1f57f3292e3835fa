package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/restoraworks/reportflow/agent"
	"github.com/restoraworks/reportflow/agent/catalog"
	"github.com/restoraworks/reportflow/api/handlers"
	"github.com/restoraworks/reportflow/config"
	"github.com/restoraworks/reportflow/internal/database"
	"github.com/restoraworks/reportflow/internal/locks"
	"github.com/restoraworks/reportflow/internal/metrics"
	"github.com/restoraworks/reportflow/internal/migration"
	"github.com/restoraworks/reportflow/internal/server"
	"github.com/restoraworks/reportflow/internal/telemetry"
	"github.com/restoraworks/reportflow/persistence"
	"github.com/restoraworks/reportflow/workflow"
)

// txMaxRetries bounds transaction retries on transient database errors.
const txMaxRetries = 3

// Server wires the engine, storage and HTTP surface together.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	healthHandler   *handlers.HealthHandler
	workflowHandler *handlers.WorkflowHandler
	agentHandler    *handlers.AgentHandler

	collector   *metrics.Collector
	pool        *database.PoolManager
	redisClient *redis.Client
	engine      *workflow.Engine
	providers   *telemetry.Providers

	stopCancel        context.CancelFunc
	rateLimiterCancel context.CancelFunc
}

// NewServer creates an unstarted server from the loaded configuration.
func NewServer(cfg *config.Config, logger *zap.Logger, providers *telemetry.Providers) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		providers: providers,
	}
}

// Start brings up storage, the workflow engine and both HTTP listeners.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("reportflow", s.logger)

	if err := s.initStorage(); err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	engine, err := s.initEngine()
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	s.engine = engine

	s.initHandlers()

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopCancel = cancel
	go s.reportDBStats(ctx)

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)
	return nil
}

func (s *Server) initStorage() error {
	db, err := openDatabase(s.cfg.Database, s.logger)
	if err != nil {
		return err
	}

	poolConfig := database.PoolConfig{
		MaxOpenConns:    s.cfg.Database.MaxOpenConns,
		MaxIdleConns:    s.cfg.Database.MaxIdleConns,
		ConnMaxLifetime: s.cfg.Database.ConnMaxLifetime,
	}
	pool, err := database.NewPoolManager(db, poolConfig, s.logger)
	if err != nil {
		return err
	}
	s.pool = pool

	if s.cfg.Database.AutoMigrate {
		if err := s.migrateSchema(); err != nil {
			return err
		}
	}

	if s.cfg.Redis.Enabled {
		s.redisClient = redis.NewClient(&redis.Options{
			Addr:         s.cfg.Redis.Addr,
			Password:     s.cfg.Redis.Password,
			DB:           s.cfg.Redis.DB,
			PoolSize:     s.cfg.Redis.PoolSize,
			MinIdleConns: s.cfg.Redis.MinIdleConns,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		s.logger.Info("Redis connected", zap.String("addr", s.cfg.Redis.Addr))
	}

	return nil
}

func (s *Server) migrateSchema() error {
	sqlDB, err := s.pool.DB().DB()
	if err != nil {
		return err
	}
	dbType, err := migration.ParseDatabaseType(s.cfg.Database.Driver)
	if err != nil {
		return err
	}
	migrator, err := migration.NewMigrator(sqlDB, dbType, s.logger)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

func (s *Server) initEngine() (*workflow.Engine, error) {
	// Store transactions retry transient deadlocks and serialization
	// failures raised by concurrent polls.
	store := persistence.NewGormStore(s.pool.DB(), s.logger,
		persistence.WithTxRunner(func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			return s.pool.WithTransactionRetry(ctx, txMaxRetries, fn)
		}))

	var regOpts []agent.Option
	if s.cfg.Orchestrator.StrictRedefinition {
		regOpts = append(regOpts, agent.WithStrictRedefinition())
	}
	registry := agent.NewRegistry(s.logger, regOpts...)
	if err := catalog.Register(registry); err != nil {
		return nil, fmt.Errorf("register agent catalog: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := registry.SyncToDatabase(ctx, store); err != nil {
		s.logger.Warn("agent definition sync failed", zap.Error(err))
	}

	engineOpts := []workflow.EngineOption{
		workflow.WithMaxConcurrency(int64(s.cfg.Orchestrator.MaxConcurrency)),
		workflow.WithAgentTimeout(s.cfg.Orchestrator.AgentTimeout),
		workflow.WithMetrics(s.collector),
	}
	if s.redisClient != nil {
		locker := locks.NewRedisLocker(s.redisClient, s.cfg.Orchestrator.PollLockTTL, s.logger)
		engineOpts = append(engineOpts, workflow.WithPollLocker(locker))
	}

	return workflow.NewEngine(store, registry, s.logger, engineOpts...), nil
}

func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.HealthCheckFunc{
		CheckName: "database",
		Fn:        s.pool.Ping,
	})
	if s.redisClient != nil {
		s.healthHandler.RegisterCheck(handlers.HealthCheckFunc{
			CheckName: "redis",
			Fn: func(ctx context.Context) error {
				return s.redisClient.Ping(ctx).Err()
			},
		})
	}

	s.workflowHandler = handlers.NewWorkflowHandler(s.engine, s.logger)
	s.agentHandler = handlers.NewAgentHandler(s.engine, s.logger)
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("GET /api/v1/agents", s.agentHandler.HandleList)
	mux.HandleFunc("POST /api/v1/workflows", s.workflowHandler.HandleCreate)
	mux.HandleFunc("GET /api/v1/workflows/{id}", s.workflowHandler.HandleGet)
	mux.HandleFunc("POST /api/v1/workflows/{id}/execute", s.workflowHandler.HandleExecute)
	mux.HandleFunc("POST /api/v1/workflows/{id}/resume", s.workflowHandler.HandleResume)
	mux.HandleFunc("POST /api/v1/workflows/{id}/pause", s.workflowHandler.HandlePause)
	mux.HandleFunc("POST /api/v1/workflows/{id}/cancel", s.workflowHandler.HandleCancel)
	mux.HandleFunc("DELETE /api/v1/workflows/{id}", s.workflowHandler.HandleCancel)

	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version"}
	ctx, cancel := context.WithCancel(context.Background())
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		OTelTracing(),
		MetricsMiddleware(s.collector),
		RateLimiter(ctx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
	}
	if s.cfg.Auth.Enabled {
		middlewares = append(middlewares, JWTAuth(s.cfg.Auth, skipAuthPaths, s.logger))
	}
	handler := Chain(mux, middlewares...)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	s.rateLimiterCancel = cancel
	if err := s.httpManager.Start(); err != nil {
		cancel()
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// reportDBStats samples connection pool gauges until shutdown.
func (s *Server) reportDBStats(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collector.RecordDBStats(s.pool.Stats())
		}
	}
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then shuts down.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		if err := s.httpManager.WaitForSignal(); err != nil {
			s.logger.Error("server error", zap.Error(err))
		}
	}
	s.Shutdown()
}

// Shutdown stops the listeners and releases storage connections.
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.stopCancel != nil {
		s.stopCancel()
	}
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Redis close error", zap.Error(err))
		}
	}
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			s.logger.Error("Database close error", zap.Error(err))
		}
	}
	if s.providers != nil {
		if err := s.providers.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
