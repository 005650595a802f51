// Package server wires configuration, collaborators, entity stores, and the
// HTTP surface into one runnable process.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/config"
	"github.com/pulsedigest/core/internal/entity/aiprocessing"
	"github.com/pulsedigest/core/internal/entity/communication"
	"github.com/pulsedigest/core/internal/entity/dashboard"
	"github.com/pulsedigest/core/internal/entity/device"
	"github.com/pulsedigest/core/internal/entity/health"
	"github.com/pulsedigest/core/internal/entity/moderation"
	"github.com/pulsedigest/core/internal/entity/selection"
	"github.com/pulsedigest/core/internal/entity/source"
	"github.com/pulsedigest/core/internal/entity/usage"
	"github.com/pulsedigest/core/internal/handlers"
	"github.com/pulsedigest/core/internal/identity"
	"github.com/pulsedigest/core/internal/kvstore"
	"github.com/pulsedigest/core/internal/metrics"
	"github.com/pulsedigest/core/internal/realtime"
	"github.com/pulsedigest/core/internal/remote"
)

// Server is the assembled digest core service.
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	httpServer *http.Server
	hub        *realtime.Hub
	kv         kvstore.Store
	resources  []bostore.Resource

	cancelWatch  context.CancelFunc
	shutdownChan chan os.Signal
}

// NewServer builds the full service from configuration. Remote persistence
// and the cache are optional; without them the stores run local-only.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	var rem remote.Collection
	if cfg.Database.Enabled {
		store, err := remote.Open(cfg.Database.DSN(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		rem = store

		if cfg.Redis.Enabled {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr(),
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.Database,
				PoolSize: cfg.Redis.PoolSize,
			})
			rem = remote.WithCache(store, client, logger)
		}
	}

	var kv kvstore.Store
	if cfg.Badger.Path != "" {
		store, err := kvstore.OpenBadger(cfg.Badger.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open key-value store: %w", err)
		}
		kv = store
	} else {
		kv = kvstore.NewMemoryStore()
	}

	registry := prometheus.NewRegistry()
	storeMetrics := metrics.NewStoreMetrics(registry)

	deps := bostore.Deps{
		Remote:   rem,
		Identity: identity.ContextProvider{},
		Logger:   logger,
		Metrics:  storeMetrics,
	}

	resources := []bostore.Resource{
		bostore.AsResource(aiprocessing.NewStore(deps).Store),
		bostore.AsResource(moderation.NewStore(deps).Store),
		bostore.AsResource(health.NewStore(deps).Store),
		bostore.AsResource(source.NewStore(deps).Store),
		bostore.AsResource(dashboard.NewStore(deps).Store),
		bostore.AsResource(communication.NewStore(deps).Store),
		bostore.AsResource(device.NewStore(deps).Store),
		bostore.AsResource(usage.NewStore(deps).Store),
	}

	sel := selection.NewManager(context.Background(), kv,
		selection.WithLogger(logger))

	hub := realtime.NewHub(logger)
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	go hub.Run(watchCtx)
	for _, res := range resources {
		snapshots, cancel := res.Local().Subscribe(16)
		hub.Watch(watchCtx, res.Entity(), snapshots, cancel)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handlers.AuthMiddleware(cfg.Auth.JWTSecret, logger))

	handler := handlers.NewHandler(resources, sel, hub, logger)
	handler.RegisterRoutes(router)

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return &Server{
		config:       cfg,
		logger:       logger,
		httpServer:   httpServer,
		hub:          hub,
		kv:           kv,
		resources:    resources,
		cancelWatch:  cancelWatch,
		shutdownChan: make(chan os.Signal, 1),
	}, nil
}

// Start runs the HTTP server and blocks until a shutdown signal arrives.
func (s *Server) Start() error {
	go func() {
		s.logger.Info("Starting HTTP server", zap.Int("port", s.config.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	signal.Notify(s.shutdownChan, os.Interrupt, syscall.SIGTERM)
	<-s.shutdownChan
	s.logger.Info("Shutdown signal received")

	return s.Shutdown()
}

// Shutdown stops the HTTP server and closes collaborators.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	s.cancelWatch()

	if err := s.kv.Close(); err != nil {
		s.logger.Error("key-value store close failed", zap.Error(err))
	}

	s.logger.Info("Server stopped")
	return nil
}
