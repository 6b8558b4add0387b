// Package server assembles the coordination service: storage, the realtime
// hub, the reminder scanner and the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/meditrack/coordination/internal/assistant"
	"github.com/meditrack/coordination/internal/delivery"
	"github.com/meditrack/coordination/internal/gateway"
	"github.com/meditrack/coordination/internal/messaging"
	"github.com/meditrack/coordination/internal/notifications"
	"github.com/meditrack/coordination/internal/realtime"
	"github.com/meditrack/coordination/internal/reminders"
	"github.com/meditrack/coordination/internal/tracking"
	"github.com/meditrack/coordination/internal/vitals"
	"github.com/meditrack/coordination/pkg/config"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/monitoring"
	"github.com/meditrack/coordination/pkg/workerpool"
)

const (
	serviceName    = "coordination-service"
	serviceVersion = "1.0.0"
)

// Server owns every long-running component of the service
type Server struct {
	cfg    *config.Config
	logger *logger.Logger

	stores   *stores
	metrics  *monitoring.MetricsCollector
	tracing  *monitoring.TracingManager
	health   *monitoring.HealthManager
	hub      *realtime.Hub
	pool     *workerpool.Pool
	scanner  *reminders.Scanner
	limiters []*gateway.RateLimiter

	handler    http.Handler
	httpServer *http.Server

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopErr  error
}

// New wires the service from configuration. Nothing runs until Start.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	ctx := context.Background()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	tracing, err := monitoring.NewTracingManager(ctx, &monitoring.TracingConfig{
		Enabled:        cfg.Monitoring.TracingEnabled,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
		SamplingRate:   cfg.Monitoring.SampleRate,
	})
	if err != nil {
		st.close()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	metrics := monitoring.NewMetricsCollector(serviceName)
	hub := realtime.NewHub(metrics, log)
	pool := workerpool.New(workerpool.Config{
		Workers:                 cfg.Realtime.Workers,
		QueueSize:               cfg.Realtime.QueueSize,
		GracefulShutdownTimeout: workerpool.DefaultConfig().GracefulShutdownTimeout,
	}, log)

	var httpLimiter, eventLimiter *gateway.RateLimiter
	if cfg.RateLimit.Enabled {
		httpLimiter = gateway.NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
		eventLimiter = gateway.NewRateLimiter(cfg.RateLimit.EventsPerMin, time.Minute)
	}

	notificationService := notifications.NewService(st.notifications, metrics, log)
	notifier := realtime.NewNotifier(notificationService, hub, log)

	dispatcher := delivery.NewFromConfig(cfg.Delivery, cfg.Reminders.DeliveryTimeout, metrics, log)
	scanner, err := reminders.NewScanner(cfg.Reminders, st.schedules, dispatcher, notifier, metrics, log)
	if err != nil {
		st.close()
		return nil, err
	}

	validator := gateway.NewTokenValidator(cfg.JWT.SecretKey, cfg.JWT.Issuer)
	eventRouter := realtime.NewRouter(realtime.Dependencies{
		Hub:           hub,
		Pool:          pool,
		Locations:     st.locations,
		Notifications: notificationService,
		Directory:     st.directory,
		Limiter:       eventLimiter,
		Tracing:       tracing,
		Metrics:       metrics,
		Logger:        log,
		SpeedKmh:      cfg.Tracking.SpeedKmh,
	})
	wsHandler := realtime.NewWebsocketHandler(hub, eventRouter, validator, realtime.ClientConfig{
		SendBuffer:      cfg.Realtime.SendBuffer,
		WriteWait:       cfg.Realtime.WriteWait,
		PongWait:        cfg.Realtime.PongWait,
		MaxMessageBytes: cfg.Realtime.MaxMessageBytes,
	}, cfg.Server.AllowedOrigin, log)

	s := &Server{
		cfg:      cfg,
		logger:   log,
		stores:   st,
		metrics:  metrics,
		tracing:  tracing,
		health:   monitoring.NewHealthManager(serviceName, serviceVersion, cfg.Environment),
		hub:      hub,
		pool:     pool,
		scanner:  scanner,
		limiters: []*gateway.RateLimiter{httpLimiter, eventLimiter},
	}
	s.registerHealthChecks()

	s.handler = s.routes(routeSet{
		middleware: gateway.NewMiddleware(validator, httpLimiter, cfg.Server.AllowedOrigin, log),
		monitoring: monitoring.NewMonitoringMiddleware(metrics, tracing, log),
		websocket:  wsHandler,
		apis: []apiRoutes{
			tracking.NewService(st.locations, st.directory, cfg.Tracking.DefaultMaxDistance, log),
			notificationService,
			vitals.NewService(st.vitals, notifier, log),
			messaging.NewService(st.messages, notifier, log),
			assistant.NewService(
				assistant.NewGeminiClient(cfg.Assistant, nil, log),
				assistant.NewHistory(0),
				cfg.Assistant.HistoryLimit,
				log,
			),
			notifier,
		},
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s, nil
}

func (s *Server) registerHealthChecks() {
	if s.stores.db != nil {
		s.health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(s.stores.db.DB))
	}
	s.health.RegisterChecker("realtime", monitoring.NewRealtimeHealthChecker(realtimeSource{hub: s.hub, pool: s.pool}))
}

// realtimeSource feeds the realtime health checker from the hub and its pool
type realtimeSource struct {
	hub  *realtime.Hub
	pool *workerpool.Pool
}

func (r realtimeSource) Connected() int {
	return r.hub.Connected()
}

func (r realtimeSource) QueueStats() (int, int, int64) {
	stats := r.pool.Stats()
	return int(stats.QueueDepth), stats.QueueCapacity, stats.TasksRejected
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// startBackground launches everything except the HTTP listener
func (s *Server) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.hub.Run()
	s.pool.Start()

	cleanup := s.cfg.RateLimit.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	for _, limiter := range s.limiters {
		if limiter != nil {
			go limiter.RunCleanup(ctx, cleanup)
		}
	}

	if s.cfg.Reminders.Enabled {
		s.scanner.Start(ctx)
	} else {
		s.logger.WithComponent("server").Info("Medicine reminders disabled")
	}
}

// Start runs the background components and then serves HTTP until Stop
func (s *Server) Start() error {
	s.startBackground()

	s.logger.WithComponent("server").WithField("addr", s.httpServer.Addr).Info("Coordination service listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop shuts components down in dependency order: HTTP first so no new
// channels or requests arrive, then the scanner, the worker pool, the hub,
// tracing and finally storage.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		var errs []error

		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()

		if cancel != nil {
			cancel()
			s.scanner.Stop()
			s.pool.Stop()
			s.hub.Stop()
		}

		if err := s.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
		if err := s.stores.close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}

		s.stopErr = errors.Join(errs...)
	})
	return s.stopErr
}

func (st *stores) close() error {
	if st.db == nil {
		return nil
	}
	return st.db.Close()
}
