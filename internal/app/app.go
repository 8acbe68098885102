// Package app wires the dashboard server together: configuration, logging,
// OpenTelemetry, services, router and graceful shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"ipucli/internal/config"
	"ipucli/internal/errors"
	"ipucli/internal/infrastructure"
	customMiddleware "ipucli/internal/middleware"
	"ipucli/internal/services"
	handlers "ipucli/internal/transport/http"
	ws "ipucli/internal/websocket"
)

const (
	Version = "v1.0.0"
	AppName = "IPU Analysis Dashboard"
)

// BuildTime is set at compile time via -ldflags.
var BuildTime = ""

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	WebSocketHub  *ws.Hub
	DatasetSvc    *services.DatasetService
	HealthSvc     *services.HealthService
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.Metrics
}

// New creates the application with all dependencies wired.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("matrix_file", cfg.Paths.MatrixFile))

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	if !config.FileExists(cfg.Paths.MatrixFile) {
		logger.Warn("matrix file not found, dashboard will stay degraded until it appears",
			slog.String("path", cfg.Paths.MatrixFile))
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	var metrics *infrastructure.Metrics
	if otelProviders.Meter != nil {
		metrics, err = infrastructure.CreateMetrics(otelProviders.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	app.initializeServices()
	app.setupRouter()
	app.setupServer()

	return app, nil
}

// initializeServices builds the service layer.
func (a *Application) initializeServices() {
	a.WebSocketHub = ws.NewHub(a.Logger)
	a.DatasetSvc = services.NewDatasetService(a.Logger, a.Metrics)
	a.HealthSvc = services.NewHealthService(Version, BuildTime, a.Config.Paths, a.WebSocketHub, a.Logger)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that will not wrap the ResponseWriter, so the
	// websocket upgrade keeps working.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// WebSocket route stays outside the full middleware group.
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(a.WebSocketHub, w, req)
	})

	errorHandler := errors.NewErrorHandler(a.Logger, false)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.HTTPMetrics(a.Metrics))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout, a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		dashboardHandler := handlers.NewDashboardHandler(
			a.DatasetSvc, a.WebSocketHub, a.Config.Paths.MatrixFile, a.Logger, errorHandler)
		healthHandler := handlers.NewHealthHandler(a.HealthSvc, a.Logger)

		r.Route("/api", func(r chi.Router) {
			r.Mount("/dashboard", dashboardHandler.Routes())
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.HandleVersion)
		})

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)
	})

	// Prometheus metrics endpoint, outside the middleware group.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupServer configures the HTTP server.
func (a *Application) setupServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the application and blocks until a shutdown signal arrives.
func (a *Application) Run() error {
	go a.WebSocketHub.Run()

	// Warm the dataset cache so the first dashboard request is fast. A
	// missing file is not fatal here; the health endpoint reports it.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := a.DatasetSvc.Load(ctx, a.Config.Paths.MatrixFile); err != nil {
			a.Logger.Warn("initial dataset load failed",
				slog.String("error", err.Error()))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	return a.Stop()
}

// Stop gracefully shuts the application down.
func (a *Application) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.WebSocketHub.Stop()

	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error("server shutdown failed", slog.String("error", err.Error()))
		return err
	}

	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.Warn("otel shutdown failed", slog.String("error", err.Error()))
	}

	infrastructure.CloseLogFile()
	a.Logger.Info("application stopped")
	return nil
}
