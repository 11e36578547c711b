package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"invsync/internal/config"
	apierrors "invsync/internal/errors"
	"invsync/internal/infrastructure"
	customMiddleware "invsync/internal/middleware"
	"invsync/internal/services"
	"invsync/internal/source"
	"invsync/internal/store"
	handlers "invsync/internal/transport/http"
	ws "invsync/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	Store         store.Store
	WebSocketHub  *ws.Hub
	Inventory     *services.InventoryService
	HealthService *services.HealthService

	errorHandler *apierrors.ErrorHandler
	pollCancel   context.CancelFunc
}

// NewApplication loads configuration and logging, then wires the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires the application from an already loaded configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("store", cfg.Store.Driver))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	ctx := context.Background()

	st, err := store.Open(ctx, a.Config.Store.Driver, a.Config.Store.DSN)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	a.Store = st

	hub := ws.NewHub(a.Logger)
	if err := hub.RegisterMetrics(a.OTelProviders.Meter); err != nil {
		return fmt.Errorf("failed to register websocket metrics: %w", err)
	}
	hub.Start()
	a.WebSocketHub = hub

	syncMetrics, err := infrastructure.NewSyncMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}

	sheet := a.Config.Sheet
	selector := source.NewSelector(source.Config{
		SpreadsheetID:     sheet.SpreadsheetID,
		PublicGID:         sheet.PublicGID,
		PublicLabel:       sheet.PublicLabel,
		APIKey:            sheet.APIKey,
		APIEndpoint:       sheet.APIEndpoint,
		PublicBaseURL:     sheet.PublicBaseURL,
		MaxConcurrentTabs: sheet.MaxConcurrentTabs,
		RequestsPerSecond: sheet.RequestsPerSecond,
		Timeout:           sheet.Timeout,
	}, a.Logger)

	// Workbook syncs stay off over HTTP unless a directory confines them.
	var workbook services.WorkbookReader
	if sheet.WorkbookDir != "" {
		workbook = source.NewWorkbookFetcher(a.Logger)
	}

	a.Inventory = services.NewInventoryService(
		selector,
		workbook,
		st,
		services.InventoryOptions{
			SyncTimeout: a.Config.Sync.Timeout,
			UnitValue:   int(a.Config.Dashboard.UnitValue),
			WorkbookDir: sheet.WorkbookDir,
			Metrics:     syncMetrics,
			Notifier:    hub,
		},
		a.Logger,
	)

	a.HealthService = services.NewHealthService(config.AppVersion, st, hub, a.Inventory, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Only middleware that leaves the ResponseWriter unwrapped runs before /ws.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Server.AllowedOrigins, a.Logger))

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders.Meter)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Server.AllowedOrigins,
			ExposedHeaders: []string{"X-Request-ID", "Retry-After", "Content-Disposition"},
			Logger:         a.Logger,
		}))
		r.Use(customMiddleware.Compress(5))

		a.setupAPIRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)
	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	var syncLimiter *customMiddleware.RateLimiter
	if rl := a.Config.Server.RateLimit; rl.Enabled {
		syncLimiter = customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger)
	}

	inventoryHandler := handlers.NewInventoryHandler(
		a.Inventory,
		handlers.DashboardInfo{
			CompanyName:    a.Config.Dashboard.CompanyName,
			CurrencySymbol: a.Config.Dashboard.CurrencySymbol,
		},
		syncLimiter,
		a.errorHandler,
		a.Logger,
	)
	healthHandler := handlers.NewHealthHandler(a.HealthService)

	r.Mount("/healthz", healthHandler.Routes())
	r.Mount("/api/inventory", inventoryHandler.Routes())
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start restores the persisted snapshot, starts background syncing and serves
// HTTP. cancel is called when the listener fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	if err := a.Inventory.Restore(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Failed to restore snapshot", slog.String("error", err.Error()))
	}

	pollCtx, pollCancel := context.WithCancel(context.Background())
	a.pollCancel = pollCancel

	if a.Config.Sync.OnStartup {
		go func() {
			syncCtx := infrastructure.WithTraceID(pollCtx, infrastructure.GenerateTraceID())
			if _, err := a.Inventory.Sync(syncCtx, services.SyncRequest{Silent: true}); err != nil {
				a.Logger.WarnContext(syncCtx, "Startup sync failed", slog.String("error", err.Error()))
			}
		}()
	}
	go a.Inventory.RunPoller(pollCtx, a.Config.Sync.PollInterval)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
		slog.Bool("credential_fallback", a.Inventory.HasCredentialFallback()))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if a.pollCancel != nil {
		a.pollCancel()
	}

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()
	a.Store.Close()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped")
	}

	return a.Stop(context.Background())
}
