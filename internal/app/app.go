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

	"glycoimpute/internal/config"
	"glycoimpute/internal/impute"
	"glycoimpute/internal/infrastructure"
	"glycoimpute/internal/services"
	transport "glycoimpute/internal/transport/http"
)

const (
	// Version is the service release.
	Version = "1.2.0"
	// AppName is the service's display name.
	AppName = "Glycoprotein Imputation Service"
)

// Application is the main application container.
type Application struct {
	Config        *config.Config
	Router        chi.Router
	Server        *http.Server
	Reference     *impute.Reference
	Engine        *impute.Engine
	Service       *services.ImputationService
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
}

// NewApplication creates a new application instance with dependency injection.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("reference_version", impute.ReferenceVersion))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	var ref *impute.Reference
	if cfg.Reference.UseBundled() {
		ref, err = impute.LoadReference()
	} else {
		logger.Info("Loading reference data override",
			slog.String("ranges", cfg.Reference.RangesPath),
			slog.String("coefficients", cfg.Reference.CoefficientsPath))
		ref, err = impute.LoadReferenceFiles(cfg.Reference.RangesPath, cfg.Reference.CoefficientsPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	engine := impute.NewEngine(ref, logger)
	service := services.NewImputationService(engine, logger)

	app := &Application{
		Config:        cfg,
		Reference:     ref,
		Engine:        engine,
		Service:       service,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	app.Router = transport.NewRouter(cfg, service, ref, logger, otelProviders.PrometheusHTTP)
	app.createServer()

	return app, nil
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the HTTP server. A server failure cancels the supplied
// context so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		return fmt.Errorf("log file close error: %w", err)
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
