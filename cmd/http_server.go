package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-assistant/api"
	"github.com/frahmantamala/expense-assistant/internal/auth"
	"github.com/frahmantamala/expense-assistant/internal/chat"
	"github.com/frahmantamala/expense-assistant/internal/transport/middleware"
	"github.com/frahmantamala/expense-assistant/internal/transport/rest"
	"github.com/frahmantamala/expense-assistant/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the gateway API that chat transports relay messages and button presses to.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startHTTPServer(); err != nil {
			fmt.Fprintf(os.Stderr, "server: %v\n", err)
			os.Exit(1)
		}
	},
}

func startHTTPServer() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Configure(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, lg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	router, err := setupRoutes(ctx, app)
	if err != nil {
		app.Close()
		return err
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go app.Machine.RunSweeper(sweepCtx, cfg.Session.SweepInterval)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		lg.Info("starting HTTP server",
			"address", server.Addr,
			"backend", cfg.Backend.Mode,
			"classifier", cfg.Classifier.Strategy,
			"session_store", cfg.Session.Store)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		lg.Info("received signal, shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			stopSweeper()
			app.Shutdown(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("server shutdown error", "error", err)
	}
	stopSweeper()
	app.Shutdown(shutdownCtx)

	lg.Info("server stopped")
	return nil
}

func setupRoutes(ctx context.Context, app *App) (*chi.Mux, error) {
	cfg := app.Config
	deps := rest.RouterDeps{
		Chat:        chat.NewHandler(app.Chat, app.Logger),
		OpenAPI:     api.OpenAPI,
		MetricsPath: cfg.Observability.Metrics.Path,
		Logger:      app.Logger,
	}

	checks := map[string]rest.Pinger{}
	if app.DB != nil {
		checks["postgres"] = app.DB.SQLX
	}
	deps.Health = rest.NewHealthHandler(checks)

	if cfg.Observability.Metrics.Enabled {
		deps.Metrics = app.Metrics.Handler()
	}

	if cfg.Security.DisableGatewayAuth {
		app.Logger.Warn("gateway authentication disabled")
	} else {
		authService := auth.NewService(auth.NewJWTTokenGenerator(cfg.Security.GatewaySecret, cfg.Security.GatewayTokenTTL), app.Logger)
		deps.Auth = middleware.BearerAuth(authService, app.Logger)
	}

	if cfg.Server.OpenAPIValidation {
		doc, err := middleware.LoadOpenAPI(ctx, api.OpenAPI)
		if err != nil {
			return nil, err
		}
		validate, err := middleware.OpenAPIValidator(doc, app.Logger)
		if err != nil {
			return nil, err
		}
		deps.Validate = validate
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, deps)
	return router, nil
}

// newCLILogger configures a text logger for commands that do not run the server.
func newCLILogger(level string) *slog.Logger {
	logger.Configure(level, "text")
	return logger.LoggerWrapper()
}
