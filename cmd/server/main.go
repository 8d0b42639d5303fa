package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/hotlinehq/relay-api/internal/config"
	"github.com/hotlinehq/relay-api/internal/handlers"
	"github.com/hotlinehq/relay-api/internal/hub"
	"github.com/hotlinehq/relay-api/internal/middleware"
	"github.com/hotlinehq/relay-api/internal/migration"
	"github.com/hotlinehq/relay-api/internal/push"
	"github.com/hotlinehq/relay-api/internal/repository"
	"github.com/hotlinehq/relay-api/internal/routes"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config *config.Config
	db     *sql.DB
	hub    *hub.Hub
	logger zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Start the live broadcast hub.
	eventHub := hub.New(logger)
	go eventHub.Run()

	// Create the application instance.
	app := &application{
		config: cfg,
		db:     db,
		hub:    eventHub,
		logger: logger,
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"*"}),
		h.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization", handlers.SecretHeader}),
		h.MaxAge(86400),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	// Repositories
	eventRepo := repository.NewEventRepository(app.db)
	credRepo := repository.NewCredentialRepository(app.db)

	// Push gateway adapters and the trigger service
	fcmSender := push.NewFCMSender(app.config.Push.FCM, nil, logger)
	apnsSender := push.NewAPNSSender(app.config.Push.APNS, nil, logger)
	pushService := push.NewService(credRepo, fcmSender, apnsSender, app.config.Push.Recipient, app.config.Push.APNS.BundleID, logger)

	// Handlers
	authHandler := handlers.NewAuthHandler(app.config.ButtonSecret, app.config.JWTSecret, logger)
	eventHandler := handlers.NewEventHandler(eventRepo, app.hub, app.config.ButtonSecret, logger)
	tokenHandler := handlers.NewTokenHandler(credRepo, app.config.Push.Recipient, logger)
	notifyHandler := handlers.NewNotifyHandler(pushService, logger)
	subscribeHandler := handlers.NewSubscribeHandler(app.hub, logger)

	return routes.NewRouter(authHandler, eventHandler, tokenHandler, notifyHandler, subscribeHandler)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the broadcast hub.
	app.hub.Close()
	logger.Info().Msg("Broadcast hub stopped.")
}
