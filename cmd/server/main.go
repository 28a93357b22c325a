// StudyPal - AI Study Assistant Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/studypal/server/internal/ai"
	"github.com/studypal/server/internal/api"
	"github.com/studypal/server/internal/chat"
	"github.com/studypal/server/internal/config"
	"github.com/studypal/server/internal/export"
	"github.com/studypal/server/internal/identity"
	"github.com/studypal/server/internal/imagehost"
	"github.com/studypal/server/internal/middleware"
	"github.com/studypal/server/internal/ocr"
	"github.com/studypal/server/internal/solver"
	"github.com/studypal/server/internal/store"
)

const ttlWorkerInterval = 5 * time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	if cfg.PaymentQRCodeURL != "" {
		if err := repo.EnsurePaymentSettings(context.Background(), cfg.PaymentQRCodeURL, cfg.PaymentPrice); err != nil {
			slog.Error("Failed to seed payment settings", "error", err)
			os.Exit(1)
		}
	}

	// External service clients.
	ocrClient := ocr.NewClient(cfg.OCRURL)
	aiClient := ai.NewClient(cfg.AIBaseURL, cfg.AIModel)
	archiveClient := imagehost.NewClient(cfg.ImageHostURL)
	slog.Info("External clients configured", "model", aiClient.Model())

	// Initialize services.
	auth := identity.New(cfg.JWTSecret, cfg.TokenTTL)
	identitySvc := identity.NewService(repo, auth)
	solverSvc := solver.NewService(ocrClient, aiClient, archiveClient, export.NewPDF(), repo, cfg.RegenPolicy, cfg.SolverSessionTTL)
	chatSvc := chat.NewService(repo, aiClient)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo)
	authHandler := api.NewAuthHandler(baseHandler, identitySvc)
	profileHandler := api.NewProfileHandler(baseHandler)
	solverHandler := api.NewSolverHandler(baseHandler, solverSvc)
	paymentsHandler := api.NewPaymentsHandler(baseHandler)
	chatHandler := api.NewChatHandler(baseHandler, chatSvc)
	wsHandler := chat.NewWebSocketHandler(chatSvc, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	// Public routes.
	authHandler.RegisterRoutes(r)
	r.Get("/api/payments/settings", paymentsHandler.Settings)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		profileHandler.RegisterRoutes(r)
		solverHandler.RegisterRoutes(r)
		chatHandler.RegisterRoutes(r)
		r.Post("/api/payments/transactions", paymentsHandler.SubmitTransaction)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // generation calls can be slow; the clients bound them
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	solverSvc.StartTTLWorker(ctx, ttlWorkerInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
