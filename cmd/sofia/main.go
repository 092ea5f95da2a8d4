// Sofia - conversational companion server
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

	"github.com/sofia-labs/sofia/internal/api"
	"github.com/sofia-labs/sofia/internal/auth"
	"github.com/sofia-labs/sofia/internal/bot"
	"github.com/sofia-labs/sofia/internal/config"
	"github.com/sofia-labs/sofia/internal/devchat"
	"github.com/sofia-labs/sofia/internal/facts"
	"github.com/sofia-labs/sofia/internal/llm"
	"github.com/sofia-labs/sofia/internal/middleware"
	"github.com/sofia-labs/sofia/internal/quota"
	"github.com/sofia-labs/sofia/internal/scoring"
	"github.com/sofia-labs/sofia/internal/session"
	"github.com/sofia-labs/sofia/internal/store"
	"github.com/sofia-labs/sofia/internal/telegram"
)

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

	slog.Info("Starting server", "port", cfg.Port, "dev", config.IsDevelopment())

	// Durable fact store: remote KV when configured, local SQLite otherwise.
	var repo store.FactStore
	if cfg.UseRemoteStore() {
		repo = store.NewRemote(cfg.FactStoreURL, cfg.StoreTimeout)
		slog.Info("Using remote fact store", "url", cfg.FactStoreURL)
	} else {
		repo, err = store.NewSQLite(cfg.DBPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		slog.Info("Using local fact store", "path", cfg.DBPath)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close fact store", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Fact store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Fact store connected")

	completer := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.LLMTimeout)

	var registry *auth.PlanRegistry
	if cfg.EmailLinkingEnabled() {
		registry = auth.NewPlanRegistry(cfg.PlanRegistryURL, cfg.StoreTimeout)
		slog.Info("Email linking enabled", "registry", cfg.PlanRegistryURL)
	}

	sessions := session.NewRegistry()
	orch := bot.NewOrchestrator(bot.Deps{
		Gate:       auth.NewGate(cfg.BotPassword, cfg.DevPassword, registry, repo),
		Quota:      quota.NewGate(repo),
		Sessions:   sessions,
		Progress:   session.NewProgression(repo),
		Scorer:     scoring.NewScorer(completer),
		Extractor:  facts.NewExtractor(completer),
		Keeper:     facts.NewKeeper(repo),
		Store:      repo,
		Completer:  completer,
		ReplyDelay: cfg.ReplyDelay,
	})

	poller := bot.NewPoller(telegram.NewClient(cfg.TelegramToken, cfg.PollTimeout), orch)

	opsHandler := api.NewHandler(repo, sessions)
	devChat := devchat.NewHandler(orch, "*", config.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	r.Get("/healthz", opsHandler.Healthz)
	r.Get("/ops/stats", opsHandler.Stats)

	// Local chat surface, development only.
	if config.IsDevelopment() {
		r.Get("/ws/chat", devChat.ServeHTTP)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go poller.Run(ctx)
	slog.Info("Update poller started", "poll_timeout", cfg.PollTimeout)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

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
