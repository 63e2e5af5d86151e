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

	"github.com/lmittmann/tint"

	"github.com/mixelka/commentbot/internal/accounts"
	"github.com/mixelka/commentbot/internal/api"
	"github.com/mixelka/commentbot/internal/bot"
	"github.com/mixelka/commentbot/internal/config"
	"github.com/mixelka/commentbot/internal/database"
	"github.com/mixelka/commentbot/internal/openai"
	"github.com/mixelka/commentbot/internal/stats"
	"github.com/mixelka/commentbot/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting ai comment bot panel")

	// Connect to database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	// Create components
	dialer := telegram.NewDialer(cfg.TelegramAPIHost, cfg.PollTimeout, logger)
	aiClient := openai.NewClient(openai.Config{
		BaseURL:   cfg.OpenAIBaseURL,
		Model:     cfg.OpenAIModel,
		MaxTokens: cfg.OpenAIMaxTokens,
	})

	// Restore persisted stats
	savedStats, err := db.LoadStats(ctx)
	if err != nil {
		logger.Error("failed to load stats", "error", err)
		os.Exit(1)
	}
	recorder := stats.NewRecorder(savedStats, db, logger)

	engine := bot.NewService(bot.Deps{
		Dial: func(token string) (bot.Transport, error) {
			return dialer.Dial(token)
		},
		Completer:    aiClient,
		Stats:        recorder,
		Logger:       logger,
		PollInterval: cfg.PollInterval,
	})

	// Restore persisted accounts
	savedAccounts, activeID, err := db.LoadAccounts(ctx)
	if err != nil {
		logger.Error("failed to load accounts", "error", err)
		os.Exit(1)
	}
	manager := accounts.NewManager(savedAccounts, activeID, engine, db, recorder, logger)

	// Reconnect the previously active account, if any
	if activeID != "" {
		logger.Info("restoring active bot account", "account_id", activeID)
		if !manager.ActivateAccount(ctx, activeID) {
			logger.Warn("failed to restore active account, leaving it inactive", "account_id", activeID)
		}
	}

	// Panel API server
	panel := api.NewServer(api.Deps{
		Registry: manager,
		Engine:   engine,
		Stats:    recorder,
		Telegram: dialer,
		OpenAI:   aiClient,
		Logger:   logger,
	})
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           panel.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Setup graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("received shutdown signal", "signal", sig)
		logger.Info("shutting down...")

		engine.Disconnect()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down server", "error", err)
		}
	}()

	logger.Info("panel is running, press Ctrl+C to stop", "addr", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("panel stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
