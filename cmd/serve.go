package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wgomg/rater/internal/api"
	"github.com/wgomg/rater/internal/config"
	"github.com/wgomg/rater/internal/llm"
	"github.com/wgomg/rater/internal/semantic"
	"github.com/wgomg/rater/internal/utils"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP rating service",
	RunE:  runServe,
}

func newLogger(cfg *config.Config, level string) *utils.Logger {
	return utils.NewFileLogger(level, cfg.App.RawBodyLog, &utils.LogFileOptions{
		Path:       cfg.App.LogFile,
		MaxSizeMB:  cfg.App.LogMaxSizeMB,
		MaxBackups: cfg.App.LogMaxBackups,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg, cfg.App.LogLevel)
	defer logger.Close()

	logger.Info(nil, "Starting Answer Rating Service")
	logger.Info(nil, "Environment: %s", cfg.App.Env)
	logger.Info(nil, "Log level: %s", cfg.App.LogLevel)
	logger.Info(nil, "Python config directory: %s", cfg.Semantic.Python.ConfigDir)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := semantic.NewEmbedder(logger, &cfg.Semantic)
	if err != nil {
		logger.Fatal(nil, "Failed to initialize embedding model: %v", err)
	}
	defer embedder.Close()

	groqClient, err := llm.NewClient(cfg, logger)
	if err != nil {
		logger.Error(nil, "Failed to create Groq client: %v", err)
		return errors.New("missing required configuration")
	}

	var geminiScorer api.Scorer
	if cfg.GeminiEnabled() {
		geminiClient, err := llm.NewGeminiClient(ctx, cfg, logger)
		if err != nil {
			logger.Error(nil, "Failed to create Gemini client: %v", err)
			return err
		}
		defer geminiClient.Close()

		geminiScorer = llm.NewScorer(geminiClient, logger)
	}

	handler := api.NewHandler(
		logger,
		semantic.NewScorer(embedder, logger),
		llm.NewScorer(groqClient, logger),
		geminiScorer,
		cfg,
	)

	httpTimeout := time.Duration(cfg.App.HttpTimeoutSeconds) * time.Second
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.App.ServerPort,
		Handler:      api.NewRouter(handler, logger, cfg.App.AllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: httpTimeout + 10*time.Second,
	}

	logger.Info(nil, "Starting server on port %s", cfg.App.ServerPort)
	logger.Info(nil, "Allowed origins: %v", cfg.App.AllowedOrigins)
	logger.Info(nil, "Endpoints:")
	for _, endpoint := range handler.Endpoints() {
		logger.Info(nil, "  %s", endpoint)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(nil, "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
