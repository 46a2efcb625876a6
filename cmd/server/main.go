package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/umaja/internal/app"
	"github.com/BerylCAtieno/umaja/internal/config"
	"github.com/BerylCAtieno/umaja/internal/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to a YAML config file")
	envFile := flag.String("env-file", ".env", "Path to a .env file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logging.Sync(logger) }()

	gin.SetMode(gin.ReleaseMode)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close clients", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.Router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: app.WriteTimeout(cfg),
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("UMAJA starting", zap.String("addr", httpServer.Addr))
		logger.Info("agent card available", zap.String("url", fmt.Sprintf("http://localhost:%d/.well-known/agent.json", cfg.Port)))
		logger.Info("A2A endpoint available", zap.String("url", fmt.Sprintf("http://localhost:%d/a2a/smile", cfg.Port)))
		logger.Info("smile API available", zap.String("url", fmt.Sprintf("http://localhost:%d/api/smile", cfg.Port)))
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}
