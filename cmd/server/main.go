package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/config"
	"github.com/stanleyluong/stanslist/internal/app"
	httpDelivery "github.com/stanleyluong/stanslist/internal/delivery/http"
	"github.com/stanleyluong/stanslist/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.NewLogger(cfg.Server.Environment, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	zl.Info("Starting stanslist image admin API",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
	)

	a, err := app.New(context.Background(), cfg, zl)
	if err != nil {
		zl.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(a.Images, zl)
	router := httpDelivery.SetupRouter(cfg, handler, zl)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		zl.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	zl.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Error during shutdown", zap.Error(err))
	}

	zl.Info("Server stopped gracefully")
}
