package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meditrack/coordination/internal/server"
	"github.com/meditrack/coordination/pkg/config"
	"github.com/meditrack/coordination/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	service, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize coordination service: %v", err)
	}

	// Start service in a goroutine
	go func() {
		logger.Infof("Starting coordination service on %s", cfg.Address())
		if err := service.Start(); err != nil {
			logger.Errorf("Coordination service failed: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down coordination service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := service.Stop(ctx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Coordination service stopped")
}
