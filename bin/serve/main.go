package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"game-showcase/pkg/config"
	"game-showcase/pkg/handlers"
	"game-showcase/pkg/services"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	// Load configuration
	cfg, err := config.Load(viper.New(), os.Getenv("SHOWCASE_CONFIG"))
	if err != nil {
		logger.Fatal("Failed to load configuration", "err", err)
	}
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = log.WithContext(ctx, logger)

	// Initialize services
	svc, err := services.NewService(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", "err", err)
	}

	server := &http.Server{Addr: cfg.ServerAddress(), Handler: handlers.New(svc, logger).Routes()}
	go func() {
		<-ctx.Done()
		server.Close()
	}()

	// Start server
	cfg.PrintServerStartMessage()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "err", err)
		os.Exit(1)
	}
}
