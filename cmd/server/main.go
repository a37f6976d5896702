package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jo-hoe/imgdrop/internal/backend"
	"github.com/jo-hoe/imgdrop/internal/common"
	"github.com/jo-hoe/imgdrop/internal/logging"
)

const maxUploadSize = "32M"

func getConfigPath() string {
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// Default to config.yaml in current working directory
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml")
}

func loadConfig() (*backend.BackendConfig, error) {
	configPath := getConfigPath()
	config, err := backend.LoadConfig(configPath)
	if errors.Is(err, os.ErrNotExist) && os.Getenv("CONFIG_PATH") == "" {
		slog.Info("no config file found, using defaults", "path", configPath)
		return backend.DefaultBackendConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	return config, nil
}

func main() {
	_ = godotenv.Load()
	logging.Setup(logging.JSON)

	config, err := loadConfig()
	if err != nil {
		logging.Fatal("invalid configuration", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	storage, err := backend.NewStorage(ctx, config.Storage)
	cancel()
	if err != nil {
		logging.Fatal("failed to initialize storage", "error", err, "type", config.Storage.Type)
	}
	slog.Info("storage initialized", "type", config.Storage.Type)

	server := common.NewEchoServer()
	server.Use(middleware.BodyLimit(maxUploadSize))
	backend.NewAPIService(config, storage).SetRoutes(server)

	portString := fmt.Sprintf(":%d", config.Port)

	// Start HTTP server in a goroutine to allow graceful shutdown
	go func() {
		slog.Info("starting upload server", "port", config.Port)
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
}
