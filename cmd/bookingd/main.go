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
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"facility-booking-backend/config"
	"facility-booking-backend/internal/api"
	"facility-booking-backend/internal/booking"
	"facility-booking-backend/internal/conflict"
	"facility-booking-backend/internal/coverage"
	"facility-booking-backend/internal/db"
	"facility-booking-backend/internal/instantiate"
	"facility-booking-backend/internal/logger"
	"facility-booking-backend/internal/store"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	zlog, err := logger.New(cfg.Logging.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zlog.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}

	appStore := store.NewGormStore(gormDB)
	cov := coverage.New(appStore, cfg.Coverage.CacheTTL, zlog)
	detector := conflict.NewDetector(appStore, cov)
	instantiator := instantiate.New(appStore, zlog)
	bookings := booking.NewService(appStore, cov, zlog)

	handler := api.NewHandler(appStore, cov, detector, instantiator, bookings, zlog)
	router := api.NewRouter(handler, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zlog.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	zlog.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal("HTTP server shutdown", zap.Error(err))
	}
	zlog.Info("server gracefully stopped")
}
