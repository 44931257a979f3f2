package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/portfolio-be/internal/config"
	"github.com/hongminglow/portfolio-be/internal/events"
	"github.com/hongminglow/portfolio-be/internal/logging"
	"github.com/hongminglow/portfolio-be/internal/server"
	"github.com/hongminglow/portfolio-be/internal/storage"
	"github.com/hongminglow/portfolio-be/internal/storage/memory"
	"github.com/hongminglow/portfolio-be/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "init storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var publisher events.Publisher = events.Nop{}
	if cfg.EventsEnabled() {
		rdb, err := events.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error(ctx, "init event stream", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, cfg.EventsStream)
	}

	srv := server.New(cfg, store, publisher, logger)

	go func() {
		logger.Info(ctx, "portfolio backend listening",
			"addr", cfg.HTTPAddress(),
			"storage", cfg.StorageDriver,
			"events", cfg.EventsEnabled(),
		)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Warn(ctx, "graceful shutdown error", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.StorageDriver == config.DriverMemory {
		return memory.NewStore(), nil
	}
	return postgres.NewStore(ctx, cfg.DatabaseURL)
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
