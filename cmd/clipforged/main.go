package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/storage"
	"clipforge/internal/videostore"
	"clipforge/internal/workers"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	videos, err := videostore.OpenSQLite(cfg)
	if err != nil {
		logger.Error("open video store", logging.Error(err))
		store.Close()
		return
	}
	defer videos.Close()

	objects, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		logger.Error("init object storage", logging.Error(err))
		store.Close()
		return
	}

	pool := workers.NewPool(cfg, store, logger)
	pipe := pipeline.New(cfg, store, videos, objects, notifications.NewService(cfg), logger)
	pipe.RegisterAll(pool)

	d, err := daemon.New(cfg, store, pool, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("clipforged shutting down")
}
