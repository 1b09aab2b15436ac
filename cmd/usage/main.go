package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calumet/energy-bridge/internal/api"
	"github.com/calumet/energy-bridge/internal/config"
	"github.com/calumet/energy-bridge/internal/database"
)

// Command usage runs the historical pipeline once: it signs in to the
// DTE customer portal, fetches the last 30 days of hourly electric
// usage, expands each day DST-safely into UTC-stamped points, and
// writes them to the series store in a single batch.
//
// Usage:
//
//	usage [flags]
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateUsage(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg.Logging)

	loc, err := time.LoadLocation(cfg.DTE.Timezone)
	if err != nil {
		logger.Fatalf("Invalid timezone %q: %v", cfg.DTE.Timezone, err)
	}

	repo, err := database.NewPostgresRepo(cfg.Database.ConnString(), cfg.Database.Name)
	if err != nil {
		logger.Fatalf("Failed to open series store: %v", err)
	}
	defer repo.Close()

	client, err := api.NewClient(api.Credentials{
		Username:        cfg.DTE.Username,
		Password:        cfg.DTE.Password,
		SubscriptionKey: cfg.DTE.SubscriptionKey,
	})
	if err != nil {
		logger.Fatalf("Failed to create DTE client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fetcher := api.NewUsageFetcher(client, repo, loc, logger)
	if err := fetcher.Backfill(ctx); err != nil {
		logger.Fatalf("Backfill failed: %v", err)
	}
	logger.Info("Backfill complete")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}
