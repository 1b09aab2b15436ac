package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/calumet/energy-bridge/internal/bridge"
	"github.com/calumet/energy-bridge/internal/config"
	"github.com/calumet/energy-bridge/internal/database"
)

// Command bridge runs the live meter pipeline.
//
// It subscribes to every topic on the energy bridge's local broker,
// validates each message into a typed reading, and writes one point per
// message to the series store. The loop runs until SIGINT/SIGTERM.
//
// Usage:
//
//	bridge [flags]
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
	if err := cfg.ValidateBridge(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg.Logging)

	repo, err := database.NewPostgresRepo(cfg.Database.ConnString(), cfg.Database.Name)
	if err != nil {
		logger.Fatalf("Failed to open series store: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go bridge.ServeMetrics(cfg.Broker.MetricsPort, logger)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		logger.Printf("Received signal %v, shutting down", sig)
		cancel()
	}()

	b := bridge.New(cfg.Broker.Host, cfg.Broker.Port, cfg.Broker.ClientID, repo, logger)
	if err := b.Run(ctx); err != nil {
		logger.Fatalf("Bridge failed: %v", err)
	}
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
