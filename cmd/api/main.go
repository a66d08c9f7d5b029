// Command api serves the HTTP surface: quotes, recent pairs, recent
// ledger entries, degraded-mode analytics, and the debug note-emission
// endpoint, plus the WebSocket push feed for dashboard clients.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/api"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/bus"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/compliance"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/olap"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/quote"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/registry"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/store"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

func main() {
	log := logging.New(logging.DefaultConfig())
	logging.SetDefault(log)

	settings := config.APISettingsFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.New(ctx, store.Config{DSN: settings.PostgresDSN, MinConns: 1, MaxConns: 10})
	if err != nil {
		log.Fatal("connect to postgres", "error", err)
	}
	defer db.Close()

	olapClient := olap.New(settings.Infra, log)

	loader := registry.NewLoader(settings.RegistryPath)
	loader.Load()

	depthCache := quote.NewDepthCache(loader, *settings.Quote)
	engine := quote.NewEngine(depthCache, *settings.Quote)

	checker := compliance.New(settings.Compliance)

	producer := bus.NewProducer(settings.KafkaBootstrapServers)
	defer producer.Close()
	publisher := bus.NewIndexerPublisher(producer, settings.Topics)

	server := api.New(settings, loader, engine, db, olapClient, checker, publisher, log)

	addr := os.Getenv("API_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if err := server.Start(addr); err != nil {
		log.Fatal("start api server", "error", err)
	}
	log.Info("api listening", "addr", addr)

	<-ctx.Done()
	log.Info("shutting down api server")
	if err := server.Stop(); err != nil {
		log.Error("api server shutdown error", "error", err)
	}
}
