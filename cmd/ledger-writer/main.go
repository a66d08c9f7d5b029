// Command ledger-writer consumes the dex_tx_valid topic and performs the
// durable double-entry ingest: one Postgres transaction per note, then
// best-effort publishes of the ledger-entry batch, the outbox row, and
// the ClickHouse analytics insert.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/bus"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/ledger"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/olap"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/store"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

func main() {
	log := logging.New(logging.DefaultConfig())
	logging.SetDefault(log)

	settings := config.LedgerSettingsFromEnv()

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

	producer := bus.NewProducer(settings.KafkaBootstrapServers)
	defer producer.Close()
	ledgerBus := bus.NewLedgerBus(producer, settings.Topics)

	writer := ledger.NewWriter(db, ledgerBus, olapClient, log)

	consumer := bus.NewConsumer(settings.KafkaBootstrapServers, settings.Topics.TxValid, settings.ConsumerGroupID)
	defer consumer.Close()

	log.Info("ledger writer started", "topic", settings.Topics.TxValid)
	if err := consumer.Run(ctx, writer.Process); err != nil {
		log.Error("ledger writer consumer stopped with error", "error", err)
	}
	log.Info("ledger writer stopped")
}
