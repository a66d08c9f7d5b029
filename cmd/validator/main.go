// Command validator consumes the dex_tx_raw topic, checks each note for
// structural correctness, derives its tx_id, and republishes it onto
// dex_tx_valid (or dex_dlq on failure).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/bus"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/validator"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

func main() {
	log := logging.New(logging.DefaultConfig())
	logging.SetDefault(log)

	settings := config.ValidatorSettingsFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	producer := bus.NewProducer(settings.KafkaBootstrapServers)
	defer producer.Close()
	sink := bus.NewValidatorSink(producer, settings.Topics)

	v := validator.New(sink, log)

	consumer := bus.NewConsumer(settings.KafkaBootstrapServers, settings.Topics.TxRaw, "mcryptoex-validator")
	defer consumer.Close()

	log.Info("validator started", "topic", settings.Topics.TxRaw)
	if err := consumer.Run(ctx, v.Process); err != nil {
		log.Error("validator consumer stopped with error", "error", err)
	}
	log.Info("validator stopped")
}
