// Command indexer watches one EVM chain for AMM pair and stabilizer
// events and publishes canonical raw notes onto the dex_tx_raw topic. One
// process per chain, selected by INDEXER_CHAIN_ID.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/bus"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/indexer"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/registry"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

func rpcEnvKeyForChain(chainID int64) string {
	for _, spec := range registry.DefaultChainSpecs {
		if spec.ChainID == chainID {
			return spec.RPCEnvKey
		}
	}
	return ""
}

func main() {
	log := logging.New(logging.DefaultConfig())
	logging.SetDefault(log)

	// A chain's registry-declared RPC env var name (e.g. "SEPOLIA_RPC_URL")
	// is only known once INDEXER_CHAIN_ID is parsed, so settings load twice:
	// once to learn the chain id, once with the resolved env key.
	prelim, prelimErr := config.IndexerSettingsFromEnv("")
	rpcEnvKey := ""
	if prelimErr == nil {
		rpcEnvKey = rpcEnvKeyForChain(prelim.ChainID)
	}

	settings, err := config.IndexerSettingsFromEnv(rpcEnvKey)
	if err != nil {
		log.Fatal("load indexer settings", "error", err)
	}
	if settings.RPCURL == "" {
		log.Fatal("no RPC URL configured", "chain_id", settings.ChainID, "rpc_env_key", rpcEnvKey)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	loader := registry.NewLoader(settings.RegistryPath)

	producer := bus.NewProducer(settings.KafkaBootstrapServers)
	defer producer.Close()
	publisher := bus.NewIndexerPublisher(producer, settings.Topics)

	idx := indexer.New(settings, loader, publisher, log)

	log.Info("indexer started", "chain_id", settings.ChainID, "chain_key", settings.ChainKey)
	idx.Run(ctx)
	log.Info("indexer stopped", "chain_id", settings.ChainID)
}
