// Command registry-builder discovers AMM pairs on every configured chain
// and writes the chain-registry snapshot the indexer, quote engine, and
// API loader all read at startup.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/registry"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

func main() {
	outPath := flag.String("out", "", "override CHAIN_REGISTRY_OUT_PATH")
	flag.Parse()

	log := logging.New(logging.DefaultConfig())
	logging.SetDefault(log)

	settings := config.RegistrySettingsFromEnv()
	if *outPath != "" {
		settings.OutPath = *outPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snapshot := registry.Build(ctx, registry.BuildOptions{
		Specs:                 registry.DefaultChainSpecs,
		PairDiscoveryMaxPairs: settings.PairDiscoveryMaxPairs,
		SwapFeeBpsDefault:     settings.SwapFeeBps,
		ProtocolFeeBpsDefault: settings.ProtocolFeeBps,
		PreviousSnapshotPath:  settings.OutPath,
		Logger:                log,
	})

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		log.Fatal("marshal registry snapshot", "error", err)
	}

	if dir := filepath.Dir(settings.OutPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal("create registry output directory", "error", err, "dir", dir)
		}
	}

	if err := os.WriteFile(settings.OutPath, data, 0o644); err != nil {
		log.Fatal("write registry snapshot", "error", err, "path", settings.OutPath)
	}

	log.Info("registry snapshot written", "path", settings.OutPath, "chains", len(snapshot.Chains))
}
