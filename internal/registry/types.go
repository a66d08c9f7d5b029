// Package registry builds, persists, loads and serves the chain registry
// snapshot: the on-disk JSON configuration the indexer and quote engine
// consume.
package registry

import "time"

// AMM holds the per-chain fee configuration.
type AMM struct {
	SwapFeeBps     int `json:"swap_fee_bps"`
	ProtocolFeeBps int `json:"protocol_fee_bps"`
}

// Contracts holds the well-known contract addresses for a chain.
type Contracts struct {
	HarmonyRouter   string `json:"harmony_router,omitempty"`
	HarmonyFactory  string `json:"harmony_factory,omitempty"`
	ResonanceVault  string `json:"resonance_vault,omitempty"`
	MUSD            string `json:"musd,omitempty"`
	Stabilizer      string `json:"stabilizer,omitempty"`
}

// IndexerConfig is the indexer-relevant subset of a chain entry.
type IndexerConfig struct {
	PairAddresses       []string `json:"pair_addresses,omitempty"`
	StabilizerAddresses []string `json:"stabilizer_addresses,omitempty"`
	ConfirmationDepth   int      `json:"confirmation_depth"`
	StartBlock          int64    `json:"start_block"`
}

// Token is one entry in a chain's token list.
type Token struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	Source   string `json:"source"`
}

// Pair is one AMM pool discovered (or carried over/seeded) for a chain.
type Pair struct {
	PairAddress           string `json:"pair_address"`
	Token0Symbol          string `json:"token0_symbol"`
	Token1Symbol          string `json:"token1_symbol"`
	Token0Address         string `json:"token0_address,omitempty"`
	Token1Address         string `json:"token1_address,omitempty"`
	Reserve0              string `json:"reserve0"`
	Reserve1              string `json:"reserve1"`
	Reserve0Decimal       string `json:"reserve0_decimal"`
	Reserve1Decimal       string `json:"reserve1_decimal"`
	ReserveBlockTimestamp int64  `json:"reserve_block_timestamp,omitempty"`
	CheckedAt             string `json:"checked_at,omitempty"`
}

// TrustAssumption is one disclosed trust assumption for a chain (e.g. the
// mUSD policy provider, or a bridge attestation provider for wrapped
// assets), surfaced via /risk/assumptions.
type TrustAssumption struct {
	Name            string `json:"name"`
	Provider        string `json:"provider"`
	LastAttestedAt  string `json:"last_attested_at,omitempty"`
	Description     string `json:"description,omitempty"`
}

// NetworkHealth reports the last discovery attempt's outcome for a chain.
type NetworkHealth struct {
	RPCConnected     bool   `json:"rpc_connected"`
	LatestBlock      int64  `json:"latest_block,omitempty"`
	DiscoveryStatus  string `json:"discovery_status,omitempty"`
	CheckedAt        string `json:"checked_at,omitempty"`
}

// Chain is one entry of the registry snapshot's `chains` array.
type Chain struct {
	ChainKey        string            `json:"chain_key"`
	ChainID         int64             `json:"chain_id"`
	Name            string            `json:"name"`
	Network         string            `json:"network"`
	RPCEnvKey       string            `json:"rpc_env_key"`
	DefaultRPCURL   string            `json:"default_rpc_url,omitempty"`
	AMM             AMM               `json:"amm"`
	Contracts       Contracts         `json:"contracts"`
	Indexer         IndexerConfig     `json:"indexer"`
	Pairs           []Pair            `json:"pairs"`
	Tokens          []Token           `json:"tokens"`
	TrustAssumptions []TrustAssumption `json:"trust_assumptions"`
	NetworkHealth   NetworkHealth     `json:"network_health"`
}

// Snapshot is the full on-disk registry document.
type Snapshot struct {
	Version     int     `json:"version"`
	GeneratedAt string  `json:"generated_at,omitempty"`
	Source      string  `json:"source,omitempty"`
	Chains      []Chain `json:"chains"`
}

// emptySnapshot is returned whenever the on-disk file is missing or
// malformed.
func emptySnapshot() Snapshot {
	return Snapshot{Version: 0, Chains: []Chain{}}
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
