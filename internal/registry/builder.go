package registry

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/rpcclient"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

// ChainSpec is one statically-known chain the builder discovers pairs for.
type ChainSpec struct {
	Network           string
	ChainKey          string
	ChainID           int64
	Name              string
	RPCEnvKey         string
	DefaultRPCURL     string
	ConfirmationDepth int
}

// DefaultChainSpecs is the out-of-the-box set of three networks: a local
// dev chain plus two public testnets.
var DefaultChainSpecs = []ChainSpec{
	{Network: "hardhat-local", ChainKey: "hardhat-local", ChainID: 31337, Name: "Hardhat Local", RPCEnvKey: "HARDHAT_RPC_URL", DefaultRPCURL: "http://127.0.0.1:8545", ConfirmationDepth: 1},
	{Network: "ethereum-sepolia", ChainKey: "ethereum-sepolia", ChainID: 11155111, Name: "Ethereum Sepolia", RPCEnvKey: "SEPOLIA_RPC_URL", ConfirmationDepth: 5},
	{Network: "bnb-testnet", ChainKey: "bnb-testnet", ChainID: 97, Name: "BNB Testnet", RPCEnvKey: "BSC_TESTNET_RPC_URL", ConfirmationDepth: 5},
}

// DeployedRegistry is the parsed shape of a deployed-address registry file
// (`address-registry.{network}.json`): the contract addresses and base
// token list a live deployment publishes.
type DeployedRegistry struct {
	Contracts Contracts `json:"contracts"`
	Tokens    []Token   `json:"tokens"`
}

// BuildOptions parameterizes Build, mostly env-sourced by the cmd wrapper.
type BuildOptions struct {
	Specs                 []ChainSpec
	PairDiscoveryMaxPairs  int
	SwapFeeBpsDefault      int
	ProtocolFeeBpsDefault  int
	PreviousSnapshotPath   string
	DeployedRegistryReader func(network string) (*DeployedRegistry, bool)
	PairSeedReader         func(network string) ([]Pair, bool)
	Logger                 *logging.Logger
}

// Build runs the registry builder once: for every chain spec, attempt live
// pair discovery; on any failure, fall back to merging the previous
// snapshot, a pair-seed file, and the deployed registry's declared targets.
func Build(ctx context.Context, opts BuildOptions) Snapshot {
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	specs := opts.Specs
	if specs == nil {
		specs = DefaultChainSpecs
	}
	maxPairs := opts.PairDiscoveryMaxPairs
	if maxPairs <= 0 {
		maxPairs = 200
	}

	previous := readSnapshotFile(opts.PreviousSnapshotPath)
	previousByKey := make(map[string]Chain, len(previous.Chains))
	for _, c := range previous.Chains {
		previousByKey[c.ChainKey] = c
	}

	chains := make([]Chain, 0, len(specs))
	for _, spec := range specs {
		chains = append(chains, buildChainEntry(ctx, spec, opts, previousByKey[spec.ChainKey], log))
	}

	return Snapshot{
		Version:     3,
		GeneratedAt: nowRFC3339(),
		Source:      "registry-builder",
		Chains:      chains,
	}
}

func buildChainEntry(ctx context.Context, spec ChainSpec, opts BuildOptions, previous Chain, log *logging.Logger) Chain {
	checkedAt := nowRFC3339()

	var deployed *DeployedRegistry
	if opts.DeployedRegistryReader != nil {
		if d, ok := opts.DeployedRegistryReader(spec.Network); ok {
			deployed = d
		}
	}

	entry := Chain{
		ChainKey:      spec.ChainKey,
		ChainID:       spec.ChainID,
		Name:          spec.Name,
		Network:       spec.Network,
		RPCEnvKey:     spec.RPCEnvKey,
		DefaultRPCURL: spec.DefaultRPCURL,
		AMM: AMM{
			SwapFeeBps:     defaultInt(opts.SwapFeeBpsDefault, 30),
			ProtocolFeeBps: defaultInt(opts.ProtocolFeeBpsDefault, 5),
		},
		Indexer: IndexerConfig{
			ConfirmationDepth: spec.ConfirmationDepth,
		},
		TrustAssumptions: trustAssumptions(spec.ChainKey, checkedAt),
	}
	if deployed != nil {
		entry.Contracts = deployed.Contracts
		entry.Tokens = append(entry.Tokens, deployed.Tokens...)
		entry.Indexer.PairAddresses = append(entry.Indexer.PairAddresses, deployed.Contracts.HarmonyFactory)
		if deployed.Contracts.Stabilizer != "" {
			entry.Indexer.StabilizerAddresses = append(entry.Indexer.StabilizerAddresses, deployed.Contracts.Stabilizer)
		}
	}

	rpcURL := resolveRPCURL(spec)
	if rpcURL == "" {
		return fallback(entry, previous, opts, spec.Network, "rpc-url-missing", checkedAt)
	}

	maxPairs := opts.PairDiscoveryMaxPairs
	if maxPairs <= 0 {
		maxPairs = 200
	}
	client := rpcclient.New(rpcURL)
	pairs, health, err := discoverPairs(ctx, client, entry.Contracts.HarmonyFactory, maxPairs, checkedAt)
	if err != nil {
		entry.NetworkHealth = health
		return fallback(entry, previous, opts, spec.Network, err.Error(), checkedAt)
	}

	entry.Pairs = pairs
	entry.NetworkHealth = health
	for _, p := range pairs {
		entry.Tokens = append(entry.Tokens,
			Token{Symbol: p.Token0Symbol, Address: p.Token0Address, Source: "pair-discovery"},
			Token{Symbol: p.Token1Symbol, Address: p.Token1Address, Source: "pair-discovery"},
		)
	}
	return entry
}

func resolveRPCURL(spec ChainSpec) string {
	if v := os.Getenv("INDEXER_RPC_URL"); v != "" {
		return v
	}
	if spec.RPCEnvKey != "" {
		if v := os.Getenv(spec.RPCEnvKey); v != "" {
			return v
		}
	}
	return spec.DefaultRPCURL
}

func fallback(entry Chain, previous Chain, opts BuildOptions, network, reason, checkedAt string) Chain {
	var sources []string
	merged := make(map[string]Pair)

	if previous.ChainKey != "" {
		sources = append(sources, "previous")
		for _, p := range previous.Pairs {
			merged[strings.ToLower(p.PairAddress)] = p
		}
		entry.Tokens = mergeTokens(entry.Tokens, previous.Tokens)
	}
	if opts.PairSeedReader != nil {
		if seedPairs, ok := opts.PairSeedReader(network); ok && len(seedPairs) > 0 {
			sources = append(sources, "seed")
			for _, p := range seedPairs {
				merged[strings.ToLower(p.PairAddress)] = p
			}
		}
	}

	entry.Pairs = mergePairValues(merged)
	entry.NetworkHealth = NetworkHealth{
		RPCConnected:    false,
		DiscoveryStatus: fmt.Sprintf("fallback-%s: %s", strings.Join(sourcesOrDefault(sources), "+"), reason),
		CheckedAt:       checkedAt,
	}
	return entry
}

func sourcesOrDefault(sources []string) []string {
	if len(sources) == 0 {
		return []string{"none"}
	}
	return sources
}

func mergeTokens(base, extra []Token) []Token {
	seen := make(map[string]bool, len(base))
	for _, t := range base {
		seen[strings.ToLower(t.Address)+"|"+strings.ToUpper(t.Symbol)] = true
	}
	out := append([]Token{}, base...)
	for _, t := range extra {
		key := strings.ToLower(t.Address) + "|" + strings.ToUpper(t.Symbol)
		if !seen[key] {
			out = append(out, t)
			seen[key] = true
		}
	}
	return out
}

func mergePairValues(m map[string]Pair) []Pair {
	out := make([]Pair, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	return out
}

// discoverPairs calls the factory contract's allPairsLength/allPairs, then
// each pair's token0/token1/getReserves, resolving unknown token metadata
// via symbol()/decimals().
func discoverPairs(ctx context.Context, client *rpcclient.Client, factory string, maxPairs int, checkedAt string) ([]Pair, NetworkHealth, error) {
	health := NetworkHealth{CheckedAt: checkedAt}

	latestBlock, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, health, fmt.Errorf("eth_blockNumber: %w", err)
	}
	health.RPCConnected = true
	health.LatestBlock = latestBlock

	if factory == "" {
		return nil, health, fmt.Errorf("no factory address configured")
	}

	lengthHex, err := client.EthCall(ctx, factory, rpcclient.SelectorAllPairsLength, "latest")
	if err != nil {
		return nil, health, fmt.Errorf("allPairsLength: %w", err)
	}
	length := rpcclient.DecodeUint256(lengthHex).Int64()
	if length > int64(maxPairs) {
		length = int64(maxPairs)
	}

	tokenCache := make(map[string]tokenMeta)
	pairs := make([]Pair, 0, length)
	for i := int64(0); i < length; i++ {
		calldata := rpcclient.EncodeCallWithUint256(rpcclient.SelectorAllPairs, i)
		pairAddrHex, err := client.EthCall(ctx, factory, calldata, "latest")
		if err != nil {
			return nil, health, fmt.Errorf("allPairs(%d): %w", i, err)
		}
		pairAddress := rpcclient.DecodeAddress(pairAddrHex)

		token0Hex, err := client.EthCall(ctx, pairAddress, rpcclient.SelectorToken0, "latest")
		if err != nil {
			return nil, health, fmt.Errorf("token0 for %s: %w", pairAddress, err)
		}
		token1Hex, err := client.EthCall(ctx, pairAddress, rpcclient.SelectorToken1, "latest")
		if err != nil {
			return nil, health, fmt.Errorf("token1 for %s: %w", pairAddress, err)
		}
		reservesHex, err := client.EthCall(ctx, pairAddress, rpcclient.SelectorGetReserves, "latest")
		if err != nil {
			return nil, health, fmt.Errorf("getReserves for %s: %w", pairAddress, err)
		}

		token0Addr := rpcclient.DecodeAddress(token0Hex)
		token1Addr := rpcclient.DecodeAddress(token1Hex)
		reserve0, reserve1 := rpcclient.DecodeTwoUint256(reservesHex)
		blockTS := rpcclient.DecodeUint256At(reservesHex, 2)

		meta0 := resolveTokenMeta(ctx, client, tokenCache, token0Addr)
		meta1 := resolveTokenMeta(ctx, client, tokenCache, token1Addr)

		pairs = append(pairs, Pair{
			PairAddress:           pairAddress,
			Token0Symbol:          meta0.symbol,
			Token1Symbol:          meta1.symbol,
			Token0Address:         token0Addr,
			Token1Address:         token1Addr,
			Reserve0:              reserve0.String(),
			Reserve1:              reserve1.String(),
			Reserve0Decimal:       toDecimalString(reserve0, meta0.decimals),
			Reserve1Decimal:       toDecimalString(reserve1, meta1.decimals),
			ReserveBlockTimestamp: blockTS.Int64(),
			CheckedAt:             checkedAt,
		})
	}

	health.DiscoveryStatus = "ok"
	return pairs, health, nil
}

type tokenMeta struct {
	symbol   string
	decimals int
}

func resolveTokenMeta(ctx context.Context, client *rpcclient.Client, cache map[string]tokenMeta, address string) tokenMeta {
	key := strings.ToLower(address)
	if m, ok := cache[key]; ok {
		return m
	}

	symbol := fallbackSymbol(address)
	if hex, err := client.EthCall(ctx, address, rpcclient.SelectorSymbol, "latest"); err == nil {
		if s := rpcclient.DecodeSymbol(hex); s != "" {
			symbol = s
		}
	}

	decimals := 18
	if hex, err := client.EthCall(ctx, address, rpcclient.SelectorDecimals, "latest"); err == nil {
		if v := rpcclient.DecodeUint256(hex); v.Sign() >= 0 && v.IsInt64() {
			decimals = int(v.Int64())
		}
	}

	m := tokenMeta{symbol: symbol, decimals: decimals}
	cache[key] = m
	return m
}

func fallbackSymbol(address string) string {
	a := strings.TrimPrefix(address, "0x")
	if len(a) >= 4 {
		return "TKN" + strings.ToUpper(a[len(a)-4:])
	}
	return "TKN" + strings.ToUpper(a)
}

// toDecimalString scales a raw integer amount by 10^decimals and formats it
// as a trailing-zero-stripped decimal string, matching the original
// builder's `_to_decimal_str`.
func toDecimalString(raw *big.Int, decimals int) string {
	if decimals <= 0 {
		return raw.String()
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole := new(big.Int).Div(raw, divisor)
	frac := new(big.Int).Mod(raw, divisor)
	if frac.Sign() == 0 {
		return whole.String()
	}
	fracStr := fmt.Sprintf("%0*s", decimals, frac.String())
	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		return whole.String()
	}
	return whole.String() + "." + fracStr
}

// trustAssumptions builds the three fixed disclosure entries
// (mUSD policy, wrapped-BTC bridge, wrapped-SOL bridge), resolving each
// provider/timestamp from chain-specific or global env vars.
func trustAssumptions(chainKey, checkedAt string) []TrustAssumption {
	suffix := strings.ToUpper(strings.ReplaceAll(chainKey, "-", "_"))
	return []TrustAssumption{
		{
			Name:        "native-musd-policy",
			Provider:    envChainOrGlobal("MUSD_POLICY_PROVIDER", suffix, "protocol-governance"),
			Description: "mUSD issuance/redemption policy is governed off-chain by the named provider.",
		},
		{
			Name:           "wrapped-btc-evm",
			Provider:       envChainOrGlobal("BRIDGE_PROVIDER_WBTC", suffix, "unattested"),
			LastAttestedAt: envChainOrGlobal("BRIDGE_LAST_ATTESTED_AT_WBTC", suffix, ""),
			Description:    "Wrapped BTC on this EVM chain is custodied/attested by the named bridge provider.",
		},
		{
			Name:           "wrapped-sol-evm",
			Provider:       envChainOrGlobal("BRIDGE_PROVIDER_WSOL", suffix, "unattested"),
			LastAttestedAt: envChainOrGlobal("BRIDGE_LAST_ATTESTED_AT_WSOL", suffix, ""),
			Description:    "Wrapped SOL on this EVM chain is custodied/attested by the named bridge provider.",
		},
	}
}

func envChainOrGlobal(name, suffix, fallback string) string {
	if suffix != "" {
		if v := os.Getenv(name + "_" + suffix); v != "" {
			return v
		}
	}
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
