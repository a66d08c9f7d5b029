// Package indexer polls an EVM chain for AMM pair and stabilizer events and
// publishes canonical raw notes. One Indexer instance watches one chain;
// cmd/indexer runs one process per chain.
package indexer

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/notes"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/registry"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/rpcclient"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/wire"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/helpers"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

// Publisher is the narrow interface the indexer needs from the message
// bus, so this package does not import the Kafka client directly.
type Publisher interface {
	PublishRaw(ctx context.Context, key string, correlationID string, payload []byte) error
}

// pairInfo caches a discovered pair's token assignment: pair_address ->
// (token0, token1, symbols, decimals).
type pairInfo struct {
	token0Symbol   string
	token1Symbol   string
	token0Decimals int
	token1Decimals int
}

// Indexer is the per-chain polling loop.
type Indexer struct {
	settings *config.IndexerSettings
	client   *rpcclient.Client
	loader   *registry.Loader
	pub      Publisher
	log      *logging.Logger

	pairs        map[string]pairInfo // pair address (lower) -> info
	tokenSymbols map[string]string   // token address (lower) -> symbol
	tokenDecimals map[string]int
	gasCostCache map[string]string // tx_hash -> "gas_used|gas_cost_usd"

	cursor int64 // next block to poll from; monotone non-decreasing
}

// New builds an Indexer and seeds its watch caches from the registry
// snapshot's chain entry (falling back to env-configured address lists when
// the caller has overridden them.
func New(settings *config.IndexerSettings, loader *registry.Loader, pub Publisher, log *logging.Logger) *Indexer {
	idx := &Indexer{
		settings:      settings,
		client:        rpcclient.New(settings.RPCURL),
		loader:        loader,
		pub:           pub,
		log:           log,
		pairs:         make(map[string]pairInfo),
		tokenSymbols:  make(map[string]string),
		tokenDecimals: make(map[string]int),
		gasCostCache:  make(map[string]string),
		cursor:        settings.StartBlock,
	}
	idx.refreshWatchlists()
	return idx
}

// refreshWatchlists reloads the pair/token caches from the registry. It does
// not check for env-pinned address lists; Run skips the call when
// PairAddresses is set.
func (idx *Indexer) refreshWatchlists() {
	chain, ok := idx.loader.ChainByID(idx.settings.ChainID)
	if !ok {
		return
	}
	for _, p := range chain.Pairs {
		idx.pairs[strings.ToLower(p.PairAddress)] = pairInfo{
			token0Symbol: p.Token0Symbol,
			token1Symbol: p.Token1Symbol,
		}
	}
	for _, t := range registry.DedupeTokens(chain.Tokens) {
		idx.tokenSymbols[strings.ToLower(t.Address)] = t.Symbol
		idx.tokenDecimals[strings.ToLower(t.Address)] = t.Decimals
	}
}

func (idx *Indexer) watchedPairAddresses() []string {
	if len(idx.settings.PairAddresses) > 0 {
		return idx.settings.PairAddresses
	}
	out := make([]string, 0, len(idx.pairs))
	for addr := range idx.pairs {
		out = append(out, addr)
	}
	return out
}

func (idx *Indexer) watchedAddresses() []string {
	addrs := idx.watchedPairAddresses()
	if len(idx.settings.StabilizerAddresses) > 0 {
		addrs = append(addrs, idx.settings.StabilizerAddresses...)
	}
	return addrs
}

// Run executes the indexer's main loop until ctx is cancelled, matching
// "every poll_interval_seconds" schedule.
func (idx *Indexer) Run(ctx context.Context) {
	pollTicker := time.NewTicker(time.Duration(idx.settings.PollIntervalSeconds) * time.Second)
	defer pollTicker.Stop()

	refreshTicker := time.NewTicker(time.Duration(idx.settings.RegistryRefreshSeconds) * time.Second)
	defer refreshTicker.Stop()

	var simTicker *time.Ticker
	var simChan <-chan time.Time
	if idx.settings.EnableSimulation && idx.settings.SimulationIntervalSeconds > 0 {
		simTicker = time.NewTicker(time.Duration(idx.settings.SimulationIntervalSeconds) * time.Second)
		simChan = simTicker.C
		defer simTicker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-refreshTicker.C:
			if len(idx.settings.PairAddresses) == 0 {
				idx.loader.Invalidate()
				idx.refreshWatchlists()
			}
		case <-pollTicker.C:
			if err := idx.pollOnce(ctx); err != nil {
				idx.log.Error("poll failed", "chain_id", idx.settings.ChainID, "err", err)
			}
		case <-simChan:
			if err := idx.emitSimulatedNote(ctx); err != nil {
				idx.log.Error("simulation note failed", "chain_id", idx.settings.ChainID, "err", err)
			}
		}
	}
}

// emitSimulatedNote publishes a synthetic SWAP note against the first
// watched pair, for demo/load-testing environments that have no live
// on-chain traffic. Gated by INDEXER_ENABLE_SIMULATION.
func (idx *Indexer) emitSimulatedNote(ctx context.Context) error {
	var poolAddress string
	var pair pairInfo
	for addr, p := range idx.pairs {
		poolAddress, pair = addr, p
		break
	}
	if poolAddress == "" {
		return nil
	}

	raw := &notes.Raw{
		NoteID:        notes.RandomID(),
		CorrelationID: notes.RandomID(),
		ChainID:       idx.settings.ChainID,
		TxHash:        notes.RandomID(),
		BlockNumber:   idx.cursor,
		PoolAddress:   poolAddress,
		UserAddress:   "0x0000000000000000000000000000000000dead",
		Action:        notes.ActionSwap,
		TokenIn:       pair.token0Symbol,
		TokenOut:      pair.token1Symbol,
		AmountIn:      "1",
		AmountOut:     "1",
		FeeUSD:        "0",
		GasUsed:       "0",
		GasCostUSD:    "0",
		OccurredAt:    time.Now().UTC(),
		Source:        notes.SourceIndexerSimulation,
	}
	return idx.pub.PublishRaw(ctx, raw.NoteID, raw.CorrelationID, rawToWire(raw).Marshal())
}

// pollOnce performs a single block-range poll
// block-range polling algorithm. The cursor advances only on success.
func (idx *Indexer) pollOnce(ctx context.Context) error {
	addresses := idx.watchedAddresses()
	if len(addresses) == 0 {
		return nil
	}

	head, err := idx.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("eth_blockNumber: %w", err)
	}
	latest := head - int64(idx.settings.ConfirmationDepth)
	if latest < 0 {
		return nil
	}

	from := idx.cursor
	if from < 0 {
		from = 0
	}
	if from > latest {
		return nil
	}
	to := latest
	if to > from+100 {
		to = from + 100
	}

	logs, err := idx.client.GetLogs(ctx, rpcclient.LogFilter{
		FromBlock: rpcclient.HexFromInt64(from),
		ToBlock:   rpcclient.HexFromInt64(to),
		Address:   addresses,
		Topics:    [][]string{topicCandidates()},
	})
	if err != nil {
		return fmt.Errorf("eth_getLogs: %w", err)
	}

	for _, lg := range logs {
		if err := idx.handleLog(ctx, lg); err != nil {
			return fmt.Errorf("handle log %s:%s: %w", lg.TransactionHash, lg.LogIndex, err)
		}
	}

	idx.cursor = to + 1
	return nil
}

func (idx *Indexer) handleLog(ctx context.Context, lg rpcclient.Log) error {
	if len(lg.Topics) == 0 {
		return nil
	}
	action, ok := actionForTopic(lg.Topics[0])
	if !ok {
		return nil
	}

	raw, err := idx.decodeEvent(ctx, notes.Action(action), lg)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	payload := rawToWire(raw).Marshal()
	return idx.pub.PublishRaw(ctx, raw.NoteID, raw.CorrelationID, payload)
}

func rawToWire(r *notes.Raw) *wire.DexTxRaw {
	return &wire.DexTxRaw{
		NoteID:             r.NoteID,
		CorrelationID:      r.CorrelationID,
		ChainID:            r.ChainID,
		TxHash:             r.TxHash,
		BlockNumber:        r.BlockNumber,
		PoolAddress:        r.PoolAddress,
		UserAddress:        r.UserAddress,
		Action:             string(r.Action),
		TokenIn:            r.TokenIn,
		TokenOut:           r.TokenOut,
		AmountIn:           r.AmountIn,
		AmountOut:          r.AmountOut,
		FeeUSD:             r.FeeUSD,
		GasUsed:            r.GasUsed,
		GasCostUSD:         r.GasCostUSD,
		ProtocolRevenueUSD: r.ProtocolRevenueUSD,
		MinOut:             r.MinOut,
		OccurredAt:         wire.TimestampFromTime(r.OccurredAt),
		Source:             r.Source,
	}
}

func (idx *Indexer) resolveSymbolAndDecimals(address string) (string, int) {
	key := strings.ToLower(address)
	symbol, ok := idx.tokenSymbols[key]
	if !ok {
		symbol = address
	}
	decimals, ok := idx.tokenDecimals[key]
	if !ok {
		decimals = 18
	}
	return symbol, decimals
}

// scaledDecimalString renders a raw on-chain integer amount as a decimal
// string scaled by the token's decimals, e.g. (1500000000000000000, 18) ->
// "1.5". Arithmetic never touches float64.
func scaledDecimalString(raw *big.Int, decimals int) string {
	return helpers.ScaledAmount(raw, decimals)
}

func addressFromTopic(topic string) string {
	if len(topic) < 40 {
		return topic
	}
	return "0x" + strings.ToLower(topic[len(topic)-40:])
}
