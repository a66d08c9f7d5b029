package registry

import (
	"encoding/json"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var evmAddressRE = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

func isEVMAddress(address string) bool {
	return evmAddressRE.MatchString(address)
}

// Loader reads the on-disk snapshot and serves deep-copied views of it. It
// is constructed once at startup and held as an explicit collaborator
// rather than reached for through a package-level cache.
type Loader struct {
	path string

	mu       sync.RWMutex
	cached   Snapshot
	loaded   bool
}

// NewLoader builds a Loader for the snapshot file at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads the snapshot from disk and memoizes it in memory. Call
// Invalidate to force a re-read (used by tests and by the indexer/quote
// TTL refreshers).
func (l *Loader) Load() Snapshot {
	l.mu.RLock()
	if l.loaded {
		defer l.mu.RUnlock()
		return deepCopySnapshot(l.cached)
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return deepCopySnapshot(l.cached)
	}
	l.cached = readSnapshotFile(l.path)
	l.loaded = true
	return deepCopySnapshot(l.cached)
}

// Invalidate drops the memoized snapshot so the next Load re-reads disk.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = false
	l.cached = Snapshot{}
}

func readSnapshotFile(path string) Snapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		return emptySnapshot()
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return emptySnapshot()
	}
	if snap.Chains == nil {
		snap.Chains = []Chain{}
	}
	return snap
}

func deepCopySnapshot(s Snapshot) Snapshot {
	// json round-trip is an adequate, simple deep copy for a value this
	// shaped; the snapshot is reread/rebuilt at most once per TTL window,
	// not on a hot path.
	data, err := json.Marshal(s)
	if err != nil {
		return emptySnapshot()
	}
	var out Snapshot
	if err := json.Unmarshal(data, &out); err != nil {
		return emptySnapshot()
	}
	if out.Chains == nil {
		out.Chains = []Chain{}
	}
	return out
}

// TokensPayload is the /tokens response shape.
type TokensPayload struct {
	Chains          map[string][]Token `json:"chains"`
	Networks        []NetworkSummary   `json:"networks"`
	RegistryVersion int                `json:"registry_version"`
	GeneratedAt     string             `json:"generated_at,omitempty"`
}

// NetworkSummary is one /tokens `networks[]` entry.
type NetworkSummary struct {
	ChainID              int64  `json:"chain_id"`
	ChainKey             string `json:"chain_key"`
	Name                 string `json:"name"`
	Network              string `json:"network"`
	TokenCount           int    `json:"token_count"`
	PairCount            int    `json:"pair_count"`
	RouterAddress        string `json:"router_address"`
	FactoryAddress       string `json:"factory_address"`
	VaultAddress         string `json:"vault_address"`
	ProtocolFeeReceiver  string `json:"protocol_fee_receiver"`
	MUSDAddress          string `json:"musd_address"`
	StabilizerAddress    string `json:"stabilizer_address"`
	SwapFeeBps           int    `json:"swap_fee_bps"`
	ProtocolFeeBps       int    `json:"protocol_fee_bps"`
	RPCConnected         bool   `json:"rpc_connected"`
	LatestCheckedBlock   int64  `json:"latest_checked_block,omitempty"`
}

// tokenPriority mirrors _token_priority: +4 valid EVM address; +3/+2/+1/-1
// for source tags contracts/deployed/pair-discovery/defaults; -2 if the
// address looks like an unresolved bridge placeholder. The return value's
// second element (address length) is the tiebreaker.
func tokenPriority(t Token) (int, int) {
	address := strings.TrimSpace(t.Address)
	source := strings.ToLower(strings.TrimSpace(t.Source))

	score := 0
	if isEVMAddress(address) {
		score += 4
	}
	switch {
	case strings.HasPrefix(source, "contracts"):
		score += 3
	case strings.HasPrefix(source, "deployed"):
		score += 2
	case strings.HasPrefix(source, "pair-discovery"):
		score += 1
	case strings.HasPrefix(source, "defaults"):
		score -= 1
	}
	if strings.HasPrefix(address, "bridge-") {
		score -= 2
	}
	return score, len(address)
}

func higherPriority(a, b Token) bool {
	aScore, aLen := tokenPriority(a)
	bScore, bLen := tokenPriority(b)
	if aScore != bScore {
		return aScore > bScore
	}
	return aLen > bLen
}

// DedupeTokens groups tokens by UPPER(symbol), keeps the highest-priority
// token per group, and sorts the result lexicographically by UPPER(symbol)
// so repeated runs over the same input always produce the same output.
func DedupeTokens(tokens []Token) []Token {
	selected := make(map[string]Token)
	for _, tok := range tokens {
		symbol := strings.TrimSpace(tok.Symbol)
		if symbol == "" {
			continue
		}
		key := strings.ToUpper(symbol)
		current, ok := selected[key]
		if !ok || higherPriority(tok, current) {
			selected[key] = tok
		}
	}
	keys := make([]string, 0, len(selected))
	for k := range selected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Token, 0, len(keys))
	for _, k := range keys {
		out = append(out, selected[k])
	}
	return out
}

// TokensPayload builds the /tokens response from the loaded snapshot.
func (l *Loader) TokensPayload() TokensPayload {
	snap := l.Load()
	payload := TokensPayload{
		Chains:          make(map[string][]Token),
		RegistryVersion: snap.Version,
		GeneratedAt:     snap.GeneratedAt,
	}

	networks := make([]NetworkSummary, 0, len(snap.Chains))
	for _, chain := range snap.Chains {
		if chain.ChainID <= 0 {
			continue
		}
		key := formatChainID(chain.ChainID)
		tokens := DedupeTokens(chain.Tokens)
		payload.Chains[key] = tokens

		networks = append(networks, NetworkSummary{
			ChainID:             chain.ChainID,
			ChainKey:            chain.ChainKey,
			Name:                chain.Name,
			Network:             chain.Network,
			TokenCount:          len(tokens),
			PairCount:           len(chain.Pairs),
			RouterAddress:       chain.Contracts.HarmonyRouter,
			FactoryAddress:      chain.Contracts.HarmonyFactory,
			VaultAddress:        chain.Contracts.ResonanceVault,
			ProtocolFeeReceiver: chain.Contracts.ResonanceVault,
			MUSDAddress:         chain.Contracts.MUSD,
			StabilizerAddress:   chain.Contracts.Stabilizer,
			SwapFeeBps:          defaultInt(chain.AMM.SwapFeeBps, 30),
			ProtocolFeeBps:      defaultInt(chain.AMM.ProtocolFeeBps, 5),
			RPCConnected:        chain.NetworkHealth.RPCConnected,
			LatestCheckedBlock:  chain.NetworkHealth.LatestBlock,
		})
	}

	sort.Slice(networks, func(i, j int) bool { return networks[i].ChainID < networks[j].ChainID })
	payload.Networks = networks
	return payload
}

// RiskAssumptions returns the chain's trust assumption list with the chain
// key and name, or (nil, "", "", false) when the chain is unknown (callers
// surface that as 404).
func (l *Loader) RiskAssumptions(chainID int64) ([]TrustAssumption, string, string, bool) {
	snap := l.Load()
	for _, chain := range snap.Chains {
		if chain.ChainID != chainID {
			continue
		}
		assumptions := chain.TrustAssumptions
		if assumptions == nil {
			assumptions = []TrustAssumption{}
		}
		return assumptions, chain.ChainKey, chain.Name, true
	}
	return nil, "", "", false
}

// ChainByID returns the chain entry for chainID, used by the indexer and
// quote engine.
func (l *Loader) ChainByID(chainID int64) (Chain, bool) {
	snap := l.Load()
	for _, chain := range snap.Chains {
		if chain.ChainID == chainID {
			return chain, true
		}
	}
	return Chain{}, false
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func formatChainID(id int64) string {
	return strconv.FormatInt(id, 10)
}
