// Package quote computes constant-product swap quotes from registry
// liquidity snapshots, with two-hop routing via mUSD and a static
// fallback when no snapshot is available.
package quote

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/apperr"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/registry"
)

const stableSymbol = "MUSD"

// pool is the canonical-selection view of one registry pair: both sides
// normalized with symbol/reserve/decimals, keyed by its UPPER symbol pair.
type pool struct {
	address            string
	token0, token1     string
	reserve0, reserve1 decimal.Decimal
	decimals0, decimals1 int
	checkedAt          string
}

// chainLiquidity is the canonical-pool-per-symbol-group view of one chain,
// rebuilt whenever the depth cache's TTL elapses.
type chainLiquidity struct {
	pools   map[string]pool // "SYMA/SYMB" (sorted) -> canonical pool
	symbols map[string]bool // UPPER token symbols registered for this chain
}

// DepthCache is LiquidityDepthCache: TTL-bounded,
// rebuilt from the registry loader on expiry, served from memory otherwise.
type DepthCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	expiresAt time.Time
	loader    *registry.Loader
	allowlist map[string]bool
	byChain   map[int64]chainLiquidity
}

func NewDepthCache(loader *registry.Loader, settings config.QuoteSettings) *DepthCache {
	allowlist := make(map[string]bool)
	for _, entry := range settings.CanonicalPoolAllowlist {
		allowlist[strings.ToLower(entry)] = true
	}
	ttl := time.Duration(settings.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 20 * time.Second
	}
	return &DepthCache{
		ttl:       ttl,
		loader:    loader,
		allowlist: allowlist,
		byChain:   make(map[int64]chainLiquidity),
	}
}

// chain returns the (possibly-rebuilt) liquidity view for chainID.
func (c *DepthCache) chain(chainID int64, now time.Time) (chainLiquidity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Before(c.expiresAt) {
		if cl, ok := c.byChain[chainID]; ok {
			return cl, true
		}
	}

	c.loader.Invalidate()
	snap := c.loader.Load()
	c.byChain = make(map[int64]chainLiquidity)
	var found chainLiquidity
	var foundOK bool
	for _, chain := range snap.Chains {
		cl := buildChainLiquidity(chain, c.allowlist)
		c.byChain[chain.ChainID] = cl
		if chain.ChainID == chainID {
			found, foundOK = cl, true
		}
	}
	c.expiresAt = now.Add(c.ttl)
	return found, foundOK
}

func buildChainLiquidity(chain registry.Chain, allowlist map[string]bool) chainLiquidity {
	decimalsOf := make(map[string]int)
	symbols := make(map[string]bool, len(chain.Tokens))
	for _, t := range chain.Tokens {
		sym := strings.ToUpper(t.Symbol)
		decimalsOf[sym] = t.Decimals
		symbols[sym] = true
	}

	groups := make(map[string][]pool)
	for _, p := range chain.Pairs {
		reserve0, err0 := decimal.NewFromString(p.Reserve0Decimal)
		reserve1, err1 := decimal.NewFromString(p.Reserve1Decimal)
		if err0 != nil || err1 != nil {
			continue
		}
		canonicalPool := pool{
			address:     strings.ToLower(p.PairAddress),
			token0:      strings.ToUpper(p.Token0Symbol),
			token1:      strings.ToUpper(p.Token1Symbol),
			reserve0:    reserve0,
			reserve1:    reserve1,
			decimals0:   decimalsOf[strings.ToUpper(p.Token0Symbol)],
			decimals1:   decimalsOf[strings.ToUpper(p.Token1Symbol)],
			checkedAt:   p.CheckedAt,
		}
		key := symbolGroupKey(canonicalPool.token0, canonicalPool.token1)
		groups[key] = append(groups[key], canonicalPool)
	}

	selected := make(map[string]pool)
	for key, candidates := range groups {
		selected[key] = pickCanonical(candidates, allowlist)
	}
	return chainLiquidity{pools: selected, symbols: symbols}
}

func symbolGroupKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "/" + b
}

// pickCanonical implements canonical pair selection:
// allowlist match first, then reserve0*reserve1 descending, then
// checked_at, then pool_address lexicographic.
func pickCanonical(candidates []pool, allowlist map[string]bool) pool {
	allowed := make([]pool, 0, len(candidates))
	for _, p := range candidates {
		if allowlist[p.address] {
			allowed = append(allowed, p)
		}
	}
	pickFrom := candidates
	if len(allowed) > 0 {
		pickFrom = allowed
	}

	sort.Slice(pickFrom, func(i, j int) bool {
		depthI := pickFrom[i].reserve0.Mul(pickFrom[i].reserve1)
		depthJ := pickFrom[j].reserve0.Mul(pickFrom[j].reserve1)
		if !depthI.Equal(depthJ) {
			return depthI.GreaterThan(depthJ)
		}
		if pickFrom[i].checkedAt != pickFrom[j].checkedAt {
			return pickFrom[i].checkedAt > pickFrom[j].checkedAt
		}
		return pickFrom[i].address < pickFrom[j].address
	})
	return pickFrom[0]
}

// leg is one hop's reserves, oriented in the requested token_in/token_out
// direction.
type leg struct {
	reserveIn, reserveOut decimal.Decimal
	decimalsOut           int
}

func (cl chainLiquidity) leg(tokenIn, tokenOut string) (leg, bool) {
	key := symbolGroupKey(tokenIn, tokenOut)
	p, ok := cl.pools[key]
	if !ok {
		return leg{}, false
	}
	if p.token0 == tokenIn {
		return leg{reserveIn: p.reserve0, reserveOut: p.reserve1, decimalsOut: p.decimals1}, true
	}
	return leg{reserveIn: p.reserve1, reserveOut: p.reserve0, decimalsOut: p.decimals0}, true
}

// constantProductOut implements Uniswap-V2 formula.
func constantProductOut(amountIn, reserveIn, reserveOut decimal.Decimal, swapFeeBps int) decimal.Decimal {
	feeMult := decimal.NewFromInt(10000 - int64(swapFeeBps))
	numerator := amountIn.Mul(feeMult).Mul(reserveOut)
	denominator := reserveIn.Mul(decimal.NewFromInt(10000)).Add(amountIn.Mul(feeMult))
	if denominator.Sign() <= 0 {
		return decimal.Zero
	}
	return numerator.Div(denominator)
}

// Request is a validated /quote call.
type Request struct {
	ChainID      int64
	TokenIn      string
	TokenOut     string
	AmountIn     decimal.Decimal
	SlippageBps  int
	SwapFeeBps   int
	ProtocolFeeBps int
}

// Result is the computed quote payload.
type Result struct {
	Route                []string
	ExpectedOut          decimal.Decimal
	MinOut                decimal.Decimal
	RouteDepth            decimal.Decimal
	ProtocolFeeAmountIn   decimal.Decimal
	LPFeeBps              int
	UsedStaticFallback    bool
}

// Engine computes quotes against a DepthCache, applying the static
// fallback rate table when no on-chain route exists.
type Engine struct {
	cache    *DepthCache
	settings config.QuoteSettings
}

func NewEngine(cache *DepthCache, settings config.QuoteSettings) *Engine {
	return &Engine{cache: cache, settings: settings}
}

// Quote computes a swap quote
func (e *Engine) Quote(req Request, now time.Time) (Result, error) {
	tokenIn := strings.ToUpper(req.TokenIn)
	tokenOut := strings.ToUpper(req.TokenOut)

	if req.AmountIn.Sign() <= 0 {
		return Result{}, apperr.Validation("amount_in must be > 0")
	}
	if tokenIn == tokenOut {
		return Result{}, apperr.Validation("token_in and token_out must differ")
	}

	cl, ok := e.cache.chain(req.ChainID, now)
	if !ok {
		return Result{}, apperr.NotFound("unknown chain %d", req.ChainID)
	}
	if !cl.symbols[tokenIn] {
		return Result{}, apperr.Validation("token_in %s is not registered for chain %d", tokenIn, req.ChainID)
	}
	if !cl.symbols[tokenOut] {
		return Result{}, apperr.Validation("token_out %s is not registered for chain %d", tokenOut, req.ChainID)
	}

	route, expectedOut, routeDepth, ok := bestRoute(cl, tokenIn, tokenOut, req.AmountIn, req.SwapFeeBps)
	usedFallback := false
	if !ok || expectedOut.Sign() <= 0 {
		if req.ChainID != 31337 && !e.settings.AllowStaticFallback {
			return Result{}, apperr.Validation("no liquidity route available for %s/%s; bootstrap pool liquidity or enable static fallback", tokenIn, tokenOut)
		}
		expectedOut = staticFallbackOut(tokenIn, tokenOut, req.AmountIn)
		route = []string{tokenIn, tokenOut}
		routeDepth = decimal.Zero
		usedFallback = true
	}

	minOut := expectedOut.Mul(decimal.NewFromInt(int64(10000 - req.SlippageBps))).Div(decimal.NewFromInt(10000))
	protocolFeeAmountIn := req.AmountIn.Mul(decimal.NewFromInt(int64(req.ProtocolFeeBps))).Div(decimal.NewFromInt(10000))
	lpFeeBps := req.SwapFeeBps - req.ProtocolFeeBps
	if lpFeeBps < 0 {
		lpFeeBps = 0
	}

	return Result{
		Route:               route,
		ExpectedOut:         expectedOut,
		MinOut:              minOut,
		RouteDepth:          routeDepth,
		ProtocolFeeAmountIn: protocolFeeAmountIn,
		LPFeeBps:            lpFeeBps,
		UsedStaticFallback:  usedFallback,
	}, nil
}

// bestRoute tries the direct pool, then (when neither endpoint is the
// stable asset) a two-hop route via mUSD, and keeps whichever yields the
// higher expected_out
func bestRoute(cl chainLiquidity, tokenIn, tokenOut string, amountIn decimal.Decimal, swapFeeBps int) ([]string, decimal.Decimal, decimal.Decimal, bool) {
	var bestRouteOut []string
	var bestOut, bestDepth decimal.Decimal
	haveBest := false

	if l, ok := cl.leg(tokenIn, tokenOut); ok {
		out := constantProductOut(amountIn, l.reserveIn, l.reserveOut, swapFeeBps)
		if out.Sign() > 0 {
			bestRouteOut = []string{tokenIn, tokenOut}
			bestOut = out
			bestDepth = minDecimal(l.reserveIn, l.reserveOut)
			haveBest = true
		}
	}

	if tokenIn != stableSymbol && tokenOut != stableSymbol {
		if first, ok := cl.leg(tokenIn, stableSymbol); ok {
			firstOut := constantProductOut(amountIn, first.reserveIn, first.reserveOut, swapFeeBps)
			if second, ok := cl.leg(stableSymbol, tokenOut); ok && firstOut.Sign() > 0 {
				secondOut := constantProductOut(firstOut, second.reserveIn, second.reserveOut, swapFeeBps)
				if secondOut.Sign() > 0 && (!haveBest || secondOut.GreaterThan(bestOut)) {
					bestRouteOut = []string{tokenIn, stableSymbol, tokenOut}
					bestOut = secondOut
					bestDepth = minDecimal(minDecimal(first.reserveIn, first.reserveOut), minDecimal(second.reserveIn, second.reserveOut))
					haveBest = true
				}
			}
		}
	}

	return bestRouteOut, bestOut, bestDepth, haveBest
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// staticFallbackOut implements hardcoded mid-rates,
// used only when no on-chain route has positive liquidity.
func staticFallbackOut(tokenIn, tokenOut string, amountIn decimal.Decimal) decimal.Decimal {
	switch {
	case tokenIn == stableSymbol:
		rate := decimal.NewFromFloat(0.00002)
		if tokenOut == "WETH" || tokenOut == "WSOL" {
			rate = decimal.NewFromFloat(0.0003)
		}
		return amountIn.Mul(rate)
	case tokenOut == stableSymbol:
		rate := decimal.NewFromInt(52000)
		if tokenIn == "WETH" || tokenIn == "WSOL" {
			rate = decimal.NewFromInt(3300)
		}
		return amountIn.Mul(rate)
	default:
		return amountIn.Mul(decimal.NewFromFloat(0.06))
	}
}
