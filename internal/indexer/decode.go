package indexer

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/notes"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/rpcclient"
)

// decodeEvent turns a raw eth_getLogs entry into a canonical note, applying
// the per-action decoding rules. Returns (nil, nil) for a log the indexer
// recognizes but chooses not to emit a note for.
func (idx *Indexer) decodeEvent(ctx context.Context, action notes.Action, lg rpcclient.Log) (*notes.Raw, error) {
	blockNumber := rpcclient.HexToInt64(lg.BlockNumber)
	logIndex := uint(rpcclient.HexToInt64(lg.LogIndex))
	poolAddress := strings.ToLower(lg.Address)

	var userAddress, tokenIn, tokenOut, amountIn, amountOut string
	var err error

	switch action {
	case notes.ActionSwap:
		userAddress, tokenIn, tokenOut, amountIn, amountOut, err = idx.decodeSwap(poolAddress, lg)
	case notes.ActionLiquidityAdd:
		userAddress, tokenIn, tokenOut, amountIn, amountOut, err = idx.decodeMint(poolAddress, lg)
	case notes.ActionLiquidityRemove:
		userAddress, tokenIn, tokenOut, amountIn, amountOut, err = idx.decodeBurn(poolAddress, lg)
	case notes.ActionMusdMint:
		userAddress, tokenIn, tokenOut, amountIn, amountOut, err = idx.decodeNoteMinted(lg)
	case notes.ActionMusdBurn:
		userAddress, tokenIn, tokenOut, amountIn, amountOut, err = idx.decodeNoteBurned(lg)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	occurredAt, err := idx.blockTimestamp(ctx, lg.BlockNumber)
	if err != nil {
		return nil, err
	}

	gasUsed, gasCostUSD, err := idx.gasCost(ctx, lg.TransactionHash)
	if err != nil {
		return nil, err
	}

	feeUSD, protocolRevenueUSD := idx.swapFee(action, tokenIn, amountIn)

	noteID := notes.DeterministicNoteID(idx.settings.ChainID, lg.TransactionHash, logIndex, action)

	return &notes.Raw{
		NoteID:             noteID,
		CorrelationID:      notes.RandomID(),
		ChainID:            idx.settings.ChainID,
		TxHash:             strings.ToLower(lg.TransactionHash),
		BlockNumber:        blockNumber,
		PoolAddress:        poolAddress,
		UserAddress:        userAddress,
		Action:             action,
		TokenIn:            tokenIn,
		TokenOut:           tokenOut,
		AmountIn:           amountIn,
		AmountOut:          amountOut,
		FeeUSD:             feeUSD,
		GasUsed:            gasUsed,
		GasCostUSD:         gasCostUSD,
		ProtocolRevenueUSD: protocolRevenueUSD,
		MinOut:             "",
		OccurredAt:         occurredAt,
		Source:             notes.SourceChainIndexer,
	}, nil
}

// decodeSwap decodes Swap(address indexed sender, uint256 amount0In,
// uint256 amount1In, uint256 amount0Out, uint256 amount1Out, address
// indexed to); the non-zero *In word picks token_in, the non-zero *Out
// word picks token_out
func (idx *Indexer) decodeSwap(poolAddress string, lg rpcclient.Log) (userAddress, tokenIn, tokenOut, amountIn, amountOut string, err error) {
	pair, ok := idx.pairs[poolAddress]
	if !ok {
		pair = pairInfo{token0Symbol: "TOKEN0", token1Symbol: "TOKEN1"}
	}
	if len(lg.Topics) > 2 {
		userAddress = addressFromTopic(lg.Topics[2])
	}

	amount0In := rpcclient.DecodeUint256At(lg.Data, 0)
	amount1In := rpcclient.DecodeUint256At(lg.Data, 1)
	amount0Out := rpcclient.DecodeUint256At(lg.Data, 2)
	amount1Out := rpcclient.DecodeUint256At(lg.Data, 3)

	if amount0In.Sign() > 0 {
		tokenIn = pair.token0Symbol
		amountIn = scaledDecimalString(amount0In, idx.decimalsFor(pair.token0Symbol))
	} else {
		tokenIn = pair.token1Symbol
		amountIn = scaledDecimalString(amount1In, idx.decimalsFor(pair.token1Symbol))
	}
	if amount0Out.Sign() > 0 {
		tokenOut = pair.token0Symbol
		amountOut = scaledDecimalString(amount0Out, idx.decimalsFor(pair.token0Symbol))
	} else {
		tokenOut = pair.token1Symbol
		amountOut = scaledDecimalString(amount1Out, idx.decimalsFor(pair.token1Symbol))
	}
	return userAddress, tokenIn, tokenOut, amountIn, amountOut, nil
}

// decodeMint decodes Mint(address indexed sender, uint256 amount0, uint256
// amount1) as a LIQUIDITY_ADD of both pool assets.
func (idx *Indexer) decodeMint(poolAddress string, lg rpcclient.Log) (userAddress, tokenIn, tokenOut, amountIn, amountOut string, err error) {
	pair, ok := idx.pairs[poolAddress]
	if !ok {
		pair = pairInfo{token0Symbol: "TOKEN0", token1Symbol: "TOKEN1"}
	}
	if len(lg.Topics) > 1 {
		userAddress = addressFromTopic(lg.Topics[1])
	}
	amount0 := rpcclient.DecodeUint256At(lg.Data, 0)
	amount1 := rpcclient.DecodeUint256At(lg.Data, 1)
	return userAddress, pair.token0Symbol, pair.token1Symbol,
		scaledDecimalString(amount0, idx.decimalsFor(pair.token0Symbol)),
		scaledDecimalString(amount1, idx.decimalsFor(pair.token1Symbol)), nil
}

// decodeBurn decodes Burn(address indexed sender, uint256 amount0, uint256
// amount1, address indexed to) as a LIQUIDITY_REMOVE of both pool assets.
func (idx *Indexer) decodeBurn(poolAddress string, lg rpcclient.Log) (userAddress, tokenIn, tokenOut, amountIn, amountOut string, err error) {
	pair, ok := idx.pairs[poolAddress]
	if !ok {
		pair = pairInfo{token0Symbol: "TOKEN0", token1Symbol: "TOKEN1"}
	}
	if len(lg.Topics) > 2 {
		userAddress = addressFromTopic(lg.Topics[2])
	}
	amount0 := rpcclient.DecodeUint256At(lg.Data, 0)
	amount1 := rpcclient.DecodeUint256At(lg.Data, 1)
	return userAddress, pair.token0Symbol, pair.token1Symbol,
		scaledDecimalString(amount0, idx.decimalsFor(pair.token0Symbol)),
		scaledDecimalString(amount1, idx.decimalsFor(pair.token1Symbol)), nil
}

// decodeNoteMinted decodes a stabilizer NoteMinted event as a MUSD_MINT:
// collateral in from the user, mUSD out to the user. The event's six fields
// sit in the data payload in the order the signature lists them
// (user, collateral_token, collateral_in, musd_out, timestamp, stabilizer);
// no argument in this custom event is indexed. Only the first four words
// are read; timestamp and stabilizer are ignored.
func (idx *Indexer) decodeNoteMinted(lg rpcclient.Log) (userAddress, tokenIn, tokenOut, amountIn, amountOut string, err error) {
	userAddress = rpcclient.DecodeAddress(wordSlice(lg.Data, 0))
	collateralToken := rpcclient.DecodeAddress(wordSlice(lg.Data, 1))
	collateralIn := rpcclient.DecodeUint256At(lg.Data, 2)
	musdOut := rpcclient.DecodeUint256At(lg.Data, 3)

	symbol, decimals := idx.resolveSymbolAndDecimals(collateralToken)
	return userAddress, symbol, "mUSD",
		scaledDecimalString(collateralIn, decimals),
		scaledDecimalString(musdOut, 18), nil
}

// decodeNoteBurned decodes a stabilizer NoteBurned event as a MUSD_BURN:
// mUSD in from the user, collateral out to the user.
func (idx *Indexer) decodeNoteBurned(lg rpcclient.Log) (userAddress, tokenIn, tokenOut, amountIn, amountOut string, err error) {
	userAddress = rpcclient.DecodeAddress(wordSlice(lg.Data, 0))
	collateralToken := rpcclient.DecodeAddress(wordSlice(lg.Data, 1))
	musdIn := rpcclient.DecodeUint256At(lg.Data, 2)
	collateralOut := rpcclient.DecodeUint256At(lg.Data, 3)

	symbol, decimals := idx.resolveSymbolAndDecimals(collateralToken)
	return userAddress, "mUSD", symbol,
		scaledDecimalString(musdIn, 18),
		scaledDecimalString(collateralOut, decimals), nil
}

// wordSlice extracts the 32-byte word at idx as its own "0x..." hex string,
// so DecodeAddress can be reused against a single non-leading word.
func wordSlice(data string, idx int) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(data), "0x")
	start := idx * 64
	end := start + 64
	if start >= len(trimmed) || end > len(trimmed) {
		return "0x0"
	}
	return "0x" + trimmed[start:end]
}

func (idx *Indexer) decimalsFor(symbol string) int {
	for addr, sym := range idx.tokenSymbols {
		if strings.EqualFold(sym, symbol) {
			if d, ok := idx.tokenDecimals[addr]; ok {
				return d
			}
		}
	}
	return 18
}

// blockTimestamp resolves a block's timestamp with one eth_getBlockByNumber
// call per invocation; results are not cached, so same-block events each
// issue their own call.
func (idx *Indexer) blockTimestamp(ctx context.Context, blockNumberHex string) (time.Time, error) {
	ts, err := idx.client.GetBlockTimestamp(ctx, blockNumberHex)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts, 0).UTC(), nil
}

// gasCost fetches the transaction receipt once per tx_hash (cached for the
// lifetime of the process) and converts gas spend to a USD decimal string:
// gas_native = gasUsed * effectiveGasPrice / 1e18; gas_cost_usd = gas_native
// * native_usd_price
func (idx *Indexer) gasCost(ctx context.Context, txHash string) (gasUsedStr, gasCostUSD string, err error) {
	key := strings.ToLower(txHash)
	if cached, ok := idx.gasCostCache[key]; ok {
		parts := strings.SplitN(cached, "|", 2)
		return parts[0], parts[1], nil
	}

	receipt, err := idx.client.GetTransactionReceipt(ctx, txHash)
	if err != nil {
		return "", "", err
	}

	gasUsed := rpcclient.HexToInt64(receipt.GasUsed)
	gasPrice := rpcclient.HexToInt64(receipt.EffectiveGasPrice)

	gasNative := decimal.NewFromInt(gasUsed).Mul(decimal.NewFromInt(gasPrice)).Div(decimal.New(1, 18))
	nativeUSDPrice, parseErr := decimal.NewFromString(idx.settings.NativeUSDPrice)
	if parseErr != nil {
		nativeUSDPrice = decimal.Zero
	}
	costUSD := gasNative.Mul(nativeUSDPrice)

	gasUsedStr = strconv.FormatInt(gasUsed, 10)
	gasCostUSD = costUSD.String()
	idx.gasCostCache[key] = gasUsedStr + "|" + gasCostUSD
	return gasUsedStr, gasCostUSD, nil
}

// swapFee applies SWAP fee model: fee only accrues
// when token_in is the stable asset, split between the pool and the
// protocol by the configured basis points.
func (idx *Indexer) swapFee(action notes.Action, tokenIn, amountIn string) (feeUSD, protocolRevenueUSD string) {
	if action != notes.ActionSwap || !strings.EqualFold(tokenIn, "mUSD") {
		return "0", "0"
	}
	in, err := decimal.NewFromString(amountIn)
	if err != nil {
		return "0", "0"
	}
	fee := in.Mul(decimal.NewFromInt(int64(idx.settings.SwapFeeBps))).Div(decimal.NewFromInt(10000))
	revenue := fee.Mul(decimal.NewFromInt(int64(idx.settings.ProtocolRevenueShareBps))).Div(decimal.NewFromInt(10000))
	return fee.String(), revenue.String()
}
