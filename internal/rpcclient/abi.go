package rpcclient

import (
	"math/big"
	"strings"

	"github.com/WeAreTheArtMakers/mcryptoex/pkg/helpers"
)

// Function selectors used by the registry builder and indexer (keccak-256
// of the canonical signature, first 4 bytes)
const (
	SelectorAllPairsLength = "0x574f2ba3"
	SelectorAllPairs       = "0x1e3dd18b"
	SelectorToken0         = "0x0dfe1681"
	SelectorToken1         = "0xd21220a7"
	SelectorGetReserves    = "0x0902f1ac"
	SelectorDecimals       = "0x313ce567"
	SelectorSymbol         = "0x95d89b41"
)

// HexToInt64 converts a hex string (with or without 0x prefix) to int64,
// for ABI result decoding.
func HexToInt64(s string) int64 {
	return helpers.HexToInt64(s)
}

// HexFromInt64 renders a block number as the "0x..."-prefixed hex string
// eth_getLogs/eth_getBlockByNumber expect, with no leading zeros.
func HexFromInt64(i int64) string {
	if i < 0 {
		i = 0
	}
	return helpers.Uint64ToHex(uint64(i))
}

// PadUint256 left-pads a uint256 parameter to a 32-byte (64 hex char) word,
// used to build eth_call calldata such as allPairs(uint256 i).
func PadUint256(i int64) string {
	word := helpers.PadLeft(big.NewInt(i).Bytes(), 32)
	return strings.TrimPrefix(helpers.BytesToHex(word), "0x")
}

// EncodeCallWithUint256 builds calldata for a selector taking one uint256
// argument, e.g. allPairs(i) or a future one-arg ABI call.
func EncodeCallWithUint256(selector string, i int64) string {
	return selector + PadUint256(i)
}

// words splits an ABI-encoded return value into its 32-byte (64 hex char)
// words, with the 0x prefix and any surrounding whitespace removed.
func words(data string) []string {
	data = strings.TrimPrefix(strings.TrimSpace(data), "0x")
	var out []string
	for i := 0; i+64 <= len(data); i += 64 {
		out = append(out, data[i:i+64])
	}
	return out
}

// DecodeUint256 decodes the first 32-byte word of an ABI result as a
// big-endian unsigned integer.
func DecodeUint256(data string) *big.Int {
	ws := words(data)
	if len(ws) == 0 {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(ws[0], 16)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// DecodeTwoUint256 decodes the first two 32-byte words, used for
// getReserves()'s (reserve0, reserve1, blockTimestampLast) return triple
// (the caller reads the third word separately when needed).
func DecodeTwoUint256(data string) (*big.Int, *big.Int) {
	ws := words(data)
	zero := big.NewInt(0)
	a, b := zero, zero
	if len(ws) > 0 {
		if v, ok := new(big.Int).SetString(ws[0], 16); ok {
			a = v
		}
	}
	if len(ws) > 1 {
		if v, ok := new(big.Int).SetString(ws[1], 16); ok {
			b = v
		}
	}
	return a, b
}

// DecodeUint256At decodes the word at index idx (0-based), used for
// getReserves()'s third return value (blockTimestampLast).
func DecodeUint256At(data string, idx int) *big.Int {
	ws := words(data)
	if idx >= len(ws) {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(ws[idx], 16)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// DecodeAddress decodes the first 32-byte word of an ABI result as an
// address: the low 20 bytes (40 hex chars) of a right-aligned 32-byte word.
func DecodeAddress(data string) string {
	ws := words(data)
	if len(ws) == 0 {
		return "0x0000000000000000000000000000000000000000"
	}
	word := ws[0]
	if len(word) < 40 {
		return "0x" + word
	}
	return "0x" + word[len(word)-40:]
}

// DecodeSymbol decodes an ERC-20 symbol() return value, accepting both the
// dynamic ABI string encoding (32-byte offset, 32-byte length, UTF-8 bytes)
// and the legacy fixed 32-byte null-terminated ASCII encoding some older
// tokens (and Uniswap V2 pairs' own symbol) use
func DecodeSymbol(data string) string {
	ws := words(data)
	if len(ws) == 0 {
		return ""
	}

	// Dynamic encoding: word[0] is the byte offset to the length word
	// (almost always 0x20 i.e. word[1]); word[1] is the byte length;
	// the payload follows starting at word[2].
	if len(ws) >= 3 {
		offset := new(big.Int)
		if _, ok := offset.SetString(ws[0], 16); ok && offset.Cmp(big.NewInt(32)) == 0 {
			length := new(big.Int)
			if _, ok := length.SetString(ws[1], 16); ok {
				n := int(length.Int64())
				if n > 0 {
					payloadHex := strings.Join(ws[2:], "")
					if n*2 <= len(payloadHex) {
						raw := payloadHex[:n*2]
						if b, err := helpers.HexToBytes(raw); err == nil {
							return strings.TrimRight(string(b), "\x00")
						}
					}
				}
			}
		}
	}

	// Legacy fixed encoding: a single 32-byte word of null-terminated ASCII.
	if b, err := helpers.HexToBytes(ws[0]); err == nil {
		return strings.TrimRight(string(b), "\x00")
	}
	return ""
}
