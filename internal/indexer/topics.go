package indexer

import (
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

func topicHash(signature string) string {
	return strings.ToLower(crypto.Keccak256Hash([]byte(signature)).Hex())
}

// Event topic hashes
var (
	TopicSwap       = topicHash("Swap(address,uint256,uint256,uint256,uint256,address)")
	TopicMint       = topicHash("Mint(address,uint256,uint256)")
	TopicBurn       = topicHash("Burn(address,uint256,uint256,address)")
	TopicNoteMinted = topicHash("NoteMinted(address,address,uint256,uint256,uint256,address)")
	TopicNoteBurned = topicHash("NoteBurned(address,address,uint256,uint256,uint256,address)")
)

// topicCandidates is the single outer topics[0] filter array eth_getLogs
// receives: any one of these topic0 values matches.
func topicCandidates() []string {
	return []string{TopicSwap, TopicMint, TopicBurn, TopicNoteMinted, TopicNoteBurned}
}

func actionForTopic(topic string) (string, bool) {
	switch strings.ToLower(topic) {
	case TopicSwap:
		return "SWAP", true
	case TopicMint:
		return "LIQUIDITY_ADD", true
	case TopicBurn:
		return "LIQUIDITY_REMOVE", true
	case TopicNoteMinted:
		return "MUSD_MINT", true
	case TopicNoteBurned:
		return "MUSD_BURN", true
	default:
		return "", false
	}
}
