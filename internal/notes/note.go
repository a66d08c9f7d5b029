// Package notes defines the raw/valid note data model that flows between
// the indexer, validator, and ledger writer, plus the deterministic id
// derivations each stage relies on.
package notes

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action enumerates the on-chain event kinds a note can carry.
type Action string

const (
	ActionSwap                     Action = "SWAP"
	ActionLiquidityAdd             Action = "LIQUIDITY_ADD"
	ActionLiquidityRemove          Action = "LIQUIDITY_REMOVE"
	ActionMusdMint                 Action = "MUSD_MINT"
	ActionMusdBurn                 Action = "MUSD_BURN"
	ActionProtocolFeeAccrued       Action = "PROTOCOL_FEE_ACCRUED"
	ActionFeeTransferredToTreasury Action = "FEE_TRANSFERRED_TO_TREASURY"
	ActionTreasuryConvertedToMusd  Action = "TREASURY_CONVERTED_TO_MUSD"
	ActionDistributionExecuted     Action = "DISTRIBUTION_EXECUTED"
)

// ValidActions is the closed set the validator checks membership against.
var ValidActions = map[Action]bool{
	ActionSwap:                     true,
	ActionLiquidityAdd:             true,
	ActionLiquidityRemove:          true,
	ActionMusdMint:                 true,
	ActionMusdBurn:                 true,
	ActionProtocolFeeAccrued:       true,
	ActionFeeTransferredToTreasury: true,
	ActionTreasuryConvertedToMusd:  true,
	ActionDistributionExecuted:     true,
}

// Source tags the provenance of a raw note.
const (
	SourceChainIndexer     = "chain-indexer"
	SourceIndexerSimulation = "indexer-simulation"
	SourceAPIDebug          = "api-debug"
)

// namespaceURL is the fixed UUIDv5 namespace (the "URL" namespace from
// RFC 4122 section 4.3) every deterministic id in this package is derived
// against for every deterministic id this package derives.
var namespaceURL = uuid.NameSpaceURL

// Raw is the note published by the indexer (or the debug endpoint) onto
// the raw-notes topic.
type Raw struct {
	NoteID              string
	CorrelationID       string
	ChainID             int64
	TxHash              string
	BlockNumber         int64
	PoolAddress         string
	UserAddress         string
	Action              Action
	TokenIn             string
	TokenOut            string
	AmountIn            string
	AmountOut           string
	FeeUSD              string
	GasUsed             string
	GasCostUSD          string
	ProtocolRevenueUSD  string
	MinOut              string
	OccurredAt          time.Time
	Source              string
}

// Valid is a Raw note plus the validator's derived fields.
type Valid struct {
	Raw
	TxID              string
	ValidationVersion string
}

// DeterministicNoteID derives the indexer's note_id for a chain event:
// UUIDv5(URL, "{chain_id}:{tx_hash}:{log_index}:{action}").
func DeterministicNoteID(chainID int64, txHash string, logIndex uint, action Action) string {
	name := fmt.Sprintf("%d:%s:%d:%s", chainID, strings.ToLower(txHash), logIndex, action)
	return uuid.NewSHA1(namespaceURL, []byte(name)).String()
}

// RandomID returns a random UUIDv4, used for correlation ids and for
// synthetic/debug note ids that have no deterministic chain-event identity.
func RandomID() string {
	return uuid.New().String()
}

// DeriveTxID computes the valid note's tx_id: a pure function of
// (chain_id, tx_hash, note_id), stable across retries.
func DeriveTxID(chainID int64, txHash, noteID string) string {
	name := fmt.Sprintf("%d:%s:%s", chainID, strings.ToLower(txHash), noteID)
	return uuid.NewSHA1(namespaceURL, []byte(name)).String()
}

// ValidationVersion is stamped onto every note the validator accepts.
const ValidationVersion = "v1"
