// Package ledger turns a valid note into double-entry bookkeeping rows and
// writes them durably.
package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/notes"
)

// Entry is one (entry_type, debit_account, credit_account, asset, amount)
// tuple the writer expands into a balanced debit/credit row pair.
type Entry struct {
	EntryType     string
	DebitAccount  string
	CreditAccount string
	Asset         string
	Amount        decimal.Decimal
}

const (
	accountTreasury   = "protocol:treasury"
	accountConversion = "protocol:conversion"
	assetUSD          = "USD"
)

func userAccount(address string) string { return "user:" + strings.ToLower(address) }
func poolAccount(address string) string { return "pool:" + strings.ToLower(address) }
func networkAccount(chainID int64) string { return fmt.Sprintf("network:%d", chainID) }

// DeriveEntries implements action -> tuple table.
// Zero or negative amounts are skipped at the caller (store.Ingest), not here.
func DeriveEntries(raw notes.Raw) []Entry {
	user := userAccount(raw.UserAddress)
	pool := poolAccount(raw.PoolAddress)
	network := networkAccount(raw.ChainID)

	amountIn := mustDecimal(raw.AmountIn)
	amountOut := mustDecimal(raw.AmountOut)
	feeUSD := mustDecimal(raw.FeeUSD)
	protocolRevenueUSD := mustDecimal(raw.ProtocolRevenueUSD)
	gasCostUSD := mustDecimal(raw.GasCostUSD)

	switch raw.Action {
	case notes.ActionSwap:
		return []Entry{
			{"swap_notional_in", user, pool, raw.TokenIn, amountIn},
			{"swap_notional_out", pool, user, raw.TokenOut, amountOut},
			{"trade_fee_usd", user, accountTreasury, assetUSD, feeUSD},
			{"protocol_revenue_usd", pool, accountTreasury, assetUSD, protocolRevenueUSD},
			{"gas_cost_usd", user, network, assetUSD, gasCostUSD},
		}
	case notes.ActionLiquidityAdd:
		return []Entry{
			{"liquidity_add_in_a", user, pool, raw.TokenIn, amountIn},
			{"liquidity_add_in_b", user, pool, raw.TokenOut, amountOut},
			{"gas_cost_usd", user, network, assetUSD, gasCostUSD},
		}
	case notes.ActionLiquidityRemove:
		return []Entry{
			{"liquidity_remove_out_a", pool, user, raw.TokenIn, amountIn},
			{"liquidity_remove_out_b", pool, user, raw.TokenOut, amountOut},
			{"gas_cost_usd", user, network, assetUSD, gasCostUSD},
		}
	case notes.ActionMusdMint:
		return []Entry{
			{"musd_mint_collateral", user, pool, raw.TokenIn, amountIn},
			{"musd_mint_issue", pool, user, raw.TokenOut, amountOut},
			{"gas_cost_usd", user, network, assetUSD, gasCostUSD},
		}
	case notes.ActionMusdBurn:
		return []Entry{
			{"musd_burn_in", user, pool, raw.TokenIn, amountIn},
			{"musd_burn_redeem", pool, user, raw.TokenOut, amountOut},
			{"gas_cost_usd", user, network, assetUSD, gasCostUSD},
		}
	case notes.ActionFeeTransferredToTreasury:
		return []Entry{
			{"fee_transfer_to_treasury", pool, accountTreasury, raw.TokenIn, amountIn},
		}
	case notes.ActionTreasuryConvertedToMusd:
		return []Entry{
			{"treasury_convert_spend", accountConversion, accountTreasury, raw.TokenIn, amountIn},
			{"treasury_convert_receive", accountTreasury, accountConversion, raw.TokenOut, amountOut},
		}
	case notes.ActionDistributionExecuted:
		return []Entry{
			{"treasury_distribution", user, accountTreasury, "mUSD", amountIn},
		}
	case notes.ActionProtocolFeeAccrued:
		// No ledger rows: the original system tracks this as an on-chain
		// accrual event only, with no corresponding bookkeeping movement.
		return nil
	default:
		return nil
	}
}

// mustDecimal parses a validator-checked decimal string; the validator has
// already guaranteed every amount field here is a valid non-negative
// decimal, so a parse failure at this point means the field was empty.
func mustDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
