package wire

import "google.golang.org/protobuf/encoding/protowire"

// DexTxRaw is the wire shape of the dex_tx_raw topic.
//
// Field numbers (the implicit .proto this file hand-compiles):
//
//	1  note_id               string
//	2  correlation_id        string
//	3  chain_id              int64
//	4  tx_hash               string
//	5  block_number          int64
//	6  pool_address          string
//	7  user_address          string
//	8  action                string
//	9  token_in              string
//	10 token_out             string
//	11 amount_in             string
//	12 amount_out            string
//	13 fee_usd               string
//	14 gas_used              string
//	15 gas_cost_usd          string
//	16 protocol_revenue_usd  string
//	17 min_out               string
//	18 occurred_at           Timestamp
//	19 source                string
type DexTxRaw struct {
	NoteID             string
	CorrelationID      string
	ChainID            int64
	TxHash             string
	BlockNumber        int64
	PoolAddress        string
	UserAddress        string
	Action             string
	TokenIn            string
	TokenOut           string
	AmountIn           string
	AmountOut          string
	FeeUSD             string
	GasUsed            string
	GasCostUSD         string
	ProtocolRevenueUSD string
	MinOut             string
	OccurredAt         Timestamp
	Source             string
}

// Marshal encodes m to protobuf wire bytes.
func (m *DexTxRaw) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.NoteID)
	b = appendString(b, 2, m.CorrelationID)
	b = appendVarint(b, 3, m.ChainID)
	b = appendString(b, 4, m.TxHash)
	b = appendVarint(b, 5, m.BlockNumber)
	b = appendString(b, 6, m.PoolAddress)
	b = appendString(b, 7, m.UserAddress)
	b = appendString(b, 8, m.Action)
	b = appendString(b, 9, m.TokenIn)
	b = appendString(b, 10, m.TokenOut)
	b = appendString(b, 11, m.AmountIn)
	b = appendString(b, 12, m.AmountOut)
	b = appendString(b, 13, m.FeeUSD)
	b = appendString(b, 14, m.GasUsed)
	b = appendString(b, 15, m.GasCostUSD)
	b = appendString(b, 16, m.ProtocolRevenueUSD)
	b = appendString(b, 17, m.MinOut)
	b = appendTimestamp(b, 18, m.OccurredAt)
	b = appendString(b, 19, m.Source)
	return b
}

// UnmarshalDexTxRaw decodes protobuf wire bytes into a DexTxRaw.
func UnmarshalDexTxRaw(b []byte) (*DexTxRaw, error) {
	m := &DexTxRaw{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		var consumed int
		switch num {
		case 1:
			m.NoteID, consumed, _ = consumeStringField(b)
		case 2:
			m.CorrelationID, consumed, _ = consumeStringField(b)
		case 3:
			m.ChainID, consumed, _ = consumeVarintField(b)
		case 4:
			m.TxHash, consumed, _ = consumeStringField(b)
		case 5:
			m.BlockNumber, consumed, _ = consumeVarintField(b)
		case 6:
			m.PoolAddress, consumed, _ = consumeStringField(b)
		case 7:
			m.UserAddress, consumed, _ = consumeStringField(b)
		case 8:
			m.Action, consumed, _ = consumeStringField(b)
		case 9:
			m.TokenIn, consumed, _ = consumeStringField(b)
		case 10:
			m.TokenOut, consumed, _ = consumeStringField(b)
		case 11:
			m.AmountIn, consumed, _ = consumeStringField(b)
		case 12:
			m.AmountOut, consumed, _ = consumeStringField(b)
		case 13:
			m.FeeUSD, consumed, _ = consumeStringField(b)
		case 14:
			m.GasUsed, consumed, _ = consumeStringField(b)
		case 15:
			m.GasCostUSD, consumed, _ = consumeStringField(b)
		case 16:
			m.ProtocolRevenueUSD, consumed, _ = consumeStringField(b)
		case 17:
			m.MinOut, consumed, _ = consumeStringField(b)
		case 18:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			ts, _, err := consumeTimestamp(raw)
			if err != nil {
				return nil, err
			}
			m.OccurredAt = ts
			consumed = n
		case 19:
			m.Source, consumed, _ = consumeStringField(b)
		default:
			consumed = protowire.ConsumeFieldValue(num, typ, b)
		}
		if consumed < 0 {
			return nil, protowire.ParseError(consumed)
		}
		b = b[consumed:]
	}
	return m, nil
}

func consumeStringField(b []byte) (string, int, error) {
	s, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", n, protowire.ParseError(n)
	}
	return s, n, nil
}

func consumeVarintField(b []byte) (int64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, n, protowire.ParseError(n)
	}
	return int64(v), n, nil
}
