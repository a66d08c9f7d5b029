package wire

import "google.golang.org/protobuf/encoding/protowire"

// LedgerEntryItem is one derived (entry_type, debit_account, credit_account,
// asset, amount) tuple, with the following field numbers:
//
//	1 entry_type      string
//	2 debit_account   string
//	3 credit_account  string
//	4 asset           string
//	5 amount          string
type LedgerEntryItem struct {
	EntryType     string
	DebitAccount  string
	CreditAccount string
	Asset         string
	Amount        string
}

func (item *LedgerEntryItem) marshal() []byte {
	var b []byte
	b = appendString(b, 1, item.EntryType)
	b = appendString(b, 2, item.DebitAccount)
	b = appendString(b, 3, item.CreditAccount)
	b = appendString(b, 4, item.Asset)
	b = appendString(b, 5, item.Amount)
	return b
}

func unmarshalLedgerEntryItem(b []byte) (*LedgerEntryItem, error) {
	item := &LedgerEntryItem{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		var consumed int
		switch num {
		case 1:
			item.EntryType, consumed, _ = consumeStringField(b)
		case 2:
			item.DebitAccount, consumed, _ = consumeStringField(b)
		case 3:
			item.CreditAccount, consumed, _ = consumeStringField(b)
		case 4:
			item.Asset, consumed, _ = consumeStringField(b)
		case 5:
			item.Amount, consumed, _ = consumeStringField(b)
		default:
			consumed = protowire.ConsumeFieldValue(num, typ, b)
		}
		if consumed < 0 {
			return nil, protowire.ParseError(consumed)
		}
		b = b[consumed:]
	}
	return item, nil
}

// DexLedgerEntryBatch is the wire shape of the dex_ledger_entries topic.
//
//	1 batch_id        string
//	2 tx_id           string
//	3 note_id         string
//	4 correlation_id  string
//	5 chain_id        int64
//	6 tx_hash         string
//	7 created_at      Timestamp
//	8 entries         repeated LedgerEntryItem
type DexLedgerEntryBatch struct {
	BatchID       string
	TxID          string
	NoteID        string
	CorrelationID string
	ChainID       int64
	TxHash        string
	CreatedAt     Timestamp
	Entries       []LedgerEntryItem
}

func (m *DexLedgerEntryBatch) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.BatchID)
	b = appendString(b, 2, m.TxID)
	b = appendString(b, 3, m.NoteID)
	b = appendString(b, 4, m.CorrelationID)
	b = appendVarint(b, 5, m.ChainID)
	b = appendString(b, 6, m.TxHash)
	b = appendTimestamp(b, 7, m.CreatedAt)
	for i := range m.Entries {
		itemBytes := m.Entries[i].marshal()
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendBytes(b, itemBytes)
	}
	return b
}

func UnmarshalDexLedgerEntryBatch(b []byte) (*DexLedgerEntryBatch, error) {
	m := &DexLedgerEntryBatch{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		var consumed int
		switch num {
		case 1:
			m.BatchID, consumed, _ = consumeStringField(b)
		case 2:
			m.TxID, consumed, _ = consumeStringField(b)
		case 3:
			m.NoteID, consumed, _ = consumeStringField(b)
		case 4:
			m.CorrelationID, consumed, _ = consumeStringField(b)
		case 5:
			m.ChainID, consumed, _ = consumeVarintField(b)
		case 6:
			m.TxHash, consumed, _ = consumeStringField(b)
		case 7:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			ts, _, err := consumeTimestamp(raw)
			if err != nil {
				return nil, err
			}
			m.CreatedAt = ts
			consumed = n
		case 8:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			item, err := unmarshalLedgerEntryItem(raw)
			if err != nil {
				return nil, err
			}
			m.Entries = append(m.Entries, *item)
			consumed = n
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
