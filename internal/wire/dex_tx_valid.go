package wire

import "google.golang.org/protobuf/encoding/protowire"

// DexTxValid is the wire shape of the dex_tx_valid topic: the raw note
// embedded as field 1, plus the validator's derived fields.
//
//	1 raw                 DexTxRaw
//	2 tx_id               string
//	3 validation_version  string
type DexTxValid struct {
	Raw               DexTxRaw
	TxID              string
	ValidationVersion string
}

func (m *DexTxValid) Marshal() []byte {
	var b []byte
	rawBytes := m.Raw.Marshal()
	if len(rawBytes) > 0 {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, rawBytes)
	}
	b = appendString(b, 2, m.TxID)
	b = appendString(b, 3, m.ValidationVersion)
	return b
}

func UnmarshalDexTxValid(b []byte) (*DexTxValid, error) {
	m := &DexTxValid{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		var consumed int
		switch num {
		case 1:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			rawMsg, err := UnmarshalDexTxRaw(raw)
			if err != nil {
				return nil, err
			}
			m.Raw = *rawMsg
			consumed = n
		case 2:
			m.TxID, consumed, _ = consumeStringField(b)
		case 3:
			m.ValidationVersion, consumed, _ = consumeStringField(b)
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
