// Package wire hand-encodes the three pipeline message schemas
// (DexTxRaw, DexTxValid, DexLedgerEntryBatch) to and from protobuf wire
// format using the protobuf-go module's low-level protowire primitives.
// There is no .proto source and no protoc step; this package is written by
// hand in the shape protoc-gen-go would otherwise produce.
package wire

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Timestamp mirrors google.protobuf.Timestamp's wire shape: field 1 is
// seconds (varint), field 2 is nanos (varint).
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// TimestampFromTime converts a time.Time to the wire Timestamp, normalizing
// to UTC per the ledger writer's `_ts_from_proto` behavior.
func TimestampFromTime(t time.Time) Timestamp {
	u := t.UTC()
	return Timestamp{Seconds: u.Unix(), Nanos: int32(u.Nanosecond())}
}

// Time converts back to a time.Time in UTC.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

func appendTimestamp(b []byte, num protowire.Number, ts Timestamp) []byte {
	if ts.Seconds == 0 && ts.Nanos == 0 {
		return b
	}
	var inner []byte
	if ts.Seconds != 0 {
		inner = protowire.AppendTag(inner, 1, protowire.VarintType)
		inner = protowire.AppendVarint(inner, uint64(ts.Seconds))
	}
	if ts.Nanos != 0 {
		inner = protowire.AppendTag(inner, 2, protowire.VarintType)
		inner = protowire.AppendVarint(inner, uint64(uint32(ts.Nanos)))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)
	return b
}

func consumeTimestamp(b []byte) (Timestamp, int, error) {
	var ts Timestamp
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ts, 0, protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ts, 0, protowire.ParseError(n)
			}
			ts.Seconds = int64(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ts, 0, protowire.ParseError(n)
			}
			ts.Nanos = int32(uint32(v))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return ts, 0, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return ts, 0, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendString(b, s)
	return b
}

func appendVarint(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v))
	return b
}
