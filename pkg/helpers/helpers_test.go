package helpers

import (
	"math/big"
	"testing"
)

func TestScaledAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		decimals int
		want     string
	}{
		{"1 ETH", big.NewInt(1000000000000000000), 18, "1"},
		{"0.5 ETH", big.NewInt(500000000000000000), 18, "0.5"},
		{"1 BTC equivalent scale", big.NewInt(100000000), 8, "1"},
		{"fractional", big.NewInt(12345678), 8, "0.12345678"},
		{"zero decimals", big.NewInt(123), 0, "123"},
		{"nil", nil, 18, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaledAmount(tt.raw, tt.decimals)
			if got != tt.want {
				t.Errorf("ScaledAmount(%v, %d) = %s, want %s", tt.raw, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestUnscaledAmount(t *testing.T) {
	tests := []struct {
		input    string
		decimals int
		want     string
		wantErr  bool
	}{
		{"1", 18, "1000000000000000000", false},
		{"0.5", 18, "500000000000000000", false},
		{"0.12345678", 8, "12345678", false},
		{"123", 0, "123", false},
		{"not-a-number", 18, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := UnscaledAmount(tt.input, tt.decimals)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("UnscaledAmount(%s, %d) = %s, want %s", tt.input, tt.decimals, got.String(), tt.want)
			}
		})
	}
}

func TestScaledUnscaledRoundtrip(t *testing.T) {
	raws := []int64{1, 100, 12345678, 100000000, 999999999}

	for _, raw := range raws {
		scaled := ScaledAmount(big.NewInt(raw), 8)
		unscaled, err := UnscaledAmount(scaled, 8)
		if err != nil {
			t.Errorf("UnscaledAmount(%s) failed: %v", scaled, err)
			continue
		}
		if unscaled.Int64() != raw {
			t.Errorf("roundtrip failed: %d -> %s -> %d", raw, scaled, unscaled.Int64())
		}
	}
}

func TestHexToInt64(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"0x1a", 26},
		{"1a", 26},
		{"0x0", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := HexToInt64(tt.input); got != tt.want {
				t.Errorf("HexToInt64(%s) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestUint64ToHex(t *testing.T) {
	tests := []struct {
		input uint64
		want  string
	}{
		{0, "0x0"},
		{26, "0x1a"},
		{255, "0xff"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Uint64ToHex(tt.input); got != tt.want {
				t.Errorf("Uint64ToHex(%d) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestPadLeft(t *testing.T) {
	got := PadLeft([]byte{0x01, 0x02}, 4)
	want := []byte{0x00, 0x00, 0x01, 0x02}
	if len(got) != len(want) {
		t.Fatalf("PadLeft length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("PadLeft = %v, want %v", got, want)
		}
	}
}
