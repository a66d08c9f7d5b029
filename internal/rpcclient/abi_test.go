package rpcclient

import "testing"

func TestDecodeAddress(t *testing.T) {
	data := "0x000000000000000000000000abababababababababababababababababababab"
	// truncate to a valid 64-hex-char word for the test
	data = "0x000000000000000000000000aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	got := DecodeAddress(data)
	want := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestDecodeUint256(t *testing.T) {
	data := "0x00000000000000000000000000000000000000000000000000000000000003e8"
	got := DecodeUint256(data)
	if got.Int64() != 1000 {
		t.Fatalf("got %s want 1000", got.String())
	}
}

func TestDecodeSymbolLegacyFixed(t *testing.T) {
	// "WETH" ascii null-padded to 32 bytes.
	data := "0x5745544800000000000000000000000000000000000000000000000000000000"
	data = data[:66] // exactly one 64-hex-char word plus 0x
	got := DecodeSymbol(data)
	if got != "WETH" {
		t.Fatalf("got %q want WETH", got)
	}
}

func TestDecodeSymbolDynamic(t *testing.T) {
	// offset=0x20, length=4, payload="WETH" right-padded to a 32-byte word.
	offset := "0000000000000000000000000000000000000000000000000000000000000020"
	offset = offset[len(offset)-64:]
	length := "0000000000000000000000000000000000000000000000000000000000000004"
	length = length[len(length)-64:]
	payload := "5745544800000000000000000000000000000000000000000000000000000000"
	payload = payload[:64]
	data := "0x" + offset + length + payload
	got := DecodeSymbol(data)
	if got != "WETH" {
		t.Fatalf("got %q want WETH", got)
	}
}

func TestHexToInt64(t *testing.T) {
	if got := HexToInt64("0x2a"); got != 42 {
		t.Fatalf("got %d want 42", got)
	}
	if got := HexToInt64(""); got != 0 {
		t.Fatalf("got %d want 0", got)
	}
}
