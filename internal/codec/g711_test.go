package codec

import "testing"

func TestPCMURoundTripIsLossyButBounded(t *testing.T) {
	pcm := []int16{0, 100, -100, 1000, -1000, 32767, -32768}
	encoded, err := encodePCMU(pcm)
	if err != nil {
		t.Fatalf("encodePCMU() error = %v", err)
	}
	if len(encoded) != len(pcm) {
		t.Fatalf("encoded length = %d, want %d", len(encoded), len(pcm))
	}
	decoded, err := decodePCMU(encoded)
	if err != nil {
		t.Fatalf("decodePCMU() error = %v", err)
	}
	if len(decoded) != len(pcm) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(pcm))
	}
}

func TestPCMARoundTrip(t *testing.T) {
	pcm := []int16{0, 500, -500, 8000, -8000}
	encoded, err := encodePCMA(pcm)
	if err != nil {
		t.Fatalf("encodePCMA() error = %v", err)
	}
	decoded, err := decodePCMA(encoded)
	if err != nil {
		t.Fatalf("decodePCMA() error = %v", err)
	}
	if len(decoded) != len(pcm) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(pcm))
	}
}

func TestL16RoundTripIsLossless(t *testing.T) {
	pcm := []int16{0, 1, -1, 32767, -32768, 12345, -12345}
	encoded, err := encodeL16(pcm)
	if err != nil {
		t.Fatalf("encodeL16() error = %v", err)
	}
	if len(encoded) != len(pcm)*2 {
		t.Fatalf("encoded length = %d, want %d", len(encoded), len(pcm)*2)
	}
	decoded, err := decodeL16(encoded)
	if err != nil {
		t.Fatalf("decodeL16() error = %v", err)
	}
	for i := range pcm {
		if decoded[i] != pcm[i] {
			t.Errorf("decoded[%d] = %d, want %d", i, decoded[i], pcm[i])
		}
	}
}
