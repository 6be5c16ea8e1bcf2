package codec

import "testing"

func TestResampleSameRateIsNoOp(t *testing.T) {
	in := []int16{1, 2, 3, 4}
	out := Resample(in, 8000, 8000)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestResampleUpsamplingDoublesLength(t *testing.T) {
	in := make([]int16, 160) // 20ms @ 8kHz
	out := Resample(in, 8000, 16000)
	want := 320
	if len(out) != want {
		t.Errorf("len = %d, want %d", len(out), want)
	}
}

func TestResampleDownsamplingHalvesLength(t *testing.T) {
	in := make([]int16, 320) // 20ms @ 16kHz
	out := Resample(in, 16000, 8000)
	want := 160
	if len(out) != want {
		t.Errorf("len = %d, want %d", len(out), want)
	}
}

func TestResampleEmptyInput(t *testing.T) {
	out := Resample(nil, 8000, 16000)
	if len(out) != 0 {
		t.Errorf("len = %d, want 0 for empty input", len(out))
	}
}

func TestResampleConstantSignalStaysConstant(t *testing.T) {
	in := make([]int16, 100)
	for i := range in {
		in[i] = 500
	}
	out := Resample(in, 8000, 48000)
	for i, v := range out {
		if v != 500 {
			t.Fatalf("out[%d] = %d, want 500 (constant signal should resample flat)", i, v)
		}
	}
}
