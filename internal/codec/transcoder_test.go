package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/redfire/gateway/internal/gwerrors"
)

func TestTranscoderPassthroughReturnsInputUnmodified(t *testing.T) {
	r := NewRegistry()
	pcmu, _ := r.Get(PCMU)
	tc, err := NewTranscoder(pcmu, pcmu)
	if err != nil {
		t.Fatalf("NewTranscoder() error = %v", err)
	}
	if !tc.Passthrough() {
		t.Fatalf("Passthrough() = false, want true for identical codec pairing")
	}

	frame := []byte{0x01, 0x02, 0x03, 0xFF}
	out, err := tc.Process(frame)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !bytes.Equal(out, frame) {
		t.Errorf("Process() = %v, want byte-identical %v", out, frame)
	}
}

func TestTranscoderPCMUToPCMATranscodes(t *testing.T) {
	r := NewRegistry()
	pcmu, _ := r.Get(PCMU)
	pcma, _ := r.Get(PCMA)
	tc, err := NewTranscoder(pcmu, pcma)
	if err != nil {
		t.Fatalf("NewTranscoder() error = %v", err)
	}
	if tc.Passthrough() {
		t.Fatalf("Passthrough() = true, want false for different codecs")
	}

	ulawFrame, _ := encodePCMU([]int16{100, 200, 300, -100, -200})
	out, err := tc.Process(ulawFrame)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != len(ulawFrame) {
		t.Errorf("transcoded frame length = %d, want %d (same sample rate, same frame time)", len(out), len(ulawFrame))
	}
}

func TestNewTranscoderRejectsUnavailableCodec(t *testing.T) {
	r := NewRegistry()
	pcmu, _ := r.Get(PCMU)
	opus, _ := r.Get(Opus)
	_, err := NewTranscoder(pcmu, opus)
	if !errors.Is(err, gwerrors.ErrCodecUnavailable) {
		t.Errorf("NewTranscoder(PCMU, Opus) error = %v, want ErrCodecUnavailable", err)
	}
}

func TestTranscoderDifferentFrameTimesBuffersUntilFull(t *testing.T) {
	r := NewRegistry()
	pcmu, _ := r.Get(PCMU)
	// A synthetic destination codec with double the frame time so the
	// ring buffer must accumulate two source frames before emitting one.
	slowL16 := &Codec{Name: "test-l16-40ms", PayloadType: -1, SampleRate: 8000, Channels: 1, FrameTimeMS: 40, Encode: encodeL16, Decode: decodeL16}
	tc, err := NewTranscoder(pcmu, slowL16)
	if err != nil {
		t.Fatalf("NewTranscoder() error = %v", err)
	}

	samplesPerFrame := 160 // 20ms @ 8kHz
	pcm := make([]int16, samplesPerFrame)
	for i := range pcm {
		pcm[i] = int16(i)
	}
	frame, _ := encodePCMU(pcm)

	out1, err := tc.Process(frame)
	if err != nil {
		t.Fatalf("Process() first call error = %v", err)
	}
	if out1 != nil {
		t.Errorf("Process() first call = %v, want nil (not enough buffered yet)", out1)
	}

	out2, err := tc.Process(frame)
	if err != nil {
		t.Fatalf("Process() second call error = %v", err)
	}
	if out2 == nil {
		t.Fatalf("Process() second call = nil, want a full 40ms frame")
	}
	if len(out2) != samplesPerFrame*2*2 {
		t.Errorf("emitted frame length = %d, want %d (320 samples * 2 bytes)", len(out2), samplesPerFrame*2*2)
	}
}
