package codec

import (
	"fmt"
	"sync/atomic"

	"github.com/redfire/gateway/internal/gwerrors"
)

// Transcoder converts media frames between a source and destination codec,
// realigning packet time and sample rate as needed. When the source and
// destination codec, sample rate, and frame time all match, Process takes
// the passthrough fast path and returns the input unmodified, per spec.md
// §4.D.
type Transcoder struct {
	src, dst *Codec
	inRing   *ring

	passthroughFrames atomic.Uint64
	transcodedFrames  atomic.Uint64
}

// NewTranscoder builds a Transcoder from src to dst. Returns
// gwerrors-compatible errors (via gwerrors.ErrCodecUnavailable, checked by the
// caller with errors.Is) if either codec lacks a working encode/decode
// pair, except when src == dst, in which case passthrough needs neither.
func NewTranscoder(src, dst *Codec) (*Transcoder, error) {
	if src == nil || dst == nil {
		return nil, fmt.Errorf("codec: NewTranscoder: nil codec")
	}
	if src.Name != dst.Name {
		if !src.Available() {
			return nil, fmt.Errorf("codec: %w: %s", gwerrors.ErrCodecUnavailable, src.Name)
		}
		if !dst.Available() {
			return nil, fmt.Errorf("codec: %w: %s", gwerrors.ErrCodecUnavailable, dst.Name)
		}
	}
	return &Transcoder{src: src, dst: dst, inRing: newRing()}, nil
}

// Passthrough reports whether Process is a byte-identical no-op for this
// pairing: same codec, same sample rate, same frame time.
func (t *Transcoder) Passthrough() bool {
	return t.src.Name == t.dst.Name && t.src.SampleRate == t.dst.SampleRate && t.src.FrameTimeMS == t.dst.FrameTimeMS
}

// Process converts one encoded frame from the source codec's wire format
// to the destination codec's wire format. When frame times differ, Process
// buffers decoded samples in an internal ring and may return a shorter or
// empty frame until enough samples have accumulated for a full destination
// frame; callers should keep calling Process with subsequent input frames
// until frames start flowing.
func (t *Transcoder) Process(frame []byte) ([]byte, error) {
	if t.Passthrough() {
		t.passthroughFrames.Add(1)
		return frame, nil
	}
	t.transcodedFrames.Add(1)

	pcm, err := t.src.Decode(frame)
	if err != nil {
		return nil, fmt.Errorf("codec: decode %s: %w", t.src.Name, err)
	}

	if t.src.SampleRate != t.dst.SampleRate {
		pcm = Resample(pcm, t.src.SampleRate, t.dst.SampleRate)
	}

	dstFrameSamples := t.dst.SampleRate * t.dst.FrameTimeMS / 1000
	if t.src.FrameTimeMS == t.dst.FrameTimeMS {
		return t.dst.Encode(pcm)
	}

	t.inRing.Push(pcm)
	out, ok := t.inRing.TakeFrame(dstFrameSamples)
	if !ok {
		return nil, nil
	}
	return t.dst.Encode(out)
}

// Counts returns the cumulative passthrough and transcoded frame counts,
// for the transcoder_passthrough/transcoded_frames_total metrics.
func (t *Transcoder) Counts() (passthrough, transcoded uint64) {
	return t.passthroughFrames.Load(), t.transcodedFrames.Load()
}
