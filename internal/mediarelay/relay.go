package mediarelay

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/redfire/gateway/internal/codec"
	"github.com/redfire/gateway/internal/rtpengine"
)

// Stats is a snapshot of one relay's packet/byte counters, handed to the
// CDR at teardown (spec.md §4.G).
type Stats struct {
	PacketsAtoB uint64
	PacketsBtoA uint64
	BytesAtoB   uint64
	BytesBtoA   uint64
}

// Relay bridges two MediaEndpoints through a codec Transcoder once both
// legs of a call are answered (spec.md §4.G). Packets from A are forwarded
// to B and vice versa with at most one packet's worth of buffering beyond
// each endpoint's own jitter buffer; ordering is preserved within a
// direction, not guaranteed across directions. Teardown is idempotent and
// safe to call from either direction.
type Relay struct {
	id string

	a, b MediaEndpoint
	aToB *codec.Transcoder
	bToA *codec.Transcoder
	dtmf *DTMFBridge

	packetsAtoB atomic.Uint64
	packetsBtoA atomic.Uint64
	bytesAtoB   atomic.Uint64
	bytesBtoA   atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

// New builds a Relay between a and b, transcoding codecA<->codecB as
// needed, and starts its forwarding goroutines.
func New(id string, a, b MediaEndpoint, codecA, codecB *codec.Codec, dtmf *DTMFBridge) (*Relay, error) {
	aToB, err := codec.NewTranscoder(codecA, codecB)
	if err != nil {
		return nil, fmt.Errorf("mediarelay: build A->B transcoder: %w", err)
	}
	bToA, err := codec.NewTranscoder(codecB, codecA)
	if err != nil {
		return nil, fmt.Errorf("mediarelay: build B->A transcoder: %w", err)
	}

	r := &Relay{
		id:   id,
		a:    a,
		b:    b,
		aToB: aToB,
		bToA: bToA,
		dtmf: dtmf,
		done: make(chan struct{}),
	}
	go r.pump(a, b, aToB, &r.packetsAtoB, &r.bytesAtoB, r.relayDTMFFromA)
	go r.pump(b, a, bToA, &r.packetsBtoA, &r.bytesBtoA, r.relayDTMFFromB)
	return r, nil
}

func (r *Relay) pump(src, dst MediaEndpoint, tc *codec.Transcoder, packets, bytes *atomic.Uint64, onDTMF func(rtpengine.DTMFEvent)) {
	err := src.ReadLoop(func(p rtpengine.Packet) {
		out, err := tc.Process(p.Payload)
		if err != nil {
			slog.Warn("[MediaRelay] transcode error", "relay_id", r.id, "error", err)
			return
		}
		if err := dst.Send(out); err != nil {
			slog.Warn("[MediaRelay] forward error", "relay_id", r.id, "error", err)
			return
		}
		packets.Add(1)
		bytes.Add(uint64(len(out)))
	}, onDTMF)
	if err != nil {
		slog.Debug("[MediaRelay] read loop ended", "relay_id", r.id, "error", err)
	}
}

func (r *Relay) relayDTMFFromA(ev rtpengine.DTMFEvent) {
	if r.dtmf == nil {
		return
	}
	if err := r.dtmf.FromA(ev); err != nil {
		slog.Warn("[MediaRelay] dtmf relay A->B failed", "relay_id", r.id, "error", err)
	}
}

func (r *Relay) relayDTMFFromB(ev rtpengine.DTMFEvent) {
	if r.dtmf == nil {
		return
	}
	if err := r.dtmf.FromB(ev); err != nil {
		slog.Warn("[MediaRelay] dtmf relay B->A failed", "relay_id", r.id, "error", err)
	}
}

// Stats returns the current packet/byte counters.
func (r *Relay) Stats() Stats {
	return Stats{
		PacketsAtoB: r.packetsAtoB.Load(),
		PacketsBtoA: r.packetsBtoA.Load(),
		BytesAtoB:   r.bytesAtoB.Load(),
		BytesBtoA:   r.bytesBtoA.Load(),
	}
}

// Close tears down both endpoints. Idempotent and safe from either
// direction (spec.md §4.G).
func (r *Relay) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if cerr := r.a.Close(); cerr != nil {
			err = cerr
		}
		if cerr := r.b.Close(); cerr != nil && err == nil {
			err = cerr
		}
		close(r.done)
		slog.Info("[MediaRelay] closed", "relay_id", r.id, "stats", r.Stats())
	})
	return err
}

// Done returns a channel closed once both endpoints have been closed.
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

// CodecCounts returns the cumulative passthrough and transcoded frame
// counts across both directions, for internal/metrics' transcoder gauges.
func (r *Relay) CodecCounts() (passthrough, transcoded uint64) {
	p1, t1 := r.aToB.Counts()
	p2, t2 := r.bToA.Counts()
	return p1 + p2, t1 + t2
}
