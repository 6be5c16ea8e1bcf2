// Package codec implements the Codec/Transcoder Pipeline (spec.md §4.D): a
// registry of codec descriptors, a Transcoder with a passthrough fast path,
// and packet-time/sample-rate conversion between a call's two legs.
package codec

import (
	"fmt"
	"log/slog"
)

// Name identifies a codec by its SDP rtpmap token.
type Name string

const (
	PCMU           Name = "PCMU"
	PCMA           Name = "PCMA"
	G722           Name = "G722"
	G729           Name = "G729"
	Opus           Name = "opus"
	Speex          Name = "speex"
	TelephoneEvent Name = "telephone-event"
	L16            Name = "L16"
)

// Codec describes one registered codec's static properties and its
// encode/decode pair. Decode always yields signed 16-bit linear PCM;
// Encode always consumes it. A codec with nil Encode/Decode is a
// registered-but-unavailable stub (spec.md §4.D Non-goals).
type Codec struct {
	Name         Name
	PayloadType  int // static RTP payload type, -1 if dynamic
	SampleRate   int
	Channels     int
	FrameTimeMS  int
	Encode       func(pcm []int16) ([]byte, error)
	Decode       func(payload []byte) ([]int16, error)
}

// Available reports whether this codec has working encode/decode, as
// opposed to being a registered placeholder for a codec family the core
// does not implement (G722, G729, Opus, Speex).
func (c *Codec) Available() bool {
	return c.Encode != nil && c.Decode != nil
}

// Registry holds the set of codecs a gateway instance negotiates with.
// Following the teacher's CodecManager, lookups are by name or payload
// type; unlike the teacher (PCMU only) this registry is populated with
// every codec family spec.md §4.D names.
type Registry struct {
	byName map[Name]*Codec
}

// NewRegistry builds a registry with PCMU/PCMA (backed by working G.711
// codecs), a working L16 (raw 16-bit PCM), TelephoneEvent (RFC 4733,
// carried as raw passthrough), and stub entries for G722/G729/Opus/Speex.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[Name]*Codec)}

	r.Register(&Codec{Name: PCMU, PayloadType: 0, SampleRate: 8000, Channels: 1, FrameTimeMS: 20, Encode: encodePCMU, Decode: decodePCMU})
	r.Register(&Codec{Name: PCMA, PayloadType: 8, SampleRate: 8000, Channels: 1, FrameTimeMS: 20, Encode: encodePCMA, Decode: decodePCMA})
	r.Register(&Codec{Name: L16, PayloadType: 11, SampleRate: 8000, Channels: 1, FrameTimeMS: 20, Encode: encodeL16, Decode: decodeL16})
	r.Register(&Codec{Name: TelephoneEvent, PayloadType: 101, SampleRate: 8000, Channels: 1})

	r.Register(&Codec{Name: G722, PayloadType: 9, SampleRate: 16000, Channels: 1, FrameTimeMS: 20})
	r.Register(&Codec{Name: G729, PayloadType: 18, SampleRate: 8000, Channels: 1, FrameTimeMS: 20})
	r.Register(&Codec{Name: Opus, PayloadType: -1, SampleRate: 48000, Channels: 2, FrameTimeMS: 20})
	r.Register(&Codec{Name: Speex, PayloadType: -1, SampleRate: 16000, Channels: 1, FrameTimeMS: 20})

	return r
}

// Register adds or replaces a codec entry.
func (r *Registry) Register(c *Codec) {
	r.byName[c.Name] = c
	slog.Debug("[Codec] registered", "name", c.Name, "pt", c.PayloadType, "sr", c.SampleRate, "available", c.Available())
}

// Get looks up a codec by name.
func (r *Registry) Get(name Name) (*Codec, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
	return c, nil
}

// ByPayloadType looks up a codec by its static RTP payload type.
func (r *Registry) ByPayloadType(pt int) (*Codec, error) {
	for _, c := range r.byName {
		if c.PayloadType == pt {
			return c, nil
		}
	}
	return nil, fmt.Errorf("codec: no codec registered for payload type %d", pt)
}

// Intersect returns the subset of `offered` names this registry has
// registered, in the order offered, for SDP offer/answer codec-list
// intersection.
func (r *Registry) Intersect(offered []Name) []Name {
	var out []Name
	for _, n := range offered {
		if _, ok := r.byName[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Names returns every registered codec name, in registration order is not
// guaranteed (map iteration); callers needing a stable SDP m= line order
// should maintain their own preference list and filter through Intersect.
func (r *Registry) Names() []Name {
	names := make([]Name, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	return names
}
