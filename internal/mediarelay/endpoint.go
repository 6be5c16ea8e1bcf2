// Package mediarelay implements the Media Relay Plane (spec.md §4.G): once
// both legs of a call are answered, a Relay bridges their media endpoints
// through the codec transcoder, with a DTMFBridge translating telephone
// events between the legs' negotiated DTMF methods. Generalizes the
// teacher's session-level UDP bridge (rtpmanager/bridge/bridge.go) from
// raw-byte forwarding to a codec- and DTMF-aware relay.
package mediarelay

import "github.com/redfire/gateway/internal/rtpengine"

// MediaEndpoint is one side of a relay: something that can send encoded
// audio and DTMF events and deliver received ones via callback. Both
// *rtpengine.Endpoint and *TDMEndpoint satisfy this.
type MediaEndpoint interface {
	Send(payload []byte) error
	SendDTMF(ev rtpengine.DTMFEvent) error
	ReadLoop(onMedia func(rtpengine.Packet), onDTMF func(rtpengine.DTMFEvent)) error
	Close() error
}

var _ MediaEndpoint = (*rtpengine.Endpoint)(nil)
