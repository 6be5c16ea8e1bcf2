package b2bua

import (
	"sync"

	"github.com/redfire/gateway/internal/codec"
	"github.com/redfire/gateway/internal/mediarelay"
	"github.com/redfire/gateway/internal/sipstack"
)

// Transport identifies the signaling/media transport of one Leg, per
// spec.md §4's Leg attributes.
type Transport int

const (
	TransportSipUDP Transport = iota
	TransportSipTCP
	TransportSipTLS
	TransportTDM
)

// DTMFMethod is the negotiated telephone-event carriage on this leg.
type DTMFMethod int

const (
	DTMFRfc2833 DTMFMethod = iota
	DTMFSipInfo
	DTMFInband
)

func (m DTMFMethod) String() string {
	switch m {
	case DTMFRfc2833:
		return "rfc2833"
	case DTMFSipInfo:
		return "sip-info"
	case DTMFInband:
		return "inband"
	default:
		return "unknown"
	}
}

// TDMAddress identifies a TDM channel for a TDM-transport Leg.
type TDMAddress struct {
	Span    string
	Channel int
}

// Direction mirrors sipstack.Direction for SIP-transport legs; TDM legs
// are always the Inbound or Outbound end of the bridge depending on call
// direction, recorded the same way.
type Direction = sipstack.Direction

const (
	DirectionInbound  = sipstack.DirectionInbound
	DirectionOutbound = sipstack.DirectionOutbound
)

// Leg is one call party's signaling and media state, per spec.md §4's
// Leg type: identity, direction, transport, dialog state, negotiated
// codec list, chosen codec, DTMF method, and a live MediaEndpoint. A Leg
// has at most one active dialog and at most one live MediaEndpoint.
type Leg struct {
	mu sync.RWMutex

	ID        string
	Direction Direction
	Transport Transport

	Dialog     *sipstack.Dialog // nil for a TDM-transport leg
	TDM        *TDMAddress      // nil for a SIP-transport leg
	tdmState   sipstack.DialogState

	NegotiatedCodecs []codec.Name
	ChosenCodec      codec.Name
	DTMF             DTMFMethod

	endpoint mediarelay.MediaEndpoint
}

// NewSIPLeg creates a Leg backed by a SIP dialog.
func NewSIPLeg(id string, direction Direction, transport Transport, dialog *sipstack.Dialog) *Leg {
	return &Leg{ID: id, Direction: direction, Transport: transport, Dialog: dialog, DTMF: DTMFRfc2833}
}

// NewTDMLeg creates a Leg backed by a TDM channel, with no SIP dialog.
func NewTDMLeg(id string, direction Direction, addr TDMAddress) *Leg {
	return &Leg{ID: id, Direction: direction, Transport: TransportTDM, TDM: &addr, DTMF: DTMFInband, tdmState: sipstack.StateTrying}
}

// SetTDMAnswered records that channel-associated signaling confirmed
// connect on a TDM leg.
func (l *Leg) SetTDMAnswered() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tdmState = sipstack.StateAnswered
}

// SetTDMTerminated records that the TDM channel was released.
func (l *Leg) SetTDMTerminated() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tdmState = sipstack.StateTerminated
}

// DialogState returns the underlying dialog's state, or for a TDM leg the
// state recorded by the TDM setters: StateTrying until SetTDMAnswered is
// called (the TDM line-signaling component calls it once the far end
// confirms connect), StateTerminated after SetTDMTerminated.
func (l *Leg) DialogState() sipstack.DialogState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.Dialog != nil {
		return l.Dialog.State()
	}
	return l.tdmState
}

// SetEndpoint installs this leg's live media endpoint. At most one may be
// live at a time, per spec.md's Leg invariant; installing a new one
// replaces (and the caller is responsible for closing) any prior one.
func (l *Leg) SetEndpoint(e mediarelay.MediaEndpoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.endpoint = e
}

// Endpoint returns the live media endpoint, or nil.
func (l *Leg) Endpoint() mediarelay.MediaEndpoint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.endpoint
}

// SetNegotiated records the codec list and chosen codec after SDP
// offer/answer completes on this leg.
func (l *Leg) SetNegotiated(offered []codec.Name, chosen codec.Name) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.NegotiatedCodecs = offered
	l.ChosenCodec = chosen
}
