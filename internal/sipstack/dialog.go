// Package sipstack wraps sipgo's transaction/dialog layer into the Leg
// dialog lifecycle spec.md §4.E and §4.F describe: a Dialog carries either
// role (UAS for the inbound leg, UAC for the outbound leg) through Trying
// -> Ringing -> Answered -> Terminated, exposing just the operations the
// B2BUA call engine needs (send provisional, answer, BYE, CANCEL).
package sipstack

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"
)

// Direction mirrors which end of the INVITE transaction this Dialog is.
type Direction int

const (
	DirectionInbound Direction = iota
	DirectionOutbound
)

func (d Direction) String() string {
	if d == DirectionOutbound {
		return "outbound"
	}
	return "inbound"
}

// Dialog is one signaling leg of a Call: a SIP dialog with its state
// machine, the request/response pair that established it, and enough
// identity (tags, Call-ID, remote contact) to build in-dialog requests.
type Dialog struct {
	mu sync.RWMutex

	CallID    string
	LocalTag  string
	RemoteTag string
	Direction Direction

	state          DialogState
	createdAt      time.Time
	stateChangedAt time.Time

	// UAS fields: populated when Direction == DirectionInbound.
	serverTx      sip.ServerTransaction
	serverSession *sipgo.DialogServerSession

	// UAC fields: populated when Direction == DirectionOutbound.
	clientTx sip.ClientTransaction

	InviteRequest  *sip.Request
	InviteResponse *sip.Response

	remoteContactURI string
	localCSeq        atomic.Uint32
	reInviteActive   atomic.Bool
	acked            atomic.Bool

	TerminateReason TerminateReason

	ctx    context.Context
	cancel context.CancelFunc
}

// NewInboundDialog wraps an incoming INVITE server transaction.
func NewInboundDialog(req *sip.Request, tx sip.ServerTransaction) *Dialog {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dialog{
		CallID:        callIDOf(req),
		RemoteTag:     tagOf(req.From()),
		Direction:     DirectionInbound,
		state:         StateTrying,
		InviteRequest: req,
		serverTx:      tx,
		ctx:           ctx,
		cancel:        cancel,
	}
	now := time.Now()
	d.createdAt, d.stateChangedAt = now, now
	if cseq := req.CSeq(); cseq != nil {
		d.localCSeq.Store(cseq.SeqNo)
	}
	return d
}

// NewOutboundDialog wraps an INVITE request this process sent, ahead of
// receiving any response. The client transaction is attached once sent.
func NewOutboundDialog(req *sip.Request, tx sip.ClientTransaction) *Dialog {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dialog{
		CallID:        callIDOf(req),
		LocalTag:      tagOf(req.From()),
		Direction:     DirectionOutbound,
		state:         StateTrying,
		InviteRequest: req,
		clientTx:      tx,
		ctx:           ctx,
		cancel:        cancel,
	}
	now := time.Now()
	d.createdAt, d.stateChangedAt = now, now
	if cseq := req.CSeq(); cseq != nil {
		d.localCSeq.Store(cseq.SeqNo)
	}
	return d
}

func callIDOf(req *sip.Request) string {
	if req == nil || req.CallID() == nil {
		return ""
	}
	return req.CallID().String()
}

func tagOf(h *sip.FromHeader) string {
	if h == nil {
		return ""
	}
	if tag, ok := h.Params.Get("tag"); ok {
		return tag
	}
	return ""
}

// State returns the current dialog state.
func (d *Dialog) State() DialogState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// transitionTo moves the dialog to newState, returning a
// *gwerrors.StateTransitionError-shaped error (via fmt here; the b2bua
// package wraps it when it needs the typed form) if the move is illegal.
func (d *Dialog) transitionTo(newState DialogState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.state.CanTransitionTo(newState) {
		return fmt.Errorf("sipstack: dialog %s: invalid transition %s -> %s", d.CallID, d.state, newState)
	}
	d.state = newState
	d.stateChangedAt = time.Now()
	return nil
}

// RecordProvisional transitions an inbound or outbound dialog to Ringing
// on receipt or transmission of a 1xx (other than 100 Trying, which stays
// in Trying per spec.md's Leg A\Leg B join table).
func (d *Dialog) RecordProvisional() error {
	return d.transitionTo(StateRinging)
}

// RecordAnswered transitions to Answered on 2xx.
func (d *Dialog) RecordAnswered(resp *sip.Response) error {
	d.mu.Lock()
	d.InviteResponse = resp
	if d.Direction == DirectionInbound {
		if to := resp.To(); to != nil {
			if tag, ok := to.Params.Get("tag"); ok {
				d.LocalTag = tag
			}
		}
	} else {
		if to := resp.To(); to != nil {
			if tag, ok := to.Params.Get("tag"); ok {
				d.RemoteTag = tag
			}
		}
		if contact := resp.Contact(); contact != nil {
			d.remoteContactURI = contact.Address.String()
		}
	}
	d.mu.Unlock()
	return d.transitionTo(StateAnswered)
}

// RecordFailed transitions to Failed, recording why.
func (d *Dialog) RecordFailed(reason TerminateReason) error {
	d.mu.Lock()
	d.TerminateReason = reason
	d.mu.Unlock()
	return d.transitionTo(StateFailed)
}

// RecordTerminated transitions to Terminated, recording why.
func (d *Dialog) RecordTerminated(reason TerminateReason) error {
	d.mu.Lock()
	d.TerminateReason = reason
	d.mu.Unlock()
	return d.transitionTo(StateTerminated)
}

// SetServerSession attaches the sipgo dialog session created after sending
// the 200 OK on an inbound leg.
func (d *Dialog) SetServerSession(s *sipgo.DialogServerSession) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.serverSession = s
}

// ServerTransaction returns the inbound leg's server transaction, or nil
// for an outbound dialog.
func (d *Dialog) ServerTransaction() sip.ServerTransaction {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.serverTx
}

// ServerSession returns the sipgo dialog session, if established.
func (d *Dialog) ServerSession() *sipgo.DialogServerSession {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.serverSession
}

// Context returns the dialog's lifetime context; cancelled on teardown.
func (d *Dialog) Context() context.Context {
	return d.ctx
}

// Cancel cancels the dialog's lifetime context, signalling associated
// media and timers to stop.
func (d *Dialog) Cancel() {
	d.cancel()
}

// NextCSeq atomically returns the next CSeq number for an in-dialog
// request this side originates (BYE, re-INVITE).
func (d *Dialog) NextCSeq() uint32 {
	return d.localCSeq.Add(1)
}

// BeginReINVITE marks a re-INVITE in progress, returning false if one is
// already outstanding (spec.md Open Question: mid-call re-INVITE is
// serialized per dialog, never pipelined).
func (d *Dialog) BeginReINVITE() bool {
	return d.reInviteActive.CompareAndSwap(false, true)
}

// EndReINVITE clears the in-progress marker.
func (d *Dialog) EndReINVITE() {
	d.reInviteActive.Store(false)
}

// MarkACKed records that the initial INVITE transaction's ACK arrived.
func (d *Dialog) MarkACKed() {
	d.acked.Store(true)
}

// ACKed reports whether the initial ACK has arrived.
func (d *Dialog) ACKed() bool {
	return d.acked.Load()
}

// BuildBYE constructs a BYE for this dialog's current state, following
// RFC 3261 §12.2.1.1: From/To/Call-ID carried over, CSeq incremented,
// direction determines which side's tag goes in From vs To.
func (d *Dialog) BuildBYE(localContact sip.Uri) (*sip.Request, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buildInDialogRequest(sip.BYE, localContact, nil)
}

// BuildReINVITE constructs a re-INVITE carrying a new SDP offer.
func (d *Dialog) BuildReINVITE(localContact sip.Uri, sdpBody []byte) (*sip.Request, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	req, err := d.buildInDialogRequest(sip.INVITE, localContact, sdpBody)
	return req, err
}

func (d *Dialog) buildInDialogRequest(method sip.RequestMethod, localContact sip.Uri, sdpBody []byte) (*sip.Request, error) {
	if d.InviteRequest == nil {
		return nil, fmt.Errorf("sipstack: dialog %s: no INVITE to build %s from", d.CallID, method)
	}

	recipient, err := d.requestURI()
	if err != nil {
		return nil, err
	}

	req := sip.NewRequest(method, recipient)
	if len(d.InviteRequest.GetHeaders("Route")) > 0 {
		sip.CopyHeaders("Route", d.InviteRequest, req)
	}

	fromAddr, toAddr, fromTag, toTag := d.dialogIdentity()
	req.AppendHeader(&sip.FromHeader{Address: fromAddr, Params: tagParams(fromTag)})
	req.AppendHeader(&sip.ToHeader{Address: toAddr, Params: tagParams(toTag)})

	if callIDHdr := d.InviteRequest.CallID(); callIDHdr != nil {
		req.AppendHeader(callIDHdr)
	}
	req.AppendHeader(&sip.CSeqHeader{SeqNo: d.localCSeq.Add(1), MethodName: method})
	maxFwd := sip.MaxForwardsHeader(70)
	req.AppendHeader(&maxFwd)
	req.AppendHeader(&sip.ContactHeader{Address: localContact})

	if len(sdpBody) > 0 {
		req.SetBody(sdpBody)
		req.AppendHeader(sip.NewHeader("Content-Type", "application/sdp"))
	}
	return req, nil
}

// BuildINFO constructs a mid-dialog INFO request carrying body, used to
// relay a DTMF digit to a leg that negotiated SIP INFO instead of RFC 2833
// (spec.md §4.E/§4.G: digits never cross the audio transcode path).
func (d *Dialog) BuildINFO(localContact sip.Uri, body []byte) (*sip.Request, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	req, err := d.buildInDialogRequest(sip.INFO, localContact, nil)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		req.SetBody(body)
		req.AppendHeader(sip.NewHeader("Content-Type", "application/dtmf-relay"))
	}
	return req, nil
}

func tagParams(tag string) sip.HeaderParams {
	p := sip.NewParams()
	if tag != "" {
		p.Add("tag", tag)
	}
	return p
}

// dialogIdentity returns (fromAddr, toAddr, fromTag, toTag) for building
// an in-dialog request, swapped appropriately for inbound vs outbound.
func (d *Dialog) dialogIdentity() (fromAddr, toAddr sip.Uri, fromTag, toTag string) {
	if d.Direction == DirectionOutbound {
		if from := d.InviteRequest.From(); from != nil {
			fromAddr = from.Address
		}
		if to := d.InviteRequest.To(); to != nil {
			toAddr = to.Address
		}
		return fromAddr, toAddr, d.LocalTag, d.RemoteTag
	}
	// Inbound: our identity was the To of our INVITE response; theirs was
	// the From of the INVITE we received.
	if d.InviteResponse != nil {
		if to := d.InviteResponse.To(); to != nil {
			fromAddr = to.Address
		}
	}
	if from := d.InviteRequest.From(); from != nil {
		toAddr = from.Address
	}
	return fromAddr, toAddr, d.LocalTag, d.RemoteTag
}

func (d *Dialog) requestURI() (sip.Uri, error) {
	if d.Direction == DirectionOutbound {
		if d.remoteContactURI != "" {
			var u sip.Uri
			if err := sip.ParseUri(d.remoteContactURI, &u); err != nil {
				return sip.Uri{}, fmt.Errorf("sipstack: parse remote contact: %w", err)
			}
			return u, nil
		}
		if d.InviteResponse != nil && d.InviteResponse.Contact() != nil {
			return d.InviteResponse.Contact().Address, nil
		}
		if to := d.InviteRequest.To(); to != nil {
			return to.Address, nil
		}
	} else {
		if contact := d.InviteRequest.Contact(); contact != nil {
			return contact.Address, nil
		}
		if from := d.InviteRequest.From(); from != nil {
			return from.Address, nil
		}
	}
	return sip.Uri{}, fmt.Errorf("sipstack: dialog %s: no request-URI available", d.CallID)
}
