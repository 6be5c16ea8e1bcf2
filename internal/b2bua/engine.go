package b2bua

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net"
	"time"

	"github.com/emiago/sipgo/sip"
	"github.com/google/uuid"

	"github.com/redfire/gateway/internal/codec"
	"github.com/redfire/gateway/internal/config"
	"github.com/redfire/gateway/internal/events"
	"github.com/redfire/gateway/internal/gwerrors"
	"github.com/redfire/gateway/internal/mediarelay"
	"github.com/redfire/gateway/internal/rtpengine"
	"github.com/redfire/gateway/internal/sipstack"
	sdpbuilder "github.com/redfire/gateway/internal/sipstack/sdp"
	"github.com/redfire/gateway/internal/tdmoe"
)

// job is one unit of call-engine work, dispatched to the worker owning
// its call_id hash so a Call's state machine is touched by exactly one
// goroutine for its whole lifetime (spec.md's scheduling model).
type job struct {
	callID string
	fn     func()
}

// Engine is the B2BUA call engine: it owns the call table, the router,
// the worker pool, and the plumbing to originate Leg B and relay
// provisional/final responses between the two legs.
type Engine struct {
	calls   *callTable
	router  *Router
	manager *sipstack.Manager
	codecs  *codec.Registry
	config  *config.Store
	publisher events.Publisher

	workers   []chan job
	numWorker int

	localContact sip.Uri
	bindAddr     string // advertised media address for SDP

	tdmIO          tdmoe.FrameIO
	tdmPacketTimeMS int
}

// Options configures an Engine.
type Options struct {
	Manager      *sipstack.Manager
	Router       *Router
	Codecs       *codec.Registry
	Config       *config.Store
	Publisher    events.Publisher
	NumWorkers   int
	LocalContact sip.Uri
	BindAddr     string

	// TDM, if non-nil, lets the engine originate SIP legs for inbound
	// TDMoE circuit traffic (spec.md's TDM-to-SIP bridging direction).
	// Left nil for a SIP-only deployment.
	TDM             tdmoe.FrameIO
	TDMPacketTimeMS int
}

// NewEngine builds an Engine and starts its worker pool.
func NewEngine(opts Options) *Engine {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 8
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NewNoopPublisher()
	}
	if opts.TDMPacketTimeMS <= 0 {
		opts.TDMPacketTimeMS = 20
	}
	e := &Engine{
		calls:           newCallTable(),
		router:          opts.Router,
		manager:         opts.Manager,
		codecs:          opts.Codecs,
		config:          opts.Config,
		publisher:       opts.Publisher,
		numWorker:       opts.NumWorkers,
		localContact:    opts.LocalContact,
		bindAddr:        opts.BindAddr,
		tdmIO:           opts.TDM,
		tdmPacketTimeMS: opts.TDMPacketTimeMS,
	}
	e.workers = make([]chan job, e.numWorker)
	for i := range e.workers {
		e.workers[i] = make(chan job, 256)
		go e.runWorker(e.workers[i])
	}
	e.manager.SetOnTerminated(e.onLegTerminated)
	return e
}

func (e *Engine) runWorker(ch chan job) {
	for j := range ch {
		j.fn()
	}
}

func (e *Engine) dispatch(callID string, fn func()) {
	h := fnv.New32a()
	h.Write([]byte(callID))
	idx := int(h.Sum32()) % e.numWorker
	if idx < 0 {
		idx += e.numWorker
	}
	e.workers[idx] <- job{callID: callID, fn: fn}
}

// HandleInvite is the entry point for an inbound INVITE: it creates the
// Call with Leg A, sends 100 Trying, resolves a route, and originates
// Leg B, all on the call's own worker.
func (e *Engine) HandleInvite(req *sip.Request, tx sip.ServerTransaction) {
	dialogA, err := e.manager.AcceptInvite(req, tx)
	if err != nil {
		slog.Error("[B2BUA] accept INVITE failed", "error", err)
		return
	}
	callID := dialogA.CallID
	e.dispatch(callID, func() {
		e.handleInviteOnWorker(dialogA, req)
	})
}

func (e *Engine) handleInviteOnWorker(dialogA *sipstack.Dialog, req *sip.Request) {
	callID := dialogA.CallID
	legA := NewSIPLeg(uuid.NewString(), DirectionInbound, TransportSipUDP, dialogA)
	call := NewCall(callID, legA)

	if from := req.From(); from != nil {
		call.Caller = from.Address.User
	}
	if to := req.To(); to != nil {
		call.Callee = to.Address.User
	}
	e.calls.put(call)
	e.armDurationCap(call)

	if err := e.manager.SendTrying(dialogA); err != nil {
		slog.Error("[B2BUA] send 100 Trying failed", "call_id", callID, "error", err)
		return
	}

	offeredEndpoint, offeredCodecs, err := sdpbuilder.Parse(req.Body())
	if err != nil {
		e.fail(call, dialogA, sip.StatusCode(488), "Not Acceptable Here", gwerrors.ErrNegotiation)
		return
	}
	offeredNames := namesOf(offeredCodecs)
	available := e.codecs.Intersect(offeredNames)
	if len(available) == 0 {
		e.fail(call, dialogA, sip.StatusCode(488), "Not Acceptable Here", gwerrors.ErrNegotiation)
		return
	}
	legA.SetNegotiated(available, available[0])

	legACodec, err := e.codecs.Get(legA.ChosenCodec)
	if err != nil {
		e.fail(call, dialogA, sip.StatusCode(488), "Not Acceptable Here", gwerrors.ErrNegotiation)
		return
	}
	epA, err := e.newEndpointFor(legACodec)
	if err != nil {
		slog.Error("[B2BUA] bind leg A media endpoint failed", "call_id", callID, "error", err)
		e.fail(call, dialogA, sip.StatusCode(500), "Server Internal Error", gwerrors.ErrResourceExhausted)
		return
	}
	legA.SetEndpoint(epA)
	setRemoteFromSDP(epA, offeredEndpoint)

	resolution, err := e.router.Resolve(call.Callee)
	if err != nil {
		e.fail(call, dialogA, sip.StatusNotFound, "Not Found", gwerrors.ErrNotFound)
		return
	}
	call.RoutingDecision = resolution.Rule

	targetURI, err := targetToURI(resolution)
	if err != nil {
		e.fail(call, dialogA, sip.StatusCode(503), "Service Unavailable", gwerrors.ErrUnreachable)
		return
	}

	// Leg B's socket is bound ahead of the offer so the offer can advertise
	// its real port; its codec is provisional until the answer chooses one.
	// Not yet attached to legB (which doesn't exist until Originate returns),
	// so failures up to that point must close it explicitly.
	epB, err := e.newEndpointFor(legACodec)
	if err != nil {
		slog.Error("[B2BUA] bind leg B media endpoint failed", "call_id", callID, "error", err)
		e.fail(call, dialogA, sip.StatusCode(500), "Server Internal Error", gwerrors.ErrResourceExhausted)
		return
	}
	bOffer, err := e.buildOfferFor(available, endpointPort(epB))
	if err != nil {
		epB.Close()
		e.fail(call, dialogA, sip.StatusCode(488), "Not Acceptable Here", gwerrors.ErrNegotiation)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 32*time.Second)
	defer cancel()

	var fromURI sip.Uri
	if from := req.From(); from != nil {
		fromURI = from.Address
	}

	result, err := e.manager.Originate(ctx, fromURI, targetURI, bOffer, func(resp *sip.Response) {
		e.relayProvisional(dialogA, resp)
	})
	if err != nil || result == nil || !result.Accepted {
		epB.Close()
		e.failFromOriginate(call, dialogA, result, gwerrors.ErrUnreachable)
		return
	}

	legB := NewSIPLeg(uuid.NewString(), DirectionOutbound, TransportSipUDP, result.Dialog)
	legB.SetEndpoint(epB)
	call.AttachLegB(legB)
	e.calls.indexLegB(call)
	call.Recompute()

	answerEndpoint, answerCodecs, err := sdpbuilder.Parse(result.Response.Body())
	if err != nil || len(answerCodecs) == 0 {
		e.teardown(call, CauseNegotiationFailed)
		return
	}
	answerNames := namesOf(answerCodecs)
	legB.SetNegotiated(answerNames, answerNames[0])
	legBCodec, err := e.codecs.Get(legB.ChosenCodec)
	if err != nil {
		e.teardown(call, CauseNegotiationFailed)
		return
	}
	epB.SetPayloadType(uint8(legBCodec.PayloadType))
	setRemoteFromSDP(epB, answerEndpoint)

	aAnswer, err := e.buildOfferFor([]codec.Name{legA.ChosenCodec}, endpointPort(epA))
	if err != nil {
		e.fail(call, dialogA, sip.StatusCode(488), "Not Acceptable Here", gwerrors.ErrNegotiation)
		return
	}
	if err := e.manager.SendOK(dialogA, aAnswer); err != nil {
		slog.Error("[B2BUA] send 200 OK on leg A failed", "call_id", callID, "error", err)
		e.teardown(call, CauseInternalError)
		return
	}
	call.Recompute()

	dtmf := mediarelay.NewDTMFBridge(e.dtmfSideFor(legA), e.dtmfSideFor(legB))
	relay, err := mediarelay.New(call.ID, epA, epB, legACodec, legBCodec, dtmf)
	if err != nil {
		slog.Error("[B2BUA] media relay setup failed", "call_id", callID, "error", err)
		e.teardown(call, CauseNegotiationFailed)
		return
	}
	call.SetRelay(relay)

	slog.Info("[B2BUA] call established", "call_id", callID, "caller", call.Caller, "callee", call.Callee)
}

// HandleTDMSeizure is the entry point for an inbound TDM channel seizure
// (spec.md's TDM-to-SIP bridging direction): it creates the Call with a
// TDM-transport Leg A, resolves a route the same way an inbound INVITE
// does, and originates a SIP Leg B. A TDM leg has no SDP offer of its own,
// so Leg A's codec is whatever the deployment's TDM codec is configured
// as (the routing rule's target determines Leg B's codec through normal
// SIP negotiation).
func (e *Engine) HandleTDMSeizure(span string, channel int, spanIdx, packetTimeMS int, callerNumber, calledNumber string) {
	if e.tdmIO == nil {
		slog.Error("[B2BUA] TDM seizure with no FrameIO configured", "span", span, "channel", channel)
		return
	}
	callID := fmt.Sprintf("tdm-%s-%d-%s", span, channel, uuid.NewString())
	e.dispatch(callID, func() {
		e.handleTDMSeizureOnWorker(callID, span, channel, spanIdx, packetTimeMS, callerNumber, calledNumber)
	})
}

func (e *Engine) handleTDMSeizureOnWorker(callID, span string, channel, spanIdx, packetTimeMS int, callerNumber, calledNumber string) {
	legACodec, err := e.codecs.Get(e.tdmDefaultCodec())
	if err != nil {
		slog.Error("[B2BUA] TDM default codec unavailable", "call_id", callID, "error", err)
		return
	}

	legA := NewTDMLeg(uuid.NewString(), DirectionInbound, TDMAddress{Span: span, Channel: channel})
	legA.SetNegotiated([]codec.Name{legACodec.Name}, legACodec.Name)
	call := NewCall(callID, legA)
	call.Caller = callerNumber
	call.Callee = calledNumber
	e.calls.put(call)
	e.armDurationCap(call)

	epA := mediarelay.NewTDMEndpoint(e.tdmIO, spanIdx, channel, packetTimeMS)
	legA.SetEndpoint(epA)
	legA.SetTDMAnswered()

	failTDM := func(cause DisconnectCause) {
		call.StopDurationTimer()
		call.CloseRelay()
		call.MarkTerminated(cause)
		e.emitCDR(call)
		e.calls.delete(call.ID)
	}

	resolution, err := e.router.Resolve(calledNumber)
	if err != nil {
		failTDM(CauseNoRoute)
		return
	}
	call.RoutingDecision = resolution.Rule

	targetURI, err := targetToURI(resolution)
	if err != nil {
		failTDM(CauseUnreachable)
		return
	}

	epB, err := e.newEndpointFor(legACodec)
	if err != nil {
		failTDM(CauseInternalError)
		return
	}
	bOffer, err := e.buildOfferFor(e.codecs.Names(), endpointPort(epB))
	if err != nil {
		epB.Close()
		failTDM(CauseNegotiationFailed)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 32*time.Second)
	defer cancel()

	var fromURI sip.Uri
	_ = sip.ParseUri(fmt.Sprintf("sip:%s@%s", callerNumber, e.bindAddr), &fromURI)

	result, err := e.manager.Originate(ctx, fromURI, targetURI, bOffer, func(*sip.Response) {})
	if err != nil || result == nil || !result.Accepted {
		epB.Close()
		failTDM(causeForOriginate(result, CauseUnreachable))
		return
	}

	legB := NewSIPLeg(uuid.NewString(), DirectionOutbound, TransportSipUDP, result.Dialog)
	legB.SetEndpoint(epB)
	call.AttachLegB(legB)
	e.calls.indexLegB(call)
	call.Recompute()

	answerEndpoint, answerCodecs, err := sdpbuilder.Parse(result.Response.Body())
	if err != nil || len(answerCodecs) == 0 {
		e.teardown(call, CauseNegotiationFailed)
		return
	}
	answerNames := namesOf(answerCodecs)
	legB.SetNegotiated(answerNames, answerNames[0])
	legBCodec, err := e.codecs.Get(legB.ChosenCodec)
	if err != nil {
		e.teardown(call, CauseNegotiationFailed)
		return
	}
	epB.SetPayloadType(uint8(legBCodec.PayloadType))
	setRemoteFromSDP(epB, answerEndpoint)
	call.Recompute()

	dtmf := mediarelay.NewDTMFBridge(e.dtmfSideFor(legA), e.dtmfSideFor(legB))
	relay, err := mediarelay.New(call.ID, epA, epB, legACodec, legBCodec, dtmf)
	if err != nil {
		slog.Error("[B2BUA] media relay setup failed", "call_id", callID, "error", err)
		e.teardown(call, CauseNegotiationFailed)
		return
	}
	call.SetRelay(relay)

	slog.Info("[B2BUA] TDM call established", "call_id", callID, "span", span, "channel", channel, "callee", calledNumber)
}

// tdmDefaultCodec returns the first entry of the configured codec
// preference order, falling back to one of the registry's codec names
// (Names has no defined order) and finally to PCMU.
func (e *Engine) tdmDefaultCodec() codec.Name {
	cfg := e.config.Load()
	if len(cfg.Codecs.PreferredOrder) > 0 {
		return codec.Name(cfg.Codecs.PreferredOrder[0])
	}
	names := e.codecs.Names()
	if len(names) > 0 {
		return names[0]
	}
	return codec.Name("PCMU")
}

// newEndpointFor binds a fresh RTP socket configured for c's clock rate and
// frame time, using the jitter buffer bounds from the active configuration.
func (e *Engine) newEndpointFor(c *codec.Codec) (*rtpengine.Endpoint, error) {
	cfg := e.config.Load()
	return rtpengine.NewEndpoint(rtpengine.EndpointConfig{
		LocalAddr:    fmt.Sprintf("%s:0", e.bindAddr),
		PayloadType:  uint8(c.PayloadType),
		ClockRate:    c.SampleRate,
		PacketTimeMS: c.FrameTimeMS,
		JitterMinMS:  cfg.RTP.JitterMinMS,
		JitterMaxMS:  cfg.RTP.JitterMaxMS,
	})
}

// setRemoteFromSDP points ep at the peer address a parsed SDP body named,
// logging rather than failing the call if the address doesn't parse (the
// call can still proceed signaling-wise; only media would be one-way).
func setRemoteFromSDP(ep *rtpengine.Endpoint, peer sdpbuilder.Endpoint) {
	remote, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", peer.Address, peer.Port))
	if err != nil {
		slog.Warn("[B2BUA] parse peer media address failed", "address", peer.Address, "port", peer.Port, "error", err)
		return
	}
	ep.SetRemote(remote)
}

// endpointPort extracts the bound local UDP port to advertise in an SDP
// m=audio line; 0 if the endpoint is somehow not UDP-bound.
func endpointPort(ep *rtpengine.Endpoint) int {
	if addr, ok := ep.LocalAddr().(*net.UDPAddr); ok {
		return addr.Port
	}
	return 0
}

// dtmfSideFor builds the mediarelay.DTMFSide describing how to emit a
// digit on leg using its own negotiated method (spec.md §4.G: each side
// is addressed with its own carriage, independent of how the digit arrived
// on the other leg).
func (e *Engine) dtmfSideFor(leg *Leg) mediarelay.DTMFSide {
	side := mediarelay.DTMFSide{Endpoint: leg.Endpoint()}
	switch leg.DTMF {
	case DTMFSipInfo:
		side.Method = mediarelay.DTMFSipInfo
		side.SIPInfo = &sipInfoSender{manager: e.manager, dialog: leg.Dialog}
	case DTMFInband:
		side.Method = mediarelay.DTMFInband
		if c, err := e.codecs.Get(leg.ChosenCodec); err == nil {
			side.ToneEnc = c.Encode
		}
	default:
		side.Method = mediarelay.DTMFRfc2833
	}
	return side
}

// sipInfoSender adapts a sipstack dialog to mediarelay.SIPInfoSender, the
// seam the relay's DTMF bridge uses to emit a digit via SIP INFO without
// mediarelay depending on sipstack.
type sipInfoSender struct {
	manager *sipstack.Manager
	dialog  *sipstack.Dialog
}

func (s *sipInfoSender) SendDTMFInfo(digit rune, durationMS int) error {
	body := fmt.Sprintf("Signal=%c\nDuration=%dms", digit, durationMS)
	return s.manager.SendInfo(s.dialog, []byte(body))
}

func (e *Engine) relayProvisional(dialogA *sipstack.Dialog, resp *sip.Response) {
	if resp.StatusCode == 100 {
		return
	}
	if err := e.manager.SendProgress(dialogA, resp.Body()); err != nil {
		slog.Warn("[B2BUA] relay provisional failed", "call_id", dialogA.CallID, "error", err)
	}
}

func (e *Engine) fail(call *Call, dialogA *sipstack.Dialog, code sip.StatusCode, reason string, cause error) {
	e.failWithCause(call, dialogA, code, reason, causeFor(cause))
}

func (e *Engine) failWithCause(call *Call, dialogA *sipstack.Dialog, code sip.StatusCode, reason string, cause DisconnectCause) {
	call.StopDurationTimer()
	call.CloseRelay()
	if err := e.manager.SendFailure(dialogA, code, reason); err != nil {
		slog.Error("[B2BUA] send failure response error", "call_id", call.ID, "error", err)
	}
	call.MarkTerminated(cause)
	e.emitCDR(call)
	e.calls.delete(call.ID)
	slog.Info("[B2BUA] call failed", "call_id", call.ID, "code", code, "cause", cause)
}

func causeFor(err error) DisconnectCause {
	switch {
	case err == gwerrors.ErrNotFound:
		return CauseNoRoute
	case err == gwerrors.ErrUnreachable:
		return CauseUnreachable
	case err == gwerrors.ErrNegotiation:
		return CauseNegotiationFailed
	default:
		return CauseInternalError
	}
}

// failFromOriginate ends call on Leg A with Leg B's real final response
// (spec.md §4.F / §7's cause-code mapping), falling back to 503/fallback
// when Originate never got a response at all (timeout, transport error).
func (e *Engine) failFromOriginate(call *Call, dialogA *sipstack.Dialog, result *sipstack.OriginateResult, fallback error) {
	if result != nil && result.Response != nil {
		e.failWithCause(call, dialogA, result.Response.StatusCode, result.Response.Reason, causeForStatus(result.Response.StatusCode))
		return
	}
	e.fail(call, dialogA, sip.StatusCode(503), "Service Unavailable", fallback)
}

// causeForOriginate maps Leg B's real final response to a DisconnectCause
// for the TDM origination path, where there is no Leg A SIP response to
// relay a status code into.
func causeForOriginate(result *sipstack.OriginateResult, fallback DisconnectCause) DisconnectCause {
	if result != nil && result.Response != nil {
		return causeForStatus(result.Response.StatusCode)
	}
	return fallback
}

// causeForStatus maps an originated leg's final SIP response code to a
// DisconnectCause, per spec.md §7's RFC 3261 cause-code table.
func causeForStatus(code sip.StatusCode) DisconnectCause {
	switch code {
	case 486, 600:
		return CauseCalleeBusy
	case 403, 603:
		return CauseCalleeRejected
	case 404, 410:
		return CauseNoRoute
	case 408:
		return CauseTimeout
	}
	switch {
	case code >= 400 && code < 700:
		return CauseCalleeRejected
	default:
		return CauseUnreachable
	}
}

func (e *Engine) onLegTerminated(d *sipstack.Dialog, reason sipstack.TerminateReason) {
	call, ok := e.calls.byDialogCallID(d.CallID)
	if !ok {
		return
	}
	e.dispatch(call.ID, func() {
		call.Recompute()
		if call.State() == StateTerminating || call.State() == StateFailed {
			e.teardown(call, causeForTerminate(reason))
		}
	})
}

func causeForTerminate(reason sipstack.TerminateReason) DisconnectCause {
	switch reason {
	case sipstack.ReasonTimeout:
		return CauseTimeout
	case sipstack.ReasonLocalBYE, sipstack.ReasonRemoteBYE:
		return CauseNormal
	default:
		return CauseInternalError
	}
}

// teardown ends the other leg (if still live), closes media, emits the
// CDR, and removes the call from the table.
func (e *Engine) teardown(call *Call, cause DisconnectCause) {
	call.StopDurationTimer()
	call.CloseRelay()
	if call.LegA != nil && call.LegA.Dialog != nil && !call.LegA.Dialog.State().IsTerminal() {
		e.manager.Terminate(call.LegA.Dialog.CallID, sipstack.ReasonLocalBYE)
	}
	if call.LegB != nil && call.LegB.Dialog != nil && !call.LegB.Dialog.State().IsTerminal() {
		e.manager.Terminate(call.LegB.Dialog.CallID, sipstack.ReasonLocalBYE)
	}
	call.MarkTerminated(cause)
	e.emitCDR(call)
	e.calls.delete(call.ID)
}

// armDurationCap starts the hard wall-clock cap on a call (spec.md's
// limits.max_call_duration_s, default 4h): once it fires, the call is torn
// down on its own worker with CauseMaxCallDurationExceeded, the same way
// any other termination path runs. A duration of 0 or less disables the
// cap.
func (e *Engine) armDurationCap(call *Call) {
	maxS := e.config.Load().Limits.MaxCallDurationS
	if maxS <= 0 {
		return
	}
	callID := call.ID
	t := time.AfterFunc(time.Duration(maxS)*time.Second, func() {
		e.dispatch(callID, func() {
			if _, ok := e.calls.get(callID); !ok {
				return
			}
			slog.Info("[B2BUA] call exceeded max duration", "call_id", callID, "max_call_duration_s", maxS)
			e.teardown(call, CauseMaxCallDurationExceeded)
		})
	})
	call.SetDurationTimer(t)
}

func (e *Engine) emitCDR(call *Call) {
	snap := call.Snapshot()
	e.publisher.Publish(events.Event{
		Type:   events.EventCallEnded,
		CallID: snap.ID,
		CDR:    events.CDRFromSnapshot(snap.ID, snap.Caller, snap.Callee, int(snap.State), int(snap.DisconnectCause), snap.CreatedAt, snap.AnsweredAt, snap.EndedAt, snap.RelayStats),
	})
}

func (e *Engine) buildOfferFor(names []codec.Name, port int) ([]byte, error) {
	offers := make([]sdpbuilder.CodecOffer, 0, len(names))
	for _, n := range names {
		c, err := e.codecs.Get(n)
		if err != nil {
			continue
		}
		offers = append(offers, sdpbuilder.CodecOffer{
			PayloadType: c.PayloadType,
			RTPMap:      fmt.Sprintf("%s/%d", c.Name, c.SampleRate),
		})
	}
	if len(offers) == 0 {
		return nil, gwerrors.ErrNegotiation
	}
	return sdpbuilder.BuildOffer(sdpbuilder.Endpoint{Address: e.bindAddr, Port: port}, offers, 1, 1)
}

func namesOf(offered []sdpbuilder.Offered) []codec.Name {
	names := make([]codec.Name, len(offered))
	for i, o := range offered {
		names[i] = codec.Name(rtpmapBase(o.RTPMap))
	}
	return names
}

func rtpmapBase(rtpmap string) string {
	for i, c := range rtpmap {
		if c == '/' {
			return rtpmap[:i]
		}
	}
	return rtpmap
}

func targetToURI(res *Resolution) (sip.Uri, error) {
	var u sip.Uri
	if err := sip.ParseUri(fmt.Sprintf("sip:%s@%s", res.TranslatedNumber, res.Rule.Target), &u); err != nil {
		return sip.Uri{}, fmt.Errorf("b2bua: parse target uri: %w", err)
	}
	return u, nil
}

// CallCount returns the number of calls currently tracked.
func (e *Engine) CallCount() int {
	return e.calls.len()
}

// ListCalls returns a snapshot of every tracked call.
func (e *Engine) ListCalls() []Snapshot {
	return e.calls.snapshots()
}

// CodecCounts sums the passthrough and transcoded frame counters across
// every call with an active media relay, for the transcoder metrics.
func (e *Engine) CodecCounts() (passthrough, transcoded uint64) {
	e.calls.mu.RLock()
	defer e.calls.mu.RUnlock()
	for _, c := range e.calls.byCallID {
		c.mu.RLock()
		r := c.Relay
		c.mu.RUnlock()
		if r == nil {
			continue
		}
		p, t := r.CodecCounts()
		passthrough += p
		transcoded += t
	}
	return passthrough, transcoded
}

// TerminateCall force-ends a call by id, for the management API.
func (e *Engine) TerminateCall(callID string) error {
	call, ok := e.calls.get(callID)
	if !ok {
		return gwerrors.ErrNotFound
	}
	done := make(chan struct{})
	e.dispatch(callID, func() {
		e.teardown(call, CauseNormal)
		close(done)
	})
	<-done
	return nil
}
