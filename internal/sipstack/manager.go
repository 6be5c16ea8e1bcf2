package sipstack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"

	"github.com/redfire/gateway/internal/store"
)

// Retransmission and cleanup timing, following RFC 3261 Timer B / the
// teacher's dialog manager constants.
const (
	ActiveDialogTTL     = 4 * time.Hour
	TerminatedDialogTTL = 32 * time.Second
	cleanupInterval     = 10 * time.Second
	ackTimeout          = 32 * time.Second
)

// Manager is the process-wide dialog table, keyed by Call-ID. It owns the
// sipgo client/server glue needed to send provisional/final responses on
// inbound legs and originate/tear-down requests on outbound legs.
type Manager struct {
	dialogs  *store.TTLStore[string, *Dialog]
	client   *sipgo.Client
	dialogUA *sipgo.DialogUA

	localContact sip.Uri

	onTerminated func(d *Dialog, reason TerminateReason)
}

// NewManager builds a Manager. localContact is used as the Contact header
// on requests this process originates (BYE, re-INVITE, outbound INVITE).
func NewManager(client *sipgo.Client, dialogUA *sipgo.DialogUA, localContact sip.Uri) *Manager {
	m := &Manager{
		dialogs:      store.NewTTLStore[string, *Dialog](cleanupInterval),
		client:       client,
		dialogUA:     dialogUA,
		localContact: localContact,
	}
	m.dialogs.SetOnEvict(func(callID string, d *Dialog) {
		slog.Debug("[SIP] dialog evicted", "call_id", callID, "state", d.State())
	})
	return m
}

// SetOnTerminated installs the callback invoked whenever a dialog reaches
// a terminal state, so the owning Call can react (tear down media, emit
// a CDR).
func (m *Manager) SetOnTerminated(fn func(d *Dialog, reason TerminateReason)) {
	m.onTerminated = fn
}

// AcceptInvite registers a new inbound dialog from a just-received INVITE,
// or returns the existing dialog if this is a retransmission.
func (m *Manager) AcceptInvite(req *sip.Request, tx sip.ServerTransaction) (*Dialog, error) {
	callID := callIDOf(req)
	if callID == "" {
		return nil, fmt.Errorf("sipstack: INVITE missing Call-ID")
	}
	if existing, ok := m.dialogs.Get(callID); ok && existing.State() != StateTerminated && existing.State() != StateFailed {
		slog.Warn("[SIP] duplicate INVITE", "call_id", callID, "state", existing.State())
		return existing, nil
	}

	d := NewInboundDialog(req, tx)
	m.dialogs.Set(callID, d, ActiveDialogTTL)
	slog.Info("[SIP] inbound dialog created", "call_id", callID)
	return d, nil
}

// SendTrying sends 100 Trying on an inbound dialog's transaction.
func (m *Manager) SendTrying(d *Dialog) error {
	tx := d.ServerTransaction()
	if tx == nil {
		return fmt.Errorf("sipstack: dialog %s: no server transaction", d.CallID)
	}
	resp := sip.NewResponseFromRequest(d.InviteRequest, sip.StatusTrying, "Trying", nil)
	if err := tx.Respond(resp); err != nil {
		return fmt.Errorf("sipstack: send 100 Trying: %w", err)
	}
	return nil
}

// SendProgress sends 183 Session Progress with an SDP body, transitioning
// the dialog to Ringing (early media).
func (m *Manager) SendProgress(d *Dialog, sdpBody []byte) error {
	tx := d.ServerTransaction()
	if tx == nil {
		return fmt.Errorf("sipstack: dialog %s: no server transaction", d.CallID)
	}
	resp := sip.NewResponseFromRequest(d.InviteRequest, sip.StatusCode(183), "Session Progress", sdpBody)
	ct := sip.ContentTypeHeader("application/sdp")
	resp.AppendHeader(&ct)
	if err := tx.Respond(resp); err != nil {
		return fmt.Errorf("sipstack: send 183: %w", err)
	}
	return d.RecordProvisional()
}

// SendRinging sends 180 Ringing without SDP.
func (m *Manager) SendRinging(d *Dialog) error {
	tx := d.ServerTransaction()
	if tx == nil {
		return fmt.Errorf("sipstack: dialog %s: no server transaction", d.CallID)
	}
	resp := sip.NewResponseFromRequest(d.InviteRequest, sip.StatusRinging, "Ringing", nil)
	if err := tx.Respond(resp); err != nil {
		return fmt.Errorf("sipstack: send 180: %w", err)
	}
	return d.RecordProvisional()
}

// SendOK sends 200 OK with SDP on an inbound dialog, creates the sipgo
// session, and begins the ACK timeout watcher.
func (m *Manager) SendOK(d *Dialog, sdpBody []byte) error {
	tx := d.ServerTransaction()
	if tx == nil {
		return fmt.Errorf("sipstack: dialog %s: no server transaction", d.CallID)
	}
	session, err := m.dialogUA.ReadInvite(d.InviteRequest, tx)
	if err != nil {
		return fmt.Errorf("sipstack: create dialog session: %w", err)
	}
	d.SetServerSession(session)

	if err := session.RespondSDP(sdpBody); err != nil {
		session.Close()
		return fmt.Errorf("sipstack: send 200 OK: %w", err)
	}
	if err := d.RecordAnswered(session.InviteResponse); err != nil {
		slog.Warn("[SIP] state transition failed", "call_id", d.CallID, "error", err)
	}

	go m.watchACKTimeout(d)
	return nil
}

// SendFailure sends a final failure response on an inbound dialog and
// transitions it to Failed.
func (m *Manager) SendFailure(d *Dialog, code sip.StatusCode, reason string) error {
	tx := d.ServerTransaction()
	if tx == nil {
		return fmt.Errorf("sipstack: dialog %s: no server transaction", d.CallID)
	}
	resp := sip.NewResponseFromRequest(d.InviteRequest, code, reason, nil)
	if err := tx.Respond(resp); err != nil {
		return fmt.Errorf("sipstack: send %d: %w", code, err)
	}
	if err := d.RecordFailed(ReasonError); err != nil {
		slog.Warn("[SIP] state transition failed", "call_id", d.CallID, "error", err)
	}
	m.notifyTerminated(d, ReasonError)
	return nil
}

// ConfirmACK processes an in-dialog ACK, confirming the dialog.
func (m *Manager) ConfirmACK(req *sip.Request, tx sip.ServerTransaction) error {
	callID := callIDOf(req)
	d, ok := m.Get(callID)
	if !ok {
		return fmt.Errorf("sipstack: ACK for unknown dialog %s", callID)
	}
	if d.ServerSession() != nil {
		if err := d.ServerSession().ReadAck(req, tx); err != nil {
			slog.Warn("[SIP] failed to read ACK", "call_id", callID, "error", err)
		}
	}
	d.MarkACKed()
	return nil
}

// HandleBYE processes an incoming BYE, replies 200 OK, and terminates the
// dialog with ReasonRemoteBYE.
func (m *Manager) HandleBYE(req *sip.Request, tx sip.ServerTransaction) error {
	callID := callIDOf(req)
	d, ok := m.Get(callID)
	if !ok {
		resp := sip.NewResponseFromRequest(req, 481, "Call/Transaction Does Not Exist", nil)
		tx.Respond(resp)
		return fmt.Errorf("sipstack: BYE for unknown dialog %s", callID)
	}

	if d.ServerSession() != nil {
		if err := d.ServerSession().ReadBye(req, tx); err != nil {
			slog.Warn("[SIP] failed to read BYE", "call_id", callID, "error", err)
		}
	} else {
		resp := sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil)
		tx.Respond(resp)
	}

	d.Cancel()
	m.terminate(d, ReasonRemoteBYE)
	return nil
}

// HandleCANCEL processes an incoming CANCEL during the early dialog
// window.
func (m *Manager) HandleCANCEL(req *sip.Request, tx sip.ServerTransaction) error {
	callID := callIDOf(req)
	d, ok := m.Get(callID)
	if !ok {
		resp := sip.NewResponseFromRequest(req, 481, "Call/Transaction Does Not Exist", nil)
		tx.Respond(resp)
		return fmt.Errorf("sipstack: CANCEL for unknown dialog %s", callID)
	}

	state := d.State()
	if state != StateTrying && state != StateRinging {
		resp := sip.NewResponseFromRequest(req, 481, "Call/Transaction Does Not Exist", nil)
		tx.Respond(resp)
		return nil
	}

	resp := sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil)
	tx.Respond(resp)

	if serverTx := d.ServerTransaction(); serverTx != nil {
		terminated := sip.NewResponseFromRequest(d.InviteRequest, 487, "Request Terminated", nil)
		serverTx.Respond(terminated)
	}

	d.Cancel()
	m.terminate(d, ReasonCancel)
	return nil
}

// Terminate ends a dialog, sending BYE only if it was Answered and reason
// is ReasonLocalBYE.
func (m *Manager) Terminate(callID string, reason TerminateReason) error {
	d, ok := m.Get(callID)
	if !ok {
		return fmt.Errorf("sipstack: dialog not found: %s", callID)
	}
	if d.State().IsTerminal() {
		return nil
	}
	if d.State() == StateAnswered && reason == ReasonLocalBYE {
		if err := m.sendBYE(d); err != nil {
			slog.Error("[SIP] failed to send BYE", "call_id", callID, "error", err)
		}
	}
	d.Cancel()
	m.terminate(d, reason)
	return nil
}

func (m *Manager) sendBYE(d *Dialog) error {
	req, err := d.BuildBYE(m.localContact)
	if err != nil {
		return fmt.Errorf("sipstack: build BYE: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tx, err := m.client.TransactionRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("sipstack: send BYE: %w", err)
	}
	defer tx.Terminate()
	slog.Info("[SIP] BYE sent", "call_id", d.CallID)
	return nil
}

// SendInfo sends a mid-dialog INFO request carrying body on an established
// dialog, used to relay a DTMF digit to a leg whose negotiated method is
// SIP INFO rather than RFC 2833.
func (m *Manager) SendInfo(d *Dialog, body []byte) error {
	req, err := d.BuildINFO(m.localContact, body)
	if err != nil {
		return fmt.Errorf("sipstack: build INFO: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tx, err := m.client.TransactionRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("sipstack: send INFO: %w", err)
	}
	defer tx.Terminate()
	return nil
}

func (m *Manager) terminate(d *Dialog, reason TerminateReason) {
	if err := d.RecordTerminated(reason); err != nil {
		slog.Warn("[SIP] failed to transition to terminated", "call_id", d.CallID, "error", err)
	}
	if d.ServerSession() != nil {
		d.ServerSession().Close()
	}
	m.notifyTerminated(d, reason)
	m.dialogs.Set(d.CallID, d, TerminatedDialogTTL)
}

func (m *Manager) notifyTerminated(d *Dialog, reason TerminateReason) {
	if m.onTerminated != nil {
		go m.onTerminated(d, reason)
	}
}

func (m *Manager) watchACKTimeout(d *Dialog) {
	select {
	case <-d.Context().Done():
		return
	case <-time.After(ackTimeout):
		if !d.ACKed() {
			slog.Warn("[SIP] ACK timeout", "call_id", d.CallID)
			d.Cancel()
			m.terminate(d, ReasonTimeout)
		}
	}
}

// Get retrieves a dialog by Call-ID.
func (m *Manager) Get(callID string) (*Dialog, bool) {
	return m.dialogs.Get(callID)
}

// Put registers an externally constructed dialog (used for outbound
// dialogs created by the originator before any response has arrived).
func (m *Manager) Put(d *Dialog) {
	m.dialogs.Set(d.CallID, d, ActiveDialogTTL)
}

// Count returns the number of non-expired dialogs.
func (m *Manager) Count() int {
	return m.dialogs.Len()
}

// Close stops the manager's background cleanup loop.
func (m *Manager) Close() {
	m.dialogs.Close()
}
