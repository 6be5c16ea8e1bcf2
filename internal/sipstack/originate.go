package sipstack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/emiago/sipgo/sip"
)

// OriginateResult reports the terminal outcome of originating a call on
// an outbound dialog.
type OriginateResult struct {
	Dialog   *Dialog
	Response *sip.Response // final response, nil on timeout
	Accepted bool
}

// Originate sends an INVITE with the given SDP offer to target and drives
// the client transaction to a final response, handling provisional
// responses, 2xx (sending ACK), and non-2xx (no ACK needed per RFC 3261
// for non-2xx on INVITE, sipgo sends it automatically) along the way.
// onProvisional is invoked for each 1xx so the caller can relay it to the
// other leg (spec.md §4.F transition rules).
func (m *Manager) Originate(ctx context.Context, from, to sip.Uri, sdpOffer []byte, onProvisional func(*sip.Response)) (*OriginateResult, error) {
	callID := uuid.NewString()

	invite := sip.NewRequest(sip.INVITE, to)
	fromTag := uuid.NewString()
	invite.AppendHeader(&sip.FromHeader{Address: from, Params: tagParams(fromTag)})
	invite.AppendHeader(&sip.ToHeader{Address: to, Params: sip.NewParams()})
	invite.AppendHeader(sip.NewHeader("Call-ID", callID))
	invite.AppendHeader(&sip.CSeqHeader{SeqNo: 1, MethodName: sip.INVITE})
	maxFwd := sip.MaxForwardsHeader(70)
	invite.AppendHeader(&maxFwd)
	invite.AppendHeader(&sip.ContactHeader{Address: m.localContact})
	invite.SetBody(sdpOffer)
	invite.AppendHeader(sip.NewHeader("Content-Type", "application/sdp"))

	tx, err := m.client.TransactionRequest(ctx, invite)
	if err != nil {
		return nil, fmt.Errorf("sipstack: originate: send INVITE: %w", err)
	}

	d := NewOutboundDialog(invite, tx)
	d.LocalTag = fromTag
	m.Put(d)

	for {
		select {
		case <-ctx.Done():
			m.sendCANCEL(d, invite, tx)
			return &OriginateResult{Dialog: d, Accepted: false}, ctx.Err()

		case resp, ok := <-tx.Responses():
			if !ok {
				return &OriginateResult{Dialog: d, Accepted: false}, fmt.Errorf("sipstack: originate: transaction closed without final response")
			}
			switch {
			case resp.IsProvisional():
				if resp.StatusCode != sip.StatusTrying {
					if err := d.RecordProvisional(); err != nil {
						slog.Warn("[SIP] state transition failed", "call_id", callID, "error", err)
					}
				}
				if onProvisional != nil {
					onProvisional(resp)
				}
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				if err := d.RecordAnswered(resp); err != nil {
					slog.Warn("[SIP] state transition failed", "call_id", callID, "error", err)
				}
				if err := m.sendACK(d, resp, invite); err != nil {
					slog.Error("[SIP] failed to send ACK", "call_id", callID, "error", err)
				}
				go m.reapForkedResponses(ctx, invite, tx, fromTag, callID)
				return &OriginateResult{Dialog: d, Response: resp, Accepted: true}, nil
			default:
				if err := d.RecordFailed(ReasonError); err != nil {
					slog.Warn("[SIP] state transition failed", "call_id", callID, "error", err)
				}
				m.notifyTerminated(d, ReasonError)
				return &OriginateResult{Dialog: d, Response: resp, Accepted: false}, nil
			}

		case <-time.After(32 * time.Second):
			m.sendCANCEL(d, invite, tx)
			if err := d.RecordFailed(ReasonTimeout); err != nil {
				slog.Warn("[SIP] state transition failed", "call_id", callID, "error", err)
			}
			m.notifyTerminated(d, ReasonTimeout)
			return &OriginateResult{Dialog: d, Accepted: false}, fmt.Errorf("sipstack: originate: timed out waiting for final response")
		}
	}
}

// reapForkedResponses drains any additional 2xx a forking proxy delivers
// on tx after the first has already been accepted and ACKed. The INVITE
// client transaction does not absorb a second 2xx the way it would a
// retransmission, so spec.md's at-most-one-answer invariant has to be
// enforced here: every later 2xx gets its own ACK, immediately followed
// by a BYE, rather than being left to dangle.
func (m *Manager) reapForkedResponses(ctx context.Context, invite *sip.Request, tx sip.ClientTransaction, fromTag, callID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-tx.Responses():
			if !ok {
				return
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				continue
			}
			forked := forkedDialog(invite, resp, fromTag, callID)
			if err := m.sendACK(forked, resp, invite); err != nil {
				slog.Error("[SIP] failed to ACK forked 2xx", "call_id", callID, "error", err)
				continue
			}
			if err := m.sendBYE(forked); err != nil {
				slog.Error("[SIP] failed to BYE forked 2xx", "call_id", callID, "error", err)
			}
			if err := forked.RecordTerminated(ReasonReplacedByFork); err != nil {
				slog.Warn("[SIP] state transition failed", "call_id", callID, "error", err)
			}
			slog.Info("[SIP] forked 2xx ACKed and BYEd", "call_id", callID)
		}
	}
}

// forkedDialog builds the minimal outbound Dialog BuildBYE needs to
// address a forked 2xx's early dialog; it is never registered with the
// manager since its only job is to carry that one BYE.
func forkedDialog(invite *sip.Request, resp *sip.Response, fromTag, callID string) *Dialog {
	d := &Dialog{
		CallID:        callID,
		LocalTag:      fromTag,
		Direction:     DirectionOutbound,
		state:         StateAnswered,
		InviteRequest: invite,
	}
	if to := resp.To(); to != nil {
		if tag, ok := to.Params.Get("tag"); ok {
			d.RemoteTag = tag
		}
	}
	if contact := resp.Contact(); contact != nil {
		d.remoteContactURI = contact.Address.String()
	}
	return d
}

// sendACK builds and sends the ACK for a 2xx response to our INVITE. Per
// RFC 3261 §13.2.2.4, the ACK for a 2xx is a new transaction sent
// directly, not generated by the transaction layer.
func (m *Manager) sendACK(d *Dialog, resp *sip.Response, invite *sip.Request) error {
	ack := sip.NewRequest(sip.ACK, invite.Recipient)
	if contact := resp.Contact(); contact != nil {
		ack.Recipient = contact.Address
	}

	if from := invite.From(); from != nil {
		ack.AppendHeader(&sip.FromHeader{Address: from.Address, Params: from.Params.Clone()})
	}
	if to := resp.To(); to != nil {
		ack.AppendHeader(&sip.ToHeader{Address: to.Address, Params: to.Params.Clone()})
	}
	if callIDHdr := invite.CallID(); callIDHdr != nil {
		ack.AppendHeader(callIDHdr)
	}
	ack.AppendHeader(&sip.CSeqHeader{SeqNo: 1, MethodName: sip.ACK})
	maxFwd := sip.MaxForwardsHeader(70)
	ack.AppendHeader(&maxFwd)

	return m.client.WriteRequest(ack)
}

// sendCANCEL cancels a pending outbound INVITE transaction.
func (m *Manager) sendCANCEL(d *Dialog, invite *sip.Request, tx sip.ClientTransaction) error {
	cancelReq := sip.NewRequest(sip.CANCEL, invite.Recipient)
	if from := invite.From(); from != nil {
		ptr := *from
		cancelReq.AppendHeader(&ptr)
	}
	if to := invite.To(); to != nil {
		ptr := *to
		cancelReq.AppendHeader(&ptr)
	}
	if callIDHdr := invite.CallID(); callIDHdr != nil {
		cancelReq.AppendHeader(callIDHdr)
	}
	cancelReq.AppendHeader(&sip.CSeqHeader{SeqNo: 1, MethodName: sip.CANCEL})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cancelTx, err := m.client.TransactionRequest(ctx, cancelReq)
	if err != nil {
		return fmt.Errorf("sipstack: send CANCEL: %w", err)
	}
	defer cancelTx.Terminate()
	return nil
}
