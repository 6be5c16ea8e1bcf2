package rtpengine

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
)

// Endpoint is one side of an RTP media stream: a bound local socket, a
// remote peer, and the per-stream bookkeeping spec.md §4.C requires (ssrc,
// seq, timestamp, payload type). It owns a JitterBuffer and JitterEstimator
// for the receive direction and a monotonically increasing sequence/
// timestamp pair for the send direction.
type Endpoint struct {
	conn       net.PacketConn
	remote     atomic.Pointer[net.UDPAddr]
	ssrc       uint32
	payloadType atomic.Uint32

	packetTimeMS int
	clockRate    int

	sendMu    sync.Mutex
	sendSeq   uint16
	sendTS    uint32

	jitter   *JitterEstimator
	buffer   *JitterBuffer
	tracker  *SequenceTracker

	closed atomic.Bool
}

// EndpointConfig configures a new Endpoint.
type EndpointConfig struct {
	LocalAddr    string // "ip:port", port 0 picks an ephemeral port
	PayloadType  uint8
	ClockRate    int // samples/sec, e.g. 8000 for PCMU/PCMA, 48000 for Opus
	PacketTimeMS int
	JitterMinMS  int
	JitterMaxMS  int
}

// NewEndpoint binds a UDP socket and returns an Endpoint ready to send and
// receive once SetRemote is called.
func NewEndpoint(cfg EndpointConfig) (*Endpoint, error) {
	if cfg.ClockRate <= 0 {
		cfg.ClockRate = 8000
	}
	if cfg.PacketTimeMS <= 0 {
		cfg.PacketTimeMS = 20
	}
	if cfg.JitterMinMS <= 0 {
		cfg.JitterMinMS = 20
	}
	if cfg.JitterMaxMS <= 0 {
		cfg.JitterMaxMS = 120
	}

	conn, err := net.ListenPacket("udp", cfg.LocalAddr)
	if err != nil {
		return nil, fmt.Errorf("rtpengine: bind %s: %w", cfg.LocalAddr, err)
	}

	ssrc, err := randomSSRC()
	if err != nil {
		conn.Close()
		return nil, err
	}

	e := &Endpoint{
		conn:         conn,
		ssrc:         ssrc,
		packetTimeMS: cfg.PacketTimeMS,
		clockRate:    cfg.ClockRate,
		jitter:       NewJitterEstimator(),
		buffer:       NewJitterBuffer(cfg.JitterMinMS, cfg.JitterMaxMS, cfg.PacketTimeMS, cfg.ClockRate),
		tracker:      NewSequenceTracker(),
	}
	e.payloadType.Store(uint32(cfg.PayloadType))

	seq, err := randomSeq()
	if err != nil {
		conn.Close()
		return nil, err
	}
	e.sendSeq = seq

	return e, nil
}

func randomSSRC() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("rtpengine: generate ssrc: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func randomSeq() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("rtpengine: generate sequence: %w", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// LocalAddr returns the bound local socket address.
func (e *Endpoint) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// SSRC returns this endpoint's outbound synchronization source identifier.
func (e *Endpoint) SSRC() uint32 {
	return e.ssrc
}

// SetRemote updates the peer this endpoint sends to, e.g. after a
// successful SDP offer/answer exchange or a re-INVITE changing the
// far-end address.
func (e *Endpoint) SetRemote(addr *net.UDPAddr) {
	e.remote.Store(addr)
}

// SetPayloadType updates the outbound RTP payload type, e.g. after
// mid-call codec renegotiation.
func (e *Endpoint) SetPayloadType(pt uint8) {
	e.payloadType.Store(uint32(pt))
}

// Send marshals and transmits one frame of media as an RTP packet,
// advancing the sequence number and timestamp by one packet interval.
func (e *Endpoint) Send(payload []byte) error {
	remote := e.remote.Load()
	if remote == nil {
		return fmt.Errorf("rtpengine: Send: no remote address set")
	}

	e.sendMu.Lock()
	seq := e.sendSeq
	ts := e.sendTS
	e.sendSeq++
	samplesPerPacket := uint32(e.clockRate * e.packetTimeMS / 1000)
	e.sendTS += samplesPerPacket
	e.sendMu.Unlock()

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    uint8(e.payloadType.Load()),
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           e.ssrc,
		},
		Payload: payload,
	}

	b, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("rtpengine: marshal packet: %w", err)
	}
	if _, err := e.conn.WriteTo(b, remote); err != nil {
		return fmt.Errorf("rtpengine: write to %s: %w", remote, err)
	}
	return nil
}

// SendDTMF transmits an RFC 4733 telephone-event packet using the reserved
// DTMF payload type rather than the endpoint's media payload type.
func (e *Endpoint) SendDTMF(event DTMFEvent) error {
	remote := e.remote.Load()
	if remote == nil {
		return fmt.Errorf("rtpengine: SendDTMF: no remote address set")
	}

	e.sendMu.Lock()
	seq := e.sendSeq
	ts := e.sendTS
	e.sendSeq++
	e.sendMu.Unlock()

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    DTMFPayloadType,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           e.ssrc,
			Marker:         event.EndOfEvent,
		},
		Payload: event.Encode(),
	}
	b, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("rtpengine: marshal DTMF packet: %w", err)
	}
	if _, err := e.conn.WriteTo(b, remote); err != nil {
		return fmt.Errorf("rtpengine: write DTMF to %s: %w", remote, err)
	}
	return nil
}

// ReadLoop blocks reading packets from the socket until the endpoint is
// closed, dispatching media payloads to onMedia and telephone-events to
// onDTMF. Intended to run in its own goroutine per call leg.
func (e *Endpoint) ReadLoop(onMedia func(Packet), onDTMF func(DTMFEvent)) error {
	buf := make([]byte, 1500)
	for {
		n, _, err := e.conn.ReadFrom(buf)
		if err != nil {
			if e.closed.Load() {
				return nil
			}
			return fmt.Errorf("rtpengine: read: %w", err)
		}

		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue // malformed packet, drop silently
		}

		now := time.Now()
		arrivalTS := now.UnixNano() * int64(e.clockRate) / int64(time.Second)
		e.jitter.Update(arrivalTS, int64(pkt.Timestamp))
		e.tracker.Update(pkt.SequenceNumber)

		if pkt.PayloadType == DTMFPayloadType {
			if onDTMF == nil {
				continue
			}
			ev, err := DecodeDTMFEvent(pkt.Payload)
			if err != nil {
				continue
			}
			onDTMF(ev)
			continue
		}

		p := Packet{
			Sequence:  pkt.SequenceNumber,
			Timestamp: pkt.Timestamp,
			Arrival:   now,
			Payload:   pkt.Payload,
		}
		if !e.buffer.Push(p) {
			continue
		}
		if onMedia != nil {
			if released, ok := e.buffer.Pop(now); ok {
				onMedia(released)
			}
		}
	}
}

// Jitter returns the current smoothed jitter estimate in RTP timestamp
// units (RFC 3550 §6.4.1).
func (e *Endpoint) Jitter() float64 {
	return e.jitter.Value()
}

// SequenceStats returns cumulative received/lost packet counts for this
// endpoint's receive direction.
func (e *Endpoint) SequenceStats() (received, lost uint64) {
	return e.tracker.Stats()
}

// BufferDepth returns the current jitter buffer occupancy.
func (e *Endpoint) BufferDepth() int {
	return e.buffer.Depth()
}

// Close releases the underlying socket. Safe to call more than once.
func (e *Endpoint) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	return e.conn.Close()
}
