package rtpengine

import "testing"

func TestRuneToEventRoundTrip(t *testing.T) {
	digits := "0123456789*#ABCD"
	for _, r := range digits {
		event, ok := RuneToEvent(r)
		if !ok {
			t.Fatalf("RuneToEvent(%q) not ok", r)
		}
		back, ok := EventToRune(event)
		if !ok {
			t.Fatalf("EventToRune(%d) not ok", event)
		}
		if back != r {
			t.Errorf("round trip %q -> %d -> %q, want %q", r, event, back, r)
		}
	}
}

func TestRuneToEventLowercaseLettersNormalize(t *testing.T) {
	upper, _ := RuneToEvent('A')
	lower, _ := RuneToEvent('a')
	if upper != lower {
		t.Errorf("'A' -> %d, 'a' -> %d, want equal", upper, lower)
	}
}

func TestRuneToEventRejectsUnknown(t *testing.T) {
	if _, ok := RuneToEvent('X'); ok {
		t.Errorf("RuneToEvent('X') ok = true, want false")
	}
}

func TestDTMFEventEncodeDecodeRoundTrip(t *testing.T) {
	e := DTMFEvent{Event: DTMF5, EndOfEvent: true, Volume: 12, Duration: 1600}
	decoded, err := DecodeDTMFEvent(e.Encode())
	if err != nil {
		t.Fatalf("DecodeDTMFEvent() error = %v", err)
	}
	if decoded != e {
		t.Errorf("decoded = %+v, want %+v", decoded, e)
	}
}

func TestDTMFEventEncodeSetsEndBit(t *testing.T) {
	e := DTMFEvent{Event: DTMFPound, EndOfEvent: true, Volume: 5}
	b := e.Encode()
	if b[1]&0x80 == 0 {
		t.Errorf("end-of-event bit not set in encoded byte %#x", b[1])
	}
}

func TestDTMFEventEncodeClearsEndBitWhenNotSet(t *testing.T) {
	e := DTMFEvent{Event: DTMFStar, EndOfEvent: false, Volume: 63}
	b := e.Encode()
	if b[1]&0x80 != 0 {
		t.Errorf("end-of-event bit set unexpectedly in %#x", b[1])
	}
	if b[1]&0x3F != 63 {
		t.Errorf("volume field = %d, want 63", b[1]&0x3F)
	}
}

func TestDecodeDTMFEventRejectsShortPayload(t *testing.T) {
	if _, err := DecodeDTMFEvent([]byte{0x01, 0x02}); err == nil {
		t.Errorf("DecodeDTMFEvent() on short payload error = nil, want error")
	}
}
