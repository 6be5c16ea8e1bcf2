package codec

import "testing"

func TestNewRegistryRegistersCoreCodecs(t *testing.T) {
	r := NewRegistry()
	for _, name := range []Name{PCMU, PCMA, L16, TelephoneEvent, G722, G729, Opus, Speex} {
		if _, err := r.Get(name); err != nil {
			t.Errorf("Get(%s) error = %v, want registered", name, err)
		}
	}
}

func TestRegistryPCMUAvailable(t *testing.T) {
	r := NewRegistry()
	c, err := r.Get(PCMU)
	if err != nil {
		t.Fatalf("Get(PCMU) error = %v", err)
	}
	if !c.Available() {
		t.Errorf("PCMU.Available() = false, want true")
	}
}

func TestRegistryStubCodecsUnavailable(t *testing.T) {
	r := NewRegistry()
	for _, name := range []Name{G722, G729, Opus, Speex} {
		c, err := r.Get(name)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", name, err)
		}
		if c.Available() {
			t.Errorf("%s.Available() = true, want false (unimplemented stub)", name)
		}
	}
}

func TestRegistryByPayloadType(t *testing.T) {
	r := NewRegistry()
	c, err := r.ByPayloadType(0)
	if err != nil {
		t.Fatalf("ByPayloadType(0) error = %v", err)
	}
	if c.Name != PCMU {
		t.Errorf("ByPayloadType(0) = %s, want PCMU", c.Name)
	}
}

func TestRegistryByPayloadTypeUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.ByPayloadType(999); err == nil {
		t.Errorf("ByPayloadType(999) error = nil, want error")
	}
}

func TestRegistryIntersectPreservesOfferedOrder(t *testing.T) {
	r := NewRegistry()
	offered := []Name{Opus, PCMA, "bogus", PCMU}
	got := r.Intersect(offered)
	want := []Name{Opus, PCMA, PCMU}
	if len(got) != len(want) {
		t.Fatalf("Intersect() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Intersect()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestGetUnknownCodec(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nonexistent"); err == nil {
		t.Errorf("Get(unknown) error = nil, want error")
	}
}
