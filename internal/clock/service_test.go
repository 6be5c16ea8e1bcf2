package clock

import (
	"context"
	"testing"
	"time"
)

func TestServiceSelectsInternalOscillatorByDefault(t *testing.T) {
	s := NewService()
	s.runSelection()

	id, stratum, ok := s.GetSelected()
	if !ok {
		t.Fatalf("expected a selected source")
	}
	if id != "internal-0" {
		t.Errorf("id = %q, want internal-0", id)
	}
	if stratum != 15 {
		t.Errorf("stratum = %d, want 15", stratum)
	}
}

func TestAddSourceDuplicateIDFails(t *testing.T) {
	s := NewService()
	src := NewGPSSource("gps-0", nil)
	if err := s.AddSource(src); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if err := s.AddSource(src); err == nil {
		t.Fatalf("expected AlreadyExists error on duplicate add")
	}
}

func TestSelectUnknownSourceFails(t *testing.T) {
	s := NewService()
	if err := s.Select("does-not-exist"); err == nil {
		t.Fatalf("expected NotFound error")
	}
}

func TestHighestStratumPrefersLowerNumber(t *testing.T) {
	s := NewService(WithAlgorithm(AlgorithmHighestStratum))
	gps := NewGPSSource("gps-0", func(ctx context.Context) (Health, error) {
		return Health{InSync: true, Stratum: 1}, nil
	})
	if err := s.AddSource(gps); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	s.pollSource(context.Background(), "gps-0")
	s.runSelection()

	id, stratum, ok := s.GetSelected()
	if !ok || id != "gps-0" {
		t.Fatalf("expected gps-0 selected, got %q ok=%v", id, ok)
	}
	if stratum != 1 {
		t.Errorf("stratum = %d, want 1", stratum)
	}
}

func TestFailoverToNextBestOnLossOfSync(t *testing.T) {
	inSync := true
	gps := NewGPSSource("gps-0", func(ctx context.Context) (Health, error) {
		return Health{InSync: inSync, Stratum: 1}, nil
	})
	ntp := NewNTPSource("ntp-0", func(ctx context.Context) (Health, error) {
		return Health{InSync: true, Stratum: 2}, nil
	})

	s := NewService(WithHoldover(10 * time.Millisecond))
	_ = s.AddSource(gps)
	_ = s.AddSource(ntp)

	s.pollSource(context.Background(), "gps-0")
	s.pollSource(context.Background(), "ntp-0")
	s.runSelection()

	id, _, _ := s.GetSelected()
	if id != "gps-0" {
		t.Fatalf("expected gps-0 selected initially, got %q", id)
	}

	events := s.SubscribeEvents()

	inSync = false
	s.pollSource(context.Background(), "gps-0")
	time.Sleep(20 * time.Millisecond) // exceed holdover window
	s.pollSource(context.Background(), "gps-0")
	s.runSelection()

	id, stratum, ok := s.GetSelected()
	if !ok || id != "ntp-0" {
		t.Fatalf("expected failover to ntp-0, got %q ok=%v", id, ok)
	}
	if stratum != 2 {
		t.Errorf("stratum = %d, want 2", stratum)
	}

	select {
	case e := <-events:
		if e.Type != EventLossOfSync && e.Type != EventSourceSelected {
			t.Errorf("unexpected first event type %v", e.Type)
		}
	default:
		t.Fatalf("expected at least one event")
	}
}

func TestAtMostOneActiveSourceInvariant(t *testing.T) {
	s := NewService()
	gps := NewGPSSource("gps-0", func(ctx context.Context) (Health, error) {
		return Health{InSync: true, Stratum: 1}, nil
	})
	_ = s.AddSource(gps)
	s.pollSource(context.Background(), "gps-0")
	s.runSelection()

	active := 0
	for _, info := range s.GetSources() {
		if info.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("active source count = %d, want 1", active)
	}
}
