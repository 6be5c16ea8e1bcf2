package store

import (
	"testing"
	"time"
)

func TestTTLStoreSetGet(t *testing.T) {
	s := NewTTLStore[string, int](time.Hour)
	defer s.Close()

	s.Set("a", 1, time.Hour)
	v, ok := s.Get("a")
	if !ok || v != 1 {
		t.Fatalf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}
}

func TestTTLStoreGetMissing(t *testing.T) {
	s := NewTTLStore[string, int](time.Hour)
	defer s.Close()

	if _, ok := s.Get("missing"); ok {
		t.Errorf("Get(missing) ok = true, want false")
	}
}

func TestTTLStoreExpiredEntryNotReturned(t *testing.T) {
	s := NewTTLStore[string, int](time.Hour)
	defer s.Close()

	s.Set("a", 1, -time.Second) // already expired
	if _, ok := s.Get("a"); ok {
		t.Errorf("Get(a) ok = true for expired entry, want false")
	}
}

func TestTTLStoreDelete(t *testing.T) {
	s := NewTTLStore[string, int](time.Hour)
	defer s.Close()

	s.Set("a", 1, time.Hour)
	if !s.Delete("a") {
		t.Errorf("Delete(a) = false, want true")
	}
	if _, ok := s.Get("a"); ok {
		t.Errorf("Get(a) after delete ok = true, want false")
	}
}

func TestTTLStoreLenCountsOnlyLive(t *testing.T) {
	s := NewTTLStore[string, int](time.Hour)
	defer s.Close()

	s.Set("a", 1, time.Hour)
	s.Set("b", 2, -time.Second)
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestTTLStoreForEachStopsEarly(t *testing.T) {
	s := NewTTLStore[string, int](time.Hour)
	defer s.Close()

	s.Set("a", 1, time.Hour)
	s.Set("b", 2, time.Hour)

	count := 0
	s.ForEach(func(k string, v int) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("ForEach visited %d entries, want 1 after early stop", count)
	}
}

func TestTTLStoreCleanupEvictsExpired(t *testing.T) {
	s := NewTTLStore[string, int](20 * time.Millisecond)
	defer s.Close()

	evicted := make(chan string, 1)
	s.SetOnEvict(func(k string, v int) { evicted <- k })
	s.Set("a", 1, 5*time.Millisecond)

	select {
	case k := <-evicted:
		if k != "a" {
			t.Errorf("evicted key = %s, want a", k)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for cleanup eviction")
	}
}
