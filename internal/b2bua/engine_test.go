package b2bua

import (
	"errors"
	"testing"

	"github.com/emiago/sipgo/sip"

	"github.com/redfire/gateway/internal/codec"
	"github.com/redfire/gateway/internal/config"
	"github.com/redfire/gateway/internal/gwerrors"
	"github.com/redfire/gateway/internal/sipstack"
)

func newTestEngine(t *testing.T, snap *config.Snapshot) *Engine {
	t.Helper()
	if snap == nil {
		snap = config.Default()
	}
	if err := snap.CompileRouting(); err != nil {
		t.Fatalf("CompileRouting() error = %v", err)
	}
	store := config.NewStore(snap)
	manager := sipstack.NewManager(nil, nil, sip.Uri{})
	return NewEngine(Options{
		Manager: manager,
		Router:  NewRouter(store),
		Codecs:  codec.NewRegistry(),
		Config:  store,
	})
}

func TestTDMDefaultCodecUsesConfiguredPreference(t *testing.T) {
	snap := config.Default()
	snap.Codecs.PreferredOrder = []string{"G722", "PCMU"}
	e := newTestEngine(t, snap)

	if got := e.tdmDefaultCodec(); got != codec.Name("G722") {
		t.Errorf("tdmDefaultCodec() = %s, want G722", got)
	}
}

func TestTDMDefaultCodecFallsBackToRegistry(t *testing.T) {
	snap := config.Default()
	snap.Codecs.PreferredOrder = nil
	e := newTestEngine(t, snap)

	got := e.tdmDefaultCodec()
	found := false
	for _, name := range e.codecs.Names() {
		if got == name {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("tdmDefaultCodec() = %s, not one of the registry's codecs %v", got, e.codecs.Names())
	}
}

func TestTerminateCallUnknownIDReturnsNotFound(t *testing.T) {
	e := newTestEngine(t, nil)

	if err := e.TerminateCall("missing"); !errors.Is(err, gwerrors.ErrNotFound) {
		t.Errorf("TerminateCall(missing) error = %v, want ErrNotFound", err)
	}
}

func TestCodecCountsWithNoCallsIsZero(t *testing.T) {
	e := newTestEngine(t, nil)

	passthrough, transcoded := e.CodecCounts()
	if passthrough != 0 || transcoded != 0 {
		t.Errorf("CodecCounts() = (%d, %d), want (0, 0) with no calls", passthrough, transcoded)
	}
}
