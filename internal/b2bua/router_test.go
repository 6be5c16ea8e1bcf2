package b2bua

import (
	"errors"
	"testing"

	"github.com/redfire/gateway/internal/config"
	"github.com/redfire/gateway/internal/gwerrors"
)

func newTestStore(t *testing.T, rules []config.RoutingRule) *config.Store {
	t.Helper()
	snap := config.Default()
	snap.Routing.Rules = rules
	if err := snap.CompileRouting(); err != nil {
		t.Fatalf("CompileRouting() error = %v", err)
	}
	return config.NewStore(snap)
}

func TestRouterResolveMatchesHighestPriority(t *testing.T) {
	store := newTestStore(t, []config.RoutingRule{
		{ID: "low", Pattern: `^\+1`, RouteType: config.RouteTrunk, Target: "trunk-a", Priority: 1},
		{ID: "high", Pattern: `^\+1`, RouteType: config.RouteDirect, Target: "direct-a", Priority: 10},
	})
	r := NewRouter(store)

	res, err := r.Resolve("+15551234567")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Rule.ID != "high" {
		t.Errorf("matched rule = %s, want high (higher priority)", res.Rule.ID)
	}
}

func TestRouterResolveNoMatchReturnsNotFound(t *testing.T) {
	store := newTestStore(t, []config.RoutingRule{
		{ID: "us-only", Pattern: `^\+1`, Priority: 1},
	})
	r := NewRouter(store)

	_, err := r.Resolve("+999")
	if !errors.Is(err, gwerrors.ErrNotFound) {
		t.Errorf("Resolve(+999) error = %v, want ErrNotFound", err)
	}
}

func TestRouterResolveAppliesTranslation(t *testing.T) {
	store := newTestStore(t, []config.RoutingRule{
		{
			ID: "strip-prefix", Pattern: `^0`, Priority: 1,
			Translation: &config.NumberTranslation{Match: `^0`, Replacement: "+1"},
		},
	})
	r := NewRouter(store)

	res, err := r.Resolve("05551234567")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.TranslatedNumber != "+15551234567" {
		t.Errorf("translated number = %s, want +15551234567", res.TranslatedNumber)
	}
}

func TestRouterResolvePicksUpSwappedSnapshot(t *testing.T) {
	store := newTestStore(t, []config.RoutingRule{
		{ID: "old", Pattern: `^\+1`, Priority: 1},
	})
	r := NewRouter(store)

	next := config.Default()
	next.Routing.Rules = []config.RoutingRule{{ID: "new", Pattern: `^\+1`, Priority: 1}}
	if err := next.CompileRouting(); err != nil {
		t.Fatalf("CompileRouting() error = %v", err)
	}
	store.Swap(next)

	res, err := r.Resolve("+15551234567")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Rule.ID != "new" {
		t.Errorf("matched rule = %s, want new (after swap)", res.Rule.ID)
	}
}
