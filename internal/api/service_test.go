package api

import (
	"context"
	"errors"
	"testing"
	"time"

	apiv1 "github.com/redfire/gateway/api/types/v1"
	"github.com/redfire/gateway/internal/b2bua"
	"github.com/redfire/gateway/internal/clock"
	"github.com/redfire/gateway/internal/config"
	"github.com/redfire/gateway/internal/gwerrors"
)

type fakeEngine struct {
	calls        []b2bua.Snapshot
	terminateErr error
	terminated   string
}

func (f *fakeEngine) ListCalls() []b2bua.Snapshot { return f.calls }

func (f *fakeEngine) TerminateCall(callID string) error {
	f.terminated = callID
	return f.terminateErr
}

type fakeClock struct {
	sources    []clock.SourceInfo
	selectedID string
	stratum    uint8
	selectedOK bool
	selectErr  error
	selected   string
}

func (f *fakeClock) GetSources() []clock.SourceInfo { return f.sources }

func (f *fakeClock) GetSelected() (string, uint8, bool) {
	return f.selectedID, f.stratum, f.selectedOK
}

func (f *fakeClock) Select(id string) error {
	f.selected = id
	return f.selectErr
}

func newTestService(t *testing.T, eng *fakeEngine, clk *fakeClock, rules []config.RoutingRule) *Service {
	t.Helper()
	snap := config.Default()
	snap.Routing.Rules = rules
	if err := snap.CompileRouting(); err != nil {
		t.Fatalf("CompileRouting() error = %v", err)
	}
	return NewService(eng, clk, config.NewStore(snap))
}

func TestServiceListCalls(t *testing.T) {
	now := time.Unix(1700000000, 0)
	eng := &fakeEngine{calls: []b2bua.Snapshot{
		{ID: "call-1", Caller: "+15550001", Callee: "+15550002", State: b2bua.StateAnswered, CreatedAt: now},
	}}
	svc := newTestService(t, eng, &fakeClock{}, nil)

	resp, err := svc.ListCalls(context.Background(), &apiv1.ListCallsRequest{})
	if err != nil {
		t.Fatalf("ListCalls() error = %v", err)
	}
	if len(resp.Calls) != 1 || resp.Calls[0].ID != "call-1" {
		t.Errorf("ListCalls() = %+v, want one call with ID call-1", resp.Calls)
	}
}

func TestServiceTerminateCallRejectsEmptyID(t *testing.T) {
	svc := newTestService(t, &fakeEngine{}, &fakeClock{}, nil)

	_, err := svc.TerminateCall(context.Background(), &apiv1.TerminateCallRequest{})
	if !errors.Is(err, gwerrors.ErrInvalidArgument) {
		t.Errorf("TerminateCall(empty) error = %v, want ErrInvalidArgument", err)
	}
}

func TestServiceTerminateCallDispatchesToEngine(t *testing.T) {
	eng := &fakeEngine{}
	svc := newTestService(t, eng, &fakeClock{}, nil)

	_, err := svc.TerminateCall(context.Background(), &apiv1.TerminateCallRequest{CallID: "call-1"})
	if err != nil {
		t.Fatalf("TerminateCall() error = %v", err)
	}
	if eng.terminated != "call-1" {
		t.Errorf("engine.terminated = %q, want call-1", eng.terminated)
	}
}

func TestServiceTerminateCallPropagatesEngineError(t *testing.T) {
	eng := &fakeEngine{terminateErr: gwerrors.ErrNotFound}
	svc := newTestService(t, eng, &fakeClock{}, nil)

	_, err := svc.TerminateCall(context.Background(), &apiv1.TerminateCallRequest{CallID: "missing"})
	if !errors.Is(err, gwerrors.ErrNotFound) {
		t.Errorf("TerminateCall() error = %v, want ErrNotFound", err)
	}
}

func TestServiceListClockSources(t *testing.T) {
	clk := &fakeClock{
		sources:    []clock.SourceInfo{{ID: "internal", Kind: clock.KindInternal, Stratum: 10, IsActive: true}},
		selectedID: "internal",
		stratum:    10,
		selectedOK: true,
	}
	svc := newTestService(t, &fakeEngine{}, clk, nil)

	resp, err := svc.ListClockSources(context.Background(), &apiv1.ListClockSourcesRequest{})
	if err != nil {
		t.Fatalf("ListClockSources() error = %v", err)
	}
	if resp.SelectedID != "internal" || resp.SystemStratum != 10 {
		t.Errorf("ListClockSources() = %+v, want selected=internal stratum=10", resp)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ID != "internal" {
		t.Errorf("ListClockSources() sources = %+v", resp.Sources)
	}
}

func TestServiceSelectClockSourcePropagatesError(t *testing.T) {
	clk := &fakeClock{selectErr: gwerrors.ErrNotFound}
	svc := newTestService(t, &fakeEngine{}, clk, nil)

	_, err := svc.SelectClockSource(context.Background(), &apiv1.SelectClockSourceRequest{SourceID: "gps"})
	if !errors.Is(err, gwerrors.ErrNotFound) {
		t.Errorf("SelectClockSource() error = %v, want ErrNotFound", err)
	}
	if clk.selected != "gps" {
		t.Errorf("clock.selected = %q, want gps", clk.selected)
	}
}

func TestServiceAddRoutingRuleRejectsMissingFields(t *testing.T) {
	svc := newTestService(t, &fakeEngine{}, &fakeClock{}, nil)

	_, err := svc.AddRoutingRule(context.Background(), &apiv1.AddRoutingRuleRequest{Rule: apiv1.RoutingRule{ID: "r1"}})
	if !errors.Is(err, gwerrors.ErrInvalidArgument) {
		t.Errorf("AddRoutingRule(no pattern) error = %v, want ErrInvalidArgument", err)
	}
}

func TestServiceAddRoutingRuleThenListRoutingRules(t *testing.T) {
	svc := newTestService(t, &fakeEngine{}, &fakeClock{}, nil)

	_, err := svc.AddRoutingRule(context.Background(), &apiv1.AddRoutingRuleRequest{
		Rule: apiv1.RoutingRule{ID: "r1", Pattern: `^\+1`, RouteType: "trunk", Target: "trunk-a", Priority: 5},
	})
	if err != nil {
		t.Fatalf("AddRoutingRule() error = %v", err)
	}

	resp, err := svc.ListRoutingRules(context.Background(), &apiv1.ListRoutingRulesRequest{})
	if err != nil {
		t.Fatalf("ListRoutingRules() error = %v", err)
	}
	if len(resp.Rules) != 1 || resp.Rules[0].ID != "r1" || resp.Rules[0].RouteType != "trunk" {
		t.Errorf("ListRoutingRules() = %+v, want one trunk rule r1", resp.Rules)
	}
}

func TestServiceRemoveRoutingRule(t *testing.T) {
	svc := newTestService(t, &fakeEngine{}, &fakeClock{}, []config.RoutingRule{
		{ID: "r1", Pattern: `^\+1`, Priority: 1},
		{ID: "r2", Pattern: `^\+2`, Priority: 1},
	})

	_, err := svc.RemoveRoutingRule(context.Background(), &apiv1.RemoveRoutingRuleRequest{ID: "r1"})
	if err != nil {
		t.Fatalf("RemoveRoutingRule() error = %v", err)
	}

	resp, err := svc.ListRoutingRules(context.Background(), &apiv1.ListRoutingRulesRequest{})
	if err != nil {
		t.Fatalf("ListRoutingRules() error = %v", err)
	}
	if len(resp.Rules) != 1 || resp.Rules[0].ID != "r2" {
		t.Errorf("ListRoutingRules() after remove = %+v, want only r2", resp.Rules)
	}
}
