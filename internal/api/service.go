// Package api implements the gateway's management service (spec.md's
// operator-facing control plane): call inspection and forced termination,
// clock source listing/selection, and routing rule CRUD, exposed over
// grpc the way the teacher's transport.Pool exposes the RTP Manager's
// control surface, but as a server rather than a client.
package api

import (
	"context"
	"fmt"

	apiv1 "github.com/redfire/gateway/api/types/v1"
	"github.com/redfire/gateway/internal/b2bua"
	"github.com/redfire/gateway/internal/clock"
	"github.com/redfire/gateway/internal/config"
	"github.com/redfire/gateway/internal/gwerrors"
	"github.com/redfire/gateway/internal/logging"
)

var log = logging.Component("api")

// CallEngine is the subset of b2bua.Engine the management service needs.
type CallEngine interface {
	ListCalls() []b2bua.Snapshot
	TerminateCall(callID string) error
}

// ClockSources is the subset of clock.Service the management service needs.
type ClockSources interface {
	GetSources() []clock.SourceInfo
	GetSelected() (id string, stratum uint8, ok bool)
	Select(id string) error
}

// Service implements GatewayAdminServer against the gateway's live engine,
// clock service, and config store.
type Service struct {
	engine CallEngine
	clock  ClockSources
	config *config.Store
}

// NewService builds a Service backed by the given subsystems.
func NewService(engine CallEngine, clk ClockSources, cfg *config.Store) *Service {
	return &Service{engine: engine, clock: clk, config: cfg}
}

func (s *Service) ListCalls(ctx context.Context, req *apiv1.ListCallsRequest) (*apiv1.ListCallsResponse, error) {
	snaps := s.engine.ListCalls()
	out := make([]apiv1.Call, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, apiv1.Call{
			ID:              snap.ID,
			Caller:          snap.Caller,
			Callee:          snap.Callee,
			State:           snap.State.String(),
			DisconnectCause: disconnectCauseName(snap.DisconnectCause),
			CreatedAt:       snap.CreatedAt,
			AnsweredAt:      snap.AnsweredAt,
			EndedAt:         snap.EndedAt,
			MediaSessionID:  snap.MediaSessionID,
			PacketsAtoB:     snap.RelayStats.PacketsAtoB,
			PacketsBtoA:     snap.RelayStats.PacketsBtoA,
			BytesAtoB:       snap.RelayStats.BytesAtoB,
			BytesBtoA:       snap.RelayStats.BytesBtoA,
		})
	}
	return &apiv1.ListCallsResponse{Calls: out}, nil
}

func (s *Service) TerminateCall(ctx context.Context, req *apiv1.TerminateCallRequest) (*apiv1.TerminateCallResponse, error) {
	if req.CallID == "" {
		return nil, fmt.Errorf("api: terminate call: %w: empty call_id", gwerrors.ErrInvalidArgument)
	}
	if err := s.engine.TerminateCall(req.CallID); err != nil {
		return nil, fmt.Errorf("api: terminate call %s: %w", req.CallID, err)
	}
	log.Info("call terminated via management API", "call_id", req.CallID)
	return &apiv1.TerminateCallResponse{}, nil
}

func (s *Service) ListClockSources(ctx context.Context, req *apiv1.ListClockSourcesRequest) (*apiv1.ListClockSourcesResponse, error) {
	sources := s.clock.GetSources()
	out := make([]apiv1.ClockSource, 0, len(sources))
	for _, src := range sources {
		out = append(out, apiv1.ClockSource{
			ID:            src.ID,
			Kind:          src.Kind.String(),
			Stratum:       src.Stratum,
			IsActive:      src.IsActive,
			IsHoldover:    src.IsHoldover,
			FreqOffsetPPB: src.FreqOffsetPPB,
			PhaseOffsetNS: src.PhaseOffsetNS,
			TimeErrorNS:   src.TimeErrorNS,
			AllanVariance: src.AllanVariance,
			LastSync:      src.LastSync,
		})
	}
	selID, stratum, _ := s.clock.GetSelected()
	return &apiv1.ListClockSourcesResponse{Sources: out, SelectedID: selID, SystemStratum: stratum}, nil
}

func (s *Service) SelectClockSource(ctx context.Context, req *apiv1.SelectClockSourceRequest) (*apiv1.SelectClockSourceResponse, error) {
	if err := s.clock.Select(req.SourceID); err != nil {
		return nil, fmt.Errorf("api: select clock source %s: %w", req.SourceID, err)
	}
	log.Info("clock source selected via management API", "source_id", req.SourceID)
	return &apiv1.SelectClockSourceResponse{}, nil
}

func (s *Service) ListRoutingRules(ctx context.Context, req *apiv1.ListRoutingRulesRequest) (*apiv1.ListRoutingRulesResponse, error) {
	snap := s.config.Load()
	out := make([]apiv1.RoutingRule, 0, len(snap.Routing.Rules))
	for _, r := range snap.Routing.Rules {
		out = append(out, toWireRule(r))
	}
	return &apiv1.ListRoutingRulesResponse{Rules: out}, nil
}

func (s *Service) AddRoutingRule(ctx context.Context, req *apiv1.AddRoutingRuleRequest) (*apiv1.AddRoutingRuleResponse, error) {
	if req.Rule.ID == "" || req.Rule.Pattern == "" {
		return nil, fmt.Errorf("api: add routing rule: %w: id and pattern are required", gwerrors.ErrInvalidArgument)
	}
	current := s.config.Load()
	next := *current
	next.Routing.Rules = append(append([]config.RoutingRule{}, current.Routing.Rules...), fromWireRule(req.Rule))
	if err := next.CompileRouting(); err != nil {
		return nil, fmt.Errorf("api: add routing rule: %w: %v", gwerrors.ErrInvalidArgument, err)
	}
	s.config.Swap(&next)
	log.Info("routing rule added via management API", "rule_id", req.Rule.ID)
	return &apiv1.AddRoutingRuleResponse{}, nil
}

func (s *Service) RemoveRoutingRule(ctx context.Context, req *apiv1.RemoveRoutingRuleRequest) (*apiv1.RemoveRoutingRuleResponse, error) {
	current := s.config.Load()
	next := *current
	rules := make([]config.RoutingRule, 0, len(current.Routing.Rules))
	for _, r := range current.Routing.Rules {
		if r.ID != req.ID {
			rules = append(rules, r)
		}
	}
	next.Routing.Rules = rules
	s.config.Swap(&next)
	log.Info("routing rule removed via management API", "rule_id", req.ID)
	return &apiv1.RemoveRoutingRuleResponse{}, nil
}

func toWireRule(r config.RoutingRule) apiv1.RoutingRule {
	out := apiv1.RoutingRule{
		ID:        r.ID,
		Pattern:   r.Pattern,
		RouteType: routeTypeName(r.RouteType),
		Target:    r.Target,
		Priority:  r.Priority,
	}
	if r.Translation != nil {
		out.TranslationMatch = r.Translation.Match
		out.TranslationReplace = r.Translation.Replacement
	}
	return out
}

func fromWireRule(r apiv1.RoutingRule) config.RoutingRule {
	out := config.RoutingRule{
		ID:        r.ID,
		Pattern:   r.Pattern,
		RouteType: routeTypeFromName(r.RouteType),
		Target:    r.Target,
		Priority:  r.Priority,
	}
	if r.TranslationMatch != "" {
		out.Translation = &config.NumberTranslation{Match: r.TranslationMatch, Replacement: r.TranslationReplace}
	}
	return out
}

func routeTypeName(t config.RouteType) string {
	switch t {
	case config.RouteGateway:
		return "gateway"
	case config.RouteTrunk:
		return "trunk"
	case config.RouteEmergency:
		return "emergency"
	default:
		return "direct"
	}
}

func routeTypeFromName(s string) config.RouteType {
	switch s {
	case "gateway":
		return config.RouteGateway
	case "trunk":
		return config.RouteTrunk
	case "emergency":
		return config.RouteEmergency
	default:
		return config.RouteDirect
	}
}

func disconnectCauseName(c b2bua.DisconnectCause) string {
	switch c {
	case b2bua.CauseNoRoute:
		return "no_route"
	case b2bua.CauseUnreachable:
		return "unreachable"
	case b2bua.CauseNegotiationFailed:
		return "negotiation_failed"
	case b2bua.CauseCalleeBusy:
		return "callee_busy"
	case b2bua.CauseCalleeRejected:
		return "callee_rejected"
	case b2bua.CauseTimeout:
		return "timeout"
	case b2bua.CauseInternalError:
		return "internal_error"
	case b2bua.CauseMaxCallDurationExceeded:
		return "max_call_duration_exceeded"
	default:
		return "normal"
	}
}
