// Package v1 defines the wire messages for the gateway management service
// (spec.md's operator-facing control plane: call inspection, forced
// termination, clock source selection, routing rule CRUD). The teacher's
// only gRPC precedent (services/signaling/transport/grpc.go) is a client
// consuming a remote, protoc-generated rtpv1 package; without protoc in
// this build path these messages are plain Go structs carried over the
// JSON codec registered in internal/api, not protoc-gen-go output. See
// DESIGN.md for why google.golang.org/protobuf has no home in this tree.
package v1

import "time"

// Call mirrors b2bua.Snapshot for wire transport.
type Call struct {
	ID              string     `json:"id"`
	Caller          string     `json:"caller"`
	Callee          string     `json:"callee"`
	State           string     `json:"state"`
	DisconnectCause string     `json:"disconnect_cause,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	AnsweredAt      *time.Time `json:"answered_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	MediaSessionID  string     `json:"media_session_id,omitempty"`
	PacketsAtoB     uint64     `json:"packets_a_to_b"`
	PacketsBtoA     uint64     `json:"packets_b_to_a"`
	BytesAtoB       uint64     `json:"bytes_a_to_b"`
	BytesBtoA       uint64     `json:"bytes_b_to_a"`
}

// ListCallsRequest takes no filters; the gateway is expected to run at a
// scale where the full call table fits comfortably in one response.
type ListCallsRequest struct{}

type ListCallsResponse struct {
	Calls []Call `json:"calls"`
}

type TerminateCallRequest struct {
	CallID string `json:"call_id"`
}

type TerminateCallResponse struct{}

// ClockSource mirrors clock.SourceInfo for wire transport.
type ClockSource struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Stratum       uint8     `json:"stratum"`
	IsActive      bool      `json:"is_active"`
	IsHoldover    bool      `json:"is_holdover"`
	FreqOffsetPPB int64     `json:"freq_offset_ppb"`
	PhaseOffsetNS int64     `json:"phase_offset_ns"`
	TimeErrorNS   int64     `json:"time_error_ns"`
	AllanVariance float64   `json:"allan_variance"`
	LastSync      time.Time `json:"last_sync"`
}

type ListClockSourcesRequest struct{}

type ListClockSourcesResponse struct {
	Sources       []ClockSource `json:"sources"`
	SelectedID    string        `json:"selected_id"`
	SystemStratum uint8         `json:"system_stratum"`
}

type SelectClockSourceRequest struct {
	SourceID string `json:"source_id"`
}

type SelectClockSourceResponse struct{}

// RoutingRule mirrors config.RoutingRule for wire transport.
type RoutingRule struct {
	ID                 string `json:"id"`
	Pattern             string `json:"pattern"`
	RouteType           string `json:"route_type"`
	Target              string `json:"target"`
	Priority            uint8  `json:"priority"`
	TranslationMatch    string `json:"translation_match,omitempty"`
	TranslationReplace  string `json:"translation_replace,omitempty"`
}

type ListRoutingRulesRequest struct{}

type ListRoutingRulesResponse struct {
	Rules []RoutingRule `json:"rules"`
}

type AddRoutingRuleRequest struct {
	Rule RoutingRule `json:"rule"`
}

type AddRoutingRuleResponse struct{}

type RemoveRoutingRuleRequest struct {
	ID string `json:"id"`
}

type RemoveRoutingRuleResponse struct{}
