package api

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"

	apiv1 "github.com/redfire/gateway/api/types/v1"
)

// GatewayAdminServer is the management service's server interface. It is
// written out by hand in place of protoc-gen-go-grpc output (see
// api/types/v1 and codec.go for why), but the shape and the ServiceDesc
// plumbing below follow exactly what that generator would have produced.
type GatewayAdminServer interface {
	ListCalls(context.Context, *apiv1.ListCallsRequest) (*apiv1.ListCallsResponse, error)
	TerminateCall(context.Context, *apiv1.TerminateCallRequest) (*apiv1.TerminateCallResponse, error)
	ListClockSources(context.Context, *apiv1.ListClockSourcesRequest) (*apiv1.ListClockSourcesResponse, error)
	SelectClockSource(context.Context, *apiv1.SelectClockSourceRequest) (*apiv1.SelectClockSourceResponse, error)
	ListRoutingRules(context.Context, *apiv1.ListRoutingRulesRequest) (*apiv1.ListRoutingRulesResponse, error)
	AddRoutingRule(context.Context, *apiv1.AddRoutingRuleRequest) (*apiv1.AddRoutingRuleResponse, error)
	RemoveRoutingRule(context.Context, *apiv1.RemoveRoutingRuleRequest) (*apiv1.RemoveRoutingRuleResponse, error)
}

// RegisterGatewayAdminServer registers srv against s, the way a generated
// _GatewayAdmin_serviceDesc would via grpc.Server.RegisterService.
func RegisterGatewayAdminServer(s grpc.ServiceRegistrar, srv GatewayAdminServer) {
	s.RegisterService(&gatewayAdminServiceDesc, srv)
}

var gatewayAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: "gateway.v1.GatewayAdmin",
	HandlerType: (*GatewayAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListCalls", Handler: handleListCalls},
		{MethodName: "TerminateCall", Handler: handleTerminateCall},
		{MethodName: "ListClockSources", Handler: handleListClockSources},
		{MethodName: "SelectClockSource", Handler: handleSelectClockSource},
		{MethodName: "ListRoutingRules", Handler: handleListRoutingRules},
		{MethodName: "AddRoutingRule", Handler: handleAddRoutingRule},
		{MethodName: "RemoveRoutingRule", Handler: handleRemoveRoutingRule},
	},
	Metadata: "gateway/v1/admin.proto",
}

func handleListCalls(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(apiv1.ListCallsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayAdminServer).ListCalls(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gateway.v1.GatewayAdmin/ListCalls"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayAdminServer).ListCalls(ctx, req.(*apiv1.ListCallsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func handleTerminateCall(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(apiv1.TerminateCallRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayAdminServer).TerminateCall(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gateway.v1.GatewayAdmin/TerminateCall"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayAdminServer).TerminateCall(ctx, req.(*apiv1.TerminateCallRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func handleListClockSources(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(apiv1.ListClockSourcesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayAdminServer).ListClockSources(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gateway.v1.GatewayAdmin/ListClockSources"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayAdminServer).ListClockSources(ctx, req.(*apiv1.ListClockSourcesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func handleSelectClockSource(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(apiv1.SelectClockSourceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayAdminServer).SelectClockSource(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gateway.v1.GatewayAdmin/SelectClockSource"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayAdminServer).SelectClockSource(ctx, req.(*apiv1.SelectClockSourceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func handleListRoutingRules(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(apiv1.ListRoutingRulesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayAdminServer).ListRoutingRules(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gateway.v1.GatewayAdmin/ListRoutingRules"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayAdminServer).ListRoutingRules(ctx, req.(*apiv1.ListRoutingRulesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func handleAddRoutingRule(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(apiv1.AddRoutingRuleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayAdminServer).AddRoutingRule(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gateway.v1.GatewayAdmin/AddRoutingRule"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayAdminServer).AddRoutingRule(ctx, req.(*apiv1.AddRoutingRuleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func handleRemoveRoutingRule(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(apiv1.RemoveRoutingRuleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayAdminServer).RemoveRoutingRule(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gateway.v1.GatewayAdmin/RemoveRoutingRule"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayAdminServer).RemoveRoutingRule(ctx, req.(*apiv1.RemoveRoutingRuleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Server wraps a grpc.Server bound to a listen address, following the
// teacher's api.Server lifecycle (Start/Stop around a long-lived listener).
type Server struct {
	grpcServer *grpc.Server
	addr       string
}

// NewServer builds a Server exposing svc's management RPCs on addr.
func NewServer(addr string, svc GatewayAdminServer) *Server {
	gs := grpc.NewServer()
	RegisterGatewayAdminServer(gs, svc)
	return &Server{grpcServer: gs, addr: addr}
}

// Start binds addr and serves in a background goroutine, returning once the
// listener is up (matching the teacher's api.Server.Start, which returns
// before requests start flowing rather than blocking for the process
// lifetime).
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", s.addr, err)
	}
	log.Info("management API listening", "addr", s.addr)
	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			log.Error("management API server stopped", "error", err)
		}
	}()
	return nil
}

// Stop gracefully drains in-flight RPCs and shuts down the listener.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
