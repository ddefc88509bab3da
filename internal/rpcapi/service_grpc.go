// SPDX-License-Identifier: MIT

package rpcapi

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the gRPC service name this surface registers under.
const ServiceName = "btspeakkeyinterceptor.BtspeakKeyInterceptor"

// Server is the interface the transport dispatches onto: the seven
// operations named in the external interface.
type Server interface {
	GrabKeyCombinations(*Empty, GrabKeyCombinationsStream) error
	GrabKeyEvents(*Empty, GrabKeyEventsStream) error
	SetExcludedKeyCombinations(context.Context, *ChordList) (*Empty, error)
	SetExcludedKeyEvents(context.Context, *EventList) (*Empty, error)
	ReleaseKeyboard(context.Context, *Empty) (*Empty, error)
	SendKeyCombination(context.Context, *Chord) (*Empty, error)
	SendKeyEvent(context.Context, *Event) (*Empty, error)
}

// GrabKeyCombinationsStream is the server-streaming handle for
// grabKeyCombinations.
type GrabKeyCombinationsStream interface {
	Send(*Chord) error
	grpc.ServerStream
}

type grabKeyCombinationsStream struct{ grpc.ServerStream }

func (x *grabKeyCombinationsStream) Send(m *Chord) error {
	return x.ServerStream.SendMsg(m)
}

// GrabKeyEventsStream is the server-streaming handle for grabKeyEvents.
type GrabKeyEventsStream interface {
	Send(*Event) error
	grpc.ServerStream
}

type grabKeyEventsStream struct{ grpc.ServerStream }

func (x *grabKeyEventsStream) Send(m *Event) error {
	return x.ServerStream.SendMsg(m)
}

func _Service_GrabKeyCombinations_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(Server).GrabKeyCombinations(m, &grabKeyCombinationsStream{stream})
}

func _Service_GrabKeyEvents_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(Server).GrabKeyEvents(m, &grabKeyEventsStream{stream})
}

func _Service_SetExcludedKeyCombinations_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ChordList)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).SetExcludedKeyCombinations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/SetExcludedKeyCombinations"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).SetExcludedKeyCombinations(ctx, req.(*ChordList))
	}
	return interceptor(ctx, in, info, handler)
}

func _Service_SetExcludedKeyEvents_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(EventList)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).SetExcludedKeyEvents(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/SetExcludedKeyEvents"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).SetExcludedKeyEvents(ctx, req.(*EventList))
	}
	return interceptor(ctx, in, info, handler)
}

func _Service_ReleaseKeyboard_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).ReleaseKeyboard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ReleaseKeyboard"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).ReleaseKeyboard(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Service_SendKeyCombination_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Chord)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).SendKeyCombination(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/SendKeyCombination"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).SendKeyCombination(ctx, req.(*Chord))
	}
	return interceptor(ctx, in, info, handler)
}

func _Service_SendKeyEvent_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Event)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).SendKeyEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/SendKeyEvent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).SendKeyEvent(ctx, req.(*Event))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the hand-written equivalent of a protoc-gen-go-grpc
// output: pure data describing method names and their dispatch functions,
// registered directly against *grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SetExcludedKeyCombinations", Handler: _Service_SetExcludedKeyCombinations_Handler},
		{MethodName: "SetExcludedKeyEvents", Handler: _Service_SetExcludedKeyEvents_Handler},
		{MethodName: "ReleaseKeyboard", Handler: _Service_ReleaseKeyboard_Handler},
		{MethodName: "SendKeyCombination", Handler: _Service_SendKeyCombination_Handler},
		{MethodName: "SendKeyEvent", Handler: _Service_SendKeyEvent_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "GrabKeyCombinations", Handler: _Service_GrabKeyCombinations_Handler, ServerStreams: true},
		{StreamName: "GrabKeyEvents", Handler: _Service_GrabKeyEvents_Handler, ServerStreams: true},
	},
	Metadata: "btspeak_key_interceptor.proto",
}

// RegisterServer registers srv against s using ServiceDesc.
func RegisterServer(s *grpc.Server, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}
