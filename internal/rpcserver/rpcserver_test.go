// SPDX-License-Identifier: MIT

package rpcserver

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/emassey0135/btspeak-key-interceptor/internal/rpcapi"
	"github.com/emassey0135/btspeak-key-interceptor/internal/testsupport"
)

// stubServer is a minimal rpcapi.Server used to exercise the listener and
// dispatch path without wiring a real Arbiter/Injector.
type stubServer struct {
	releaseCalls int
}

func (s *stubServer) GrabKeyCombinations(*rpcapi.Empty, rpcapi.GrabKeyCombinationsStream) error {
	return nil
}
func (s *stubServer) GrabKeyEvents(*rpcapi.Empty, rpcapi.GrabKeyEventsStream) error { return nil }
func (s *stubServer) SetExcludedKeyCombinations(context.Context, *rpcapi.ChordList) (*rpcapi.Empty, error) {
	return &rpcapi.Empty{}, nil
}
func (s *stubServer) SetExcludedKeyEvents(context.Context, *rpcapi.EventList) (*rpcapi.Empty, error) {
	return &rpcapi.Empty{}, nil
}
func (s *stubServer) ReleaseKeyboard(context.Context, *rpcapi.Empty) (*rpcapi.Empty, error) {
	s.releaseCalls++
	return &rpcapi.Empty{}, nil
}
func (s *stubServer) SendKeyCombination(context.Context, *rpcapi.Chord) (*rpcapi.Empty, error) {
	return &rpcapi.Empty{}, nil
}
func (s *stubServer) SendKeyEvent(context.Context, *rpcapi.Event) (*rpcapi.Empty, error) {
	return &rpcapi.Empty{}, nil
}

func TestServer_StartAcceptsAndDispatchesUnaryCall(t *testing.T) {
	stub := &stubServer{}
	srv := New("127.0.0.1:0", stub, testsupport.NewNullLogger())
	if err := srv.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer srv.Stop()

	addr := srv.Addr()
	if addr == nil {
		t.Fatal("expected a bound address after Start")
	}

	conn, err := grpc.NewClient(addr.String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := &rpcapi.Empty{}
	resp := &rpcapi.Empty{}
	method := "/" + rpcapi.ServiceName + "/ReleaseKeyboard"
	if err := conn.Invoke(ctx, method, req, resp); err != nil {
		t.Fatalf("Invoke ReleaseKeyboard: %v", err)
	}

	if stub.releaseCalls != 1 {
		t.Fatalf("expected ReleaseKeyboard to be called once, got %d", stub.releaseCalls)
	}
}

func TestServer_StopIsIdempotentWithoutStart(t *testing.T) {
	stub := &stubServer{}
	srv := New("127.0.0.1:0", stub, testsupport.NewNullLogger())
	srv.Stop()
	srv.Stop()
}

func TestServer_StopIsIdempotentAfterStart(t *testing.T) {
	stub := &stubServer{}
	srv := New("127.0.0.1:0", stub, testsupport.NewNullLogger())
	if err := srv.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	srv.Stop()
	srv.Stop()
}
