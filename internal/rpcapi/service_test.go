// SPDX-License-Identifier: MIT

package rpcapi

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	evdev "github.com/holoplot/go-evdev"

	"github.com/emassey0135/btspeak-key-interceptor/internal/arbiter"
	"github.com/emassey0135/btspeak-key-interceptor/internal/device"
	"github.com/emassey0135/btspeak-key-interceptor/internal/injector"
	"github.com/emassey0135/btspeak-key-interceptor/internal/keyset"
	"github.com/emassey0135/btspeak-key-interceptor/internal/synkbd"
	"github.com/emassey0135/btspeak-key-interceptor/internal/testsupport"
)

// fakeSink stands in for synkbd.Sink, recording every emission.
type fakeSink struct {
	emits []synkbd.RawEmit
}

func (f *fakeSink) Emit(e synkbd.RawEmit) error {
	f.emits = append(f.emits, e)
	return nil
}
func (f *fakeSink) EmitPress(code uint16) error {
	f.emits = append(f.emits, synkbd.RawEmit{Type: 0x01, Code: code, Value: 1})
	return nil
}
func (f *fakeSink) EmitRelease(code uint16) error {
	f.emits = append(f.emits, synkbd.RawEmit{Type: 0x01, Code: code, Value: 0})
	return nil
}

func rawDeviceEvent(member keyset.KeyMember, transition keyset.Transition) device.Event {
	code, _ := device.KeyCodeFor(member)
	value := int32(0)
	if transition == keyset.Press {
		value = 1
	}
	return device.Event{
		Raw:      keyset.RawEvent{Key: member, Transition: transition},
		Original: &evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value},
	}
}

// testHarness wires a real Arbiter and Injector behind a Service exposed
// over an in-process bufconn listener, exercising the whole dispatch path
// (ServiceDesc, json codec, status mapping) without a real TCP socket.
type testHarness struct {
	t      *testing.T
	events chan device.Event
	conn   *grpc.ClientConn
	server *grpc.Server
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	log := testsupport.NewNullLogger()
	sink := &fakeSink{}
	a := arbiter.New(sink, log, 32)
	inj := injector.New(sink)
	svc := New(a, inj, log)

	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	RegisterServer(gs, svc)
	go func() { _ = gs.Serve(lis) }()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}

	events := make(chan device.Event, 32)
	go a.Run(events)

	h := &testHarness{t: t, events: events, conn: conn, server: gs}
	t.Cleanup(func() {
		close(events)
		conn.Close()
		gs.Stop()
	})
	return h
}

func (h *testHarness) invoke(method string, req, resp interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp)
}

func TestSetExcludedKeyCombinations_FailedPreconditionWithoutSubscription(t *testing.T) {
	h := newTestHarness(t)
	err := h.invoke("SetExcludedKeyCombinations", &ChordList{}, &Empty{})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestSetExcludedKeyEvents_FailedPreconditionWithoutSubscription(t *testing.T) {
	h := newTestHarness(t)
	err := h.invoke("SetExcludedKeyEvents", &EventList{}, &Empty{})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestReleaseKeyboard_IdempotentOverWire(t *testing.T) {
	h := newTestHarness(t)
	if err := h.invoke("ReleaseKeyboard", &Empty{}, &Empty{}); err != nil {
		t.Fatalf("first ReleaseKeyboard: %v", err)
	}
	if err := h.invoke("ReleaseKeyboard", &Empty{}, &Empty{}); err != nil {
		t.Fatalf("second ReleaseKeyboard: %v", err)
	}
}

func TestSendKeyCombination_AlwaysAcks(t *testing.T) {
	h := newTestHarness(t)
	req := &Chord{Dots: 1, Space: false}
	if err := h.invoke("SendKeyCombination", req, &Empty{}); err != nil {
		t.Fatalf("SendKeyCombination: %v", err)
	}
}

func TestGrabKeyCombinations_StreamsChordThenEndsOnRelease(t *testing.T) {
	h := newTestHarness(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := h.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, "/"+ServiceName+"/GrabKeyCombinations")
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	if err := stream.SendMsg(&Empty{}); err != nil {
		t.Fatalf("SendMsg: %v", err)
	}
	if err := stream.CloseSend(); err != nil {
		t.Fatalf("CloseSend: %v", err)
	}

	// A race exists between the server installing the subscription and
	// these events arriving; give the handler a moment to subscribe.
	time.Sleep(50 * time.Millisecond)
	h.events <- rawDeviceEvent(keyset.Dot1, keyset.Press)
	h.events <- rawDeviceEvent(keyset.Dot1, keyset.Release)

	var chord Chord
	if err := stream.RecvMsg(&chord); err != nil {
		t.Fatalf("RecvMsg: %v", err)
	}
	want := keyset.Of(keyset.Dot1)
	gotDots, gotSpace := want.DotsAndSpace()
	if chord.Dots != uint32(gotDots) || chord.Space != gotSpace {
		t.Fatalf("unexpected chord: %+v", chord)
	}

	if err := h.invoke("ReleaseKeyboard", &Empty{}, &Empty{}); err != nil {
		t.Fatalf("ReleaseKeyboard: %v", err)
	}

	if err := stream.RecvMsg(&chord); err == nil {
		t.Fatal("expected the stream to end after ReleaseKeyboard")
	} else if err != io.EOF {
		t.Logf("stream ended with %v (not io.EOF, still acceptable)", err)
	}
}

func TestSubscribeChords_RejectsDuplicateOverWire(t *testing.T) {
	h := newTestHarness(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := h.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, "/"+ServiceName+"/GrabKeyCombinations")
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	if err := stream.SendMsg(&Empty{}); err != nil {
		t.Fatalf("SendMsg: %v", err)
	}
	if err := stream.CloseSend(); err != nil {
		t.Fatalf("CloseSend: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	second, err := h.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, "/"+ServiceName+"/GrabKeyCombinations")
	if err != nil {
		t.Fatalf("NewStream (second): %v", err)
	}
	if err := second.SendMsg(&Empty{}); err != nil {
		t.Fatalf("SendMsg (second): %v", err)
	}
	_ = second.CloseSend()

	var chord Chord
	err = second.RecvMsg(&chord)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition from duplicate subscription, got %v", err)
	}
}
