// SPDX-License-Identifier: MIT

// Package rpcapi implements the RpcSurface component: the seven operations
// exposed over a loopback-bound gRPC listener, their wire message types,
// and the subscription/exclusion lifecycle that ties them to the Arbiter
// and Injector.
//
// The wire format is plain JSON rather than a protoc-compiled protobuf
// message set: ServiceName, MethodDesc and StreamDesc are themselves just
// data, so the service can be registered by hand against a custom
// encoding.Codec without depending on a generated stub.
package rpcapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"

	"github.com/emassey0135/btspeak-key-interceptor/internal/keyset"
)

// Empty is the ack message returned by every operation that carries no
// other response payload.
type Empty struct{}

// Chord is the wire form of a braille combination: dots is the dot-only
// bitmask (Dot1=bit0..Dot8=bit7); Space is carried separately.
type Chord struct {
	Dots  uint32 `json:"dots"`
	Space bool   `json:"space"`
}

// Event is the wire form of a single key transition: dot has exactly one
// bit set in the 9-bit space (Space is bit 8); Release distinguishes
// press from release.
type Event struct {
	Dot     uint32 `json:"dot"`
	Release bool   `json:"release"`
}

// ChordList and EventList carry the exclusion-pattern arguments to
// setExcludedKeyCombinations/setExcludedKeyEvents.
type ChordList struct {
	Chords []Chord `json:"chords"`
}

type EventList struct {
	Events []Event `json:"events"`
}

// chordToWire and chordFromWire convert between the internal keyset.Set
// representation and the wire Chord message. The encodings share the same
// bit ordering by construction (keyset.Set.DotsAndSpace / FromDotsAndSpace).
func chordToWire(c keyset.Chord) *Chord {
	dots, space := c.DotsAndSpace()
	return &Chord{Dots: uint32(dots), Space: space}
}

func chordFromWire(w *Chord) keyset.Chord {
	return keyset.FromDotsAndSpace(uint8(w.Dots), w.Space)
}

// eventToWire and eventFromWire convert between keyset.RawEvent and the
// wire Event message. The wire dot field reuses keyset.Set's own bit
// space (Space=bit8), since a single-member Set is exactly that encoding.
func eventToWire(e keyset.RawEvent) *Event {
	return &Event{Dot: uint32(keyset.Of(e.Key)), Release: e.Transition == keyset.Release}
}

func eventFromWire(w *Event) keyset.RawEvent {
	members := keyset.Set(w.Dot).Members()
	key := keyset.Unknown
	if len(members) == 1 {
		key = members[0]
	}
	transition := keyset.Press
	if w.Release {
		transition = keyset.Release
	}
	return keyset.RawEvent{Key: key, Transition: transition}
}

// jsonCodec implements encoding.Codec with plain JSON, registered under
// the "json" content-subtype so both ends can negotiate it without a
// protobuf code generator in the build.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
