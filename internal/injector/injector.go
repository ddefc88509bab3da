// SPDX-License-Identifier: MIT

// Package injector implements the Injector component: the reverse data
// path by which a remote client synthesizes a chord or a single event and
// has it injected into the synthetic keyboard as though the user had
// typed it. Injection bypasses the Arbiter entirely: it never touches
// accumulated/held chord state and is not subject to exclusion lists.
package injector

import (
	"github.com/emassey0135/btspeak-key-interceptor/internal/device"
	"github.com/emassey0135/btspeak-key-interceptor/internal/keyset"
	"github.com/emassey0135/btspeak-key-interceptor/internal/synkbd"
)

// emitter is the slice of synkbd.Sink the Injector depends on.
type emitter interface {
	EmitPress(code uint16) error
	EmitRelease(code uint16) error
}

// Injector drives an OutputSink from synthesize-request messages.
type Injector struct {
	sink emitter
}

// New constructs an Injector over sink.
func New(sink emitter) *Injector {
	return &Injector{sink: sink}
}

// SendChord emits each member of chord's Press in canonical order
// (Dot1..Dot8, Space), then each member's Release in the same order. For
// any Chord C this produces exactly |C| Press events followed by |C|
// Release events, one per member.
func (i *Injector) SendChord(chord keyset.Chord) error {
	members := chord.Members()
	for _, m := range members {
		code, ok := device.KeyCodeFor(m)
		if !ok {
			continue
		}
		if err := i.sink.EmitPress(uint16(code)); err != nil {
			return err
		}
	}
	for _, m := range members {
		code, ok := device.KeyCodeFor(m)
		if !ok {
			continue
		}
		if err := i.sink.EmitRelease(uint16(code)); err != nil {
			return err
		}
	}
	return nil
}

// SendEvent emits a single synthesized event.
func (i *Injector) SendEvent(e keyset.RawEvent) error {
	code, ok := device.KeyCodeFor(e.Key)
	if !ok {
		return nil
	}
	if e.Transition == keyset.Press {
		return i.sink.EmitPress(uint16(code))
	}
	return i.sink.EmitRelease(uint16(code))
}

var _ emitter = (*synkbd.Sink)(nil)
