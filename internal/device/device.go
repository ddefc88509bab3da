// SPDX-License-Identifier: MIT

// Package device implements the InputSource component: it locates the
// physical braille keyboard by name, grabs it exclusively so no other
// process observes its events, and yields a sequence of raw key
// transitions until the device disappears or the source is closed.
package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	evdev "github.com/holoplot/go-evdev"

	"github.com/emassey0135/btspeak-key-interceptor/internal/keyset"
	"github.com/emassey0135/btspeak-key-interceptor/internal/logger"
)

// Sentinel errors surfaced by Open, matching the contract in the component
// design: callers distinguish "no such device" from "device is busy" from
// any other platform failure.
var (
	ErrDeviceNotFound = errors.New("device: no matching input device found")
	ErrDeviceBusy     = errors.New("device: exclusive grab refused")
)

// DeviceError wraps any other platform-level failure while opening the
// physical device. Read errors are not wrapped: they are logged and end
// the read loop.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// rawKeyCodes maps the nine recognized Linux key codes to their domain
// KeyMember. These are the real evdev codes for a braille Perkins-style
// keyboard: KEY_BRL_DOT1..KEY_BRL_DOT8 (497-504) plus KEY_SPACE (57). Any
// code absent from this table maps to keyset.Unknown and passes through
// without touching chord state, per the component contract.
var rawKeyCodes = map[evdev.EvCode]keyset.KeyMember{
	497: keyset.Dot1,
	498: keyset.Dot2,
	499: keyset.Dot3,
	500: keyset.Dot4,
	501: keyset.Dot5,
	502: keyset.Dot6,
	503: keyset.Dot7,
	504: keyset.Dot8,
	57:  keyset.Space,
}

// KeyCodeFor returns the Linux key code for a recognized member, used by
// Injector and by the Arbiter's chord re-injection to fabricate
// synthesized events. ok is false for keyset.Unknown.
func KeyCodeFor(member keyset.KeyMember) (code evdev.EvCode, ok bool) {
	for c, m := range rawKeyCodes {
		if m == member {
			return c, true
		}
	}
	return 0, false
}

// RecognizedCodes returns every Linux key code this source understands, in
// no particular order. OutputSink uses this to build its capability set.
func RecognizedCodes() []evdev.EvCode {
	codes := make([]evdev.EvCode, 0, len(rawKeyCodes))
	for c := range rawKeyCodes {
		codes = append(codes, c)
	}
	return codes
}

// Event pairs a decoded domain RawEvent with the original platform event,
// retained intact so pass-through can replay it verbatim on OutputSink.
type Event struct {
	Raw      keyset.RawEvent
	Original *evdev.InputEvent
}

// rawDevice is the slice of *evdev.InputDevice this package depends on.
// Narrowing to an interface lets the read loop be exercised against a fake
// in tests, without a real /dev/input node.
type rawDevice interface {
	ReadOne() (*evdev.InputEvent, error)
	Grab() error
	Ungrab() error
	Close() error
}

// defaultChannelCapacity is used when a Source is constructed with a
// non-positive capacity.
const defaultChannelCapacity = 32

// Source is the InputSource component. It owns exactly one exclusively
// grabbed physical device.
type Source struct {
	deviceName string
	logger     logger.Logger
	capacity   int

	dev     rawDevice
	closing int32

	mu     sync.Mutex
	closed bool
}

// New constructs a Source for the device whose reported name equals
// deviceName exactly. capacity bounds the channel Events returns; a
// non-positive value falls back to defaultChannelCapacity.
func New(deviceName string, log logger.Logger, capacity int) *Source {
	return &Source{deviceName: deviceName, logger: log, capacity: capacity}
}

// Open locates the configured device among /dev/input/event* by its
// reported name and grabs it exclusively. The device's capabilities are
// not inspected.
func (s *Source) Open() error {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return &DeviceError{Op: "list devices", Err: err}
	}

	var found *evdev.InputDevice
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		name, err := dev.Name()
		if err != nil || name != s.deviceName {
			_ = dev.Close()
			continue
		}
		found = dev
		break
	}
	if found == nil {
		return ErrDeviceNotFound
	}

	if err := found.Grab(); err != nil {
		_ = found.Close()
		return ErrDeviceBusy
	}

	s.dev = found
	s.logger.Info("device: grabbed %q exclusively", s.deviceName)
	return nil
}

// Events starts the read loop and returns a channel of decoded events. The
// channel is closed when the device errors out or Close is called.
// Non-key events are dropped silently; they are not part of the domain.
func (s *Source) Events() <-chan Event {
	capacity := s.capacity
	if capacity <= 0 {
		capacity = defaultChannelCapacity
	}
	out := make(chan Event, capacity)
	go s.readLoop(out)
	return out
}

func (s *Source) readLoop(out chan<- Event) {
	defer close(out)
	for {
		if atomic.LoadInt32(&s.closing) == 1 {
			return
		}
		ev, err := s.dev.ReadOne()
		if err != nil {
			if atomic.LoadInt32(&s.closing) == 0 {
				s.logger.Warning("device: read error, source terminating: %v", err)
			}
			return
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}
		transition, ok := transitionOf(ev.Value)
		if !ok {
			continue
		}
		member := rawKeyCodes[ev.Code]
		out <- Event{
			Raw:      keyset.RawEvent{Key: member, Transition: transition},
			Original: ev,
		}
	}
}

// transitionOf folds the kernel's three-valued key state (press=1,
// release=0, repeat=2) into the domain's two-valued Transition, treating
// repeat as Press.
func transitionOf(value int32) (keyset.Transition, bool) {
	switch value {
	case 0:
		return keyset.Release, true
	case 1, 2:
		return keyset.Press, true
	default:
		return 0, false
	}
}

// Close releases the exclusive grab and stops the read loop. It is safe to
// call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	atomic.StoreInt32(&s.closing, 1)
	if s.dev == nil {
		return nil
	}
	if err := s.dev.Ungrab(); err != nil {
		s.logger.Warning("device: ungrab failed: %v", err)
	}
	return s.dev.Close()
}

// Name reports the configured device name, e.g. for diagnostics.
func (s *Source) Name() string {
	return s.deviceName
}
