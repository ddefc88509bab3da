// SPDX-License-Identifier: MIT

// Package synkbd implements the OutputSink component: a synthetic keyboard
// built on the kernel's uinput subsystem, advertising the same nine-key
// capability set as the physical braille keyboard.
//
// The real key codes in play (KEY_BRL_DOT1..KEY_BRL_DOT8, 497-504) sit
// outside the narrow range most uinput convenience wrappers pre-enable, so
// this talks to /dev/uinput directly through the same ioctl sequence the
// kernel documents: UI_SET_EVBIT, UI_SET_KEYBIT, UI_DEV_SETUP, UI_DEV_CREATE.
package synkbd

import (
	"fmt"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/emassey0135/btspeak-key-interceptor/internal/logger"
)

const (
	uinputPath        = "/dev/uinput"
	uinputMaxNameSize = 80

	evSyn = 0x00
	evKey = 0x01

	uiSetEvbit   = 0x40045564
	uiSetKeybit  = 0x40045565
	uiDevSetup   = 0x405c5503
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502

	// valuePress/valueRelease are the kernel's EV_KEY values for a synthesized
	// emission; synthesized events never carry value=2 (repeat).
	valuePress   = 1
	valueRelease = 0
)

// inputEvent mirrors struct input_event from linux/input.h.
type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// inputID mirrors struct input_id.
type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputSetup mirrors struct uinput_setup.
type uinputSetup struct {
	ID           inputID
	Name         [uinputMaxNameSize]byte
	FFEffectsMax uint32
}

// InjectionError wraps a failed emission. Per the component contract it is
// logged by Sink and never returned to RPC callers, but is still a typed
// error for anything that does inspect it (e.g. the tests).
type InjectionError struct {
	Err error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("synkbd: injection failed: %v", e.Err)
}

func (e *InjectionError) Unwrap() error { return e.Err }

// RawEmit is the minimal (type, code, value) tuple Sink replays or
// synthesizes. Code 0 and type 0 with value 0 is a kernel sync event; Sink
// appends one after every emission automatically.
type RawEmit struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Sink is the OutputSink component: a single synthetic keyboard device.
// Emit is safe to call concurrently from the Arbiter and the Injector; a
// mutex serializes the write(2) calls so one logical key transition is
// never interleaved with another.
type Sink struct {
	name   string
	logger logger.Logger

	mu sync.Mutex
	fd int
	w  rawWriter
}

// rawWriter is the narrow slice of the open file descriptor Emit depends
// on. Tests substitute a fake to exercise the emission logic without a
// real /dev/uinput node.
type rawWriter interface {
	Write([]byte) (int, error)
}

// fdWriter adapts a raw fd to rawWriter via syscall.Write.
type fdWriter int

func (f fdWriter) Write(b []byte) (int, error) {
	return syscall.Write(int(f), b)
}

// New constructs a Sink that will advertise deviceName once Open succeeds.
func New(deviceName string, log logger.Logger) *Sink {
	return &Sink{name: deviceName, logger: log, fd: -1}
}

// Open creates the uinput device, enabling exactly the key codes in codes
// (the physical device's recognized codes) so the capability set matches.
func (s *Sink) Open(codes []uint16) error {
	fd, err := syscall.Open(uinputPath, syscall.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("synkbd: open %s: %w", uinputPath, err)
	}

	if err := ioctlArg(fd, uiSetEvbit, evKey); err != nil {
		syscall.Close(fd)
		return fmt.Errorf("synkbd: enable EV_KEY: %w", err)
	}
	for _, code := range codes {
		if err := ioctlArg(fd, uiSetKeybit, uintptr(code)); err != nil {
			syscall.Close(fd)
			return fmt.Errorf("synkbd: enable key %d: %w", code, err)
		}
	}

	setup := uinputSetup{
		ID: inputID{Bustype: 0x03, Vendor: 0x0001, Product: 0x0001, Version: 1},
	}
	copy(setup.Name[:], s.name)

	if err := ioctlSetup(fd, uiDevSetup, &setup); err != nil {
		syscall.Close(fd)
		return fmt.Errorf("synkbd: device setup: %w", err)
	}
	if err := ioctlArg(fd, uiDevCreate, 0); err != nil {
		syscall.Close(fd)
		return fmt.Errorf("synkbd: create device: %w", err)
	}

	s.mu.Lock()
	s.fd = fd
	s.w = fdWriter(fd)
	s.mu.Unlock()

	s.logger.Info("synkbd: synthetic device %q created with %d keys", s.name, len(codes))
	return nil
}

// Close destroys the uinput device.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return nil
	}
	_ = ioctlArg(s.fd, uiDevDestroy, 0)
	err := syscall.Close(s.fd)
	s.fd = -1
	s.w = nil
	return err
}

// Emit writes a single raw event followed by a sync event, atomically with
// respect to other Emit calls. Failure is logged and reported as an
// *InjectionError but is never fatal to the caller's path.
func (s *Sink) Emit(e RawEmit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(e.Type, e.Code, e.Value); err != nil {
		wrapped := &InjectionError{Err: err}
		s.logger.Error("%v", wrapped)
		return wrapped
	}
	if err := s.write(evSyn, 0, 0); err != nil {
		wrapped := &InjectionError{Err: err}
		s.logger.Error("%v", wrapped)
		return wrapped
	}
	return nil
}

// EmitPress and EmitRelease are the convenience forms Injector and the
// Arbiter's chord re-injection path use: synthesized emissions are always
// fabricated as (code, value) with value=1/0, never replaying a platform
// event's original repeat value.
func (s *Sink) EmitPress(code uint16) error {
	return s.Emit(RawEmit{Type: evKey, Code: code, Value: valuePress})
}

func (s *Sink) EmitRelease(code uint16) error {
	return s.Emit(RawEmit{Type: evKey, Code: code, Value: valueRelease})
}

func (s *Sink) write(evType, code uint16, value int32) error {
	if s.w == nil {
		return fmt.Errorf("synkbd: device not open")
	}
	ev := inputEvent{
		Time:  syscall.NsecToTimeval(time.Now().UnixNano()),
		Type:  evType,
		Code:  code,
		Value: value,
	}
	buf := (*(*[unsafe.Sizeof(ev)]byte)(unsafe.Pointer(&ev)))[:]
	_, err := s.w.Write(buf)
	return err
}

func ioctlArg(fd int, cmd uintptr, arg uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), cmd, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlSetup(fd int, cmd uintptr, setup *uinputSetup) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), cmd, uintptr(unsafe.Pointer(setup)))
	if errno != 0 {
		return errno
	}
	return nil
}
