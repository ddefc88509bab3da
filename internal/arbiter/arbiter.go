// SPDX-License-Identifier: MIT

// Package arbiter implements the Arbiter component: the chord-detection
// state machine and mode dispatch that is the core of this system. It
// consumes raw key transitions from InputSource, in arrival order, and
// for each one decides whether it flows to OutputSink, to the combination
// stream, or to the event stream.
package arbiter

import (
	"errors"
	"sync"

	"github.com/emassey0135/btspeak-key-interceptor/internal/device"
	"github.com/emassey0135/btspeak-key-interceptor/internal/keyset"
	"github.com/emassey0135/btspeak-key-interceptor/internal/logger"
	"github.com/emassey0135/btspeak-key-interceptor/internal/synkbd"
)

// defaultChannelCapacity is used when an Arbiter is constructed with a
// non-positive capacity. The bound on each subscription's outgoing channel
// is the sole flow-control mechanism; there are no timeouts at this layer.
const defaultChannelCapacity = 32

// Errors returned by the subscription and exclusion operations. RpcSurface
// maps these onto the wire's FailedPrecondition status.
var (
	ErrAlreadySubscribed = errors.New("arbiter: a subscription of this kind is already active")
	ErrNotSubscribed     = errors.New("arbiter: no active subscription of this kind")
)

// emitter is the slice of synkbd.Sink the Arbiter depends on, narrowed for
// testability.
type emitter interface {
	Emit(synkbd.RawEmit) error
	EmitPress(code uint16) error
	EmitRelease(code uint16) error
}

// ChordSubscription is the handle for one active grabKeyCombinations call.
type ChordSubscription struct {
	Messages chan keyset.Chord

	cancel     chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
	doneOnce   sync.Once
}

func newChordSubscription(capacity int) *ChordSubscription {
	return &ChordSubscription{
		Messages: make(chan keyset.Chord, capacity),
		cancel:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Cancelled returns the channel that closes once Cancel has been called.
func (s *ChordSubscription) Cancelled() <-chan struct{} { return s.cancel }

// Cancel requests that the forwarder reading Messages stop. Idempotent.
func (s *ChordSubscription) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancel) })
}

// MarkDone is called by the forwarder exactly once, on its way out,
// regardless of why it is exiting. It acknowledges cancellation.
func (s *ChordSubscription) MarkDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// AwaitDone blocks until MarkDone has been called.
func (s *ChordSubscription) AwaitDone() { <-s.done }

// EventSubscription is the handle for one active grabKeyEvents call.
type EventSubscription struct {
	Messages chan keyset.RawEvent

	cancel     chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
	doneOnce   sync.Once
}

func newEventSubscription(capacity int) *EventSubscription {
	return &EventSubscription{
		Messages: make(chan keyset.RawEvent, capacity),
		cancel:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *EventSubscription) Cancelled() <-chan struct{} { return s.cancel }

func (s *EventSubscription) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancel) })
}

func (s *EventSubscription) MarkDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *EventSubscription) AwaitDone() { <-s.done }

// Arbiter is the chord state machine plus mode dispatch. All fields guarded
// by mu are the "Mode + ExclusionPatterns + subscription handles" shared
// state described by the concurrency model: a single coarse mutex, held
// only for the duration of one routing decision, never across I/O.
type Arbiter struct {
	sink     emitter
	logger   logger.Logger
	capacity int

	mu              sync.Mutex
	streamingChords bool
	streamingEvents bool
	excludedChords  map[keyset.Set]struct{}
	excludedEvents  map[keyset.RawEvent]struct{}
	chordSub        *ChordSubscription
	eventSub        *EventSubscription
	accumulated     keyset.Set
	held            keyset.Set
}

// New constructs an Arbiter that drives sink. capacity bounds each
// subscription's outgoing channel; a non-positive value falls back to
// defaultChannelCapacity.
func New(sink emitter, log logger.Logger, capacity int) *Arbiter {
	return &Arbiter{sink: sink, logger: log, capacity: capacity}
}

// effectiveCapacity returns the configured channel capacity, or
// defaultChannelCapacity when none was configured.
func (a *Arbiter) effectiveCapacity() int {
	if a.capacity <= 0 {
		return defaultChannelCapacity
	}
	return a.capacity
}

// SubscribeChords installs a new chord subscription. A second call while
// one is already active is rejected with ErrAlreadySubscribed: this system
// picks the reject-and-document resolution of the duplicate-subscription
// open question, rather than silently orphaning the prior forwarder.
func (a *Arbiter) SubscribeChords() (*ChordSubscription, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.streamingChords {
		return nil, ErrAlreadySubscribed
	}
	sub := newChordSubscription(a.effectiveCapacity())
	a.chordSub = sub
	a.streamingChords = true
	return sub, nil
}

// SubscribeEvents installs a new event subscription, with the same
// duplicate-rejection policy as SubscribeChords.
func (a *Arbiter) SubscribeEvents() (*EventSubscription, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.streamingEvents {
		return nil, ErrAlreadySubscribed
	}
	sub := newEventSubscription(a.effectiveCapacity())
	a.eventSub = sub
	a.streamingEvents = true
	return sub, nil
}

// SetExcludedChords replaces the chord exclusion list. Requires an active
// chord subscription.
func (a *Arbiter) SetExcludedChords(list []keyset.Set) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.streamingChords {
		return ErrNotSubscribed
	}
	set := make(map[keyset.Set]struct{}, len(list))
	for _, c := range list {
		set[c] = struct{}{}
	}
	a.excludedChords = set
	return nil
}

// SetExcludedEvents replaces the event exclusion list. Requires an active
// event subscription.
func (a *Arbiter) SetExcludedEvents(list []keyset.RawEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.streamingEvents {
		return ErrNotSubscribed
	}
	set := make(map[keyset.RawEvent]struct{}, len(list))
	for _, e := range list {
		set[e] = struct{}{}
	}
	a.excludedEvents = set
	return nil
}

// ChordSubscriptionEnded tears down the chord subscription if sub is still
// the current one. Called by the forwarder when it exits, whether due to a
// network write failure or a releaseKeyboard-triggered cancellation, so
// there is exactly one teardown path for both cases.
func (a *Arbiter) ChordSubscriptionEnded(sub *ChordSubscription) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.chordSub != sub {
		return
	}
	a.streamingChords = false
	a.excludedChords = nil
	a.chordSub = nil
}

// EventSubscriptionEnded is ChordSubscriptionEnded's counterpart for event
// subscriptions.
func (a *Arbiter) EventSubscriptionEnded(sub *EventSubscription) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.eventSub != sub {
		return
	}
	a.streamingEvents = false
	a.excludedEvents = nil
	a.eventSub = nil
}

// ReleaseKeyboard cancels both subscriptions (if any) and blocks until
// their forwarders have drained and exited, guaranteeing no in-flight
// message survives the call. It is idempotent: calling it with no active
// subscriptions is a no-op.
func (a *Arbiter) ReleaseKeyboard() {
	a.mu.Lock()
	chordSub := a.chordSub
	eventSub := a.eventSub
	a.mu.Unlock()

	if chordSub != nil {
		chordSub.Cancel()
		chordSub.AwaitDone()
	}
	if eventSub != nil {
		eventSub.Cancel()
		eventSub.AwaitDone()
	}
}

// Run consumes decoded events from InputSource until events is closed,
// applying the per-event decision tree. It is the Arbiter's single
// cooperative task and must not be called concurrently with itself.
func (a *Arbiter) Run(events <-chan device.Event) {
	for ev := range events {
		a.handle(ev)
	}
}

// handle applies the decision tree to a single raw event: an unrecognized
// key short-circuits first, then the five-step tree over chord state,
// exclusions, and mode dispatch.
func (a *Arbiter) handle(ev device.Event) {
	e := ev.Raw

	// Step 0: an unrecognized key code never touches chord state or either
	// stream; it passes through unconditionally, regardless of mode.
	if e.Key == keyset.Unknown {
		a.replay(ev)
		return
	}

	a.mu.Lock()
	// Step 1: event-stream exclusion, consulted before any chord accounting.
	if a.streamingEvents {
		if _, excluded := a.excludedEvents[e]; excluded {
			a.mu.Unlock()
			a.replay(ev)
			return
		}
	}

	// Step 2: update chord state.
	switch e.Transition {
	case keyset.Release:
		a.held = a.held.Without(e.Key)
	case keyset.Press:
		a.accumulated = a.accumulated.With(e.Key)
		a.held = a.held.With(e.Key)
	}

	// Step 3: hold-window close.
	var closedChord keyset.Chord
	var chordClosed, chordExcluded bool
	if a.held.Empty() {
		if a.streamingChords && !a.accumulated.Empty() {
			chordClosed = true
			closedChord = a.accumulated
			_, chordExcluded = a.excludedChords[closedChord]
		}
		a.accumulated = 0
	}

	streamingEvents := a.streamingEvents
	chordSub := a.chordSub
	eventSub := a.eventSub
	a.mu.Unlock()

	if chordClosed {
		if chordExcluded {
			a.reinjectChord(closedChord)
		} else if chordSub != nil {
			a.publishChord(chordSub, closedChord)
		}
	}

	// Step 4: event-stream publish (only reached when step 1 did not
	// short-circuit, i.e. not excluded).
	if streamingEvents && eventSub != nil {
		a.publishEvent(eventSub, e)
	}

	// Step 5: transparent pass-through, when neither mode is on.
	if chordSub == nil && eventSub == nil {
		a.replay(ev)
	}
}

// replay copies a platform RawEvent verbatim onto OutputSink, preserving
// its type, code, and value unchanged.
func (a *Arbiter) replay(ev device.Event) {
	if ev.Original == nil {
		return
	}
	err := a.sink.Emit(synkbd.RawEmit{
		Type:  uint16(ev.Original.Type),
		Code:  uint16(ev.Original.Code),
		Value: ev.Original.Value,
	})
	if err != nil {
		a.logger.Warning("arbiter: pass-through emit failed: %v", err)
	}
}

// reinjectChord synthesizes a press burst then a release burst for an
// excluded chord, each member in canonical order, per the decision to hand
// excluded chords to the OS as keystrokes rather than drop them.
func (a *Arbiter) reinjectChord(chord keyset.Chord) {
	members := chord.Members()
	for _, m := range members {
		if code, ok := device.KeyCodeFor(m); ok {
			if err := a.sink.EmitPress(uint16(code)); err != nil {
				a.logger.Warning("arbiter: chord re-injection press failed: %v", err)
			}
		}
	}
	for _, m := range members {
		if code, ok := device.KeyCodeFor(m); ok {
			if err := a.sink.EmitRelease(uint16(code)); err != nil {
				a.logger.Warning("arbiter: chord re-injection release failed: %v", err)
			}
		}
	}
}

// publishChord delivers a closed chord to its subscriber, respecting
// backpressure from the bounded channel while still honoring a concurrent
// cancellation so a slow or gone subscriber cannot wedge the Arbiter loop
// forever past releaseKeyboard.
func (a *Arbiter) publishChord(sub *ChordSubscription, chord keyset.Chord) {
	select {
	case sub.Messages <- chord:
	case <-sub.Cancelled():
	}
}

func (a *Arbiter) publishEvent(sub *EventSubscription, e keyset.RawEvent) {
	select {
	case sub.Messages <- e:
	case <-sub.Cancelled():
	}
}
