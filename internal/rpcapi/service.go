// SPDX-License-Identifier: MIT

package rpcapi

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/emassey0135/btspeak-key-interceptor/internal/arbiter"
	"github.com/emassey0135/btspeak-key-interceptor/internal/injector"
	"github.com/emassey0135/btspeak-key-interceptor/internal/keyset"
	"github.com/emassey0135/btspeak-key-interceptor/internal/logger"
)

// Service implements Server over a shared Arbiter and Injector. This is
// the RpcSurface component.
type Service struct {
	arbiter  *arbiter.Arbiter
	injector *injector.Injector
	logger   logger.Logger
}

// New constructs a Service bound to the given Arbiter and Injector.
func New(a *arbiter.Arbiter, inj *injector.Injector, log logger.Logger) *Service {
	return &Service{arbiter: a, injector: inj, logger: log}
}

// GrabKeyCombinations is the server-streaming handler backing
// grabKeyCombinations(). It forwards from the Arbiter's chord subscription
// channel to the network stream until cancelled, the peer disconnects, or
// a network write fails; in every case it cancels its own subscription on
// its way out before tearing it down, so the Arbiter's publishChord never
// blocks forever against an abandoned forwarder, and acknowledges so a
// concurrent releaseKeyboard can complete.
func (s *Service) GrabKeyCombinations(_ *Empty, stream GrabKeyCombinationsStream) error {
	sub, err := s.arbiter.SubscribeChords()
	if err != nil {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	defer func() {
		sub.Cancel()
		s.arbiter.ChordSubscriptionEnded(sub)
		sub.MarkDone()
	}()

	for {
		select {
		case chord := <-sub.Messages:
			if err := stream.Send(chordToWire(chord)); err != nil {
				return err
			}
		case <-sub.Cancelled():
			return nil
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

// GrabKeyEvents is grabKeyEvents()'s handler, symmetric to
// GrabKeyCombinations.
func (s *Service) GrabKeyEvents(_ *Empty, stream GrabKeyEventsStream) error {
	sub, err := s.arbiter.SubscribeEvents()
	if err != nil {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	defer func() {
		sub.Cancel()
		s.arbiter.EventSubscriptionEnded(sub)
		sub.MarkDone()
	}()

	for {
		select {
		case e := <-sub.Messages:
			if err := stream.Send(eventToWire(e)); err != nil {
				return err
			}
		case <-sub.Cancelled():
			return nil
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

// SetExcludedKeyCombinations replaces the chord exclusion list. Requires
// an active chord subscription; otherwise fails with FailedPrecondition
// and makes no state change.
func (s *Service) SetExcludedKeyCombinations(_ context.Context, req *ChordList) (*Empty, error) {
	patterns := make([]keyset.Set, 0, len(req.Chords))
	for i := range req.Chords {
		patterns = append(patterns, chordFromWire(&req.Chords[i]))
	}
	if err := s.arbiter.SetExcludedChords(patterns); err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	return &Empty{}, nil
}

// SetExcludedKeyEvents replaces the event exclusion list, symmetric to
// SetExcludedKeyCombinations.
func (s *Service) SetExcludedKeyEvents(_ context.Context, req *EventList) (*Empty, error) {
	patterns := make([]keyset.RawEvent, 0, len(req.Events))
	for i := range req.Events {
		patterns = append(patterns, eventFromWire(&req.Events[i]))
	}
	if err := s.arbiter.SetExcludedEvents(patterns); err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	return &Empty{}, nil
}

// ReleaseKeyboard turns off both modes, clears both exclusion lists, and
// cancels and joins both subscription handles (if any). Idempotent.
func (s *Service) ReleaseKeyboard(_ context.Context, _ *Empty) (*Empty, error) {
	s.arbiter.ReleaseKeyboard()
	return &Empty{}, nil
}

// SendKeyCombination injects a chord via the Injector, bypassing the
// Arbiter. Injection failures are logged, never surfaced to the caller.
func (s *Service) SendKeyCombination(_ context.Context, req *Chord) (*Empty, error) {
	if err := s.injector.SendChord(chordFromWire(req)); err != nil {
		s.logger.Warning("rpcapi: sendKeyCombination injection failed: %v", err)
	}
	return &Empty{}, nil
}

// SendKeyEvent injects a single event via the Injector, symmetric to
// SendKeyCombination.
func (s *Service) SendKeyEvent(_ context.Context, req *Event) (*Empty, error) {
	if err := s.injector.SendEvent(eventFromWire(req)); err != nil {
		s.logger.Warning("rpcapi: sendKeyEvent injection failed: %v", err)
	}
	return &Empty{}, nil
}
