package game

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mcdev12/pixelguess/go/internal/game/actors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingActor is returned when a SetPixels payload lacks a registered actor.
	ErrMissingActor = errors.New("set pixels payload is missing an actor")
	// ErrQuestionMismatch is returned when the question is not the spec of its actor.
	ErrQuestionMismatch = errors.New("question does not match its actor")
)

// Subscriber receives every snapshot the store publishes.
type Subscriber func(ev Event, snap Snapshot)

// Store holds the authoritative snapshot and applies events to it.
type Store struct {
	registry *actors.Registry

	// dispatchMu serialises transitions and their notifications.
	dispatchMu sync.Mutex

	mu          sync.RWMutex
	current     Snapshot
	subscribers map[int]Subscriber
	nextSubID   int
}

// NewStore creates a store seeded with the initial snapshot for registry.
func NewStore(registry *actors.Registry) *Store {
	return &Store{
		registry:    registry,
		current:     InitialSnapshot(registry),
		subscribers: make(map[int]Subscriber),
	}
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// Dispatch applies ev and notifies subscribers. A malformed SetPixels is
// dropped with a warning.
func (s *Store) Dispatch(ev Event) {
	if err := s.Apply(ev); err != nil {
		log.Warn().
			Err(err).
			Str("event_type", string(ev.Type())).
			Msg("rejected event")
	}
}

// Apply is Dispatch with the precondition failure reported to the caller.
// Subscribers have been notified by the time Apply returns nil.
func (s *Store) Apply(ev Event) error {
	if err := s.validate(ev); err != nil {
		return err
	}

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next := reduce(s.current, ev)
	s.current = next
	subs := make([]Subscriber, 0, len(s.subscribers))
	for id := 0; id < s.nextSubID; id++ {
		if fn, ok := s.subscribers[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	log.Debug().
		Str("event_type", string(ev.Type())).
		Uint("played", next.Round.Played).
		Uint("seconds", next.Timer.Seconds).
		Msg("event applied")

	for _, fn := range subs {
		fn(ev, next)
	}
	return nil
}

func (s *Store) validate(ev Event) error {
	e, ok := ev.(SetPixels)
	if !ok {
		return nil
	}

	for _, key := range s.registry.Keys() {
		if _, ok := e.Pixels[key]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingActor, key)
		}
	}

	spec, ok := e.Pixels[e.QuestionActor]
	if !ok || spec != e.Question {
		return fmt.Errorf("%w: %q", ErrQuestionMismatch, e.QuestionActor)
	}
	return nil
}
