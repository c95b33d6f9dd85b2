package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pixelguess/go/internal/game"
	"github.com/mcdev12/pixelguess/go/internal/game/actors"
	"github.com/mcdev12/pixelguess/go/internal/round"
)

// Session is one player's game: a store, its coordinator and the actors in play.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	store    *game.Store
	coord    *round.Coordinator
	registry *actors.Registry
	clock    clockwork.Clock
	cancel   context.CancelFunc

	mu         sync.Mutex
	lastActive time.Time
}

// Snapshot returns the session's current state.
func (s *Session) Snapshot() game.Snapshot {
	return s.store.Snapshot()
}

// Reset starts a new round.
func (s *Session) Reset(ctx context.Context) error {
	s.touch()
	return s.coord.ResetRound(ctx)
}

// Choose submits the player's pick of actor for the current question.
func (s *Session) Choose(ctx context.Context, actor string) error {
	if _, err := s.registry.Get(actor); err != nil {
		return err
	}
	s.touch()

	if err := s.coord.Choose(ctx, actor); err != nil {
		return fmt.Errorf("submit choice: %w", err)
	}
	return nil
}

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.coord.Done()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.clock.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
