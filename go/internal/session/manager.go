package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pixelguess/go/internal/game"
	"github.com/mcdev12/pixelguess/go/internal/game/actors"
	"github.com/mcdev12/pixelguess/go/internal/results"
	"github.com/mcdev12/pixelguess/go/internal/round"
	"github.com/rs/zerolog/log"
)

// ErrSessionNotFound is returned for an unknown or closed session ID.
var ErrSessionNotFound = errors.New("session not found")

// SnapshotListener is notified of every snapshot a session publishes and of
// the session's end.
type SnapshotListener interface {
	SnapshotChanged(sessionID uuid.UUID, ev game.Event, snap game.Snapshot)
	// SessionClosed is called once the session's coordinator has exited.
	SessionClosed(sessionID uuid.UUID)
}

// Config holds session manager settings.
type Config struct {
	IdleTimeout   time.Duration
	ReapInterval  time.Duration
	ResultsBuffer int
	Clock         clockwork.Clock
	RoundConfig   round.Config
}

// DefaultConfig returns the default session manager configuration.
func DefaultConfig() Config {
	clock := clockwork.NewRealClock()
	roundCfg := round.DefaultConfig()
	roundCfg.Clock = clock

	return Config{
		IdleTimeout:   30 * time.Minute,
		ReapInterval:  time.Minute,
		ResultsBuffer: 256,
		Clock:         clock,
		RoundConfig:   roundCfg,
	}
}

// Manager owns every live session.
type Manager struct {
	registry  *actors.Registry
	publisher results.Publisher
	listener  SnapshotListener
	config    Config
	clock     clockwork.Clock

	ctx    context.Context
	cancel context.CancelFunc

	sessions map[uuid.UUID]*Session
	mu       sync.RWMutex

	resultsCh chan results.RoundCompleted
}

// NewManager creates a session manager. listener may be nil.
func NewManager(registry *actors.Registry, publisher results.Publisher, listener SnapshotListener, config Config) *Manager {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.RoundConfig.Clock == nil {
		config.RoundConfig.Clock = config.Clock
	}
	if config.ResultsBuffer <= 0 {
		config.ResultsBuffer = 256
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		registry:  registry,
		publisher: publisher,
		listener:  listener,
		config:    config,
		clock:     config.Clock,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[uuid.UUID]*Session),
		resultsCh: make(chan results.RoundCompleted, config.ResultsBuffer),
	}
}

// Create starts a new session and opens its first round.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	if m.ctx.Err() != nil {
		return nil, fmt.Errorf("session manager stopped: %w", m.ctx.Err())
	}

	id := uuid.New()
	now := m.clock.Now()
	store := game.NewStore(m.registry)
	coord := round.NewCoordinator(id.String(), store, m.registry, m.config.RoundConfig)

	sessCtx, cancel := context.WithCancel(m.ctx)
	sess := &Session{
		ID:         id,
		CreatedAt:  now,
		store:      store,
		coord:      coord,
		registry:   m.registry,
		clock:      m.clock,
		cancel:     cancel,
		lastActive: now,
	}

	store.Subscribe(func(ev game.Event, snap game.Snapshot) {
		m.onSnapshot(id, ev, snap)
	})

	go func() {
		if err := coord.Run(sessCtx); err != nil {
			log.Error().Err(err).Str("session_id", id.String()).Msg("coordinator failed")
		}
	}()

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	log.Info().Str("session_id", id.String()).Msg("session created")

	if err := sess.Reset(ctx); err != nil {
		m.Close(id)
		return nil, fmt.Errorf("open first round: %w", err)
	}
	return sess, nil
}

// Get returns a live session.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// List returns all live sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close stops a session and waits for its coordinator to exit.
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.cancel()
	<-sess.coord.Done()

	if m.listener != nil {
		m.listener.SessionClosed(id)
	}

	log.Info().Str("session_id", id.String()).Msg("session closed")
	return nil
}

// Start runs the idle reaper and result publishing until ctx is cancelled,
// then closes every session.
func (m *Manager) Start(ctx context.Context) {
	log.Info().
		Dur("idle_timeout", m.config.IdleTimeout).
		Dur("reap_interval", m.config.ReapInterval).
		Msg("session manager started")

	// Publishing outlives ctx so results produced while the sessions shut
	// down still go out.
	publishCtx := context.WithoutCancel(ctx)
	sessionsClosed := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.publishResults(publishCtx, sessionsClosed)
	}()

	m.reap(ctx)

	m.shutdown()
	close(sessionsClosed)
	wg.Wait()
	log.Info().Msg("session manager stopped")
}

func (m *Manager) reap(ctx context.Context) {
	if m.config.IdleTimeout <= 0 || m.config.ReapInterval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := m.clock.NewTicker(m.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			now := m.clock.Now()
			for _, sess := range m.List() {
				if now.Sub(sess.idleSince()) < m.config.IdleTimeout {
					continue
				}
				log.Info().
					Str("session_id", sess.ID.String()).
					Time("last_active", sess.idleSince()).
					Msg("closing idle session")
				if err := m.Close(sess.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
					log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to close idle session")
				}
			}
		}
	}
}

func (m *Manager) shutdown() {
	m.cancel()
	for _, sess := range m.List() {
		if err := m.Close(sess.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to close session")
		}
	}
}

// onSnapshot runs on the session's coordinator goroutine and must not block.
func (m *Manager) onSnapshot(id uuid.UUID, ev game.Event, snap game.Snapshot) {
	if m.listener != nil {
		m.listener.SnapshotChanged(id, ev, snap)
	}

	played, ok := ev.(game.RecordPlay)
	if !ok || m.publisher == nil {
		return
	}
	result := results.NewRoundCompleted(id, played, snap, m.clock.Now())
	select {
	case m.resultsCh <- result:
	default:
		log.Warn().Str("session_id", id.String()).Msg("results channel full, dropping round result")
	}
}

// publishResults forwards round results until done is closed, then flushes
// whatever is still queued. No result is produced after done because every
// coordinator has exited by then.
func (m *Manager) publishResults(ctx context.Context, done <-chan struct{}) {
	if m.publisher == nil {
		return
	}
	for {
		select {
		case result := <-m.resultsCh:
			m.publish(ctx, result)
		case <-done:
			for {
				select {
				case result := <-m.resultsCh:
					m.publish(ctx, result)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) publish(ctx context.Context, result results.RoundCompleted) {
	if err := m.publisher.Publish(ctx, result); err != nil {
		log.Error().
			Err(err).
			Str("session_id", result.SessionID.String()).
			Str("event_id", result.ID.String()).
			Msg("failed to publish round result")
	}
}
