package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pixelguess/go/internal/game"
	"github.com/mcdev12/pixelguess/go/internal/game/actors"
	"github.com/mcdev12/pixelguess/go/internal/results"
	"github.com/mcdev12/pixelguess/go/internal/round"
)

type recordingPublisher struct {
	published chan results.RoundCompleted
}

func (p *recordingPublisher) Publish(ctx context.Context, event results.RoundCompleted) error {
	p.published <- event
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingListener struct {
	mu     sync.Mutex
	events map[uuid.UUID][]game.EventType
	closed map[uuid.UUID]bool
}

func (l *recordingListener) SnapshotChanged(id uuid.UUID, ev game.Event, snap game.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[id] = append(l.events[id], ev.Type())
}

func (l *recordingListener) SessionClosed(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed[id] = true
}

func (l *recordingListener) wasClosed(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed[id]
}

func (l *recordingListener) seen(id uuid.UUID) []game.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]game.EventType(nil), l.events[id]...)
}

type fixture struct {
	manager   *Manager
	clock     *clockwork.FakeClock
	publisher *recordingPublisher
	listener  *recordingListener
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	publisher := &recordingPublisher{published: make(chan results.RoundCompleted, 8)}
	listener := &recordingListener{
		events: make(map[uuid.UUID][]game.EventType),
		closed: make(map[uuid.UUID]bool),
	}

	manager := NewManager(actors.DefaultRegistry(), publisher, listener, Config{
		IdleTimeout:  10 * time.Second,
		ReapInterval: time.Second,
		Clock:        clock,
		RoundConfig:  round.Config{TickInterval: time.Second, Clock: clock},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		manager.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &fixture{manager: manager, clock: clock, publisher: publisher, listener: listener}
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCreateOpensFirstRound(t *testing.T) {
	f := newFixture(t)

	sess, err := f.manager.Create(testCtx(t))
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	snap := sess.Snapshot()
	if !snap.Round.Open || snap.Timer.Status != game.TimerRunning {
		t.Fatalf("snapshot = %+v, want open round with running timer", snap)
	}

	got, err := f.manager.Get(sess.ID)
	if err != nil || got != sess {
		t.Fatalf("Get() = %v, %v; want created session", got, err)
	}

	seen := f.listener.seen(sess.ID)
	if len(seen) != 3 || seen[2] != game.EventTypeStartTimer {
		t.Fatalf("listener saw %v, want SET_PIXELS, OPEN_PLAY, START_TIMER", seen)
	}
}

func TestChoosePublishesResult(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)

	sess, err := f.manager.Create(ctx)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	answer := sess.Snapshot().Pictures.QuestionActor
	if err := sess.Choose(ctx, answer); err != nil {
		t.Fatalf("Choose() failed: %v", err)
	}

	select {
	case result := <-f.publisher.published:
		if result.SessionID != sess.ID {
			t.Fatalf("result session = %s, want %s", result.SessionID, sess.ID)
		}
		if !result.CorrectAnswer || result.Correct != 1 || result.Played != 1 {
			t.Fatalf("result = %+v, want first correct play", result)
		}
		if result.QuestionActor != answer {
			t.Fatalf("result question actor = %q, want %q", result.QuestionActor, answer)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no result published")
	}
}

func TestChooseErrors(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)

	sess, err := f.manager.Create(ctx)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := sess.Choose(ctx, "travolta"); !errors.Is(err, actors.ErrUnknownActor) {
		t.Fatalf("Choose(unknown) error = %v, want ErrUnknownActor", err)
	}

	if err := sess.Choose(ctx, "cage"); err != nil {
		t.Fatalf("Choose() failed: %v", err)
	}
	if err := sess.Choose(ctx, "cage"); !errors.Is(err, round.ErrRoundClosed) {
		t.Fatalf("second Choose() error = %v, want ErrRoundClosed", err)
	}
}

func TestGetAndCloseUnknown(t *testing.T) {
	f := newFixture(t)

	if _, err := f.manager.Get(uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() error = %v, want ErrSessionNotFound", err)
	}
	if err := f.manager.Close(uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Close() error = %v, want ErrSessionNotFound", err)
	}
}

func TestCloseStopsSession(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)

	sess, err := f.manager.Create(ctx)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := f.manager.Close(sess.ID); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if !f.listener.wasClosed(sess.ID) {
		t.Fatalf("listener not told the session closed")
	}

	if err := sess.Reset(ctx); !errors.Is(err, round.ErrStopped) {
		t.Fatalf("Reset() after close error = %v, want ErrStopped", err)
	}
	if len(f.manager.List()) != 0 {
		t.Fatalf("List() not empty after close")
	}
}

func TestIdleSessionsAreReaped(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)

	idle, err := f.manager.Create(ctx)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// Reaper ticker plus the round's tick task.
	if err := f.clock.BlockUntilContext(ctx, 2); err != nil {
		t.Fatalf("tickers never registered: %v", err)
	}
	f.clock.Advance(11 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if f.listener.wasClosed(idle.ID) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("idle session was not reaped")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := f.manager.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() after reap error = %v, want ErrSessionNotFound", err)
	}
}

func TestStartFlushesQueuedResultsOnShutdown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	publisher := &recordingPublisher{published: make(chan results.RoundCompleted, 8)}
	manager := NewManager(actors.DefaultRegistry(), publisher, nil, Config{
		Clock:       clock,
		RoundConfig: round.Config{TickInterval: time.Second, Clock: clock},
	})

	ctx := testCtx(t)
	sess, err := manager.Create(ctx)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := sess.Choose(ctx, sess.Snapshot().Pictures.QuestionActor); err != nil {
		t.Fatalf("Choose() failed: %v", err)
	}

	// The result is queued and nothing has published it yet. Starting with a
	// cancelled context shuts down at once and must still flush it.
	stopped, cancel := context.WithCancel(context.Background())
	cancel()
	manager.Start(stopped)

	select {
	case result := <-publisher.published:
		if result.SessionID != sess.ID || result.Played != 1 {
			t.Fatalf("result = %+v, want the queued play of %s", result, sess.ID)
		}
	default:
		t.Fatalf("queued result was dropped on shutdown")
	}
}
