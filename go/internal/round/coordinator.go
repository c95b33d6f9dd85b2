package round

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pixelguess/go/internal/game"
	"github.com/mcdev12/pixelguess/go/internal/game/actors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrRoundClosed is returned when a choice arrives for a round that already has one.
	ErrRoundClosed = errors.New("round is not open")
	// ErrStopped is returned for commands issued after the coordinator loop exited.
	ErrStopped = errors.New("coordinator stopped")
)

// Clock is the subset of clockwork.Clock the coordinator needs.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// Store is what the coordinator needs from the state store.
type Store interface {
	Apply(ev game.Event) error
	Snapshot() game.Snapshot
}

// Config holds the coordinator's timing and randomness sources.
type Config struct {
	TickInterval time.Duration
	Clock        Clock
	Sizes        *SizeGenerator
}

// DefaultConfig returns a one-second tick on the real clock.
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		Clock:        clockwork.NewRealClock(),
		Sizes:        NewSizeGenerator(nil),
	}
}

type command struct {
	name   string
	run    func() error
	result chan error
}

// tickTask is the repeating background unit that advances the timer.
type tickTask struct {
	gen    uint64
	ticker clockwork.Ticker
	cancel context.CancelFunc
}

// Coordinator sequences the reactions to the two entry commands and owns the
// single tick task. Every dispatch happens on the goroutine running Run.
type Coordinator struct {
	id       string
	store    Store
	registry *actors.Registry
	clock    Clock
	sizes    *SizeGenerator
	interval time.Duration

	cmdCh  chan command
	tickCh chan uint64
	done   chan struct{}

	// owned by the Run goroutine
	ticking *tickTask
	gen     uint64
}

// NewCoordinator creates a coordinator for one game session. Run must be
// started before commands are accepted.
func NewCoordinator(id string, store Store, registry *actors.Registry, cfg Config) *Coordinator {
	defaults := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = defaults.Clock
	}
	if cfg.Sizes == nil {
		cfg.Sizes = defaults.Sizes
	}

	return &Coordinator{
		id:       id,
		store:    store,
		registry: registry,
		clock:    cfg.Clock,
		sizes:    cfg.Sizes,
		interval: cfg.TickInterval,
		cmdCh:    make(chan command),
		tickCh:   make(chan uint64),
		done:     make(chan struct{}),
	}
}

// ResetRound draws new pictures and a question, opens the round and starts the timer.
func (c *Coordinator) ResetRound(ctx context.Context) error {
	return c.submit(ctx, "reset_round", c.resetRound)
}

// SubmitChoice stops the timer and records the play.
func (c *Coordinator) SubmitChoice(ctx context.Context, isCorrect bool) error {
	return c.submit(ctx, "submit_choice", func() error {
		return c.submitChoice(isCorrect)
	})
}

// Choose submits a choice of actor, judged against the question that is
// current when the coordinator handles it.
func (c *Coordinator) Choose(ctx context.Context, actor string) error {
	return c.submit(ctx, "choose", func() error {
		return c.submitChoice(c.store.Snapshot().Pictures.IsAnswer(actor))
	})
}

// Done is closed once Run has returned.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) submit(ctx context.Context, name string, run func() error) error {
	cmd := command{name: name, run: run, result: make(chan error, 1)}

	select {
	case c.cmdCh <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}

	// Once handed off the command runs to completion, so its outcome is
	// reported even if ctx expires meanwhile.
	select {
	case err := <-cmd.result:
		return err
	case <-c.done:
		return ErrStopped
	}
}

// Run processes commands and ticks until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	log.Info().Str("session_id", c.id).Dur("tick_interval", c.interval).Msg("coordinator started")

	defer func() {
		c.stopTicking()
		close(c.done)
		log.Info().Str("session_id", c.id).Msg("coordinator stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-c.cmdCh:
			err := cmd.run()
			if err != nil {
				log.Debug().Err(err).Str("session_id", c.id).Str("command", cmd.name).Msg("command failed")
			}
			cmd.result <- err
		case gen := <-c.tickCh:
			if c.ticking == nil || c.ticking.gen != gen {
				// A tick raced with its own cancellation.
				log.Debug().Str("session_id", c.id).Uint64("gen", gen).Msg("dropped stale tick")
				continue
			}
			if err := c.put(game.TickTimer{}); err != nil {
				log.Error().Err(err).Str("session_id", c.id).Msg("failed to dispatch tick")
			}
		}
	}
}

func (c *Coordinator) resetRound() error {
	pixels := make(map[string]game.PictureSpec, c.registry.Len())
	keys := c.registry.Keys()
	for _, key := range keys {
		pixels[key] = c.sizes.Next()
	}
	questionActor := keys[c.sizes.Pick(len(keys))]

	setPixels := game.SetPixels{
		Pixels:        pixels,
		Question:      pixels[questionActor],
		QuestionActor: questionActor,
	}
	if err := c.put(setPixels); err != nil {
		return fmt.Errorf("failed to set pixels: %w", err)
	}
	if err := c.put(game.OpenPlay{}); err != nil {
		return fmt.Errorf("failed to open play: %w", err)
	}
	if err := c.put(game.StartTimer{}); err != nil {
		return fmt.Errorf("failed to start timer: %w", err)
	}

	log.Info().
		Str("session_id", c.id).
		Str("question_actor", questionActor).
		Int("w", setPixels.Question.Width).
		Int("h", setPixels.Question.Height).
		Msg("round opened")
	return nil
}

func (c *Coordinator) submitChoice(isCorrect bool) error {
	if !c.store.Snapshot().Round.Open {
		log.Warn().Str("session_id", c.id).Msg("ignoring choice for closed round")
		return ErrRoundClosed
	}

	if err := c.put(game.StopTimer{}); err != nil {
		return fmt.Errorf("failed to stop timer: %w", err)
	}
	if err := c.put(game.Recorded(isCorrect)); err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}

	snap := c.store.Snapshot()
	log.Info().
		Str("session_id", c.id).
		Bool("correct", isCorrect).
		Uint("seconds", snap.Timer.Seconds).
		Uint("played", snap.Round.Played).
		Msg("choice recorded")
	return nil
}

// put dispatches ev and then lets the timer lifecycle observe it, the same
// order in which a watcher sees an event after the store has applied it.
func (c *Coordinator) put(ev game.Event) error {
	if err := c.store.Apply(ev); err != nil {
		return err
	}

	switch ev.(type) {
	case game.StartTimer:
		c.startTicking()
	case game.StopTimer:
		c.stopTicking()
	}
	return nil
}
