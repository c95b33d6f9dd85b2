package round

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// startTicking forks the tick task. A task that is already running is
// cancelled first so at most one is ever active.
func (c *Coordinator) startTicking() {
	if c.ticking != nil {
		log.Debug().Str("session_id", c.id).Uint64("gen", c.ticking.gen).Msg("replacing running tick task")
		c.stopTicking()
	}

	c.gen++
	ctx, cancel := context.WithCancel(context.Background())
	task := &tickTask{
		gen:    c.gen,
		ticker: c.clock.NewTicker(c.interval),
		cancel: cancel,
	}
	c.ticking = task

	go c.tick(ctx, task.gen, task.ticker)

	log.Debug().Str("session_id", c.id).Uint64("gen", task.gen).Msg("tick task started")
}

// stopTicking cancels the active tick task. Ticks it already sent are
// dropped by Run because the generation no longer matches.
func (c *Coordinator) stopTicking() {
	if c.ticking == nil {
		return
	}
	c.ticking.ticker.Stop()
	c.ticking.cancel()
	log.Debug().Str("session_id", c.id).Uint64("gen", c.ticking.gen).Msg("tick task cancelled")
	c.ticking = nil
}

func (c *Coordinator) tick(ctx context.Context, gen uint64, ticker clockwork.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			select {
			case c.tickCh <- gen:
			case <-ctx.Done():
				return
			}
		}
	}
}
