package round

import (
	"math/rand/v2"
	"sync"

	"github.com/mcdev12/pixelguess/go/internal/game"
)

const (
	minSide     = 25
	widthRange  = 800 // widths fall in [25, 824]
	heightRange = 600 // heights fall in [25, 624]
)

// SizeGenerator draws uniformly distributed picture sizes.
type SizeGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSizeGenerator wraps rnd; a nil rnd uses a randomly seeded source.
func NewSizeGenerator(rnd *rand.Rand) *SizeGenerator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SizeGenerator{rnd: rnd}
}

// Next returns a random picture spec.
func (g *SizeGenerator) Next() game.PictureSpec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return game.PictureSpec{
		Width:  g.rnd.IntN(widthRange) + minSide,
		Height: g.rnd.IntN(heightRange) + minSide,
	}
}

// Pick returns a uniform index in [0, n).
func (g *SizeGenerator) Pick(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.IntN(n)
}
