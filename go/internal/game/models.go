package game

import "github.com/mcdev12/pixelguess/go/internal/game/actors"

// PictureSpec is the width/height pair of one placeholder image.
type PictureSpec struct {
	Width  int `json:"w"`
	Height int `json:"h"`
}

// Pictures holds the current spec for every actor plus the question being asked.
// Actors must never be written to after the Pictures value has been published.
type Pictures struct {
	Actors        map[string]PictureSpec `json:"actors"`
	Question      PictureSpec            `json:"question"`
	QuestionActor string                 `json:"-"`
}

// Spec returns the spec for the given actor key.
func (p Pictures) Spec(actor string) (PictureSpec, bool) {
	spec, ok := p.Actors[actor]
	return spec, ok
}

// IsAnswer reports whether choosing actor answers the current question.
func (p Pictures) IsAnswer(actor string) bool {
	if p.QuestionActor != "" {
		return p.QuestionActor == actor
	}
	// Initial pictures have no drawn question; fall back to comparing sizes.
	spec, ok := p.Actors[actor]
	return ok && spec == p.Question
}

// RoundState counts rounds. Correct never exceeds Played.
type RoundState struct {
	Correct uint `json:"correct"`
	Played  uint `json:"played"`
	Open    bool `json:"open"`
}

// TimerStatus is the run state of the round timer.
type TimerStatus string

const (
	TimerStopped TimerStatus = "Stopped"
	TimerRunning TimerStatus = "Running"
)

// TimerState is the round timer.
type TimerState struct {
	Status  TimerStatus `json:"status"`
	Seconds uint        `json:"seconds"`
}

// Snapshot is the aggregate of all state slices at one point in time.
// A published Snapshot is never mutated.
type Snapshot struct {
	Pictures Pictures   `json:"pictures"`
	Round    RoundState `json:"round"`
	Timer    TimerState `json:"timer"`
}

const initialSize = 50

// InitialSnapshot builds the start-of-session snapshot for the given registry.
func InitialSnapshot(registry *actors.Registry) Snapshot {
	specs := make(map[string]PictureSpec, registry.Len())
	for _, key := range registry.Keys() {
		specs[key] = PictureSpec{Width: initialSize, Height: initialSize}
	}

	return Snapshot{
		Pictures: Pictures{
			Actors:   specs,
			Question: PictureSpec{Width: initialSize, Height: initialSize},
		},
		Round: RoundState{Open: true},
		Timer: TimerState{Status: TimerStopped},
	}
}
