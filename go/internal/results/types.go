package results

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/pixelguess/go/internal/game"
)

// EventTypeRoundCompleted is the event type of a finished round.
const EventTypeRoundCompleted = "RoundCompleted"

// RoundCompleted is published every time a play is recorded.
type RoundCompleted struct {
	ID            uuid.UUID        `json:"id"`
	SessionID     uuid.UUID        `json:"session_id"`
	CorrectAnswer bool             `json:"correct_answer"`
	Correct       uint             `json:"correct"`
	Played        uint             `json:"played"`
	Seconds       uint             `json:"seconds"`
	Question      game.PictureSpec `json:"question"`
	QuestionActor string           `json:"question_actor"`
	CompletedAt   time.Time        `json:"completed_at"`
}

// NewRoundCompleted builds the event from the snapshot published after a RecordPlay.
func NewRoundCompleted(sessionID uuid.UUID, ev game.RecordPlay, snap game.Snapshot, at time.Time) RoundCompleted {
	return RoundCompleted{
		ID:            uuid.New(),
		SessionID:     sessionID,
		CorrectAnswer: ev.Correct > 0,
		Correct:       snap.Round.Correct,
		Played:        snap.Round.Played,
		Seconds:       snap.Timer.Seconds,
		Question:      snap.Pictures.Question,
		QuestionActor: snap.Pictures.QuestionActor,
		CompletedAt:   at.UTC(),
	}
}

// Publisher delivers round results somewhere outside the process.
type Publisher interface {
	Publish(ctx context.Context, event RoundCompleted) error
	Close() error
}
