package results

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/pixelguess/go/internal/game"
)

func TestNewRoundCompleted(t *testing.T) {
	sessionID := uuid.New()
	snap := game.Snapshot{
		Pictures: game.Pictures{
			Question:      game.PictureSpec{Width: 120, Height: 90},
			QuestionActor: "cage",
		},
		Round: game.RoundState{Correct: 2, Played: 3},
		Timer: game.TimerState{Status: game.TimerStopped, Seconds: 7},
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	ev := NewRoundCompleted(sessionID, game.RecordPlay{Correct: 1}, snap, at)

	if ev.ID == uuid.Nil {
		t.Fatalf("event ID not set")
	}
	if !ev.CorrectAnswer || ev.Correct != 2 || ev.Played != 3 || ev.Seconds != 7 {
		t.Fatalf("event = %+v, want correct answer with 2/3 in 7s", ev)
	}
	if ev.QuestionActor != "cage" || ev.Question != snap.Pictures.Question {
		t.Fatalf("question = %s %+v, want cage 120x90", ev.QuestionActor, ev.Question)
	}
	if ev.CompletedAt.Location() != time.UTC {
		t.Fatalf("CompletedAt not UTC: %v", ev.CompletedAt)
	}
}

func TestBuildMsg(t *testing.T) {
	ev := RoundCompleted{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Played:    1,
	}

	msg, err := buildMsg("pixelguess.results", ev)
	if err != nil {
		t.Fatalf("buildMsg() failed: %v", err)
	}

	if want := "pixelguess.results." + ev.SessionID.String(); msg.Subject != want {
		t.Fatalf("subject = %q, want %q", msg.Subject, want)
	}
	if got := msg.Header.Get("Event-ID"); got != ev.ID.String() {
		t.Fatalf("Event-ID header = %q, want %q", got, ev.ID.String())
	}

	var env struct {
		EventType string         `json:"eventType"`
		SessionID string         `json:"sessionId"`
		Payload   RoundCompleted `json:"payload"`
	}
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.EventType != EventTypeRoundCompleted || env.SessionID != ev.SessionID.String() {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Payload.Played != 1 {
		t.Fatalf("payload played = %d, want 1", env.Payload.Played)
	}
}

func TestStreamConfig(t *testing.T) {
	cfg := DefaultJetStreamConfig()
	sc := streamConfig(cfg)

	if len(sc.Subjects) != 1 || sc.Subjects[0] != "pixelguess.results.>" {
		t.Fatalf("subjects = %v", sc.Subjects)
	}
	if !isStreamConfigEqual(sc, streamConfig(cfg)) {
		t.Fatalf("identical configs reported unequal")
	}
	cfg.MaxAge = time.Hour
	if isStreamConfigEqual(sc, streamConfig(cfg)) {
		t.Fatalf("configs with different MaxAge reported equal")
	}
}
