package gateway

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/pixelguess/go/internal/game"
	"github.com/mcdev12/pixelguess/go/internal/game/actors"
)

// GameEvent is the envelope for every message sent to a client.
type GameEvent struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	Cause     string          `json:"cause,omitempty"` // store event that produced a snapshot
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of a message sent to a client
type EventType string

const (
	EventTypeSnapshot EventType = "snapshot"
	EventTypeError    EventType = "error"
)

// ClientMessageType is the type of a command sent by a client.
type ClientMessageType string

const (
	ClientMessageReset  ClientMessageType = "reset"
	ClientMessageChoose ClientMessageType = "choose"
)

// ClientMessage is a command received from a client.
type ClientMessage struct {
	Type  ClientMessageType `json:"type"`
	Actor string            `json:"actor,omitempty"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// PictureView is one picture as the view layer renders it.
type PictureView struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Width    int    `json:"w"`
	Height   int    `json:"h"`
	ImageURL string `json:"image_url"`
}

// SnapshotView is the read-only state handed to the view layer.
type SnapshotView struct {
	Pictures []PictureView    `json:"pictures"`
	Question game.PictureSpec `json:"question"`
	Round    game.RoundState  `json:"round"`
	Timer    game.TimerState  `json:"timer"`
}

// NewSnapshotView renders snap with the actors in registry order.
func NewSnapshotView(registry *actors.Registry, snap game.Snapshot) SnapshotView {
	view := SnapshotView{
		Pictures: make([]PictureView, 0, registry.Len()),
		Question: snap.Pictures.Question,
		Round:    snap.Round,
		Timer:    snap.Timer,
	}
	for _, key := range registry.Keys() {
		actor, err := registry.Get(key)
		if err != nil {
			continue
		}
		spec, _ := snap.Pictures.Spec(key)
		view.Pictures = append(view.Pictures, PictureView{
			Key:      key,
			Name:     actor.Name,
			Width:    spec.Width,
			Height:   spec.Height,
			ImageURL: actor.ImageURL(spec.Width, spec.Height),
		})
	}
	return view
}

func newGameEvent(eventType EventType, sessionID string, data interface{}) (*GameEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &GameEvent{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}
