package game

// EventType names a state transition event.
type EventType string

const (
	EventTypeSetPixels  EventType = "SET_PIXELS"
	EventTypeOpenPlay   EventType = "OPEN_PLAY"
	EventTypeRecordPlay EventType = "RECORD_PLAY"
	EventTypeStartTimer EventType = "START_TIMER"
	EventTypeStopTimer  EventType = "STOP_TIMER"
	EventTypeTickTimer  EventType = "TICK_TIMER"
)

// Event is a state transition request. The set of events is closed: only the
// types declared in this package implement it.
type Event interface {
	Type() EventType
	event()
}

// SetPixels replaces the actor specs and the question.
type SetPixels struct {
	Pixels        map[string]PictureSpec
	Question      PictureSpec
	QuestionActor string
}

// OpenPlay opens the current round for a choice.
type OpenPlay struct{}

// RecordPlay closes the round and counts it. Correct is 0 or 1.
type RecordPlay struct {
	Correct uint
}

// StartTimer resets the timer to zero and starts it.
type StartTimer struct{}

// StopTimer stops the timer and keeps its seconds.
type StopTimer struct{}

// TickTimer advances a running timer by one second.
type TickTimer struct{}

func (SetPixels) Type() EventType  { return EventTypeSetPixels }
func (OpenPlay) Type() EventType   { return EventTypeOpenPlay }
func (RecordPlay) Type() EventType { return EventTypeRecordPlay }
func (StartTimer) Type() EventType { return EventTypeStartTimer }
func (StopTimer) Type() EventType  { return EventTypeStopTimer }
func (TickTimer) Type() EventType  { return EventTypeTickTimer }

func (SetPixels) event()  {}
func (OpenPlay) event()   {}
func (RecordPlay) event() {}
func (StartTimer) event() {}
func (StopTimer) event()  {}
func (TickTimer) event()  {}

// Recorded builds the RecordPlay event for a choice.
func Recorded(isCorrect bool) RecordPlay {
	if isCorrect {
		return RecordPlay{Correct: 1}
	}
	return RecordPlay{Correct: 0}
}
