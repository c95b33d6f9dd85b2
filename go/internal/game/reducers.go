package game

// reduce applies one event to every slice of the snapshot. Slices an event does
// not touch are carried over as-is.
func reduce(s Snapshot, ev Event) Snapshot {
	return Snapshot{
		Pictures: reducePictures(s.Pictures, ev),
		Round:    reduceRound(s.Round, ev),
		Timer:    reduceTimer(s.Timer, ev),
	}
}

func reducePictures(p Pictures, ev Event) Pictures {
	switch e := ev.(type) {
	case SetPixels:
		merged := make(map[string]PictureSpec, len(p.Actors))
		for key, spec := range p.Actors {
			merged[key] = spec
		}
		for key, spec := range e.Pixels {
			merged[key] = spec
		}
		return Pictures{
			Actors:        merged,
			Question:      e.Question,
			QuestionActor: e.QuestionActor,
		}
	default:
		return p
	}
}

func reduceRound(r RoundState, ev Event) RoundState {
	switch e := ev.(type) {
	case OpenPlay:
		r.Open = true
		return r
	case RecordPlay:
		// Anything above 1 is clamped so Correct can never pass Played.
		if e.Correct > 0 {
			r.Correct++
		}
		r.Played++
		r.Open = false
		return r
	default:
		return r
	}
}

func reduceTimer(t TimerState, ev Event) TimerState {
	switch ev.(type) {
	case StartTimer:
		return TimerState{Seconds: 0, Status: TimerRunning}
	case StopTimer:
		t.Status = TimerStopped
		return t
	case TickTimer:
		t.Seconds++
		return t
	default:
		return t
	}
}
