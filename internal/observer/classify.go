package observer

import "time"

// Change is the result of classifying a full observation against the
// current track state.
type Change int

const (
	NoChange Change = iota
	// TrackChanged: first track, or any identity field differs.
	TrackChanged
	// Restarted: same identity, position jumped from near the end to near
	// zero. A natural loop, worth its own scrobble.
	Restarted
	// Replayed: same identity, position moved backward beyond tolerance
	// somewhere other than the end-to-start wrap.
	Replayed
	// PlayStateChanged: same identity, only the playing flag flipped.
	PlayStateChanged
	// NothingObserved: the host shows nothing playing. Never returned by
	// Classify; carried by the TrackEnded emitted when state is cleared.
	NothingObserved
)

// String returns the change name.
func (c Change) String() string {
	switch c {
	case NoChange:
		return "none"
	case TrackChanged:
		return "track-changed"
	case Restarted:
		return "track-completed-and-restarted"
	case Replayed:
		return "replayed-or-seeked"
	case PlayStateChanged:
		return "play-state-changed"
	case NothingObserved:
		return "nothing-observed"
	default:
		return "unknown"
	}
}

// IsNewPlaythrough reports whether the change starts a new playthrough,
// which ends the previous one.
func (c Change) IsNewPlaythrough() bool {
	return c == TrackChanged || c == Restarted || c == Replayed
}

// Tolerances bound how much position jitter is absorbed before a backward
// movement counts as a seek or a loop.
type Tolerances struct {
	Seek  time.Duration // backward movement ignored up to this much
	End   time.Duration // "near the end" window
	Start time.Duration // "near zero" window
}

// Classify decides what happened between prev and next. A nil prev means
// nothing was current.
func Classify(prev *Observation, next Observation, tol Tolerances) Change {
	if prev == nil {
		return TrackChanged
	}
	if !prev.SameTrack(next) {
		return TrackChanged
	}

	if prev.Position-next.Position > tol.Seek {
		if nearEnd(*prev, tol.End) && next.Position <= tol.Start {
			return Restarted
		}
		return Replayed
	}

	if prev.Playing != next.Playing {
		return PlayStateChanged
	}
	return NoChange
}

func nearEnd(o Observation, buf time.Duration) bool {
	if o.Duration <= 0 {
		return false
	}
	return o.Duration-o.Position <= buf
}
