package scrobble

import (
	"time"

	"github.com/llehouerou/scrobblewatch/internal/observer"
)

// ActivityKind identifies what the coordinator just did.
type ActivityKind int

const (
	NowPlaying ActivityKind = iota
	Paused
	Queued
	Ineligible
	Duplicate
	Submitted
	Failed
)

func (k ActivityKind) String() string {
	switch k {
	case NowPlaying:
		return "now playing"
	case Paused:
		return "paused"
	case Queued:
		return "queued"
	case Ineligible:
		return "not eligible"
	case Duplicate:
		return "duplicate"
	case Submitted:
		return "scrobbled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Activity is reported to the OnActivity callback.
type Activity struct {
	Kind    ActivityKind
	Track   observer.TrackInfo
	Played  time.Duration // Queued, Ineligible, Duplicate
	Pending int           // queue length after Queued, Submitted, Failed
	Err     error         // Failed
	At      time.Time
}
