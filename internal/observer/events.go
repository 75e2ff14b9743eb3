package observer

import (
	"errors"
	"time"
)

// ErrChannelClosed is returned by a Sink whose transport is no longer valid.
// The observer shuts down once when it sees it.
var ErrChannelClosed = errors.New("event channel closed")

// EventType identifies an emitted event.
type EventType int

const (
	// TrackDetected reports the track now current, or a play/pause change on it.
	TrackDetected EventType = iota
	// TrackEnded finalizes the vacated track with how far it was played.
	TrackEnded
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case TrackDetected:
		return "TRACK_DETECTED"
	case TrackEnded:
		return "TRACK_ENDED"
	default:
		return "UNKNOWN"
	}
}

// TrackInfo is the track payload carried by events.
type TrackInfo struct {
	Artist    string
	Title     string
	Album     string
	Duration  time.Duration
	Timestamp time.Time // start of the playthrough
}

// Identity returns the track identity of the payload.
func (t TrackInfo) Identity() Identity {
	return Identity{Title: t.Title, Artist: t.Artist, Album: t.Album}
}

// Event is a discrete playback event.
//
// Emitted by the observer:
//   - TrackDetected on a new track (first track, change, restart, replay) and
//     on a play-state change of the current track, with IsNowPlaying set
//   - TrackEnded for the outgoing track, strictly before the TrackDetected of
//     the incoming one, with PlayDuration taken from the last snapshot
//
// Pause and resume never produce TrackEnded.
type Event struct {
	Type         EventType
	Track        TrackInfo
	IsNowPlaying bool          // TrackDetected only
	PlayDuration time.Duration // TrackEnded only
	Change       Change        // classification that caused the event
}

// Sink receives events from the observer. Emit is called synchronously from
// the observer's run loop.
type Sink interface {
	Emit(e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event) error

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) error {
	return f(e)
}

func trackInfo(s *trackState) TrackInfo {
	return TrackInfo{
		Artist:    s.obs.Artist,
		Title:     s.obs.Title,
		Album:     s.obs.Album,
		Duration:  s.obs.Duration,
		Timestamp: s.startedAt,
	}
}
