package observer

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Wire form of events, one JSON object per event:
//
//	{"type":"TRACK_DETECTED","track":{...},"isNowPlaying":true}
//	{"type":"TRACK_ENDED","track":{...},"playDurationSeconds":81}
//
// Durations are whole seconds and the timestamp is Unix seconds.

type wireTrack struct {
	Artist    string `json:"artist"`
	Title     string `json:"title"`
	Album     string `json:"album,omitempty"`
	Duration  int64  `json:"duration"`
	Timestamp int64  `json:"timestamp"`
}

type wireEvent struct {
	Type                string    `json:"type"`
	Track               wireTrack `json:"track"`
	IsNowPlaying        *bool     `json:"isNowPlaying,omitempty"`
	PlayDurationSeconds *int64    `json:"playDurationSeconds,omitempty"`
}

// ParseEventType maps a wire name back to its EventType.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "TRACK_DETECTED":
		return TrackDetected, nil
	case "TRACK_ENDED":
		return TrackEnded, nil
	default:
		return 0, fmt.Errorf("unknown event type %q", s)
	}
}

// MarshalJSON encodes the event in its wire form. Change is not carried.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		Type: e.Type.String(),
		Track: wireTrack{
			Artist:   e.Track.Artist,
			Title:    e.Track.Title,
			Album:    e.Track.Album,
			Duration: seconds(e.Track.Duration),
		},
	}
	if !e.Track.Timestamp.IsZero() {
		w.Track.Timestamp = e.Track.Timestamp.Unix()
	}
	switch e.Type {
	case TrackDetected:
		playing := e.IsNowPlaying
		w.IsNowPlaying = &playing
	case TrackEnded:
		played := seconds(e.PlayDuration)
		w.PlayDurationSeconds = &played
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	typ, err := ParseEventType(w.Type)
	if err != nil {
		return err
	}
	*e = Event{
		Type: typ,
		Track: TrackInfo{
			Artist:   w.Track.Artist,
			Title:    w.Track.Title,
			Album:    w.Track.Album,
			Duration: time.Duration(w.Track.Duration) * time.Second,
		},
	}
	if w.Track.Timestamp != 0 {
		e.Track.Timestamp = time.Unix(w.Track.Timestamp, 0)
	}
	if w.IsNowPlaying != nil {
		e.IsNowPlaying = *w.IsNowPlaying
	}
	if w.PlayDurationSeconds != nil {
		e.PlayDuration = time.Duration(*w.PlayDurationSeconds) * time.Second
	}
	return nil
}

func seconds(d time.Duration) int64 {
	return int64(math.Round(d.Seconds()))
}
