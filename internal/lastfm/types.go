package lastfm

import "time"

// ScrobbleTrack contains track metadata for scrobbling.
type ScrobbleTrack struct {
	Artist    string
	Track     string
	Album     string
	Duration  time.Duration
	Timestamp time.Time // When playback started
}

// params builds the request parameters shared by track.updateNowPlaying
// and track.scrobble.
func (t ScrobbleTrack) params() map[string]any {
	p := map[string]any{
		"artist": t.Artist,
		"track":  t.Track,
	}
	if t.Album != "" {
		p["album"] = t.Album
	}
	if t.Duration > 0 {
		p["duration"] = int(t.Duration.Seconds())
	}
	return p
}
