package scrobble

import "time"

// Eligible reports whether a playthrough counts as a play: the track is at
// least MinTrackLength long and enough of it was played. An unknown (zero)
// duration is never eligible.
func (s Settings) Eligible(duration, played time.Duration) bool {
	if duration <= 0 || duration < s.MinTrackLength {
		return false
	}
	if s.PlayedCap > 0 && played >= s.PlayedCap {
		return true
	}
	return float64(played)/float64(duration) >= s.Threshold
}
