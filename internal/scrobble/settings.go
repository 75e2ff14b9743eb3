// Package scrobble turns observer events into Last.fm submissions: it
// applies the eligibility rules, drops near-duplicates, queues accepted
// plays in the state store and delivers them with retry.
package scrobble

import "time"

// Settings is the user-facing scrobbling policy. It can be replaced at any
// time through Coordinator.UpdateSettings.
type Settings struct {
	Enabled        bool
	MinTrackLength time.Duration // shorter tracks are never scrobbled
	Threshold      float64       // minimum played fraction, 0.5 = half
	// PlayedCap, when non-zero, also satisfies the fraction test once that
	// much has been played (Last.fm's "or 4 minutes").
	PlayedCap time.Duration
	// DedupeWindow is how close two timestamps of the same track must be to
	// count as the same play.
	DedupeWindow time.Duration
}

// DefaultSettings returns Last.fm's documented rules with the cap disabled.
func DefaultSettings() Settings {
	return Settings{
		Enabled:        true,
		MinTrackLength: 30 * time.Second,
		Threshold:      0.5,
		DedupeWindow:   30 * time.Second,
	}
}
