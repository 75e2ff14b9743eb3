package observer

import "time"

// Config holds the observer's timing and tolerance policy. The values are
// tuned against a particular host's update cadence; re-tune them for a
// different source.
type Config struct {
	ChangeInterval    time.Duration // identity change check
	SnapshotInterval  time.Duration // position snapshot refresh, shorter than ChangeInterval
	SeekTolerance     time.Duration
	EndBuffer         time.Duration
	StartBuffer       time.Duration
	DuplicateCooldown time.Duration
	// MissedReads is how many consecutive empty reads end the current track.
	MissedReads int
	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the default policy.
func DefaultConfig() Config {
	return Config{
		ChangeInterval:    5 * time.Second,
		SnapshotInterval:  time.Second,
		SeekTolerance:     5 * time.Second,
		EndBuffer:         5 * time.Second,
		StartBuffer:       5 * time.Second,
		DuplicateCooldown: 2 * time.Second,
		MissedReads:       2,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChangeInterval <= 0 {
		c.ChangeInterval = d.ChangeInterval
	}
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = d.SnapshotInterval
	}
	if c.SeekTolerance <= 0 {
		c.SeekTolerance = d.SeekTolerance
	}
	if c.EndBuffer <= 0 {
		c.EndBuffer = d.EndBuffer
	}
	if c.StartBuffer <= 0 {
		c.StartBuffer = d.StartBuffer
	}
	if c.DuplicateCooldown <= 0 {
		c.DuplicateCooldown = d.DuplicateCooldown
	}
	if c.MissedReads <= 0 {
		c.MissedReads = d.MissedReads
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

func (c Config) tolerances() Tolerances {
	return Tolerances{Seek: c.SeekTolerance, End: c.EndBuffer, Start: c.StartBuffer}
}
