package observer

import "time"

// Identity is the (title, artist, album) tuple that decides whether two
// observations refer to the same logical track.
//
// Equality is exact and case-sensitive. Fields are compared as extracted;
// nothing is trimmed or case-folded, because what counts as "the same track"
// drives every classification decision.
type Identity struct {
	Title  string
	Artist string
	Album  string
}

// IsZero reports whether no identity field is set.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// String returns "Artist - Title" for logging.
func (id Identity) String() string {
	if id.Artist == "" {
		return id.Title
	}
	return id.Artist + " - " + id.Title
}

// Observation is a point-in-time read of the host's playback surface.
type Observation struct {
	Title      string
	Artist     string
	Album      string
	Duration   time.Duration // 0 means unknown
	Position   time.Duration
	Playing    bool
	ArtworkURL string // display only
}

// Identity returns the observation's track identity.
func (o Observation) Identity() Identity {
	return Identity{Title: o.Title, Artist: o.Artist, Album: o.Album}
}

// SameTrack reports whether o and other denote the same logical track.
func (o Observation) SameTrack(other Observation) bool {
	return o.Identity() == other.Identity()
}

// Progress is the lightweight position read used by the snapshot timer.
type Progress struct {
	Position time.Duration
	Playing  bool
}

// Snapshot is an immutable copy of the current track state with a fresh
// position, taken on the snapshot interval.
type Snapshot struct {
	Observation Observation
	TakenAt     time.Time
}

// trackState is the observer's working model of what is playing now.
type trackState struct {
	obs        Observation
	observedAt time.Time // when obs was last refreshed by a full observation
	startedAt  time.Time // start of this playthrough, reported as the scrobble timestamp
	ended      bool      // track-ended already emitted for this playthrough
}
