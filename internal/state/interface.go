// internal/state/interface.go
package state

import (
	"time"
)

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	GetLastfmSession() (*LastfmSession, error)
	SaveLastfmSession(username, sessionKey string) error
	DeleteLastfmSession() error

	AddPendingScrobble(s PendingScrobble) error
	GetPendingScrobbles() ([]PendingScrobble, error)
	CountPendingScrobbles() (int, error)
	DeletePendingScrobble(id int64) error
	UpdatePendingScrobbleAttempt(id int64, errMsg string) error
	DeleteOldPendingScrobbles(cutoff time.Time) error

	MarkSubmitted(id int64, submittedAt time.Time) error
	RecentHistory(limit int) ([]HistoryEntry, error)
	HasNearbyScrobble(key ScrobbleKey, ts time.Time, window time.Duration) (bool, error)

	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
