// internal/state/mock.go
package state

import (
	"slices"
	"sync"
	"time"
)

// Mock is an in-memory test double for Manager.
type Mock struct {
	mu      sync.Mutex
	session *LastfmSession
	pending []PendingScrobble
	history []HistoryEntry
	nextID  int64
	closed  bool
	addErr  error
}

// NewMock creates a new mock state manager for testing.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) GetLastfmSession() (*LastfmSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *Mock) SaveLastfmSession(username, sessionKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &LastfmSession{Username: username, SessionKey: sessionKey, LinkedAt: time.Now()}
	return nil
}

func (m *Mock) DeleteLastfmSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *Mock) AddPendingScrobble(s PendingScrobble) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.nextID++
	s.ID = m.nextID
	s.Attempts = 0
	s.LastError = ""
	s.CreatedAt = time.Now()
	m.pending = append(m.pending, s)
	return nil
}

func (m *Mock) GetPendingScrobbles() ([]PendingScrobble, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.pending), nil
}

func (m *Mock) CountPendingScrobbles() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending), nil
}

func (m *Mock) DeletePendingScrobble(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = slices.DeleteFunc(m.pending, func(p PendingScrobble) bool { return p.ID == id })
	return nil
}

func (m *Mock) UpdatePendingScrobbleAttempt(id int64, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.pending {
		if m.pending[i].ID == id {
			m.pending[i].Attempts++
			m.pending[i].LastError = errMsg
		}
	}
	return nil
}

func (m *Mock) DeleteOldPendingScrobbles(cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff = time.Unix(cutoff.Unix(), 0)
	m.pending = slices.DeleteFunc(m.pending, func(p PendingScrobble) bool { return p.Timestamp.Before(cutoff) })
	return nil
}

func (m *Mock) MarkSubmitted(id int64, submittedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.pending, func(p PendingScrobble) bool { return p.ID == id })
	if i < 0 {
		return ErrPendingNotFound
	}
	p := m.pending[i]
	m.history = append(m.history, HistoryEntry{
		ID:           int64(len(m.history) + 1),
		Artist:       p.Artist,
		Track:        p.Track,
		Album:        p.Album,
		DurationSecs: p.DurationSecs,
		PlayedSecs:   p.PlayedSecs,
		Timestamp:    p.Timestamp,
		SubmittedAt:  submittedAt,
	})
	m.pending = slices.Delete(m.pending, i, i+1)
	return nil
}

func (m *Mock) RecentHistory(limit int) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.history)
	slices.Reverse(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Mock) HasNearbyScrobble(key ScrobbleKey, ts time.Time, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	near := func(t time.Time) bool {
		d := t.Sub(ts)
		return d >= -window && d <= window
	}
	for _, p := range m.pending {
		if (ScrobbleKey{p.Artist, p.Track, p.Album}) == key && near(p.Timestamp) {
			return true, nil
		}
	}
	for _, h := range m.history {
		if (ScrobbleKey{h.Artist, h.Track, h.Album}) == key && near(h.Timestamp) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) SetAddError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addErr = err
}

func (m *Mock) History() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

func (m *Mock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
