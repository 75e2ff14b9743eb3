package state

import (
	"database/sql"
	"errors"
	"time"
)

// LastfmSession is the linked Last.fm account.
type LastfmSession struct {
	Username   string
	SessionKey string
	LinkedAt   time.Time
}

// GetLastfmSession returns the linked account, or nil when none is linked.
func (m *Manager) GetLastfmSession() (*LastfmSession, error) {
	var (
		s        LastfmSession
		linkedAt int64
	)
	err := m.db.QueryRow(
		`SELECT username, session_key, linked_at FROM lastfm_session WHERE id = 1`,
	).Scan(&s.Username, &s.SessionKey, &linkedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil //nolint:nilnil // not linked
	case err != nil:
		return nil, err
	}
	s.LinkedAt = time.Unix(linkedAt, 0)
	return &s, nil
}

// SaveLastfmSession links an account, replacing any previous one.
func (m *Manager) SaveLastfmSession(username, sessionKey string) error {
	_, err := m.db.Exec(`
		INSERT INTO lastfm_session (id, username, session_key, linked_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			session_key = excluded.session_key,
			linked_at = excluded.linked_at
	`, username, sessionKey, time.Now().Unix())
	return err
}

// DeleteLastfmSession unlinks the account.
func (m *Manager) DeleteLastfmSession() error {
	_, err := m.db.Exec(`DELETE FROM lastfm_session`)
	return err
}
