package state

import (
	"database/sql"
	"errors"
	"time"

	"github.com/llehouerou/scrobblewatch/internal/db"
)

// ErrPendingNotFound is returned when a pending scrobble no longer exists.
var ErrPendingNotFound = errors.New("pending scrobble not found")

// HistoryEntry is a scrobble accepted by Last.fm.
type HistoryEntry struct {
	ID           int64
	Artist       string
	Track        string
	Album        string
	DurationSecs int
	PlayedSecs   int
	Timestamp    time.Time
	SubmittedAt  time.Time
}

// ScrobbleKey identifies a scrobble for near-duplicate detection.
type ScrobbleKey struct {
	Artist string
	Track  string
	Album  string
}

// MarkSubmitted moves a pending scrobble into the history.
func (m *Manager) MarkSubmitted(id int64, submittedAt time.Time) error {
	return db.WithTx(m.db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO scrobble_history
			(artist, track, album, duration_seconds, played_seconds, timestamp, submitted_at)
			SELECT artist, track, album, duration_seconds, played_seconds, timestamp, ?
			FROM lastfm_pending_scrobbles WHERE id = ?
		`, submittedAt.Unix(), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrPendingNotFound
		}
		_, err = tx.Exec(`DELETE FROM lastfm_pending_scrobbles WHERE id = ?`, id)
		return err
	})
}

// RecentHistory returns up to limit accepted scrobbles, newest first.
func (m *Manager) RecentHistory(limit int) ([]HistoryEntry, error) {
	rows, err := m.db.Query(`
		SELECT id, artist, track, album, duration_seconds, played_seconds, timestamp, submitted_at
		FROM scrobble_history
		ORDER BY submitted_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var album sql.NullString
		var timestamp, submittedAt int64
		if err := rows.Scan(
			&e.ID, &e.Artist, &e.Track, &album, &e.DurationSecs, &e.PlayedSecs,
			&timestamp, &submittedAt,
		); err != nil {
			return nil, err
		}
		e.Album = db.NullStringValue(album)
		e.Timestamp = time.Unix(timestamp, 0)
		e.SubmittedAt = time.Unix(submittedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// HasNearbyScrobble reports whether a scrobble with the same identity and a
// timestamp within window of ts is pending or already submitted.
func (m *Manager) HasNearbyScrobble(key ScrobbleKey, ts time.Time, window time.Duration) (bool, error) {
	lo := ts.Add(-window).Unix()
	hi := ts.Add(window).Unix()
	var n int
	err := m.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM lastfm_pending_scrobbles
			 WHERE artist = ? AND track = ? AND COALESCE(album, '') = ? AND timestamp BETWEEN ? AND ?)
			+
			(SELECT COUNT(*) FROM scrobble_history
			 WHERE artist = ? AND track = ? AND COALESCE(album, '') = ? AND timestamp BETWEEN ? AND ?)
	`, key.Artist, key.Track, key.Album, lo, hi,
		key.Artist, key.Track, key.Album, lo, hi).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
