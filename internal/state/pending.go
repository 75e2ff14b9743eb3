package state

import (
	"database/sql"
	"time"

	"github.com/llehouerou/scrobblewatch/internal/db"
)

// PendingScrobble is a play waiting for submission.
type PendingScrobble struct {
	ID           int64
	Artist       string
	Track        string
	Album        string
	DurationSecs int
	PlayedSecs   int
	Timestamp    time.Time // start of the playthrough
	Attempts     int
	LastError    string
	CreatedAt    time.Time
}

const pendingColumns = `id, artist, track, album, duration_seconds, played_seconds,
	timestamp, attempts, last_error, created_at`

func scanPending(rows *sql.Rows) (PendingScrobble, error) {
	var (
		p                    PendingScrobble
		album, lastError     sql.NullString
		timestamp, createdAt int64
	)
	err := rows.Scan(&p.ID, &p.Artist, &p.Track, &album, &p.DurationSecs, &p.PlayedSecs,
		&timestamp, &p.Attempts, &lastError, &createdAt)
	if err != nil {
		return p, err
	}
	p.Album = db.NullStringValue(album)
	p.LastError = db.NullStringValue(lastError)
	p.Timestamp = time.Unix(timestamp, 0)
	p.CreatedAt = time.Unix(createdAt, 0)
	return p, nil
}

// AddPendingScrobble queues p with no attempts. ID, Attempts, LastError and
// CreatedAt are assigned by the store.
func (m *Manager) AddPendingScrobble(p PendingScrobble) error {
	_, err := m.db.Exec(`
		INSERT INTO lastfm_pending_scrobbles
		(artist, track, album, duration_seconds, played_seconds, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Artist, p.Track, db.NullString(p.Album), p.DurationSecs, p.PlayedSecs,
		p.Timestamp.Unix(), time.Now().Unix())
	return err
}

// GetPendingScrobbles returns the queue in creation order.
func (m *Manager) GetPendingScrobbles() ([]PendingScrobble, error) {
	rows, err := m.db.Query(`SELECT ` + pendingColumns + `
		FROM lastfm_pending_scrobbles
		ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingScrobble
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountPendingScrobbles returns the queue length.
func (m *Manager) CountPendingScrobbles() (int, error) {
	var n int
	err := m.db.QueryRow(`SELECT COUNT(*) FROM lastfm_pending_scrobbles`).Scan(&n)
	return n, err
}

// DeletePendingScrobble drops an entry without recording it in the history.
func (m *Manager) DeletePendingScrobble(id int64) error {
	_, err := m.db.Exec(`DELETE FROM lastfm_pending_scrobbles WHERE id = ?`, id)
	return err
}

// UpdatePendingScrobbleAttempt records a failed submission.
func (m *Manager) UpdatePendingScrobbleAttempt(id int64, errMsg string) error {
	_, err := m.db.Exec(`
		UPDATE lastfm_pending_scrobbles
		SET attempts = attempts + 1, last_error = ?
		WHERE id = ?
	`, db.NullString(errMsg), id)
	return err
}

// DeleteOldPendingScrobbles prunes entries whose play started before cutoff.
func (m *Manager) DeleteOldPendingScrobbles(cutoff time.Time) error {
	_, err := m.db.Exec(`DELETE FROM lastfm_pending_scrobbles WHERE timestamp < ?`, cutoff.Unix())
	return err
}
