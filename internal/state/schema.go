package state

import (
	"database/sql"
)

const currentSchemaVersion = 2

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS lastfm_session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			username TEXT NOT NULL,
			session_key TEXT NOT NULL,
			linked_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS lastfm_pending_scrobbles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist TEXT NOT NULL,
			track TEXT NOT NULL,
			album TEXT,
			duration_seconds INTEGER NOT NULL,
			played_seconds INTEGER NOT NULL DEFAULT 0,
			timestamp INTEGER NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_pending_created_at ON lastfm_pending_scrobbles(created_at);
		CREATE INDEX IF NOT EXISTS idx_pending_identity ON lastfm_pending_scrobbles(artist, track, timestamp);

		CREATE TABLE IF NOT EXISTS scrobble_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist TEXT NOT NULL,
			track TEXT NOT NULL,
			album TEXT,
			duration_seconds INTEGER NOT NULL,
			played_seconds INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			submitted_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_history_identity ON scrobble_history(artist, track, timestamp);
		CREATE INDEX IF NOT EXISTS idx_history_submitted_at ON scrobble_history(submitted_at DESC);
	`)
	if err != nil {
		return err
	}

	// Set initial version if not exists
	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	if err != nil {
		return err
	}

	// Migration: add played_seconds to queues created by version 1
	_, _ = db.Exec(`ALTER TABLE lastfm_pending_scrobbles ADD COLUMN played_seconds INTEGER NOT NULL DEFAULT 0`)

	return nil
}
