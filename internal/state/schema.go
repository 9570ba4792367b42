package state

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS session_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			current_index INTEGER NOT NULL DEFAULT -1,
			play_mode TEXT NOT NULL DEFAULT 'list',
			volume REAL NOT NULL DEFAULT 0.8,
			muted INTEGER NOT NULL DEFAULT 0,
			saved_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_songs (
			list TEXT NOT NULL CHECK (list IN ('playlist', 'original', 'history')),
			position INTEGER NOT NULL,
			song_id TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			artist TEXT,
			album TEXT,
			duration_ms INTEGER,
			PRIMARY KEY (list, position)
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}
