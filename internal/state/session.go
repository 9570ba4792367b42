package state

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/llehouerou/cadence/internal/db"
	"github.com/llehouerou/cadence/internal/playlist"
)

// Song lists stored in session_songs.
const (
	listPlaylist = "playlist"
	listOriginal = "original"
	listHistory  = "history"
)

// Session is the saved playback session.
type Session struct {
	Playlist     []playlist.Song
	Original     []playlist.Song
	History      []playlist.Song
	CurrentIndex int
	Mode         playlist.Mode
	Volume       float64
	Muted        bool
}

func getSession(ctx context.Context, db *sql.DB) (*Session, error) {
	var s Session
	var mode string
	row := db.QueryRowContext(ctx, `SELECT current_index, play_mode, volume, muted FROM session_state WHERE id = 1`)
	err := row.Scan(&s.CurrentIndex, &mode, &s.Volume, &s.Muted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no saved session
	}
	if err != nil {
		return nil, err
	}
	s.Mode, _ = playlist.ParseMode(mode)

	rows, err := db.QueryContext(ctx, `
		SELECT list, song_id, url, title, artist, album, duration_ms
		FROM session_songs
		ORDER BY list, position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var list string
		var song playlist.Song
		var artist, album sql.NullString
		var durationMS sql.NullInt64

		if err := rows.Scan(&list, &song.ID, &song.URL, &song.Title, &artist, &album, &durationMS); err != nil {
			return nil, err
		}
		song.Artist = dbutil.NullStringValue(artist)
		song.Album = dbutil.NullStringValue(album)
		song.Duration = time.Duration(dbutil.NullInt64Value(durationMS)) * time.Millisecond

		switch list {
		case listPlaylist:
			s.Playlist = append(s.Playlist, song)
		case listOriginal:
			s.Original = append(s.Original, song)
		case listHistory:
			s.History = append(s.History, song)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.CurrentIndex < -1 || s.CurrentIndex >= len(s.Playlist) {
		s.CurrentIndex = -1
	}
	return &s, nil
}

func saveSession(ctx context.Context, sqlDB *sql.DB, s Session) error {
	return dbutil.WithTx(ctx, sqlDB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_songs`); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_state (id, current_index, play_mode, volume, muted, saved_at)
			VALUES (1, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				play_mode = excluded.play_mode,
				volume = excluded.volume,
				muted = excluded.muted,
				saved_at = excluded.saved_at
		`, s.CurrentIndex, s.Mode.String(), s.Volume, s.Muted, time.Now().Unix())
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO session_songs (list, position, song_id, url, title, artist, album, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		lists := []struct {
			name  string
			songs []playlist.Song
		}{
			{listPlaylist, s.Playlist},
			{listOriginal, s.Original},
			{listHistory, s.History},
		}
		for _, l := range lists {
			for i, song := range l.songs {
				_, err = stmt.ExecContext(ctx, l.name, i, song.ID, song.URL, song.Title,
					dbutil.NullString(song.Artist), dbutil.NullString(song.Album), song.Duration.Milliseconds())
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}
