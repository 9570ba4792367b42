package playlist

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// jsonSong is the on-disk form of a Song in a playlist file.
type jsonSong struct {
	ID         string `json:"id,omitempty"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// LoadJSON reads a JSON array of songs. A missing ID is derived from the
// URL and a missing title from its last path segment; entries without a
// URL are rejected.
func LoadJSON(r io.Reader) ([]Song, error) {
	var entries []jsonSong
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode playlist: %w", err)
	}

	songs := make([]Song, 0, len(entries))
	for i, e := range entries {
		if e.URL == "" {
			return nil, fmt.Errorf("playlist entry %d: missing url", i)
		}
		s := FromURL(e.URL)
		if e.ID != "" {
			s.ID = e.ID
		}
		if e.Title != "" {
			s.Title = e.Title
		}
		s.Artist = e.Artist
		s.Album = e.Album
		s.Duration = time.Duration(e.DurationMS) * time.Millisecond
		songs = append(songs, s)
	}
	return songs, nil
}
