package player

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dhowden/tag"
)

// TrackInfo is the tag metadata of a local file.
type TrackInfo struct {
	Path     string
	Title    string
	Artist   string
	Album    string
	Year     int
	Track    int
	Duration time.Duration
}

// ReadTrackInfo reads tag metadata. The title falls back to the file name.
// Duration is left zero; the transport reports it on load.
func ReadTrackInfo(path string) (*TrackInfo, error) {
	f, err := os.Open(LocalPath(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, err
	}

	title := m.Title()
	if title == "" {
		title = filepath.Base(path)
	}

	track, _ := m.Track()

	artist := m.Artist()
	if artist == "" {
		artist = m.AlbumArtist()
	}

	return &TrackInfo{
		Path:   path,
		Title:  title,
		Artist: artist,
		Album:  m.Album(),
		Year:   m.Year(),
		Track:  track,
	}, nil
}
