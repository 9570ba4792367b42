package playlist

import (
	"time"

	"github.com/samber/lo"
)

// Song is a single playlist entry. ID is its identity within a playlist.
type Song struct {
	ID       string
	URL      string // source handed to the transport
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// Playlist holds an ordered collection of songs with unique IDs.
type Playlist struct {
	songs []Song
}

// NewPlaylist creates a new empty playlist.
func NewPlaylist() *Playlist {
	return &Playlist{
		songs: make([]Song, 0),
	}
}

// Add appends songs whose ID is not already present and returns the songs
// actually added.
func (p *Playlist) Add(songs ...Song) []Song {
	added := make([]Song, 0, len(songs))
	for _, s := range songs {
		if p.IndexOf(s.ID) >= 0 {
			continue
		}
		p.songs = append(p.songs, s)
		added = append(added, s)
	}
	return added
}

// Set replaces the content. Later duplicates of an ID are dropped.
func (p *Playlist) Set(songs []Song) {
	p.songs = lo.UniqBy(songs, func(s Song) string { return s.ID })
}

// Remove removes the song at the given index.
// Returns false if index is out of bounds.
func (p *Playlist) Remove(index int) bool {
	if index < 0 || index >= len(p.songs) {
		return false
	}
	p.songs = append(p.songs[:index], p.songs[index+1:]...)
	return true
}

// Clear removes all songs from the playlist.
func (p *Playlist) Clear() {
	p.songs = p.songs[:0]
}

// Songs returns a copy of all songs.
func (p *Playlist) Songs() []Song {
	result := make([]Song, len(p.songs))
	copy(result, p.songs)
	return result
}

// Song returns the song at the given index, or nil if out of bounds.
func (p *Playlist) Song(index int) *Song {
	if index < 0 || index >= len(p.songs) {
		return nil
	}
	return &p.songs[index]
}

// IndexOf returns the position of the song with the given ID, or -1.
func (p *Playlist) IndexOf(id string) int {
	_, index, found := lo.FindIndexOf(p.songs, func(s Song) bool { return s.ID == id })
	if !found {
		return -1
	}
	return index
}

// Len returns the number of songs.
func (p *Playlist) Len() int {
	return len(p.songs)
}
