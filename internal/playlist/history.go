package playlist

// DefaultHistorySize is the play history cap.
const DefaultHistorySize = 50

// History records played songs, most recent last. It never holds two
// consecutive entries with the same ID and evicts the oldest entry when full.
type History struct {
	songs   []Song
	maxSize int
}

// NewHistory creates a history with the given maximum size.
// A non-positive size selects DefaultHistorySize.
func NewHistory(maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &History{
		songs:   make([]Song, 0, maxSize),
		maxSize: maxSize,
	}
}

// Push records a played song. It returns false when the song repeats the
// last entry and nothing was recorded.
func (h *History) Push(s Song) bool {
	if last, ok := h.Last(); ok && last.ID == s.ID {
		return false
	}
	h.songs = append(h.songs, s)
	if len(h.songs) > h.maxSize {
		excess := len(h.songs) - h.maxSize
		h.songs = append(h.songs[:0], h.songs[excess:]...)
	}
	return true
}

// Last returns the most recently played song.
func (h *History) Last() (Song, bool) {
	if len(h.songs) == 0 {
		return Song{}, false
	}
	return h.songs[len(h.songs)-1], true
}

// Previous returns the song played before the last one.
func (h *History) Previous() (Song, bool) {
	if len(h.songs) < 2 {
		return Song{}, false
	}
	return h.songs[len(h.songs)-2], true
}

// Songs returns a copy of the history, oldest first.
func (h *History) Songs() []Song {
	result := make([]Song, len(h.songs))
	copy(result, h.songs)
	return result
}

// Set replaces the history, keeping the invariants.
func (h *History) Set(songs []Song) {
	h.Clear()
	for _, s := range songs {
		h.Push(s)
	}
}

// Clear empties the history.
func (h *History) Clear() {
	h.songs = h.songs[:0]
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.songs)
}
