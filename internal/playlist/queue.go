package playlist

// Queue wraps a Playlist with the current position, the play mode and the
// pre-shuffle snapshot. It is not safe for concurrent use.
type Queue struct {
	playlist     *Playlist
	original     []Song // pre-shuffle order; empty when no shuffle session is active
	currentIndex int    // -1 if nothing is current
	mode         Mode
	rng          Rand
}

// NewQueue creates a new empty queue in list mode. A nil rng selects
// DefaultRand.
func NewQueue(rng Rand) *Queue {
	if rng == nil {
		rng = DefaultRand
	}
	return &Queue{
		playlist:     NewPlaylist(),
		currentIndex: -1,
		rng:          rng,
	}
}

// Current returns the current song, or nil if none.
func (q *Queue) Current() *Song {
	return q.playlist.Song(q.currentIndex)
}

// CurrentIndex returns the index of the current song (-1 if none).
func (q *Queue) CurrentIndex() int {
	return q.currentIndex
}

// Mode returns the play mode.
func (q *Queue) Mode() Mode {
	return q.mode
}

// Song returns the song at index, or nil.
func (q *Queue) Song(index int) *Song {
	return q.playlist.Song(index)
}

// IndexOf returns the position of the song with the given ID, or -1.
func (q *Queue) IndexOf(id string) int {
	return q.playlist.IndexOf(id)
}

// Songs returns all songs in play order.
func (q *Queue) Songs() []Song {
	return q.playlist.Songs()
}

// Original returns a copy of the pre-shuffle snapshot.
func (q *Queue) Original() []Song {
	result := make([]Song, len(q.original))
	copy(result, q.original)
	return result
}

// Len returns the number of songs in the queue.
func (q *Queue) Len() int {
	return q.playlist.Len()
}

// IsEmpty returns true if the queue has no songs.
func (q *Queue) IsEmpty() bool {
	return q.playlist.Len() == 0
}

// Replace sets the content and makes start current when it is in range.
// Otherwise the previous current song is looked up by ID in the new content.
// In random mode the new order becomes the snapshot to restore; otherwise
// any snapshot is dropped.
func (q *Queue) Replace(songs []Song, start int) {
	currentID, hadCurrent := q.currentID()
	q.playlist.Set(songs)
	q.original = nil
	if q.mode == ModeRandom {
		q.original = q.playlist.Songs()
	}
	switch {
	case start >= 0 && start < q.playlist.Len():
		q.currentIndex = start
	case hadCurrent:
		q.currentIndex = q.playlist.IndexOf(currentID)
	default:
		q.currentIndex = -1
	}
}

func (q *Queue) currentID() (string, bool) {
	if s := q.Current(); s != nil {
		return s.ID, true
	}
	return "", false
}

// Restore loads a persisted queue without reshuffling.
func (q *Queue) Restore(songs, original []Song, current int, mode Mode) {
	q.playlist.Set(songs)
	q.original = nil
	if len(original) > 0 {
		q.original = append([]Song(nil), original...)
	}
	q.mode = mode
	q.currentIndex = -1
	if current >= 0 && current < q.playlist.Len() {
		q.currentIndex = current
	}
}

// JumpTo sets the current index to the specified position.
// Returns the song at that position, or nil if invalid.
func (q *Queue) JumpTo(index int) *Song {
	if index < 0 || index >= q.playlist.Len() {
		return nil
	}
	q.currentIndex = index
	return q.Current()
}

// Deselect clears the current index without touching the content.
func (q *Queue) Deselect() {
	q.currentIndex = -1
}

// Add appends songs whose ID is absent and mirrors them into the snapshot
// while a shuffle session is active. Returns the number added.
func (q *Queue) Add(songs ...Song) int {
	added := q.playlist.Add(songs...)
	if len(q.original) > 0 {
		q.original = append(q.original, added...)
	}
	return len(added)
}

// Remove deletes the song with the given ID from the queue and the
// snapshot. It reports the removed position and whether it was current.
// Removing the current song makes the following one current (clamped), or
// clears the current index when the queue becomes empty.
func (q *Queue) Remove(id string) (index int, wasCurrent bool) {
	index = q.playlist.IndexOf(id)
	if index < 0 {
		return -1, false
	}
	q.playlist.Remove(index)
	for i, s := range q.original {
		if s.ID == id {
			q.original = append(q.original[:i], q.original[i+1:]...)
			break
		}
	}

	switch {
	case index == q.currentIndex:
		wasCurrent = true
		q.currentIndex = min(index, q.playlist.Len()-1)
	case index < q.currentIndex:
		q.currentIndex--
	}
	return index, wasCurrent
}

// Clear removes all songs and the snapshot and resets the current index.
func (q *Queue) Clear() {
	q.playlist.Clear()
	q.original = nil
	q.currentIndex = -1
}

// SetMode switches the play mode. Entering random shuffles; leaving it
// restores the snapshot order and drops the snapshot. The current song is
// relocated by ID in both cases.
func (q *Queue) SetMode(mode Mode) {
	q.mode = mode
	if mode == ModeRandom {
		q.Shuffle()
		return
	}
	if len(q.original) == 0 {
		return
	}
	currentID, hadCurrent := q.currentID()
	q.playlist.Set(q.original)
	q.original = nil
	if hadCurrent {
		q.currentIndex = q.playlist.IndexOf(currentID)
	}
}

// ToggleMode advances to the next mode in the cycle and returns it.
func (q *Queue) ToggleMode() Mode {
	q.SetMode(q.mode.Next())
	return q.mode
}

// Shuffle permutes the queue. The snapshot is taken only when no shuffle
// session is active, so repeated calls keep the first pre-shuffle order.
func (q *Queue) Shuffle() {
	if q.playlist.Len() == 0 {
		return
	}
	currentID, hadCurrent := q.currentID()
	if len(q.original) == 0 {
		q.original = q.playlist.Songs()
	}
	Shuffle(q.playlist.songs, q.rng)
	if hadCurrent {
		q.currentIndex = q.playlist.IndexOf(currentID)
	}
}

// NextIndex returns the index to play after the current one, or -1 when the
// queue is empty. Single repeats the current index, random picks uniformly
// among the other indices, list wraps around.
func (q *Queue) NextIndex() int {
	n := q.playlist.Len()
	if n == 0 {
		return -1
	}
	switch q.mode {
	case ModeSingle:
		return q.currentIndex
	case ModeRandom:
		if n == 1 {
			return 0
		}
		if q.currentIndex < 0 || q.currentIndex >= n {
			return q.rng.IntN(n)
		}
		// uniform over the n-1 indices other than current
		i := q.rng.IntN(n - 1)
		if i >= q.currentIndex {
			i++
		}
		return i
	default:
		return (q.currentIndex + 1) % n
	}
}

// PreviousIndex returns the index to play before the current one, or -1
// when the queue is empty. In random mode the song played before the last
// one in history is preferred; when history is too short, or that song has
// left the queue, a uniformly random index is returned and may equal the
// current one.
func (q *Queue) PreviousIndex(history *History) int {
	n := q.playlist.Len()
	if n == 0 {
		return -1
	}
	switch q.mode {
	case ModeSingle:
		return q.currentIndex
	case ModeRandom:
		if history != nil {
			if prev, ok := history.Previous(); ok {
				if i := q.playlist.IndexOf(prev.ID); i >= 0 {
					return i
				}
			}
		}
		return q.rng.IntN(n)
	default:
		if q.currentIndex <= 0 {
			return n - 1
		}
		return q.currentIndex - 1
	}
}

// HasNext reports whether a following song exists without wrapping.
// Single mode always has one.
func (q *Queue) HasNext() bool {
	if q.mode == ModeSingle {
		return true
	}
	return q.currentIndex < q.playlist.Len()-1
}

// HasPrevious reports whether a preceding song exists without wrapping.
// Single mode always has one.
func (q *Queue) HasPrevious() bool {
	if q.mode == ModeSingle {
		return true
	}
	return q.currentIndex > 0
}
