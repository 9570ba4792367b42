package lyricapi

import (
	"fmt"

	"github.com/llehouerou/cadence/internal/lyrics"
)

// Track is one lyric track of a response.
type Track struct {
	Version int    `json:"version"`
	Lyric   string `json:"lyric"`
}

// Response is the /lyric payload. Every track is optional.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Lrc     *Track `json:"lrc,omitempty"`
	Tlyric  *Track `json:"tlyric,omitempty"`
	Romalrc *Track `json:"romalrc,omitempty"`
}

func text(t *Track) string {
	if t == nil {
		return ""
	}
	return t.Lyric
}

// Raw returns the three track texts, empty where absent.
func (r *Response) Raw() lyrics.RawTracks {
	return lyrics.RawTracks{
		Original:     text(r.Lrc),
		Translation:  text(r.Tlyric),
		Romanization: text(r.Romalrc),
	}
}

// APIError is a non-success code in a 200 response body.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("lyric api error (code %d)", e.Code)
	}
	return fmt.Sprintf("lyric api error: %s (code %d)", e.Message, e.Code)
}
