package lyrics

import (
	"strings"
	"time"
)

// DefaultTolerance is the maximum distance between an original line and a
// secondary-track line for the secondary text to be attached.
const DefaultTolerance = 500 * time.Millisecond

// Sentinel texts substituted when there is nothing to display.
const (
	NoLyricsText    = "No lyrics available"
	FetchFailedText = "Failed to load lyrics"
)

const lineJoinSeparator = "\n"

// MergedLine is an original-track line with the translation and
// romanization lines aligned to it. Empty strings mean "not attached".
type MergedLine struct {
	Time         time.Duration
	Original     string
	Translation  string
	Romanization string
}

// HasTranslation reports whether a translation line was attached.
func (m MergedLine) HasTranslation() bool { return m.Translation != "" }

// HasRomanization reports whether a romanization line was attached.
func (m MergedLine) HasRomanization() bool { return m.Romanization != "" }

// Tracks holds the three independently parsed lyric tracks of a song.
type Tracks struct {
	Original     []Line
	Translation  []Line
	Romanization []Line
}

// ParseTracks parses the raw text of all three tracks.
func ParseTracks(raw RawTracks) Tracks {
	return Tracks{
		Original:     Parse(raw.Original),
		Translation:  Parse(raw.Translation),
		Romanization: Parse(raw.Romanization),
	}
}

// Merge aligns translation and romanization onto the original track.
//
// Each secondary track keeps a pointer that only moves forward: for an
// original line at t the pointer advances while the next secondary line
// starts at or before t+tolerance, and the pointed line is attached when it
// lies within tolerance of t. The result has exactly one entry per original
// line, in original order.
func Merge(original, translation, romanization []Line, tolerance time.Duration) []MergedLine {
	if len(original) == 0 {
		return nil
	}

	tr := aligner{lines: translation, tolerance: tolerance}
	ro := aligner{lines: romanization, tolerance: tolerance}

	merged := make([]MergedLine, len(original))
	for i, o := range original {
		merged[i] = MergedLine{
			Time:         o.Time,
			Original:     o.Text,
			Translation:  tr.at(o.Time),
			Romanization: ro.at(o.Time),
		}
	}
	return merged
}

// aligner walks one secondary track monotonically.
type aligner struct {
	lines     []Line
	pos       int
	tolerance time.Duration
}

func (a *aligner) at(t time.Duration) string {
	if len(a.lines) == 0 {
		return ""
	}
	for a.pos+1 < len(a.lines) && a.lines[a.pos+1].Time <= t+a.tolerance {
		a.pos++
	}
	d := a.lines[a.pos].Time - t
	if d < 0 {
		d = -d
	}
	if d > a.tolerance {
		return ""
	}
	return a.lines[a.pos].Text
}

// Status describes how a Document was produced.
type Status int

const (
	// StatusOK means the original track had at least one line.
	StatusOK Status = iota
	// StatusParseEmpty means lyrics were retrieved but yielded no lines.
	StatusParseEmpty
	// StatusUnavailable means retrieval failed.
	StatusUnavailable
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusParseEmpty:
		return "ParseEmpty"
	case StatusUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// Document is the display-ready merged lyrics of one song.
// Lines is never empty for a built document: a sentinel line at time 0
// replaces missing lyrics.
type Document struct {
	Lines  []MergedLine
	Status Status
}

// Build merges parsed tracks into a Document, substituting the
// "no lyrics" sentinel when the original track is empty.
func Build(t Tracks, tolerance time.Duration) Document {
	if len(t.Original) == 0 {
		return Document{
			Lines:  []MergedLine{{Time: 0, Original: NoLyricsText}},
			Status: StatusParseEmpty,
		}
	}
	return Document{
		Lines:  Merge(t.Original, t.Translation, t.Romanization, tolerance),
		Status: StatusOK,
	}
}

// Unavailable returns the Document shown when retrieval failed.
func Unavailable() Document {
	return Document{
		Lines:  []MergedLine{{Time: 0, Original: FetchFailedText}},
		Status: StatusUnavailable,
	}
}

// Timeline returns the start time of every merged line.
func Timeline(lines []MergedLine) []time.Duration {
	times := make([]time.Duration, len(lines))
	for i, l := range lines {
		times[i] = l.Time
	}
	return times
}

// TimeForIndex returns the start time of line i, or 0 when out of range.
func (d Document) TimeForIndex(i int) time.Duration {
	if i < 0 || i >= len(d.Lines) {
		return 0
	}
	return d.Lines[i].Time
}

// Compose flattens merged lines into single display lines, joining the
// visible tracks with newlines.
func Compose(lines []MergedLine, showTranslation, showRomanization bool) []Line {
	out := make([]Line, len(lines))
	for i, m := range lines {
		parts := []string{m.Original}
		if showTranslation && m.HasTranslation() {
			parts = append(parts, m.Translation)
		}
		if showRomanization && m.HasRomanization() {
			parts = append(parts, m.Romanization)
		}
		out[i] = Line{Time: m.Time, Text: strings.Join(parts, lineJoinSeparator)}
	}
	return out
}
