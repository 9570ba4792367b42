// Package lyrics provides lyrics parsing, multi-track merging and sourcing.
package lyrics

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Line represents a single timestamped lyric line.
type Line struct {
	Time time.Duration
	Text string
}

// Lyrics contains parsed lyrics with optional metadata.
type Lyrics struct {
	Lines  []Line
	Title  string
	Artist string
	Album  string
	// Offset is the [offset:] tag value. It is reported, never applied.
	Offset time.Duration
}

// Regular expressions for parsing LRC format
var (
	// Matches timestamps like [00:12.34] or [00:12:345] or [00:12]
	timestampRe = regexp.MustCompile(`\[(\d+):(\d+)(?:[.:](\d+))?\]`)

	// Matches metadata tags like [ar:Artist Name]
	metadataRe = regexp.MustCompile(`^\[([a-z]+):(.*)\]$`)
)

// Parse parses raw LRC text and returns its lines.
// Empty or malformed input yields an empty slice.
func Parse(raw string) []Line {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	l, err := ParseLRC(strings.NewReader(raw))
	if err != nil {
		return nil
	}
	return l.Lines
}

// ParseLRC parses LRC format lyrics from a reader.
//
// Every timestamp tag on a line produces one Line carrying the line's text,
// so [00:30.00][01:30.00]Chorus yields two lines. Lines without a timestamp
// or without text are dropped. The result is sorted by time, keeping input
// order on ties.
func ParseLRC(r io.Reader) (*Lyrics, error) {
	lyrics := &Lyrics{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if meta := metadataRe.FindStringSubmatch(line); meta != nil {
			lyrics.applyMetadata(strings.ToLower(meta[1]), strings.TrimSpace(meta[2]))
			continue
		}

		matches := timestampRe.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			continue
		}

		text := strings.TrimSpace(timestampRe.ReplaceAllString(line, ""))
		if text == "" {
			continue
		}

		for _, m := range matches {
			ts, ok := timestampFromMatch(m)
			if !ok {
				continue
			}
			lyrics.Lines = append(lyrics.Lines, Line{Time: ts, Text: text})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(lyrics.Lines, func(i, j int) bool {
		return lyrics.Lines[i].Time < lyrics.Lines[j].Time
	})

	return lyrics, nil
}

func (l *Lyrics) applyMetadata(tag, value string) {
	switch tag {
	case "ar":
		l.Artist = value
	case "ti":
		l.Title = value
	case "al":
		l.Album = value
	case "offset":
		if ms, err := strconv.Atoi(strings.TrimPrefix(value, "+")); err == nil {
			l.Offset = time.Duration(ms) * time.Millisecond
		}
	}
}

// timestampFromMatch converts a timestampRe submatch into a Duration.
// The fraction is a decimal fraction of a second truncated to millisecond
// precision: ".5" and ".50" are 500ms, ".505" and ".5059" are 505ms.
func timestampFromMatch(m []string) (time.Duration, bool) {
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}

	var millis int
	if frac := m[3]; frac != "" {
		if len(frac) > 3 {
			frac = frac[:3]
		}
		frac += strings.Repeat("0", 3-len(frac))
		millis, err = strconv.Atoi(frac)
		if err != nil {
			return 0, false
		}
	}

	return time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, true
}
