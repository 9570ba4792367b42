// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Playback operations
	OpPlaybackStart     Op = "start playback"
	OpPlaybackResume    Op = "resume playback"
	OpPlaybackTransport Op = "play audio"
	OpPlaybackSelect    Op = "select a song"

	// Lyrics operations
	OpLyricsFetch Op = "load lyrics"
	OpLyricsCache Op = "open lyrics cache"

	// Session operations
	OpSessionLoad Op = "restore session"
	OpSessionSave Op = "save session"

	// File operations
	OpFileLoad Op = "load files"

	// Integrations
	OpMPRISStart Op = "start media controls"

	// Initialization
	OpConfigLoad Op = "load configuration"
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
