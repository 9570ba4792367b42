//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"fmt"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpPlaybackStart,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpPlaybackStart,
			err:      errors.New("file not found"),
			expected: "Failed to start playback: file not found",
		},
		{
			name:     "lyrics operation",
			op:       OpLyricsFetch,
			err:      errors.New("network error"),
			expected: "Failed to load lyrics: network error",
		},
		{
			name:     "wrapped error keeps the chain text",
			op:       OpSessionSave,
			err:      fmt.Errorf("write: %w", errors.New("disk full")),
			expected: "Failed to save session: write: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.op, tt.err); got != tt.expected {
				t.Errorf("Format() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpFileLoad,
			context:  "/music",
			err:      nil,
			expected: "",
		},
		{
			name:     "formats with context",
			op:       OpFileLoad,
			context:  "/music/a.flac",
			err:      errors.New("permission denied"),
			expected: "Failed to load files '/music/a.flac': permission denied",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpPlaybackTransport,
			context:  "",
			err:      errors.New("decode error"),
			expected: "Failed to play audio: decode error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatWith(tt.op, tt.context, tt.err); got != tt.expected {
				t.Errorf("FormatWith() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOpConstants(t *testing.T) {
	ops := []Op{
		OpPlaybackStart, OpPlaybackResume, OpPlaybackTransport, OpPlaybackSelect,
		OpLyricsFetch, OpLyricsCache,
		OpSessionLoad, OpSessionSave,
		OpFileLoad,
		OpMPRISStart,
		OpConfigLoad, OpInitialize,
	}
	seen := make(map[Op]bool, len(ops))
	for _, op := range ops {
		if op == "" {
			t.Error("empty operation constant")
		}
		if seen[op] {
			t.Errorf("duplicate operation %q", op)
		}
		seen[op] = true
	}
}
