package playlist

// Mode is the policy for choosing the next and previous song.
type Mode int

const (
	ModeList   Mode = iota // sequential, wrapping
	ModeSingle             // repeat the current song
	ModeRandom             // shuffled order, random next
)

// String returns the lowercase name used in config and persistence.
func (m Mode) String() string {
	switch m {
	case ModeList:
		return "list"
	case ModeSingle:
		return "single"
	case ModeRandom:
		return "random"
	default:
		return "unknown"
	}
}

// Next returns the mode that follows m in the toggle cycle
// list → single → random → list.
func (m Mode) Next() Mode {
	switch m {
	case ModeList:
		return ModeSingle
	case ModeSingle:
		return ModeRandom
	default:
		return ModeList
	}
}

// ParseMode converts a mode name to a Mode. Unknown names yield ModeList
// and false.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "list":
		return ModeList, true
	case "single":
		return ModeSingle, true
	case "random":
		return ModeRandom, true
	default:
		return ModeList, false
	}
}
