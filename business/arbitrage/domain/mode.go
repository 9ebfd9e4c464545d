package domain

import "strings"

// Mode selects how generated routes are reduced into the result list.
type Mode string

const (
	ModeBest      Mode = "best"
	ModeTop3      Mode = "top3"
	ModeFlips     Mode = "flips"
	ModeTransport Mode = "transport"
)

// ParseMode maps a user string onto a Mode, falling back to ModeBest.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeTop3:
		return ModeTop3
	case ModeFlips:
		return ModeFlips
	case ModeTransport:
		return ModeTransport
	default:
		return ModeBest
	}
}

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}
