// Package domain contains the core domain types for the market data context.
package domain

import (
	"fmt"
	"strings"
)

// Location is a royal city with a public marketplace. The set is closed:
// anything the upstream reports outside it (Black Market, Brecilien, portal
// towns) is not tradable by these routes.
type Location string

const (
	Bridgewatch  Location = "Bridgewatch"
	Caerleon     Location = "Caerleon"
	FortSterling Location = "Fort Sterling"
	Lymhurst     Location = "Lymhurst"
	Martlock     Location = "Martlock"
	Thetford     Location = "Thetford"
)

var supportedLocations = []Location{Bridgewatch, Caerleon, FortSterling, Lymhurst, Martlock, Thetford}

// SupportedLocations returns every tradable location in display order.
func SupportedLocations() []Location {
	out := make([]Location, len(supportedLocations))
	copy(out, supportedLocations)
	return out
}

// ParseLocation maps an upstream or user string onto a Location. Only exact
// names are accepted; surrounding whitespace is ignored.
func ParseLocation(s string) (Location, bool) {
	s = strings.TrimSpace(s)
	for _, l := range supportedLocations {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// ParseLocations parses every entry or reports the first unsupported one.
func ParseLocations(names []string) ([]Location, error) {
	out := make([]Location, 0, len(names))
	seen := make(map[Location]bool, len(names))
	for _, n := range names {
		l, ok := ParseLocation(n)
		if !ok {
			return nil, fmt.Errorf("unsupported location %q", n)
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out, nil
}

// Valid reports whether l belongs to the supported set.
func (l Location) Valid() bool {
	_, ok := ParseLocation(string(l))
	return ok
}

// String returns the city name.
func (l Location) String() string {
	return string(l)
}
