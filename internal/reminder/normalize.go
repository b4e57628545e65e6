package reminder

import (
	"fmt"
	"strings"
	"time"

	// Zone lookups must not depend on the host's tz database.
	_ "time/tzdata"
)

// Shape reports which accepted input form matched.
type Shape int

const (
	ShapeFull   Shape = iota + 1 // date + time with seconds, optional fraction and offset
	ShapeLegacy                  // date + HH:MM, no offset
)

func (s Shape) String() string {
	switch s {
	case ShapeFull:
		return "full"
	case ShapeLegacy:
		return "legacy"
	}
	return "unknown"
}

// Normalized is the result of Normalize.
type Normalized struct {
	Instant time.Time // always UTC
	Shape   Shape
	// ZoneFallback is set when a zone hint was needed but could not be
	// resolved, so the value was read as UTC.
	ZoneFallback bool
}

var (
	offsetLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
	}
	naiveFull   = "2006-01-02T15:04:05"
	naiveLegacy = "2006-01-02T15:04"
)

// Normalize converts a client datetime plus an optional IANA zone hint into a
// UTC instant. An explicit offset in raw wins over the hint. An unresolvable
// hint is not an error: the value is read as UTC and ZoneFallback is set.
func Normalize(raw, tzHint string) (Normalized, error) {
	s := strings.TrimSpace(raw)
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	if s == "" {
		return Normalized{}, fmt.Errorf("%w: empty", ErrInvalidTimeFormat)
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Normalized{Instant: t.UTC(), Shape: ShapeFull}, nil
		}
	}

	loc, ok := resolveZone(tzHint)
	if !ok {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(naiveFull, s, loc); err == nil {
		return Normalized{Instant: t.UTC(), Shape: ShapeFull, ZoneFallback: !ok}, nil
	}
	if t, err := time.ParseInLocation(naiveLegacy, s, loc); err == nil {
		return Normalized{Instant: t.UTC(), Shape: ShapeLegacy, ZoneFallback: !ok}, nil
	}
	return Normalized{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
}

// resolveZone loads an IANA zone. Empty means UTC. "Local" is rejected
// because it would depend on the server's zone.
func resolveZone(name string) (*time.Location, bool) {
	name = strings.TrimSpace(name)
	switch name {
	case "", "UTC", "Z":
		return time.UTC, true
	case "Local":
		return nil, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}

// ValidZone reports whether name resolves to a zone (empty is valid).
func ValidZone(name string) bool {
	_, ok := resolveZone(name)
	return ok
}
