// Package localtime turns calendar dates plus a wall-clock time in a named
// zone into absolute UTC instants.
package localtime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lunarcal/internal/apperror"
)

// TimeOfDay is a wall-clock time without a date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts "HH:MM:SS" or "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: expected HH:MM[:SS]", s)
	}

	vals := [3]int{}
	limits := [3]int{23, 59, 59}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return TimeOfDay{}, fmt.Errorf("time of day %q: invalid component %q", s, p)
		}
		vals[i] = n
	}
	return TimeOfDay{Hour: vals[0], Minute: vals[1], Second: vals[2]}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// LoadZone resolves an IANA zone id. "" and "Local" are rejected: both
// depend on the host rather than the configuration.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, apperror.InvalidTimeZone(name, nil)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperror.InvalidTimeZone(name, err)
	}
	return loc, nil
}

// In places the date portion of date at tod inside loc. Only the
// year/month/day of date are used.
func In(date time.Time, tod TimeOfDay, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, tod.Hour, tod.Minute, tod.Second, 0, loc)
}

// ToUTC combines date and tod in zone and converts the result to UTC using
// the zone's offset at that instant.
func ToUTC(date time.Time, tod TimeOfDay, zone string) (time.Time, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	return In(date, tod, loc).UTC(), nil
}
