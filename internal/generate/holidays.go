package generate

import (
	"fmt"
	"slices"
	"time"

	"lunarcal/internal/apperror"
	"lunarcal/internal/config"
	"lunarcal/internal/localtime"
	"lunarcal/internal/model"
)

// Holiday is a fixed-rule observance that can be added to a calendar.
type Holiday struct {
	Key         string
	Summary     string
	Description string
	Date        func(year int) time.Time
}

var holidays = map[string]Holiday{
	"mothers_day": {
		Key:         "mothers_day",
		Summary:     "Mother's Day",
		Description: "Not a public holiday, but a legal national holiday observed on the second Sunday in May in the United States.",
		Date:        func(y int) time.Time { return NthWeekday(y, time.May, time.Sunday, 2) },
	},
	"fathers_day": {
		Key:         "fathers_day",
		Summary:     "Father's Day",
		Description: "Father's Day is a celebration that honours the role of fathers and forefathers.",
		Date:        func(y int) time.Time { return NthWeekday(y, time.June, time.Sunday, 3) },
	},
	"thanksgiving_day": {
		Key:         "thanksgiving_day",
		Summary:     "Thanksgiving Day",
		Description: "Traditionally, this holiday celebrates the giving of thanks for the autumn harvest.",
		Date:        func(y int) time.Time { return NthWeekday(y, time.November, time.Thursday, 4) },
	},
}

// LookupHoliday returns the observance registered under key.
func LookupHoliday(key string) (Holiday, bool) {
	h, ok := holidays[key]
	return h, ok
}

// NthWeekday returns the n-th (1-based) wd of month in year, at 00:00 UTC.
func NthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}

// Holidays expands the configured observances for cs.HolidayYears years
// starting at fromYear, year by year in configuration order. Unknown keys
// are reported and skipped; an invalid zone yields no events.
func (g *Generator) Holidays(cs config.CalendarSettings, fromYear int) ([]model.Event, []error) {
	if len(cs.Holidays) == 0 {
		return nil, nil
	}
	loc, err := localtime.LoadZone(cs.Timezone)
	if err != nil {
		return nil, []error{err}
	}

	var errs []error
	known := make([]Holiday, 0, len(cs.Holidays))
	for _, key := range cs.Holidays {
		h, ok := holidays[key]
		if !ok {
			errs = append(errs, apperror.ConfigResolution("holidays", fmt.Sprintf("unknown holiday %q", key)))
			continue
		}
		known = append(known, h)
	}

	var events []model.Event
	for year := fromYear; year < fromYear+cs.HolidayYears; year++ {
		for _, h := range known {
			start := localtime.In(h.Date(year), cs.EventTime, loc).UTC()
			events = append(events, model.Event{
				UID:         eventUID(h.Key, time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), model.FamilyHoliday, year),
				Person:      h.Key,
				Family:      model.FamilyHoliday,
				Summary:     h.Summary,
				Description: h.Description,
				Start:       start,
				End:         start.Add(cs.EventDuration),
				Reminders:   slices.Clone(cs.Reminders),
				Attendees:   slices.Clone(cs.Attendees),
			})
		}
	}
	return events, errs
}
