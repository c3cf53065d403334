package generate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunarcal/internal/apperror"
	"lunarcal/internal/config"
	"lunarcal/internal/localtime"
	"lunarcal/internal/model"
)

func TestNthWeekday(t *testing.T) {
	tests := []struct {
		year  int
		key   string
		month time.Month
		day   int
	}{
		{2024, "mothers_day", time.May, 12},
		{2024, "fathers_day", time.June, 16},
		{2024, "thanksgiving_day", time.November, 28},
		{2025, "mothers_day", time.May, 11},
		{2025, "fathers_day", time.June, 15},
		{2025, "thanksgiving_day", time.November, 27},
	}
	for _, tt := range tests {
		h, ok := LookupHoliday(tt.key)
		require.True(t, ok)
		assert.Equal(t, time.Date(tt.year, tt.month, tt.day, 0, 0, 0, 0, time.UTC), h.Date(tt.year), "%s %d", tt.key, tt.year)
	}
}

func TestHolidays(t *testing.T) {
	cs := config.CalendarSettings{
		Timezone:      "UTC",
		EventTime:     localtime.TimeOfDay{Hour: 9},
		EventDuration: time.Hour,
		Reminders:     []int{1},
		Holidays:      []string{"fathers_day", "bogus", "mothers_day"},
		HolidayYears:  2,
	}

	events, errs := newGenerator().Holidays(cs, 2024)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], apperror.ErrConfigResolution)

	require.Len(t, events, 4)
	var got []string
	for _, ev := range events {
		assert.Equal(t, model.FamilyHoliday, ev.Family)
		assert.Equal(t, ev.Start.Add(time.Hour), ev.End)
		assert.NotEmpty(t, ev.Description)
		got = append(got, ev.Person+" "+ev.Start.Format(time.DateTime))
	}
	assert.Equal(t, []string{
		"fathers_day 2024-06-16 09:00:00",
		"mothers_day 2024-05-12 09:00:00",
		"fathers_day 2025-06-15 09:00:00",
		"mothers_day 2025-05-11 09:00:00",
	}, got)
	assert.Equal(t, "Father's Day", events[0].Summary)
}

func TestHolidaysNoneConfigured(t *testing.T) {
	events, errs := newGenerator().Holidays(config.CalendarSettings{Timezone: "UTC", HolidayYears: 5}, 2024)
	assert.Empty(t, events)
	assert.Empty(t, errs)
}

func TestHolidaysInvalidZone(t *testing.T) {
	events, errs := newGenerator().Holidays(config.CalendarSettings{
		Timezone:     "Nowhere/Special",
		Holidays:     []string{"mothers_day"},
		HolidayYears: 1,
	}, 2024)
	assert.Empty(t, events)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], apperror.ErrInvalidTimeZone)
}
