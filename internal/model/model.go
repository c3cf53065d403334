package model

import "time"

// Family identifies which generation pass produced an event.
type Family string

const (
	FamilyCycleDays     Family = "cycle_days"
	FamilySolarBirthday Family = "solar_birthday"
	FamilyLunarBirthday Family = "lunar_birthday"
	FamilyHoliday       Family = "holiday"
)

// Event is a single concrete calendar entry produced by the generator.
// Events are built once and never modified; the slices are owned by the
// event and must not be shared with other events.
type Event struct {
	UID    string // stable iCalendar UID
	Person string // username, or the holiday key for FamilyHoliday
	Family Family

	Summary     string
	Description string // optional

	// Start / End are absolute instants in UTC.
	Start time.Time
	End   time.Time

	// Reminders are offsets in whole days before Start.
	Reminders []int
	Attendees []string
}

// Metadata describes the calendar an event list is published in.
type Metadata struct {
	Name     string // X-WR-CALNAME
	Timezone string // X-WR-TIMEZONE, display only
}
