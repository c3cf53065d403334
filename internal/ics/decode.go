package ics

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	ical "github.com/arran4/golang-ical"

	"lunarcal/internal/model"
)

// Decode parses a calendar written by Emitter back into events. Family and
// Person are not stored in the feed and are left empty.
func Decode(r io.Reader) (model.Metadata, []model.Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return model.Metadata{}, nil, fmt.Errorf("parse calendar: %w", err)
	}

	var meta model.Metadata
	for _, p := range cal.CalendarProperties {
		switch p.IANAToken {
		case string(ical.PropertyXWRCalName):
			meta.Name = p.Value
		case string(ical.PropertyXWRTimezone):
			meta.Timezone = p.Value
		}
	}

	vevents := cal.Events()
	events := make([]model.Event, 0, len(vevents))
	for _, ve := range vevents {
		ev, err := decodeEvent(ve)
		if err != nil {
			return meta, nil, err
		}
		events = append(events, ev)
	}
	return meta, events, nil
}

func decodeEvent(ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("vevent: missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("vevent %s: DTSTART: %w", out.UID, err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return out, fmt.Errorf("vevent %s: DTEND: %w", out.UID, err)
	}
	out.Start, out.End = start.UTC(), end.UTC()

	for _, alarm := range ve.Alarms() {
		trig := alarm.GetProperty(ical.ComponentPropertyTrigger)
		if trig == nil {
			continue
		}
		days, err := parseDayTrigger(trig.Value)
		if err != nil {
			return out, fmt.Errorf("vevent %s: %w", out.UID, err)
		}
		out.Reminders = append(out.Reminders, days)
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyAttendee) {
		out.Attendees = append(out.Attendees, strings.TrimPrefix(p.Value, "mailto:"))
	}
	return out, nil
}

// parseDayTrigger accepts the "-P<n>D" triggers this package writes.
func parseDayTrigger(v string) (int, error) {
	s := strings.TrimSpace(v)
	if !strings.HasPrefix(s, "-P") || !strings.HasSuffix(s, "D") {
		return 0, fmt.Errorf("unsupported trigger %q", v)
	}
	n, err := strconv.Atoi(s[2 : len(s)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("unsupported trigger %q", v)
	}
	return n, nil
}
