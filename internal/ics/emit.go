package ics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"lunarcal/internal/config"
	"lunarcal/internal/model"
)

const DefaultProductID = "-//lunarcal//Lunar Birthday iCalendar//EN"

// Emitter serializes generated events into an iCalendar document.
type Emitter struct {
	// ProductID is written as PRODID. Defaults to DefaultProductID.
	ProductID string
	// Now supplies DTSTAMP. Defaults to time.Now.
	Now func() time.Time
}

func NewEmitter() *Emitter {
	return &Emitter{ProductID: DefaultProductID, Now: time.Now}
}

// Build assembles the calendar without serializing it.
func (e *Emitter) Build(meta model.Metadata, events []model.Event) (*ical.Calendar, error) {
	prodID := e.ProductID
	if prodID == "" {
		prodID = DefaultProductID
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	stamp := now().UTC()

	cal := ical.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	if meta.Name != "" {
		cal.SetXWRCalName(meta.Name)
	}
	if meta.Timezone != "" {
		cal.SetXWRTimezone(meta.Timezone)
	}

	for i, ev := range events {
		if ev.UID == "" {
			return nil, fmt.Errorf("event %d (%s): missing UID", i, ev.Summary)
		}
		if ev.End.Before(ev.Start) {
			return nil, fmt.Errorf("event %s: end before start", ev.UID)
		}

		vev := cal.AddEvent(ev.UID)
		vev.SetDtStampTime(stamp)
		vev.SetStartAt(ev.Start.UTC())
		vev.SetEndAt(ev.End.UTC())
		vev.SetSummary(ev.Summary)
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}

		for _, days := range ev.Reminders {
			alarm := vev.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-P%dD", days))
			alarm.SetProperty(ical.ComponentPropertyDescription, "Reminder: "+ev.Summary)
		}

		for _, email := range ev.Attendees {
			vev.AddAttendee(email,
				ical.WithCN(localPart(email)),
				ical.ParticipationRoleReqParticipant,
				rsvpTrue,
			)
		}
	}
	return cal, nil
}

// Encode writes the calendar for events to w.
func (e *Emitter) Encode(w io.Writer, meta model.Metadata, events []model.Event) error {
	cal, err := e.Build(meta, events)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, cal.Serialize())
	return err
}

// Bytes is Encode into memory.
func (e *Emitter) Bytes(meta model.Metadata, events []model.Event) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf, meta, events); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes the calendar and replaces path atomically.
func (e *Emitter) WriteFile(path string, meta model.Metadata, events []model.Event) error {
	if path == "" {
		return errors.New("output path is empty")
	}
	data, err := e.Bytes(meta, events)
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(path, data, 0o644)
}

// rsvpTrue is RSVP=TRUE; ical.WithRSVP writes the lowercase "true".
var rsvpTrue = &ical.KeyValues{Key: string(ical.ParameterRsvp), Value: []string{"TRUE"}}

func localPart(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}
