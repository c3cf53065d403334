// Package generate expands one person's resolved configuration into the
// ordered list of concrete calendar events.
package generate

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"lunarcal/internal/apperror"
	"lunarcal/internal/config"
	"lunarcal/internal/localtime"
	"lunarcal/internal/lunar"
	"lunarcal/internal/model"
)

// uidNamespace scopes the name-based UUIDs of generated events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("lunarcal"))

type Generator struct {
	resolver *lunar.Resolver
}

func New(resolver *lunar.Resolver) *Generator {
	return &Generator{resolver: resolver}
}

// Generate produces the events of one person, in order: cycle-day
// milestones ascending, solar birthdays by age, lunar birthdays by age.
// Any error aborts the person; no partial list is returned.
func (g *Generator) Generate(cfg config.Effective) ([]model.Event, error) {
	loc, err := localtime.LoadZone(cfg.Timezone)
	if err != nil {
		return nil, apperror.WithPerson(err, cfg.Username)
	}
	p := person{cfg: cfg, loc: loc}

	var events []model.Event
	if cfg.TrackCycleDays {
		evs, err := g.cycleDays(p)
		if err != nil {
			return nil, apperror.WithPerson(err, cfg.Username)
		}
		events = append(events, evs...)
	}
	if cfg.TrackSolarBirthday {
		for age := 0; age <= cfg.MaxAge; age++ {
			date := SolarAnniversary(cfg.OriginDate, age)
			events = append(events, p.birthday(model.FamilySolarBirthday, cfg.Summaries.SolarBirthday, date, age))
		}
	}
	if cfg.TrackLunarBirthday {
		for age := 0; age <= cfg.MaxAge; age++ {
			date, err := g.resolver.Resolve(cfg.OriginDate, age)
			if err != nil {
				return nil, apperror.WithPerson(err, cfg.Username)
			}
			events = append(events, p.birthday(model.FamilyLunarBirthday, cfg.Summaries.LunarBirthday, date, age))
		}
	}
	return events, nil
}

// cycleDays emits one event every CycleInterval days up to MaxCycleDays,
// counted from the origin date.
func (g *Generator) cycleDays(p person) ([]model.Event, error) {
	count := p.cfg.MaxCycleDays / p.cfg.CycleInterval
	if count <= 0 {
		return nil, nil
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.DAILY,
		Interval: p.cfg.CycleInterval,
		Count:    count,
		Dtstart:  p.cfg.OriginDate.AddDate(0, 0, p.cfg.CycleInterval),
	})
	if err != nil {
		return nil, apperror.ConfigResolution("interval", fmt.Sprintf("build recurrence: %v", err))
	}

	dates := rule.All()
	events := make([]model.Event, 0, len(dates))
	for i, date := range dates {
		days := (i + 1) * p.cfg.CycleInterval
		age := strconv.FormatFloat(float64(days)/365.25, 'f', 2, 64)
		summary := render(p.cfg.Summaries.CycleDays, p.cfg.Username, days, age, date.Year())
		events = append(events, p.event(model.FamilyCycleDays, days, summary, date))
	}
	return events, nil
}

// SolarAnniversary returns the origin's month/day in year origin+age. Feb 29
// falls back to Feb 28 in non-leap years.
func SolarAnniversary(origin time.Time, age int) time.Time {
	year := origin.Year() + age
	month, day := origin.Month(), origin.Day()
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

type person struct {
	cfg config.Effective
	loc *time.Location
}

func (p person) birthday(family model.Family, tmpl string, date time.Time, age int) model.Event {
	summary := render(tmpl, p.cfg.Username, 0, strconv.Itoa(age), date.Year())
	return p.event(family, age, summary, date)
}

func (p person) event(family model.Family, ordinal int, summary string, date time.Time) model.Event {
	start := localtime.In(date, p.cfg.EventTime, p.loc).UTC()
	return model.Event{
		UID:       eventUID(p.cfg.Username, p.cfg.OriginDate, family, ordinal),
		Person:    p.cfg.Username,
		Family:    family,
		Summary:   summary,
		Start:     start,
		End:       start.Add(p.cfg.EventDuration),
		Reminders: slices.Clone(p.cfg.Reminders),
		Attendees: slices.Clone(p.cfg.Attendees),
	}
}

// eventUID is stable across runs so subscribers update events in place.
func eventUID(name string, origin time.Time, family model.Family, ordinal int) string {
	key := fmt.Sprintf("%s|%s|%s|%d", name, origin.Format(time.DateOnly), family, ordinal)
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@lunarcal"
}

func render(tmpl, name string, days int, age string, year int) string {
	return strings.NewReplacer(
		"{name}", name,
		"{days}", strconv.Itoa(days),
		"{age}", age,
		"{year}", strconv.Itoa(year),
	).Replace(tmpl)
}
