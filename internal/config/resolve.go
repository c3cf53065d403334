package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"lunarcal/internal/apperror"
	"lunarcal/internal/localtime"
)

// Summaries holds the summary templates of the three event families.
// Placeholders: {name}, {days}, {age}, {year}.
type Summaries struct {
	CycleDays     string
	SolarBirthday string
	LunarBirthday string
}

// Effective is the fully resolved parameter set of one person.
type Effective struct {
	Username      string
	OriginDate    time.Time // calendar date at 00:00 UTC
	EventTime     localtime.TimeOfDay
	EventDuration time.Duration
	Timezone      string

	TrackCycleDays bool
	CycleInterval  int
	MaxCycleDays   int

	TrackSolarBirthday bool
	TrackLunarBirthday bool
	MaxAge             int

	Reminders []int
	Attendees []string
	Summaries Summaries
}

// CalendarSettings are the calendar-level values resolved from the global
// section and the built-ins.
type CalendarSettings struct {
	Name          string
	Timezone      string
	EventTime     localtime.TimeOfDay
	EventDuration time.Duration
	Reminders     []int
	Attendees     []string
	Holidays      []string
	HolidayYears  int
}

// tiers resolves fields in precedence order. The last tier is always the
// built-in defaults.
type tiers []map[string]any

// value returns the first truthy value of field. When no tier has one, the
// built-in value is returned as is (it may be a falsy default such as false
// or an empty list). ok is false only when the built-ins lack the field.
func (t tiers) value(field string) (any, bool) {
	builtin := t[len(t)-1]
	v := lookupTiers(field, t...).OrElse(builtin[field])
	if v == nil {
		return nil, false
	}
	return v, true
}

// Resolve builds the Effective configuration of person. Each field takes the
// person's value when present and truthy, else the global value, else the
// built-in default. A present but falsy value (0, false, "", []) counts as
// absent.
func Resolve(person, global map[string]any) (Effective, error) {
	t := tiers{person, global, BuiltinGlobal()}
	var eff Effective
	var err error

	v, ok := t.value("username")
	if !ok {
		return Effective{}, apperror.ConfigResolution("username", "no value in person, global or built-in defaults")
	}
	if eff.Username, err = asString("username", v); err != nil {
		return Effective{}, err
	}

	v, ok = t.value("startdate")
	if !ok {
		return Effective{}, apperror.ConfigResolution("startdate", "no value in person, global or built-in defaults")
	}
	if eff.OriginDate, err = asDate(v); err != nil {
		return Effective{}, err
	}

	if err := resolveShared(t, &eff.Timezone, &eff.EventTime, &eff.EventDuration, &eff.Reminders, &eff.Attendees); err != nil {
		return Effective{}, err
	}

	if eff.TrackCycleDays, err = boolField(t, "cycle_days"); err != nil {
		return Effective{}, err
	}
	if eff.CycleInterval, err = intField(t, "interval", 1); err != nil {
		return Effective{}, err
	}
	if eff.MaxCycleDays, err = intField(t, "max_days", 1); err != nil {
		return Effective{}, err
	}
	if eff.TrackSolarBirthday, err = boolField(t, "solar_birthday"); err != nil {
		return Effective{}, err
	}
	if eff.TrackLunarBirthday, err = boolField(t, "lunar_birthday"); err != nil {
		return Effective{}, err
	}
	if eff.MaxAge, err = intField(t, "max_ages", 0); err != nil {
		return Effective{}, err
	}
	if eff.Summaries, err = resolveSummaries(person, global); err != nil {
		return Effective{}, err
	}

	return eff, nil
}

// ResolveCalendar resolves calendar-level settings from global and the
// built-ins. fallbackName is used when calendar_name is unset.
func ResolveCalendar(global map[string]any, fallbackName string) (CalendarSettings, error) {
	t := tiers{global, BuiltinGlobal()}
	cs := CalendarSettings{Name: fallbackName}

	if v, ok := t.value("calendar_name"); ok {
		name, err := asString("calendar_name", v)
		if err != nil {
			return CalendarSettings{}, err
		}
		cs.Name = name
	}

	if err := resolveShared(t, &cs.Timezone, &cs.EventTime, &cs.EventDuration, &cs.Reminders, &cs.Attendees); err != nil {
		return CalendarSettings{}, err
	}

	var err error
	if cs.Holidays, err = stringsField(t, "holidays"); err != nil {
		return CalendarSettings{}, err
	}
	if cs.HolidayYears, err = intField(t, "holiday_years", 1); err != nil {
		return CalendarSettings{}, err
	}
	return cs, nil
}

func resolveShared(t tiers, zone *string, tod *localtime.TimeOfDay, dur *time.Duration, reminders *[]int, attendees *[]string) error {
	var err error

	v, _ := t.value("timezone")
	if *zone, err = asString("timezone", v); err != nil {
		return err
	}

	v, _ = t.value("event_time")
	s, err := asString("event_time", v)
	if err != nil {
		return err
	}
	if *tod, err = localtime.ParseTimeOfDay(s); err != nil {
		return apperror.ConfigResolution("event_time", err.Error())
	}

	v, _ = t.value("event_hours")
	hours, err := asFloat("event_hours", v)
	if err != nil {
		return err
	}
	if hours < 0 {
		return apperror.ConfigResolution("event_hours", fmt.Sprintf("must not be negative, got %v", hours))
	}
	*dur = time.Duration(hours * float64(time.Hour))

	if *reminders, err = intsField(t, "reminders"); err != nil {
		return err
	}
	for _, r := range *reminders {
		if r < 0 {
			return apperror.ConfigResolution("reminders", fmt.Sprintf("reminder offsets must not be negative, got %d", r))
		}
	}

	if *attendees, err = stringsField(t, "attendees"); err != nil {
		return err
	}
	return nil
}

// resolveSummaries deep-merges the summary templates: built-in, then global,
// then person, key by key.
func resolveSummaries(person, global map[string]any) (Summaries, error) {
	merged := builtinSummaries()
	for _, tier := range []map[string]any{global, person} {
		raw, ok := tier["summaries"]
		if !ok || raw == nil {
			continue
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return Summaries{}, apperror.ConfigResolution("summaries", fmt.Sprintf("expected a mapping, got %T", raw))
		}
		merged = Merge(merged, m)
	}

	var out Summaries
	targets := []struct {
		key string
		dst *string
	}{
		{"cycle_days", &out.CycleDays},
		{"solar_birthday", &out.SolarBirthday},
		{"lunar_birthday", &out.LunarBirthday},
	}
	for _, tg := range targets {
		s, err := asString("summaries."+tg.key, merged[tg.key])
		if err != nil {
			return Summaries{}, err
		}
		*tg.dst = s
	}
	return out, nil
}

func boolField(t tiers, field string) (bool, error) {
	v, _ := t.value(field)
	b, ok := v.(bool)
	if !ok {
		return false, apperror.ConfigResolution(field, fmt.Sprintf("expected a boolean, got %T", v))
	}
	return b, nil
}

func intField(t tiers, field string, minimum int) (int, error) {
	v, _ := t.value(field)
	n, err := asInt(field, v)
	if err != nil {
		return 0, err
	}
	if n < minimum {
		return 0, apperror.ConfigResolution(field, fmt.Sprintf("must be at least %d, got %d", minimum, n))
	}
	return n, nil
}

func intsField(t tiers, field string) ([]int, error) {
	v, _ := t.value(field)
	list, ok := v.([]any)
	if !ok {
		return nil, apperror.ConfigResolution(field, fmt.Sprintf("expected a list, got %T", v))
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		n, err := asInt(field, item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func stringsField(t tiers, field string) ([]string, error) {
	v, _ := t.value(field)
	list, ok := v.([]any)
	if !ok {
		return nil, apperror.ConfigResolution(field, fmt.Sprintf("expected a list, got %T", v))
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, err := asString(field, item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func asString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", apperror.ConfigResolution(field, fmt.Sprintf("expected a string, got %T", v))
	}
	return s, nil
}

func asInt(field string, v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	}
	return 0, apperror.ConfigResolution(field, fmt.Sprintf("expected an integer, got %v (%T)", v, v))
}

func asFloat(field string, v any) (float64, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return 0, apperror.ConfigResolution(field, fmt.Sprintf("expected a number, got %v (%T)", v, v))
}

// asDate accepts "YYYY-MM-DD" strings and YAML timestamps. The result is the
// calendar date at midnight UTC.
func asDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		y, m, d := x.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case string:
		t, err := time.Parse(time.DateOnly, strings.TrimSpace(x))
		if err != nil {
			return time.Time{}, apperror.InvalidOriginDate(x, err)
		}
		return t, nil
	}
	return time.Time{}, apperror.InvalidOriginDate(fmt.Sprint(v), nil)
}
