package config

// Built-in defaults. Each call returns fresh maps so callers may modify them.

const (
	DefaultTimezone     = "Asia/Shanghai"
	DefaultEventTime    = "10:00:00"
	DefaultEventHours   = 2
	DefaultInterval     = 1000
	DefaultMaxDays      = 30000
	DefaultMaxAges      = 80
	DefaultHolidayYears = 5
	DefaultPastebinURL  = "https://komj.uk"
	DefaultCalendarName = "Lunar Birthday iCalendar"
)

const (
	DefaultCycleDaysSummary     = "{name} 来到地球已经 {days} 天啦! (age: {age})"
	DefaultSolarBirthdaySummary = "{name} {year} 年生日快乐 (age: {age})"
	DefaultLunarBirthdaySummary = "{name} {year} 年农历生日快乐 (age: {age})"
)

// BuiltinGlobal is the last resolution tier for every per-person field.
func BuiltinGlobal() map[string]any {
	return map[string]any{
		"timezone":       DefaultTimezone,
		"event_time":     DefaultEventTime,
		"event_hours":    DefaultEventHours,
		"cycle_days":     true,
		"interval":       DefaultInterval,
		"max_days":       DefaultMaxDays,
		"solar_birthday": false,
		"lunar_birthday": true,
		"max_ages":       DefaultMaxAges,
		"reminders":      []any{1, 3},
		"attendees":      []any{},
		"summaries":      builtinSummaries(),
		"holidays":       []any{},
		"holiday_years":  DefaultHolidayYears,
	}
}

func builtinSummaries() map[string]any {
	return map[string]any{
		"cycle_days":     DefaultCycleDaysSummary,
		"solar_birthday": DefaultSolarBirthdaySummary,
		"lunar_birthday": DefaultLunarBirthdaySummary,
	}
}

// DefaultDocument is the document every loaded file is merged onto.
func DefaultDocument() map[string]any {
	return map[string]any{
		"global": BuiltinGlobal(),
		"pastebin": map[string]any{
			"enabled":    false,
			"base_url":   DefaultPastebinURL,
			"manage_url": "",
			"expiration": "",
		},
		"persons": []any{},
	}
}

// ExampleDocument is written by `lunarcal -init`.
func ExampleDocument() map[string]any {
	doc := DefaultDocument()
	global := doc["global"].(map[string]any)
	global["calendar_name"] = DefaultCalendarName
	doc["persons"] = []any{
		map[string]any{
			"username":       "张三",
			"startdate":      "1989-06-03",
			"solar_birthday": false,
			"lunar_birthday": true,
		},
		map[string]any{
			"username":       "李四",
			"startdate":      "2006-02-01",
			"solar_birthday": true,
			"lunar_birthday": false,
		},
	}
	return doc
}
