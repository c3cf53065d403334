package lunar

import (
	"fmt"
	"sync"
	"time"

	"github.com/6tail/lunar-go/calendar"
)

// Date is a Chinese lunisolar date. A negative Month designates the leap
// instance of |Month| within Year.
type Date struct {
	Year  int
	Month int
	Day   int
}

// IsLeap reports whether the date falls in a leap month.
func (d Date) IsLeap() bool {
	return d.Month < 0
}

func (d Date) String() string {
	if d.IsLeap() {
		return fmt.Sprintf("%04d-L%02d-%02d", d.Year, -d.Month, d.Day)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Calendar is the set of lunisolar primitives the resolver needs.
type Calendar interface {
	SolarToLunar(date time.Time) (Date, error)
	// LeapMonth returns the leap month number of year, 0 if none.
	LeapMonth(year int) (int, error)
	MonthLength(year, month int) (int, error)
	LunarToSolar(year, month, day int) (time.Time, error)
}

// lunarGo adapts github.com/6tail/lunar-go. The library keeps unsynchronized
// package-level caches, so every call is serialized.
type lunarGo struct {
	mu sync.Mutex
}

// NewLunarGo returns the production Calendar.
func NewLunarGo() Calendar {
	return &lunarGo{}
}

func (c *lunarGo) SolarToLunar(date time.Time) (d Date, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer recoverInto(&err, "solar %s", date.Format(time.DateOnly))

	y, m, day := date.Date()
	l := calendar.NewSolarFromYmd(y, int(m), day).GetLunar()
	return Date{Year: l.GetYear(), Month: l.GetMonth(), Day: l.GetDay()}, nil
}

func (c *lunarGo) LeapMonth(year int) (leap int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer recoverInto(&err, "leap month of %d", year)

	months := calendar.NewLunarYear(year).GetMonths()
	for e := months.Front(); e != nil; e = e.Next() {
		m, ok := e.Value.(*calendar.LunarMonth)
		if ok && m.GetYear() == year && m.IsLeap() {
			return -m.GetMonth(), nil
		}
	}
	return 0, nil
}

func (c *lunarGo) MonthLength(year, month int) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer recoverInto(&err, "lunar year %d month %d", year, month)

	lm := calendar.NewLunarYear(year).GetMonth(month)
	if lm == nil {
		return 0, fmt.Errorf("lunar year %d has no month %d", year, month)
	}
	return lm.GetDayCount(), nil
}

func (c *lunarGo) LunarToSolar(year, month, day int) (t time.Time, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer recoverInto(&err, "lunar %d/%d/%d", year, month, day)

	lm := calendar.NewLunarYear(year).GetMonth(month)
	if lm == nil {
		return time.Time{}, fmt.Errorf("lunar year %d has no month %d", year, month)
	}
	if day < 1 || day > lm.GetDayCount() {
		return time.Time{}, fmt.Errorf("lunar year %d month %d has no day %d", year, month, day)
	}

	s := calendar.NewLunarFromYmd(year, month, day).GetSolar()
	return time.Date(s.GetYear(), time.Month(s.GetMonth()), s.GetDay(), 0, 0, 0, 0, time.UTC), nil
}

// recoverInto converts a panic raised inside the library (it panics on
// dates it cannot represent) into an error.
func recoverInto(err *error, format string, args ...any) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("lunar library: "+format+": %v", append(args, r)...)
	}
}
