package lunar

import (
	"fmt"
	"time"

	"lunarcal/internal/apperror"
)

// Resolver finds the solar date on which the lunar calendar reaches the
// same month/day as an origin date, a given number of lunar years later.
type Resolver struct {
	cal Calendar
}

func NewResolver(cal Calendar) *Resolver {
	return &Resolver{cal: cal}
}

// Calendar returns the underlying primitives.
func (r *Resolver) Calendar() Calendar {
	return r.cal
}

// Resolve returns the solar date age lunar years after origin with the same
// lunar month and day.
//
// An origin in a leap month maps to the same leap month when the target
// year has one, otherwise to the normal month of that number. A day that
// does not exist in the target month (the 30th of a 29-day month) clamps to
// the month's last day. The result keeps origin's wall-clock time and
// location; only the date changes.
func (r *Resolver) Resolve(origin time.Time, age int) (time.Time, error) {
	if age < 0 {
		return time.Time{}, apperror.LunarConversion(fmt.Sprintf("negative age %d", age), nil)
	}

	src, err := r.cal.SolarToLunar(origin)
	if err != nil {
		return time.Time{}, apperror.LunarConversion("convert origin "+origin.Format(time.DateOnly), err)
	}

	year := src.Year + age
	leap, err := r.cal.LeapMonth(year)
	if err != nil {
		return time.Time{}, apperror.LunarConversion(fmt.Sprintf("leap month of %d", year), err)
	}
	month := TargetMonth(src.Month, leap)

	length, err := r.cal.MonthLength(year, month)
	if err != nil {
		return time.Time{}, apperror.LunarConversion(fmt.Sprintf("month length of %d/%d", year, month), err)
	}
	day := min(src.Day, length)

	solar, err := r.cal.LunarToSolar(year, month, day)
	if err != nil {
		target := Date{Year: year, Month: month, Day: day}
		return time.Time{}, apperror.LunarConversion("convert "+target.String(), err)
	}

	y, m, d := solar.Date()
	return time.Date(y, m, d, origin.Hour(), origin.Minute(), origin.Second(), origin.Nanosecond(), origin.Location()), nil
}

// TargetMonth picks the month designator to use in a target year whose leap
// month is leap (0 if none), given the origin designator.
func TargetMonth(origin, leap int) int {
	if origin > 0 {
		return origin
	}
	if -origin == leap {
		return origin
	}
	return -origin
}
