package timeofday

import (
	"fmt"
	"time"
	_ "time/tzdata" // seller zones must resolve on hosts without zoneinfo

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

const dateLayout = "2006-01-02"

// Date is a calendar day with no zone attached. Slots are generated for a Date
// interpreted in the seller's location, never for a UTC day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", model.ErrValidation, s)
	}
	return DateOf(t), nil
}

// DateOf is the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool { return d == Date{} }

// Weekday of the calendar day itself; no zone can shift it.
func (d Date) Weekday() time.Weekday {
	return d.utcNoon().Weekday()
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.utcNoon().AddDate(0, 0, n))
}

// Midnight is the first instant of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, orUTC(loc))
}

// Bounds is the half-open local day [d 00:00, d+1 00:00) in loc. Its length is
// 23 or 25 hours on DST transition days.
func (d Date) Bounds(loc *time.Location) (time.Time, time.Time) {
	return d.Midnight(loc), d.AddDays(1).Midnight(loc)
}

// At is the instant whose wall clock in loc reads d plus minute minutes.
func (d Date) At(loc *time.Location, minute int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, minute, 0, 0, orUTC(loc))
}

// MinuteOffset is the wall-clock position of t relative to local midnight of d:
// negative on the previous day, 1440 or more on the following days.
func (d Date) MinuteOffset(loc *time.Location, t time.Time) int {
	lt := t.In(orUTC(loc))
	days := int(DateOf(lt).utcNoon().Sub(d.utcNoon()).Hours() / 24)
	return days*MinutesPerDay + lt.Hour()*60 + lt.Minute()
}

func (d Date) utcNoon() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// LoadLocation resolves an IANA zone name, wrapping failures as validation errors.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", model.ErrValidation, name)
	}
	return loc, nil
}
