// Package weekday provides the fixed Sunday-first weekday enumeration used
// by the schedule normalizer and the recurring-event planner.
package weekday

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"coursecal/internal/apperr"
)

// Weekday is a day of the week with Sunday = 0.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// All lists every weekday in order.
var All = [...]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

var names = [...]string{"SUNDAY", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"}

// codes holds the two-letter recurrence codes, indexed by Weekday.
var codes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

var rruleDays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// byCode is the inverse of codes.
var byCode = func() map[string]Weekday {
	m := make(map[string]Weekday, len(codes))
	for i, c := range codes {
		m[c] = Weekday(i)
	}
	return m
}()

// byLetter is the meeting-day encoding used by the course catalog.
// The catalog has no letter for Sunday.
var byLetter = map[string]Weekday{
	"M": Monday,
	"T": Tuesday,
	"W": Wednesday,
	"R": Thursday,
	"F": Friday,
	"S": Saturday,
}

func (w Weekday) valid() bool {
	return w >= Sunday && w <= Saturday
}

func (w Weekday) String() string {
	if !w.valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return names[w]
}

// Code returns the two-letter recurrence code (SU, MO, ...).
func (w Weekday) Code() (string, error) {
	if !w.valid() {
		return "", fmt.Errorf("%w: %d", apperr.ErrInvalidWeekday, int(w))
	}
	return codes[w], nil
}

// RRule returns the rrule-go weekday for w.
func (w Weekday) RRule() (rrule.Weekday, error) {
	if !w.valid() {
		return rrule.Weekday{}, fmt.Errorf("%w: %d", apperr.ErrInvalidWeekday, int(w))
	}
	return rruleDays[w], nil
}

// FromCode maps a two-letter recurrence code back to its Weekday.
func FromCode(code string) (Weekday, error) {
	w, ok := byCode[code]
	if !ok {
		return 0, fmt.Errorf("%w: %q", apperr.ErrInvalidWeekday, code)
	}
	return w, nil
}

// FromLetter maps a catalog meeting-day letter to its Weekday.
func FromLetter(letter string) (Weekday, error) {
	w, ok := byLetter[letter]
	if !ok {
		return 0, fmt.Errorf("%w: %q", apperr.ErrUnknownWeekdayCode, letter)
	}
	return w, nil
}

// Of returns the weekday of the calendar date of d in d's location.
func Of(d time.Time) Weekday {
	return Weekday(d.Weekday())
}

// FirstOnOrAfter returns the first date in [d, d+6] falling on w.
func FirstOnOrAfter(d time.Time, w Weekday) time.Time {
	day := d
	for i := 0; i < len(All); i++ {
		if Of(day) == w {
			return day
		}
		day = day.AddDate(0, 0, 1)
	}
	// Only reachable for a Weekday outside the enumeration.
	return d
}
