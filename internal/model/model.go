package model

import (
	"fmt"
	"time"

	"coursecal/internal/weekday"
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant at t on the calendar date of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// CourseTimeSlot is one weekly meeting pattern of a section.
type CourseTimeSlot struct {
	Building string
	Room     string
	Weekday  weekday.Weekday
	Start    TimeOfDay
	End      TimeOfDay
}

func (s CourseTimeSlot) String() string {
	return fmt.Sprintf("%s: %s-%s at %s", s.Weekday, s.Start, s.End, s.Building)
}

// Location formats the slot's room for a calendar entry ("Boyd - Rm 328").
// Empty when the slot has no building.
func (s CourseTimeSlot) Location() string {
	if s.Building == "" {
		return ""
	}
	if s.Room == "" {
		return s.Building
	}
	return s.Building + " - Rm " + s.Room
}

// Course is one registered section with its meeting patterns.
type Course struct {
	Name         string
	Major        string
	CourseNumber string
	SectionID    int // registration number (CRN)
	Instructor   string
	Credits      int
	TimeSlots    []CourseTimeSlot
}

func (c Course) String() string {
	return "COURSE: " + c.Major + " " + c.CourseNumber
}

// Term is an academic term. Start and End are date-only values at
// midnight UTC.
type Term struct {
	ID    string
	Name  string
	Start time.Time
	End   time.Time
}

// Date truncates t to its calendar date in t's location, returned at
// midnight UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EventRequest is a recurring calendar event ready to be handed to a sink.
type EventRequest struct {
	Summary string

	// Start / End are the first occurrence, in the TimeZone location.
	Start    time.Time
	End      time.Time
	TimeZone string

	// Recurrence holds iCalendar recurrence lines, e.g. "RRULE:FREQ=WEEKLY;...".
	Recurrence []string

	Location    string
	Description string
}
