// Package planner turns course time slots into recurring weekly calendar
// event requests bounded by a term.
package planner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/weekday"
)

const rrulePrefix = "RRULE:"

// ErrNoMeetingInTerm means the slot's weekday does not occur between the
// term's first and last day.
var ErrNoMeetingInTerm = errors.New("planner: slot has no meeting inside the term")

// Plan builds the event request for one time slot of course within term.
// Times are interpreted in loc.
func Plan(course model.Course, slot model.CourseTimeSlot, term model.Term, loc *time.Location) (model.EventRequest, error) {
	if loc == nil {
		return model.EventRequest{}, errors.New("planner: nil location")
	}
	if term.End.Before(term.Start) {
		return model.EventRequest{}, fmt.Errorf("planner: term %s ends before it starts", term.Name)
	}

	first := weekday.FirstOnOrAfter(model.Date(term.Start), slot.Weekday)
	if first.After(model.Date(term.End)) {
		return model.EventRequest{}, fmt.Errorf("%w: %s %s in %s", ErrNoMeetingInTerm, course, slot.Weekday, term.Name)
	}
	start := slot.Start.On(first, loc)
	end := slot.End.On(first, loc)

	day, err := slot.Weekday.RRule()
	if err != nil {
		return model.EventRequest{}, err
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   start,
		Until:     endOfDay(term.End, loc),
		Byweekday: []rrule.Weekday{day},
	})
	if err != nil {
		return model.EventRequest{}, fmt.Errorf("planner: build rule for %s: %w", course, err)
	}

	return model.EventRequest{
		Summary:     course.Name,
		Start:       start,
		End:         end,
		TimeZone:    loc.String(),
		Recurrence:  []string{rrulePrefix + r.OrigOptions.RRuleString()},
		Location:    slot.Location(),
		Description: describe(course),
	}, nil
}

// PlanCourse plans every time slot of course, in slot order. Slots that
// never meet inside the term are logged and left out.
func PlanCourse(course model.Course, term model.Term, loc *time.Location) ([]model.EventRequest, error) {
	reqs := make([]model.EventRequest, 0, len(course.TimeSlots))
	for _, slot := range course.TimeSlots {
		req, err := Plan(course, slot, term, loc)
		if errors.Is(err, ErrNoMeetingInTerm) {
			appLog.Info("slot does not meet inside term, skipping",
				"course", course.String(),
				"slot", slot.String(),
				"term", term.Name,
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Occurrences expands the request's recurrence into concrete start times.
func Occurrences(req model.EventRequest) ([]time.Time, error) {
	var set rrule.Set
	set.DTStart(req.Start)
	for _, line := range req.Recurrence {
		if !strings.HasPrefix(line, rrulePrefix) {
			continue
		}
		opt, err := rrule.StrToROptionInLocation(strings.TrimPrefix(line, rrulePrefix), req.Start.Location())
		if err != nil {
			return nil, fmt.Errorf("planner: parse %q: %w", line, err)
		}
		opt.Dtstart = req.Start
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, err
		}
		set.RRule(r)
	}
	return set.All(), nil
}

// endOfDay returns the last second of date's calendar day in loc.
func endOfDay(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, loc)
}

func describe(c model.Course) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (CRN %d)", c.Major, c.CourseNumber, c.SectionID)
	if c.Instructor != "" {
		fmt.Fprintf(&b, "\nInstructor: %s", c.Instructor)
	}
	if c.Credits > 0 {
		fmt.Fprintf(&b, "\nCredits: %d", c.Credits)
	}
	return b.String()
}
