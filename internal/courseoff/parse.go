package courseoff

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"coursecal/internal/apperr"
	"coursecal/internal/model"
	"coursecal/internal/weekday"
)

const minutesPerDay = 24 * 60

var (
	// Room is the trailing digit run; anything before it is the building.
	locationPattern = regexp.MustCompile(`^(.*?)\s*([0-9]+)$`)

	termNamePattern = regexp.MustCompile(`^(Fall|Spring|Summer) 20[0-9]{2}$`)
)

// ParseTimeOfDay converts minutes since midnight (0-1439) into a TimeOfDay.
func ParseTimeOfDay(minutes int) (model.TimeOfDay, error) {
	if minutes < 0 || minutes >= minutesPerDay {
		return model.TimeOfDay{}, fmt.Errorf("%w: %d", apperr.ErrInvalidTimeValue, minutes)
	}
	return model.TimeOfDay{Hour: minutes / 60, Minute: minutes % 60}, nil
}

// ParseLocation splits "Boyd 328" into building "Boyd" and room "328".
func ParseLocation(raw string) (building, room string, err error) {
	m := locationPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", apperr.ErrUnparseableLocation, raw)
	}
	return strings.TrimSpace(m[1]), m[2], nil
}

// ParseTimeSlot converts one raw meeting record into a CourseTimeSlot.
func ParseTimeSlot(raw RawMeeting) (model.CourseTimeSlot, error) {
	building, room, err := ParseLocation(raw.Location)
	if err != nil {
		return model.CourseTimeSlot{}, err
	}
	day, err := weekday.FromLetter(raw.Day)
	if err != nil {
		return model.CourseTimeSlot{}, err
	}
	start, err := ParseTimeOfDay(raw.StartTime)
	if err != nil {
		return model.CourseTimeSlot{}, fmt.Errorf("start time: %w", err)
	}
	end, err := ParseTimeOfDay(raw.EndTime)
	if err != nil {
		return model.CourseTimeSlot{}, fmt.Errorf("end time: %w", err)
	}
	return model.CourseTimeSlot{
		Building: building,
		Room:     room,
		Weekday:  day,
		Start:    start,
		End:      end,
	}, nil
}

// ParseCourse builds the Course for sectionID out of the section records
// returned for major/courseNumber.
func ParseCourse(sections []RawSection, name, major, courseNumber string, sectionID int) (model.Course, error) {
	for _, sec := range sections {
		crn, err := sec.CallNumber.Int()
		if err != nil || crn != sectionID {
			continue
		}

		slots := make([]model.CourseTimeSlot, 0, len(sec.Timeslots))
		for i, raw := range sec.Timeslots {
			slot, err := ParseTimeSlot(raw)
			if err != nil {
				return model.Course{}, fmt.Errorf("%s %s meeting %d: %w", major, courseNumber, i, err)
			}
			slots = append(slots, slot)
		}

		return model.Course{
			Name:         name,
			Major:        major,
			CourseNumber: courseNumber,
			SectionID:    sectionID,
			Instructor:   instructorName(sec.Instructor),
			Credits:      sec.Credits,
			TimeSlots:    slots,
		}, nil
	}
	return model.Course{}, fmt.Errorf("%w: crn %d in %s %s", apperr.ErrSectionNotFound, sectionID, major, courseNumber)
}

func instructorName(in *RawInstructor) string {
	if in == nil {
		return ""
	}
	return in.LastName + ", " + in.FirstName
}

// ParseTerms indexes the raw term list by "{Season} {Year}". Epoch
// timestamps are truncated to whole seconds and converted to dates in loc.
func ParseTerms(raw []RawTerm, loc *time.Location) (map[string]model.Term, error) {
	if loc == nil {
		loc = time.Local
	}
	terms := make(map[string]model.Term, len(raw))
	for i, rt := range raw {
		if rt.Ident == "" || strings.TrimSpace(rt.Semester) == "" {
			return nil, fmt.Errorf("%w: term %d is missing ident or semester", apperr.ErrParseFailed, i)
		}
		start := epochDate(rt.StartDate, loc)
		end := epochDate(rt.EndDate, loc)
		if end.Before(start) {
			return nil, fmt.Errorf("%w: term %s ends %s before it starts %s",
				apperr.ErrParseFailed, rt.Ident, end.Format(time.DateOnly), start.Format(time.DateOnly))
		}
		name := fmt.Sprintf("%s %d", strings.TrimSpace(rt.Semester), start.Year())
		terms[name] = model.Term{
			ID:    string(rt.Ident),
			Name:  name,
			Start: start,
			End:   end,
		}
	}
	return terms, nil
}

func epochDate(ms int64, loc *time.Location) time.Time {
	return model.Date(time.Unix(ms/1000, 0).In(loc))
}

// SelectTerm looks up a term by its "{Season} {Year}" name.
func SelectTerm(terms map[string]model.Term, name string) (model.Term, error) {
	name = strings.TrimSpace(name)
	if !termNamePattern.MatchString(name) {
		return model.Term{}, fmt.Errorf("%w: %q, use Season Year (e.g. Fall 2019)", apperr.ErrTermFormatInvalid, name)
	}
	term, ok := terms[name]
	if !ok {
		return model.Term{}, fmt.Errorf("%w: %s", apperr.ErrTermNotFound, name)
	}
	return term, nil
}
