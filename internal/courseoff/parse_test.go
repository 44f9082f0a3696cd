package courseoff

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"coursecal/internal/apperr"
	"coursecal/internal/model"
	"coursecal/internal/weekday"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   int
		want model.TimeOfDay
	}{
		{0, model.TimeOfDay{Hour: 0, Minute: 0}},
		{540, model.TimeOfDay{Hour: 9, Minute: 0}},
		{650, model.TimeOfDay{Hour: 10, Minute: 50}},
		{1439, model.TimeOfDay{Hour: 23, Minute: 59}},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%d): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%d) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, in := range []int{-1, 1440, 100000} {
		if _, err := ParseTimeOfDay(in); !errors.Is(err, apperr.ErrInvalidTimeValue) {
			t.Errorf("ParseTimeOfDay(%d) err = %v, want ErrInvalidTimeValue", in, err)
		}
	}
}

func TestParseLocation(t *testing.T) {
	cases := []struct {
		raw, building, room string
	}{
		{"Boyd 328", "Boyd", "328"},
		{"MLC 255", "MLC", "255"},
		{"Miller Learning Center 0148", "Miller Learning Center", "0148"},
		{"Boyd328", "Boyd", "328"},
		{"  Boyd   328  ", "Boyd", "328"},
		{"Science Library 2 201", "Science Library 2", "201"},
	}
	for _, tc := range cases {
		b, r, err := ParseLocation(tc.raw)
		if err != nil {
			t.Fatalf("ParseLocation(%q): %v", tc.raw, err)
		}
		if b != tc.building || r != tc.room {
			t.Errorf("ParseLocation(%q) = (%q, %q), want (%q, %q)", tc.raw, b, r, tc.building, tc.room)
		}
	}

	for _, raw := range []string{"No Room Listed", "", "Boyd 328A"} {
		if _, _, err := ParseLocation(raw); !errors.Is(err, apperr.ErrUnparseableLocation) {
			t.Errorf("ParseLocation(%q) err = %v, want ErrUnparseableLocation", raw, err)
		}
	}
}

func TestParseTimeSlot(t *testing.T) {
	slot, err := ParseTimeSlot(RawMeeting{Day: "R", StartTime: 540, EndTime: 650, Location: "MLC 255"})
	if err != nil {
		t.Fatal(err)
	}
	want := model.CourseTimeSlot{
		Building: "MLC",
		Room:     "255",
		Weekday:  weekday.Thursday,
		Start:    model.TimeOfDay{Hour: 9, Minute: 0},
		End:      model.TimeOfDay{Hour: 10, Minute: 50},
	}
	if slot != want {
		t.Errorf("got %+v, want %+v", slot, want)
	}
}

func TestParseTimeSlotErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  RawMeeting
		want error
	}{
		{"sunday letter", RawMeeting{Day: "U", StartTime: 540, EndTime: 600, Location: "Boyd 328"}, apperr.ErrUnknownWeekdayCode},
		{"bad location", RawMeeting{Day: "M", StartTime: 540, EndTime: 600, Location: "TBA"}, apperr.ErrUnparseableLocation},
		{"bad start", RawMeeting{Day: "M", StartTime: -5, EndTime: 600, Location: "Boyd 328"}, apperr.ErrInvalidTimeValue},
		{"bad end", RawMeeting{Day: "M", StartTime: 540, EndTime: 1440, Location: "Boyd 328"}, apperr.ErrInvalidTimeValue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTimeSlot(tc.raw)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if !errors.Is(err, apperr.ErrParseFailed) {
				t.Errorf("err = %v does not match ErrParseFailed", err)
			}
		})
	}
}

const sectionsJSON = `[
  {"call_number": 11111, "credits": 4, "instructor": {"fname": "Ada", "lname": "Lovelace"},
   "timeslots": [{"day": "M", "start_time": 545, "end_time": 595, "location": "Boyd 328"}]},
  {"call_number": "22222", "credits": 3, "instructor": {"fname": "Grace", "lname": "Hopper"},
   "timeslots": [
     {"day": "W", "start_time": 570, "end_time": 645, "location": "Boyd 328"},
     {"day": "R", "start_time": 540, "end_time": 650, "location": "MLC 255"}
   ]}
]`

func decodeSections(t *testing.T) []RawSection {
	t.Helper()
	var sections []RawSection
	if err := json.Unmarshal([]byte(sectionsJSON), &sections); err != nil {
		t.Fatal(err)
	}
	return sections
}

func TestParseCourse(t *testing.T) {
	course, err := ParseCourse(decodeSections(t), "Software Development", "CSCI", "1302", 22222)
	if err != nil {
		t.Fatal(err)
	}
	if course.Instructor != "Hopper, Grace" {
		t.Errorf("Instructor = %q", course.Instructor)
	}
	if course.Credits != 3 || course.SectionID != 22222 || course.Name != "Software Development" {
		t.Errorf("unexpected course %+v", course)
	}
	if len(course.TimeSlots) != 2 {
		t.Fatalf("got %d slots, want 2", len(course.TimeSlots))
	}
	if course.TimeSlots[0].Weekday != weekday.Wednesday || course.TimeSlots[1].Weekday != weekday.Thursday {
		t.Errorf("slot order not preserved: %v", course.TimeSlots)
	}
	if got := course.String(); got != "COURSE: CSCI 1302" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseCourseSectionNotFound(t *testing.T) {
	_, err := ParseCourse(decodeSections(t), "Software Development", "CSCI", "1302", 99999)
	if !errors.Is(err, apperr.ErrSectionNotFound) {
		t.Fatalf("err = %v, want ErrSectionNotFound", err)
	}
}

func TestParseCourseBadMeeting(t *testing.T) {
	sections := []RawSection{{
		CallNumber: "1",
		Timeslots:  []RawMeeting{{Day: "M", StartTime: 60, EndTime: 120, Location: "Online"}},
	}}
	_, err := ParseCourse(sections, "x", "CSCI", "1000", 1)
	if !errors.Is(err, apperr.ErrUnparseableLocation) {
		t.Fatalf("err = %v, want ErrUnparseableLocation", err)
	}
}

func TestParseTerms(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2024-01-08 09:00 and 2024-05-03 18:00 Eastern, with sub-second noise.
	start := time.Date(2024, time.January, 8, 9, 0, 0, 0, loc).UnixMilli() + 999
	end := time.Date(2024, time.May, 3, 18, 0, 0, 0, loc).UnixMilli()

	raw := []RawTerm{
		{Ident: "202402", Semester: "Spring", StartDate: start, EndDate: end},
		{Ident: "202308", Semester: "Fall",
			StartDate: time.Date(2023, time.August, 16, 12, 0, 0, 0, loc).UnixMilli(),
			EndDate:   time.Date(2023, time.December, 14, 12, 0, 0, 0, loc).UnixMilli()},
	}
	terms, err := ParseTerms(raw, loc)
	if err != nil {
		t.Fatal(err)
	}
	spring, ok := terms["Spring 2024"]
	if !ok {
		t.Fatalf("Spring 2024 missing from %v", terms)
	}
	if spring.ID != "202402" {
		t.Errorf("ID = %q", spring.ID)
	}
	if want := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC); !spring.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", spring.Start, want)
	}
	if want := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC); !spring.End.Equal(want) {
		t.Errorf("End = %v, want %v", spring.End, want)
	}
	if _, ok := terms["Fall 2023"]; !ok {
		t.Errorf("Fall 2023 missing")
	}
}

func TestParseTermsMalformed(t *testing.T) {
	cases := map[string][]RawTerm{
		"missing semester": {{Ident: "1", StartDate: 0, EndDate: 1000}},
		"end before start": {{Ident: "1", Semester: "Fall", StartDate: 90_000_000_000, EndDate: 0}},
	}
	for name, raw := range cases {
		terms, err := ParseTerms(raw, time.UTC)
		if !errors.Is(err, apperr.ErrParseFailed) {
			t.Errorf("%s: err = %v, want ErrParseFailed", name, err)
		}
		if terms != nil {
			t.Errorf("%s: got partial terms %v", name, terms)
		}
	}
}

func TestSelectTerm(t *testing.T) {
	terms := map[string]model.Term{"Spring 2024": {ID: "202402", Name: "Spring 2024"}}

	term, err := SelectTerm(terms, "  Spring 2024 ")
	if err != nil {
		t.Fatal(err)
	}
	if term.ID != "202402" {
		t.Errorf("ID = %q", term.ID)
	}

	if _, err := SelectTerm(terms, "Fall 2019"); !errors.Is(err, apperr.ErrTermNotFound) {
		t.Errorf("err = %v, want ErrTermNotFound", err)
	}
	for _, name := range []string{"spring 2024", "Spring24", "Autumn 2024", "Spring 1999", ""} {
		if _, err := SelectTerm(terms, name); !errors.Is(err, apperr.ErrTermFormatInvalid) {
			t.Errorf("SelectTerm(%q) err = %v, want ErrTermFormatInvalid", name, err)
		}
	}
}

func TestIdentUnmarshal(t *testing.T) {
	var ids []Ident
	if err := json.Unmarshal([]byte(`[12345, "67890", "1302L"]`), &ids); err != nil {
		t.Fatal(err)
	}
	want := []Ident{"12345", "67890", "1302L"}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
	if n, err := ids[0].Int(); err != nil || n != 12345 {
		t.Errorf("Int() = %d, %v", n, err)
	}
	if _, err := ids[2].Int(); err == nil {
		t.Errorf("Int() on %q succeeded", ids[2])
	}
}
