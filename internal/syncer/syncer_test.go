package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"coursecal/internal/apperr"
	"coursecal/internal/model"
	"coursecal/internal/weekday"
)

type fakeCatalog struct {
	terms      map[string]model.Term
	courses    []model.Course
	coursesErr error
	gotTerm    model.Term
}

func (f *fakeCatalog) Terms(context.Context) (map[string]model.Term, error) {
	return f.terms, nil
}

func (f *fakeCatalog) Courses(_ context.Context, term model.Term) ([]model.Course, error) {
	f.gotTerm = term
	return f.courses, f.coursesErr
}

type recordingSink struct {
	reqs   []model.EventRequest
	failAt int // 1-based; 0 never fails
}

func (r *recordingSink) Emit(_ context.Context, req model.EventRequest) (string, error) {
	if r.failAt > 0 && len(r.reqs)+1 == r.failAt {
		return "", fmt.Errorf("%w: calendar said no", apperr.ErrFetchFailed)
	}
	r.reqs = append(r.reqs, req)
	return fmt.Sprintf("ref-%d", len(r.reqs)), nil
}

var spring = model.Term{
	ID:    "202402",
	Name:  "Spring 2024",
	Start: time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC),
}

func slot(w weekday.Weekday, building, room string) model.CourseTimeSlot {
	return model.CourseTimeSlot{
		Building: building, Room: room, Weekday: w,
		Start: model.TimeOfDay{Hour: 9, Minute: 30}, End: model.TimeOfDay{Hour: 10, Minute: 45},
	}
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		terms: map[string]model.Term{spring.Name: spring},
		courses: []model.Course{
			{Name: "Software Development", Major: "CSCI", CourseNumber: "1302", SectionID: 22222,
				TimeSlots: []model.CourseTimeSlot{slot(weekday.Monday, "Boyd", "328"), slot(weekday.Wednesday, "Boyd", "328")}},
			{Name: "Independent Study", Major: "CSCI", CourseNumber: "4960", SectionID: 44444},
			{Name: "Calculus III", Major: "MATH", CourseNumber: "2270", SectionID: 33333,
				TimeSlots: []model.CourseTimeSlot{slot(weekday.Thursday, "MLC", "255")}},
		},
	}
}

func TestRunEmitsOneEventPerSlot(t *testing.T) {
	cat := testCatalog()
	a, b := &recordingSink{}, &recordingSink{}
	s, err := New(cat, time.UTC, a, b)
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Run(context.Background(), " Spring 2024")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cat.gotTerm.ID != "202402" {
		t.Errorf("courses fetched for term %+v", cat.gotTerm)
	}
	if len(res.Events) != 3 || len(a.reqs) != 3 || len(b.reqs) != 3 {
		t.Fatalf("events = %d, sink a = %d, sink b = %d; want 3 each", len(res.Events), len(a.reqs), len(b.reqs))
	}
	if got := res.Events[2].Refs; len(got) != 2 || got[0] != "ref-3" || got[1] != "ref-3" {
		t.Errorf("refs = %v", got)
	}

	first := a.reqs[0]
	if want := time.Date(2024, time.January, 8, 9, 30, 0, 0, time.UTC); !first.Start.Equal(want) {
		t.Errorf("first Monday start = %v, want %v", first.Start, want)
	}
	if !strings.Contains(a.reqs[1].Recurrence[0], "BYDAY=WE") {
		t.Errorf("second event rule = %v", a.reqs[1].Recurrence)
	}
	if a.reqs[2].Summary != "Calculus III" || a.reqs[2].Location != "MLC - Rm 255" {
		t.Errorf("third event = %+v", a.reqs[2])
	}
}

func TestRunAbortsOnFirstSinkError(t *testing.T) {
	sink := &recordingSink{failAt: 2}
	s, _ := New(testCatalog(), time.UTC, sink)

	res, err := s.Run(context.Background(), "Spring 2024")
	if !errors.Is(err, apperr.ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if len(sink.reqs) != 1 || len(res.Events) != 1 {
		t.Errorf("run continued after failure: sink=%d events=%d", len(sink.reqs), len(res.Events))
	}
}

func TestRunTermErrors(t *testing.T) {
	s, _ := New(testCatalog(), time.UTC, &recordingSink{})

	if _, err := s.Run(context.Background(), "Fall 2019"); !errors.Is(err, apperr.ErrTermNotFound) {
		t.Errorf("err = %v, want ErrTermNotFound", err)
	}
	if _, err := s.Run(context.Background(), "next semester"); !errors.Is(err, apperr.ErrTermFormatInvalid) {
		t.Errorf("err = %v, want ErrTermFormatInvalid", err)
	}
}

func TestRunCourseFetchError(t *testing.T) {
	cat := testCatalog()
	cat.coursesErr = fmt.Errorf("%w: 502", apperr.ErrFetchFailed)
	sink := &recordingSink{}
	s, _ := New(cat, time.UTC, sink)

	if _, err := s.Run(context.Background(), "Spring 2024"); !errors.Is(err, apperr.ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if len(sink.reqs) != 0 {
		t.Errorf("events emitted despite fetch failure")
	}
}

func TestRunSkipsSlotsOutsideShortTerm(t *testing.T) {
	short := spring
	short.End = time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	cat := &fakeCatalog{
		terms: map[string]model.Term{short.Name: short},
		courses: []model.Course{
			{Name: "Seminar", Major: "CSCI", CourseNumber: "4900", SectionID: 55555,
				TimeSlots: []model.CourseTimeSlot{slot(weekday.Friday, "Boyd", "208")}},
			{Name: "Software Development", Major: "CSCI", CourseNumber: "1302", SectionID: 22222,
				TimeSlots: []model.CourseTimeSlot{slot(weekday.Tuesday, "Boyd", "328"), slot(weekday.Thursday, "Boyd", "328")}},
		},
	}
	sink := &recordingSink{}
	s, _ := New(cat, time.UTC, sink)

	res, err := s.Run(context.Background(), "Spring 2024")
	if err != nil {
		t.Fatal(err)
	}
	if len(sink.reqs) != 1 || len(res.Events) != 1 {
		t.Fatalf("sink=%d events=%d, want 1", len(sink.reqs), len(res.Events))
	}
	if got := sink.reqs[0].Start; got.Weekday() != time.Tuesday || got.Day() != 9 {
		t.Errorf("emitted start %v, want Tue Jan 9", got)
	}
}

func TestNewRejectsNil(t *testing.T) {
	if _, err := New(nil, time.UTC); err == nil {
		t.Error("nil catalog accepted")
	}
	if _, err := New(testCatalog(), nil); err == nil {
		t.Error("nil location accepted")
	}
}
