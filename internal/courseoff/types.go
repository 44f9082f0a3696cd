package courseoff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Ident is a catalog identifier. The service sends some identifiers as JSON
// numbers and others as strings; both decode to the same textual form.
type Ident string

func (id *Ident) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = Ident(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("ident: %w", err)
	}
	*id = Ident(n.String())
	return nil
}

// Int parses the identifier as a registration number.
func (id Ident) Int() (int, error) {
	return strconv.Atoi(string(id))
}

// RawTerm is one entry of the term list. Dates are millisecond epochs.
type RawTerm struct {
	Ident     Ident  `json:"ident"`
	Semester  string `json:"semester"`
	StartDate int64  `json:"start_date"`
	EndDate   int64  `json:"end_date"`
}

// RawMeeting is one weekly meeting of a section. Times are minutes since
// midnight; Day is a single catalog letter (M T W R F S).
type RawMeeting struct {
	Day       string `json:"day"`
	StartTime int    `json:"start_time"`
	EndTime   int    `json:"end_time"`
	Location  string `json:"location"`
}

type RawInstructor struct {
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
}

// RawSection is one section record of a course.
type RawSection struct {
	CallNumber Ident          `json:"call_number"`
	Credits    int            `json:"credits"`
	Instructor *RawInstructor `json:"instructor"`
	Timeslots  []RawMeeting   `json:"timeslots"`
}

// RawScheduleCourse is a course entry of the user's saved schedule.
type RawScheduleCourse struct {
	CourseIdent Ident   `json:"course_ident"`
	MajorIdent  string  `json:"major_ident"`
	Sections    []Ident `json:"sections"`
}

type RawSchedule struct {
	Courses []RawScheduleCourse `json:"courses"`
}

type rawCourseInfo struct {
	Name string `json:"name"`
}
