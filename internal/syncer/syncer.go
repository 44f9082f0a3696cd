// Package syncer runs the course-to-calendar pipeline: select the term,
// fetch its courses, plan one recurring event per meeting pattern and emit
// every event to the configured sinks.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursecal/internal/courseoff"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/planner"
)

// Catalog is the course-catalog side of a run.
type Catalog interface {
	Terms(ctx context.Context) (map[string]model.Term, error)
	Courses(ctx context.Context, term model.Term) ([]model.Course, error)
}

// Sink receives planned events. Emit returns a reference to the created
// entry (a link, a UID).
type Sink interface {
	Emit(ctx context.Context, req model.EventRequest) (string, error)
}

// Emitted records one event pushed to every sink.
type Emitted struct {
	Course  model.Course
	Request model.EventRequest
	Refs    []string
}

// Result summarizes a successful run.
type Result struct {
	Term    model.Term
	Courses []model.Course
	Events  []Emitted
}

type Syncer struct {
	catalog Catalog
	sinks   []Sink
	loc     *time.Location
}

// New returns a Syncer creating events in loc.
func New(catalog Catalog, loc *time.Location, sinks ...Sink) (*Syncer, error) {
	if catalog == nil {
		return nil, errors.New("syncer: catalog is nil")
	}
	if loc == nil {
		return nil, errors.New("syncer: location is nil")
	}
	return &Syncer{catalog: catalog, sinks: sinks, loc: loc}, nil
}

// Run syncs termName. The first error aborts the run; events already
// emitted are not rolled back.
func (s *Syncer) Run(ctx context.Context, termName string) (Result, error) {
	var res Result

	terms, err := s.catalog.Terms(ctx)
	if err != nil {
		return res, err
	}
	term, err := courseoff.SelectTerm(terms, termName)
	if err != nil {
		return res, err
	}
	res.Term = term
	appLog.Info("term selected",
		"term", term.Name,
		"start", term.Start.Format(time.DateOnly),
		"end", term.End.Format(time.DateOnly),
	)

	courses, err := s.catalog.Courses(ctx, term)
	if err != nil {
		return res, err
	}
	res.Courses = courses
	appLog.Info("courses fetched", "term", term.Name, "course_count", len(courses))

	for _, course := range courses {
		reqs, err := planner.PlanCourse(course, term, s.loc)
		if err != nil {
			return res, fmt.Errorf("plan %s: %w", course, err)
		}
		if len(reqs) == 0 {
			appLog.Info("course has no meetings, skipping", "course", course.String(), "crn", course.SectionID)
			continue
		}

		for _, req := range reqs {
			logPlan(course, req)

			em := Emitted{Course: course, Request: req}
			for _, sink := range s.sinks {
				ref, err := sink.Emit(ctx, req)
				if err != nil {
					return res, fmt.Errorf("emit %s: %w", course, err)
				}
				em.Refs = append(em.Refs, ref)
			}
			res.Events = append(res.Events, em)
		}
	}

	appLog.Info("sync complete", "term", term.Name, "course_count", len(courses), "event_count", len(res.Events))
	return res, nil
}

func logPlan(course model.Course, req model.EventRequest) {
	occ, err := planner.Occurrences(req)
	if err != nil || len(occ) == 0 {
		appLog.Debug("event planned", "course", course.String(), "start", req.Start.Format(time.RFC3339))
		return
	}
	appLog.Debug("event planned",
		"course", course.String(),
		"start", req.Start.Format(time.RFC3339),
		"occurrences", len(occ),
		"last", occ[len(occ)-1].Format(time.DateOnly),
	)
}
