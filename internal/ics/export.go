// Package ics writes planned course events to an iCalendar file so they
// can be imported into calendars other than Google's.
package ics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

const (
	productID   = "-//coursecal//course schedule//EN"
	localLayout = "20060102T150405"
)

// Exporter collects event requests and writes them as one VCALENDAR.
type Exporter struct {
	path string
	cal  *ical.Calendar
	now  func() time.Time

	count int
}

// NewExporter returns an Exporter that writes to path on Close.
func NewExporter(path string) *Exporter {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	return &Exporter{path: path, cal: cal, now: time.Now}
}

// Emit adds req as a VEVENT and returns its UID.
func (e *Exporter) Emit(_ context.Context, req model.EventRequest) (string, error) {
	if req.Summary == "" {
		return "", errors.New("ics: event has no summary")
	}

	uid := uuid.NewString() + "@coursecal"
	ev := e.cal.AddEvent(uid)
	ev.SetDtStampTime(e.now())
	ev.SetSummary(req.Summary)
	setLocalTime(ev, ical.ComponentPropertyDtStart, req.Start, req.TimeZone)
	setLocalTime(ev, ical.ComponentPropertyDtEnd, req.End, req.TimeZone)

	for _, line := range req.Recurrence {
		if rule, ok := strings.CutPrefix(line, "RRULE:"); ok {
			ev.AddRrule(rule)
		}
	}
	if req.Location != "" {
		ev.SetLocation(req.Location)
	}
	if req.Description != "" {
		ev.SetDescription(req.Description)
	}

	e.count++
	return uid, nil
}

// setLocalTime writes t as a floating local time tagged with tzid, so the
// recurrence keeps its wall-clock time across DST changes.
func setLocalTime(ev *ical.VEvent, prop ical.ComponentProperty, t time.Time, tzid string) {
	if tzid == "" {
		ev.SetProperty(prop, t.UTC().Format(localLayout)+"Z")
		return
	}
	ev.SetProperty(prop, t.Format(localLayout), &ical.KeyValues{
		Key:   string(ical.ParameterTzid),
		Value: []string{tzid},
	})
}

// Serialize renders the collected events.
func (e *Exporter) Serialize() string {
	return e.cal.Serialize()
}

// Close writes the calendar atomically with 0644 permissions.
func (e *Exporter) Close() error {
	dir := filepath.Dir(e.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".coursecal-*.ics.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(e.Serialize()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, e.path); err != nil {
		return err
	}

	appLog.Info("ics export written", "path", e.path, "event_count", e.count)
	return nil
}
