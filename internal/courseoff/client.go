// Package courseoff talks to the Courseoff course-catalog service and
// normalizes its raw schedule records into model values.
package courseoff

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"coursecal/internal/apperr"
	"coursecal/internal/credentials"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

const defaultTimeout = 30 * time.Second

// Config locates the catalog service.
type Config struct {
	// APIURL serves sign-in and saved schedules, e.g. "https://api.courseoff.com".
	APIURL string
	// SOCURL serves the schedule of classes, e.g. "https://soc.courseoff.com".
	SOCURL string
	// University is the catalog's university key, e.g. "uga".
	University string

	Timeout time.Duration

	// Location is used to turn term timestamps into calendar dates.
	Location *time.Location
}

// Session is an authenticated catalog session. It must be closed when the
// run ends.
type Session struct {
	cfg    Config
	client *http.Client
}

// Open signs in with creds and returns a session holding the login cookie.
func Open(ctx context.Context, cfg Config, creds credentials.Credentials) (*Session, error) {
	if cfg.APIURL == "" || cfg.SOCURL == "" || cfg.University == "" {
		return nil, errors.New("courseoff: api url, soc url and university are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.SOCURL = strings.TrimRight(cfg.SOCURL, "/")

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	s := &Session{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
	}

	if err := s.signIn(ctx, creds); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases idle connections held by the session.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

type signInRequest struct {
	User struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

func (s *Session) signIn(ctx context.Context, creds credentials.Credentials) error {
	var body signInRequest
	body.User.Email = creds.Email
	body.User.Password = creds.Password

	payload, err := json.Marshal(&body)
	if err != nil {
		return err
	}

	endpoint := s.cfg.APIURL + "/signin"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	appLog.Info("catalog sign-in", "url", redactURL(endpoint), "email", creds.Email)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sign-in: %w", apperr.ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: login unsuccessful (%s)", apperr.ErrAuthenticationFailed, resp.Status)
	}
	return nil
}

// Terms fetches and indexes the university's terms by name.
func (s *Session) Terms(ctx context.Context) (map[string]model.Term, error) {
	var raw []RawTerm
	if err := s.getJSON(ctx, s.socURL("terms"), &raw); err != nil {
		return nil, fmt.Errorf("terms: %w", err)
	}
	return ParseTerms(raw, s.cfg.Location)
}

// Courses fetches the user's saved schedule for term and resolves every
// course in it, one request at a time.
func (s *Session) Courses(ctx context.Context, term model.Term) ([]model.Course, error) {
	q := url.Values{}
	q.Set("university_id", s.cfg.University)
	q.Set("term_id", term.ID)
	endpoint := s.cfg.APIURL + "/schedules?" + q.Encode()

	var schedules []RawSchedule
	if err := s.getJSON(ctx, endpoint, &schedules); err != nil {
		return nil, fmt.Errorf("schedules for %s: %w", term.Name, err)
	}
	if len(schedules) == 0 {
		return nil, fmt.Errorf("%w: no saved schedule for %s", apperr.ErrFetchFailed, term.Name)
	}

	courses := make([]model.Course, 0, len(schedules[0].Courses))
	for _, rc := range schedules[0].Courses {
		if len(rc.Sections) == 0 {
			return nil, fmt.Errorf("%w: %s %s has no registered section", apperr.ErrSectionNotFound, rc.MajorIdent, rc.CourseIdent)
		}
		// The schedule lists the chosen section last.
		last := rc.Sections[len(rc.Sections)-1]
		crn, err := last.Int()
		if err != nil {
			return nil, fmt.Errorf("%w: section %q of %s %s", apperr.ErrParseFailed, last, rc.MajorIdent, rc.CourseIdent)
		}

		course, err := s.Course(ctx, term, rc.MajorIdent, string(rc.CourseIdent), crn)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// Course fetches the sections and display name of major/ident and builds
// the Course for section crn.
func (s *Session) Course(ctx context.Context, term model.Term, major, ident string, crn int) (model.Course, error) {
	base := s.socURL("terms", term.ID, "majors", major, "courses", ident)

	var sections []RawSection
	if err := s.getJSON(ctx, base+"/sections", &sections); err != nil {
		return model.Course{}, fmt.Errorf("sections for %s %s: %w", major, ident, err)
	}

	var info rawCourseInfo
	if err := s.getJSON(ctx, base, &info); err != nil {
		return model.Course{}, fmt.Errorf("name for %s %s: %w", major, ident, err)
	}
	if info.Name == "" {
		return model.Course{}, fmt.Errorf("%w: no name for %s %s", apperr.ErrFetchFailed, major, ident)
	}

	return ParseCourse(sections, info.Name, major, ident, crn)
}

func (s *Session) socURL(parts ...string) string {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, s.cfg.SOCURL, url.PathEscape(s.cfg.University))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return strings.Join(escaped, "/")
}

// getJSON performs a GET and decodes a 200 response into dst. Any other
// outcome is ErrFetchFailed.
func (s *Session) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	appLog.Debug("catalog fetch start", "url", redactURL(endpoint))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("%w: decode %s: %v", apperr.ErrFetchFailed, redactURL(endpoint), err)
		}
		appLog.Debug("catalog fetch success", "url", redactURL(endpoint), "status", resp.StatusCode)
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s: %s", apperr.ErrAuthenticationFailed, redactURL(endpoint), resp.Status)
	default:
		return fmt.Errorf("%w: %s: %s", apperr.ErrFetchFailed, redactURL(endpoint), resp.Status)
	}
}

// redactURL drops the query string so term ids and user ids stay out of logs.
func redactURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i] + "?...(redacted)"
	}
	return u
}
