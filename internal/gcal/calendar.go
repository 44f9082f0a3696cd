// Package gcal authorizes against Google Calendar and inserts recurring
// course events into it.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"coursecal/internal/apperr"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

// DefaultCalendarID targets the user's primary calendar.
const DefaultCalendarID = "primary"

// Client inserts events into one calendar. It must be closed when the run
// ends.
type Client struct {
	svc        *calendar.Service
	httpClient *http.Client
	calendarID string
}

// NewClient builds a Client authorized with tok.
func NewClient(ctx context.Context, oc *oauth2.Config, tok *oauth2.Token, calendarID string) (*Client, error) {
	return NewClientWithHTTP(ctx, oc.Client(ctx, tok), calendarID)
}

// NewClientWithHTTP builds a Client over an already authorized HTTP client.
// Extra options (e.g. option.WithEndpoint) are passed to the service.
func NewClientWithHTTP(ctx context.Context, hc *http.Client, calendarID string, opts ...option.ClientOption) (*Client, error) {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(hc)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return &Client{svc: svc, httpClient: hc, calendarID: calendarID}, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Emit creates one recurring event and returns its HTML link.
func (c *Client) Emit(ctx context.Context, req model.EventRequest) (string, error) {
	ev := toEvent(req)
	created, err := c.svc.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
			return "", fmt.Errorf("%w: insert %q: %v", apperr.ErrAuthenticationFailed, req.Summary, err)
		}
		return "", fmt.Errorf("%w: insert %q: %w", apperr.ErrFetchFailed, req.Summary, err)
	}
	appLog.Info("event created", "summary", req.Summary, "link", created.HtmlLink)
	return created.HtmlLink, nil
}

func toEvent(req model.EventRequest) *calendar.Event {
	ev := &calendar.Event{
		Summary: req.Summary,
		Start: &calendar.EventDateTime{
			DateTime: req.Start.Format(time.RFC3339),
			TimeZone: req.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: req.End.Format(time.RFC3339),
			TimeZone: req.TimeZone,
		},
		Recurrence: req.Recurrence,
	}
	if req.Location != "" {
		ev.Location = req.Location
	}
	if req.Description != "" {
		ev.Description = req.Description
	}
	return ev
}
