// Package calendar provides the Google Calendar implementation of Provider.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Opts holds configuration options for the Google Calendar provider.
type Opts struct {
	CredentialsFile string
	TokenSource     oauth2.TokenSource
}

// Option defines a functional option for configuring the provider.
type Option func(*Opts)

// WithCredentialsFile authenticates with a service-account credentials file.
func WithCredentialsFile(path string) Option {
	return func(o *Opts) { o.CredentialsFile = path }
}

// WithTokenSource authenticates with a tenant-scoped OAuth token source.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(o *Opts) { o.TokenSource = ts }
}

// GoogleProvider implements Provider on top of the Google Calendar API.
type GoogleProvider struct {
	svc *gcal.Service
}

// NewGoogleProvider creates a Google Calendar provider.
func NewGoogleProvider(ctx context.Context, opts ...Option) (*GoogleProvider, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	var clientOpts []option.ClientOption
	switch {
	case cfg.TokenSource != nil:
		clientOpts = append(clientOpts, option.WithTokenSource(cfg.TokenSource))
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, fmt.Errorf("calendar credentials not configured")
	}
	svc, err := gcal.NewService(ctx, clientOpts...)
	if err != nil {
		slog.Error("GoogleProvider.NewGoogleProvider: failed to create calendar service", "error", err)
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleProvider{svc: svc}, nil
}

// GetAvailableSlots queries free/busy for the window and returns the gaps
// between busy periods that are at least slotMinutes long.
func (g *GoogleProvider) GetAvailableSlots(ctx context.Context, calendarID string, start, end time.Time, slotMinutes int) ([]TimeSlot, error) {
	req := &gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}
	resp, err := g.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		slog.Error("GoogleProvider.GetAvailableSlots: freebusy query failed", "error", err, "calendarID", calendarID)
		return nil, fmt.Errorf("freebusy query failed: %w", err)
	}
	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("calendar %s missing from freebusy response", calendarID)
	}

	minSlot := time.Duration(slotMinutes) * time.Minute
	var slots []TimeSlot
	cursor := start
	for _, busy := range cal.Busy {
		busyStart, err := time.Parse(time.RFC3339, busy.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid busy start %q: %w", busy.Start, err)
		}
		busyEnd, err := time.Parse(time.RFC3339, busy.End)
		if err != nil {
			return nil, fmt.Errorf("invalid busy end %q: %w", busy.End, err)
		}
		if busyStart.Sub(cursor) >= minSlot {
			slots = append(slots, TimeSlot{Start: cursor, End: busyStart})
		}
		if busyEnd.After(cursor) {
			cursor = busyEnd
		}
	}
	if end.Sub(cursor) >= minSlot {
		slots = append(slots, TimeSlot{Start: cursor, End: end})
	}
	slog.Debug("GoogleProvider.GetAvailableSlots succeeded", "calendarID", calendarID, "slots", len(slots))
	return slots, nil
}

// CreateEvent books a new event and returns it with the provider-assigned id.
func (g *GoogleProvider) CreateEvent(ctx context.Context, in CreateEventInput) (*Event, error) {
	end := in.Start.Add(time.Duration(in.DurationMinutes) * time.Minute)
	ev := &gcal.Event{
		Summary:     in.Title,
		Description: in.Description,
		Start:       &gcal.EventDateTime{DateTime: in.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
	for _, email := range in.Attendees {
		ev.Attendees = append(ev.Attendees, &gcal.EventAttendee{Email: email})
	}
	created, err := g.svc.Events.Insert(in.CalendarID, ev).Context(ctx).Do()
	if err != nil {
		slog.Error("GoogleProvider.CreateEvent failed", "error", err, "calendarID", in.CalendarID)
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	result, err := fromGoogleEvent(created)
	if err != nil {
		return nil, err
	}
	slog.Info("GoogleProvider.CreateEvent succeeded", "calendarID", in.CalendarID, "eventID", result.ID)
	return result, nil
}

// UpdateEvent applies a partial update to an event.
func (g *GoogleProvider) UpdateEvent(ctx context.Context, calendarID, eventID string, changes EventChanges) (*Event, error) {
	existing, err := g.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		slog.Error("GoogleProvider.UpdateEvent: failed to load event", "error", err, "eventID", eventID)
		return nil, fmt.Errorf("failed to load event %s: %w", eventID, err)
	}
	current, err := fromGoogleEvent(existing)
	if err != nil {
		return nil, err
	}

	patch := &gcal.Event{}
	if changes.Title != nil {
		patch.Summary = *changes.Title
	}
	if changes.Description != nil {
		patch.Description = *changes.Description
	}
	if changes.Start != nil || changes.DurationMinutes != nil {
		start := current.Start
		if changes.Start != nil {
			start = *changes.Start
		}
		duration := current.End.Sub(current.Start)
		if changes.DurationMinutes != nil {
			duration = time.Duration(*changes.DurationMinutes) * time.Minute
		}
		patch.Start = &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)}
		patch.End = &gcal.EventDateTime{DateTime: start.Add(duration).Format(time.RFC3339)}
	}

	updated, err := g.svc.Events.Patch(calendarID, eventID, patch).Context(ctx).Do()
	if err != nil {
		slog.Error("GoogleProvider.UpdateEvent failed", "error", err, "eventID", eventID)
		return nil, fmt.Errorf("failed to update event %s: %w", eventID, err)
	}
	return fromGoogleEvent(updated)
}

// DeleteEvent removes an event.
func (g *GoogleProvider) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		slog.Error("GoogleProvider.DeleteEvent failed", "error", err, "eventID", eventID)
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}
	slog.Info("GoogleProvider.DeleteEvent succeeded", "calendarID", calendarID, "eventID", eventID)
	return nil
}

// FindEventsByDate returns all events whose start falls on the given day.
func (g *GoogleProvider) FindEventsByDate(ctx context.Context, calendarID string, date time.Time) ([]Event, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return g.FindEventsByDateRange(ctx, calendarID, dayStart, dayStart.AddDate(0, 0, 1))
}

// FindEventsByDateRange returns all events starting within [start, end).
func (g *GoogleProvider) FindEventsByDateRange(ctx context.Context, calendarID string, start, end time.Time) ([]Event, error) {
	call := g.svc.Events.List(calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	resp, err := call.Context(ctx).Do()
	if err != nil {
		slog.Error("GoogleProvider.FindEventsByDateRange failed", "error", err, "calendarID", calendarID)
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	var events []Event
	for _, item := range resp.Items {
		ev, err := fromGoogleEvent(item)
		if err != nil {
			slog.Warn("GoogleProvider.FindEventsByDateRange: skipping unparsable event", "error", err, "eventID", item.Id)
			continue
		}
		events = append(events, *ev)
	}
	return events, nil
}

// fromGoogleEvent converts a Google Calendar event into the provider-neutral shape.
func fromGoogleEvent(ev *gcal.Event) (*Event, error) {
	start, err := parseEventTime(ev.Start)
	if err != nil {
		return nil, fmt.Errorf("event %s has invalid start: %w", ev.Id, err)
	}
	end, err := parseEventTime(ev.End)
	if err != nil {
		return nil, fmt.Errorf("event %s has invalid end: %w", ev.Id, err)
	}
	out := &Event{
		ID:          ev.Id,
		Title:       ev.Summary,
		Description: ev.Description,
		Start:       start,
		End:         end,
	}
	for _, a := range ev.Attendees {
		out.Attendees = append(out.Attendees, a.Email)
	}
	return out, nil
}

// parseEventTime handles both timed (DateTime) and all-day (Date) events.
func parseEventTime(edt *gcal.EventDateTime) (time.Time, error) {
	if edt == nil {
		return time.Time{}, fmt.Errorf("missing event time")
	}
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	return time.Parse("2006-01-02", edt.Date)
}
