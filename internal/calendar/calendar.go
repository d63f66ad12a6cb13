// Package calendar defines the calendar capability consumed by the function
// engine, plus the Google Calendar adapter.
//
// The engine only ever talks to Provider; swapping the backing service does
// not touch any call site.
package calendar

import (
	"context"
	"time"
)

// TimeSlot is one bookable window returned by availability queries.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Event is a provider-neutral calendar event.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// CreateEventInput carries everything needed to book a new event.
type CreateEventInput struct {
	CalendarID      string
	Title           string
	Description     string
	Start           time.Time
	DurationMinutes int
	Attendees       []string
}

// EventChanges describes a partial update to an existing event. Nil fields are
// left untouched.
type EventChanges struct {
	Title           *string
	Start           *time.Time
	DurationMinutes *int
	Description     *string
}

// Provider is the calendar capability interface.
type Provider interface {
	// GetAvailableSlots returns free windows of at least slotMinutes between
	// start and end.
	GetAvailableSlots(ctx context.Context, calendarID string, start, end time.Time, slotMinutes int) ([]TimeSlot, error)
	// CreateEvent books a new event and returns it with the provider-assigned id.
	CreateEvent(ctx context.Context, in CreateEventInput) (*Event, error)
	// UpdateEvent applies a partial update to an event.
	UpdateEvent(ctx context.Context, calendarID, eventID string, changes EventChanges) (*Event, error)
	// DeleteEvent removes an event.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	// FindEventsByDate returns all events whose start falls on the given day.
	FindEventsByDate(ctx context.Context, calendarID string, date time.Time) ([]Event, error)
	// FindEventsByDateRange returns all events starting within [start, end).
	FindEventsByDateRange(ctx context.Context, calendarID string, start, end time.Time) ([]Event, error)
}
