package funcs

import (
	"context"
	"fmt"
	"time"

	"github.com/BTreeMap/FunnelPipe/internal/calendar"
	"github.com/BTreeMap/FunnelPipe/internal/models"
)

// MockNotifier records every emitted event for assertions.
type MockNotifier struct {
	emitted []MockEmittedEvent
	failErr error
}

// MockEmittedEvent is one recorded broadcast.
type MockEmittedEvent struct {
	CompanyID string
	Event     string
	Payload   interface{}
}

// EmitToCompany records the event, or fails when configured to.
func (m *MockNotifier) EmitToCompany(ctx context.Context, companyID, event string, payload interface{}) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.emitted = append(m.emitted, MockEmittedEvent{CompanyID: companyID, Event: event, Payload: payload})
	return nil
}

// MockCalendarProvider implements calendar.Provider with configurable
// responses for testing.
type MockCalendarProvider struct {
	slots  []calendar.TimeSlot
	events []calendar.Event

	createdEvents []calendar.CreateEventInput
	deletedIDs    []string
	updatedIDs    []string

	failErr error

	// lastSlotQuery records the window of the most recent availability call.
	lastSlotQuery struct {
		calendarID  string
		start, end  time.Time
		slotMinutes int
	}
}

func (m *MockCalendarProvider) GetAvailableSlots(ctx context.Context, calendarID string, start, end time.Time, slotMinutes int) ([]calendar.TimeSlot, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	m.lastSlotQuery.calendarID = calendarID
	m.lastSlotQuery.start = start
	m.lastSlotQuery.end = end
	m.lastSlotQuery.slotMinutes = slotMinutes
	return m.slots, nil
}

func (m *MockCalendarProvider) CreateEvent(ctx context.Context, in calendar.CreateEventInput) (*calendar.Event, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	m.createdEvents = append(m.createdEvents, in)
	ev := calendar.Event{
		ID:        fmt.Sprintf("ev-%d", len(m.createdEvents)),
		Title:     in.Title,
		Start:     in.Start,
		End:       in.Start.Add(time.Duration(in.DurationMinutes) * time.Minute),
		Attendees: in.Attendees,
	}
	m.events = append(m.events, ev)
	return &ev, nil
}

func (m *MockCalendarProvider) UpdateEvent(ctx context.Context, calendarID, eventID string, changes calendar.EventChanges) (*calendar.Event, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	for i := range m.events {
		if m.events[i].ID != eventID {
			continue
		}
		ev := &m.events[i]
		duration := ev.End.Sub(ev.Start)
		if changes.DurationMinutes != nil {
			duration = time.Duration(*changes.DurationMinutes) * time.Minute
		}
		if changes.Start != nil {
			ev.Start = *changes.Start
		}
		ev.End = ev.Start.Add(duration)
		if changes.Title != nil {
			ev.Title = *changes.Title
		}
		m.updatedIDs = append(m.updatedIDs, eventID)
		return ev, nil
	}
	return nil, fmt.Errorf("event %s not found", eventID)
}

func (m *MockCalendarProvider) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.deletedIDs = append(m.deletedIDs, eventID)
	return nil
}

func (m *MockCalendarProvider) FindEventsByDate(ctx context.Context, calendarID string, date time.Time) ([]calendar.Event, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	var out []calendar.Event
	for _, ev := range m.events {
		if ev.Start.Year() == date.Year() && ev.Start.YearDay() == date.YearDay() {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *MockCalendarProvider) FindEventsByDateRange(ctx context.Context, calendarID string, start, end time.Time) ([]calendar.Event, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	var out []calendar.Event
	for _, ev := range m.events {
		if !ev.Start.Before(start) && ev.Start.Before(end) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// MockSheetsProvider implements sheets.Provider backed by an in-memory grid.
type MockSheetsProvider struct {
	rows    [][]interface{}
	failErr error
}

func (m *MockSheetsProvider) ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	if len(m.rows) == 0 {
		return nil, nil
	}
	return m.rows[:1], nil
}

func (m *MockSheetsProvider) AppendRow(ctx context.Context, spreadsheetID string, values []interface{}) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.rows = append(m.rows, values)
	return nil
}

// newTestProgression builds an ACTIVE progression with sensible defaults.
func newTestProgression(id, clientID, stageID, funnelID, channelID string, createdAt time.Time) models.ClientProgression {
	return models.ClientProgression{
		ID:              id,
		ClientID:        clientID,
		StageID:         stageID,
		FunnelChannelID: funnelID + ":" + channelID,
		FunnelID:        funnelID,
		ChannelID:       channelID,
		Status:          models.ProgressionStatusActive,
		LastInteraction: createdAt,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}
