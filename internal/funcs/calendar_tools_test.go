package funcs

import (
	"context"
	"testing"
	"time"

	"github.com/BTreeMap/FunnelPipe/internal/calendar"
	"github.com/BTreeMap/FunnelPipe/internal/models"
)

func calendarDef(action models.CalendarAction) *models.FunctionDefinition {
	return &models.FunctionDefinition{
		ID:        "fn-cal",
		CompanyID: "acme",
		Kind:      models.FunctionKindGoogleCalendar,
		ConstData: models.ConstData{Calendar: &models.CalendarConst{Action: action, CalendarID: "cal-1"}},
	}
}

func calExecCtx() models.ExecutionContext {
	return models.ExecutionContext{CompanyID: "acme", ClientID: "client-1"}
}

func localDate(y int, m time.Month, d, hour, minute int) time.Time {
	return time.Date(y, m, d, hour, minute, 0, 0, time.Local)
}

func TestAvailabilityDefaultsToOneDayWindow(t *testing.T) {
	provider := &MockCalendarProvider{slots: []calendar.TimeSlot{
		{Start: localDate(2024, 3, 20, 9, 0), End: localDate(2024, 3, 20, 10, 0)},
	}}
	tool := NewCalendarAvailabilityTool(provider)

	result, err := tool.Execute(context.Background(), calendarDef(models.CalendarActionGetAvailability),
		map[string]interface{}{"date": "2024-03-20", "duration": "2h"}, calExecCtx())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Data["date"] != "2024-03-20" || result.Data["endDate"] != "2024-03-21" {
		t.Errorf("unexpected window: %v", result.Data)
	}
	if result.Data["durationMinutes"] != 120 {
		t.Errorf("expected 120 minutes, got %v", result.Data["durationMinutes"])
	}
	if provider.lastSlotQuery.slotMinutes != 120 {
		t.Errorf("provider queried with %d minutes", provider.lastSlotQuery.slotMinutes)
	}
	if got := provider.lastSlotQuery.end.Sub(provider.lastSlotQuery.start); got != 24*time.Hour {
		t.Errorf("expected one-day window, got %v", got)
	}
}

func TestAvailabilityValidatesArguments(t *testing.T) {
	tool := NewCalendarAvailabilityTool(&MockCalendarProvider{})
	def := calendarDef(models.CalendarActionGetAvailability)

	result, _ := tool.Execute(context.Background(), def, map[string]interface{}{}, calExecCtx())
	if result.Success || result.Data["step"] != models.StepMissingData {
		t.Errorf("expected missing_data without date, got %+v", result)
	}

	result, _ = tool.Execute(context.Background(), def,
		map[string]interface{}{"date": "tomorrow"}, calExecCtx())
	if result.Success || result.Data["step"] != models.StepInvalidDate {
		t.Errorf("expected invalid_date, got %+v", result)
	}

	// endDate before date is rejected, not silently swapped.
	result, _ = tool.Execute(context.Background(), def,
		map[string]interface{}{"date": "2024-03-20", "endDate": "2024-03-19"}, calExecCtx())
	if result.Success || result.Data["step"] != models.StepInvalidDate {
		t.Errorf("expected invalid_date for inverted window, got %+v", result)
	}
}

func TestCreateEventFromDateAndTime(t *testing.T) {
	provider := &MockCalendarProvider{}
	tool := NewCalendarCreateEventTool(provider)

	result, err := tool.Execute(context.Background(), calendarDef(models.CalendarActionCreateEvent),
		map[string]interface{}{
			"title":           "Demo call",
			"date":            "2024-03-20",
			"time":            "14:30",
			"durationMinutes": float64(90),
			"email":           "client@example.com",
		}, calExecCtx())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if len(provider.createdEvents) != 1 {
		t.Fatalf("expected one created event, got %d", len(provider.createdEvents))
	}
	created := provider.createdEvents[0]
	if !created.Start.Equal(localDate(2024, 3, 20, 14, 30)) {
		t.Errorf("unexpected start: %v", created.Start)
	}
	if created.DurationMinutes != 90 {
		t.Errorf("expected 90 minutes, got %d", created.DurationMinutes)
	}
	if len(created.Attendees) != 1 || created.Attendees[0] != "client@example.com" {
		t.Errorf("unexpected attendees: %v", created.Attendees)
	}

	// End must be start plus duration.
	wantEnd := localDate(2024, 3, 20, 16, 0).Format(time.RFC3339)
	if result.Data["end"] != wantEnd {
		t.Errorf("expected end %s, got %v", wantEnd, result.Data["end"])
	}
}

func TestCreateEventFromStartTimeAndDefaults(t *testing.T) {
	provider := &MockCalendarProvider{}
	tool := NewCalendarCreateEventTool(provider)

	result, err := tool.Execute(context.Background(), calendarDef(models.CalendarActionCreateEvent),
		map[string]interface{}{"startTime": "2024-03-20T14:30:00Z"}, calExecCtx())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	created := provider.createdEvents[0]
	if created.Title != DefaultEventTitle {
		t.Errorf("expected default title, got %q", created.Title)
	}
	if created.DurationMinutes != DefaultEventDurationMinutes {
		t.Errorf("expected default duration, got %d", created.DurationMinutes)
	}
	if len(created.Attendees) != 0 {
		t.Errorf("expected no attendees without email, got %v", created.Attendees)
	}
}

func TestCreateEventFailsFastOnBadFormats(t *testing.T) {
	provider := &MockCalendarProvider{}
	tool := NewCalendarCreateEventTool(provider)
	def := calendarDef(models.CalendarActionCreateEvent)

	tests := []struct {
		name string
		args map[string]interface{}
		step string
	}{
		{"no start at all", map[string]interface{}{"title": "x"}, models.StepMissingData},
		{"bad iso timestamp", map[string]interface{}{"startTime": "soon"}, models.StepInvalidDate},
		{"bad date", map[string]interface{}{"date": "20/03/2024", "time": "14:30"}, models.StepInvalidDate},
		{"bad time", map[string]interface{}{"date": "2024-03-20", "time": "25:00"}, models.StepInvalidTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Execute(context.Background(), def, tt.args, calExecCtx())
			if err != nil {
				t.Fatalf("Execute returned error: %v", err)
			}
			if result.Success || result.Data["step"] != tt.step {
				t.Errorf("expected step %q, got %+v", tt.step, result)
			}
		})
	}
	// No provider call may have happened for any of the rejected inputs.
	if len(provider.createdEvents) != 0 {
		t.Errorf("provider was called despite invalid arguments: %v", provider.createdEvents)
	}
}

func TestUpdateEventReschedules(t *testing.T) {
	provider := &MockCalendarProvider{events: []calendar.Event{
		{ID: "ev-1", Title: "Demo call", Start: localDate(2024, 3, 20, 14, 0), End: localDate(2024, 3, 20, 15, 0)},
	}}
	tool := NewCalendarUpdateEventTool(provider)

	// Title match is case-insensitive.
	result, err := tool.Execute(context.Background(), calendarDef(models.CalendarActionUpdateEvent),
		map[string]interface{}{"title": "demo CALL", "date": "2024-03-20", "newTime": "16:00"}, calExecCtx())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if provider.events[0].Start != localDate(2024, 3, 20, 16, 0) {
		t.Errorf("event was not rescheduled: %v", provider.events[0].Start)
	}
	// Duration is preserved when only the start moves.
	if provider.events[0].End != localDate(2024, 3, 20, 17, 0) {
		t.Errorf("duration changed: end %v", provider.events[0].End)
	}
}

func TestUpdateEventRequiresSomeChange(t *testing.T) {
	provider := &MockCalendarProvider{events: []calendar.Event{
		{ID: "ev-1", Title: "Demo call", Start: localDate(2024, 3, 20, 14, 0), End: localDate(2024, 3, 20, 15, 0)},
	}}
	tool := NewCalendarUpdateEventTool(provider)

	result, _ := tool.Execute(context.Background(), calendarDef(models.CalendarActionUpdateEvent),
		map[string]interface{}{"title": "Demo call", "date": "2024-03-20"}, calExecCtx())
	if result.Success || result.Data["step"] != models.StepMissingData {
		t.Errorf("expected missing_data for a no-op update, got %+v", result)
	}
}

func TestEventLookupMissSemantics(t *testing.T) {
	provider := &MockCalendarProvider{events: []calendar.Event{
		{ID: "ev-1", Title: "Demo call", Start: localDate(2024, 3, 20, 14, 0), End: localDate(2024, 3, 20, 15, 0)},
	}}
	updateTool := NewCalendarUpdateEventTool(provider)
	deleteTool := NewCalendarDeleteEventTool(provider)

	// A day with no events at all.
	result, _ := updateTool.Execute(context.Background(), calendarDef(models.CalendarActionUpdateEvent),
		map[string]interface{}{"title": "Demo call", "date": "2024-03-21", "newTime": "16:00"}, calExecCtx())
	if result.Success || result.Data["step"] != models.StepNoEvents {
		t.Errorf("expected no_events, got %+v", result)
	}

	// A day with events, none matching: the candidates come back for the
	// agent's clarifying question.
	result, _ = deleteTool.Execute(context.Background(), calendarDef(models.CalendarActionDeleteEvent),
		map[string]interface{}{"title": "Kickoff", "date": "2024-03-20"}, calExecCtx())
	if result.Success || result.Data["step"] != models.StepEventNotFound {
		t.Errorf("expected event_not_found, got %+v", result)
	}
	candidates, ok := result.Data["candidates"].([]map[string]interface{})
	if !ok || len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %v", result.Data["candidates"])
	}
	if candidates[0]["title"] != "Demo call" {
		t.Errorf("unexpected candidate: %v", candidates[0])
	}
	if len(provider.deletedIDs) != 0 {
		t.Errorf("nothing should have been deleted, got %v", provider.deletedIDs)
	}
}

func TestDeleteEvent(t *testing.T) {
	provider := &MockCalendarProvider{events: []calendar.Event{
		{ID: "ev-1", Title: "Demo call", Start: localDate(2024, 3, 20, 14, 0), End: localDate(2024, 3, 20, 15, 0)},
	}}
	tool := NewCalendarDeleteEventTool(provider)

	result, err := tool.Execute(context.Background(), calendarDef(models.CalendarActionDeleteEvent),
		map[string]interface{}{"title": "Demo call", "date": "2024-03-20"}, calExecCtx())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Data["deletedEventId"] != "ev-1" {
		t.Errorf("unexpected result data: %v", result.Data)
	}
	if len(provider.deletedIDs) != 1 || provider.deletedIDs[0] != "ev-1" {
		t.Errorf("expected ev-1 deleted, got %v", provider.deletedIDs)
	}
}

func TestListEventsGroupsByDay(t *testing.T) {
	provider := &MockCalendarProvider{events: []calendar.Event{
		{ID: "ev-2", Title: "Afternoon", Start: localDate(2024, 3, 20, 15, 0), End: localDate(2024, 3, 20, 16, 0)},
		{ID: "ev-1", Title: "Morning", Start: localDate(2024, 3, 20, 9, 0), End: localDate(2024, 3, 20, 10, 0)},
		{ID: "ev-3", Title: "Next day", Start: localDate(2024, 3, 21, 9, 0), End: localDate(2024, 3, 21, 10, 0)},
	}}
	tool := NewCalendarListEventsTool(provider)

	// Inclusive range covering both days.
	result, err := tool.Execute(context.Background(), calendarDef(models.CalendarActionListEvents),
		map[string]interface{}{"startDate": "2024-03-20", "endDate": "2024-03-21"}, calExecCtx())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Data["total"] != 3 {
		t.Errorf("expected 3 events, got %v", result.Data["total"])
	}
	grouped := result.Data["events"].(map[string][]map[string]interface{})
	day := grouped["2024-03-20"]
	if len(day) != 2 {
		t.Fatalf("expected 2 events on 2024-03-20, got %d", len(day))
	}
	// Within a day, events are sorted by start time.
	if day[0]["title"] != "Morning" || day[1]["title"] != "Afternoon" {
		t.Errorf("events not sorted by start: %v", day)
	}
	if len(grouped["2024-03-21"]) != 1 {
		t.Errorf("expected 1 event on 2024-03-21, got %v", grouped["2024-03-21"])
	}
}

func TestListEventsSingleDay(t *testing.T) {
	provider := &MockCalendarProvider{events: []calendar.Event{
		{ID: "ev-1", Title: "Morning", Start: localDate(2024, 3, 20, 9, 0), End: localDate(2024, 3, 20, 10, 0)},
		{ID: "ev-3", Title: "Next day", Start: localDate(2024, 3, 21, 9, 0), End: localDate(2024, 3, 21, 10, 0)},
	}}
	tool := NewCalendarListEventsTool(provider)

	result, err := tool.Execute(context.Background(), calendarDef(models.CalendarActionListEvents),
		map[string]interface{}{"date": "2024-03-20"}, calExecCtx())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Data["total"] != 1 {
		t.Errorf("expected 1 event, got %v", result.Data["total"])
	}
}

func TestListEventsCurrentWeek(t *testing.T) {
	// Wednesday 2024-03-20; the containing week runs Monday 18th to Sunday 24th.
	provider := &MockCalendarProvider{events: []calendar.Event{
		{ID: "ev-mon", Title: "In week", Start: localDate(2024, 3, 18, 9, 0), End: localDate(2024, 3, 18, 10, 0)},
		{ID: "ev-sun", Title: "In week too", Start: localDate(2024, 3, 24, 9, 0), End: localDate(2024, 3, 24, 10, 0)},
		{ID: "ev-next", Title: "Next week", Start: localDate(2024, 3, 25, 9, 0), End: localDate(2024, 3, 25, 10, 0)},
	}}
	tool := NewCalendarListEventsTool(provider)
	tool.now = func() time.Time { return localDate(2024, 3, 20, 11, 30) }

	// "semana" is accepted alongside "week".
	for _, period := range []string{"week", "semana"} {
		result, err := tool.Execute(context.Background(), calendarDef(models.CalendarActionListEvents),
			map[string]interface{}{"period": period}, calExecCtx())
		if err != nil {
			t.Fatalf("Execute returned error: %v", err)
		}
		if result.Data["total"] != 2 {
			t.Errorf("period %q: expected 2 events, got %v", period, result.Data["total"])
		}
		if result.Data["startDate"] != "2024-03-18" {
			t.Errorf("period %q: expected week start 2024-03-18, got %v", period, result.Data["startDate"])
		}
	}
}

func TestListEventsRequiresSomeRange(t *testing.T) {
	tool := NewCalendarListEventsTool(&MockCalendarProvider{})

	result, _ := tool.Execute(context.Background(), calendarDef(models.CalendarActionListEvents),
		map[string]interface{}{}, calExecCtx())
	if result.Success || result.Data["step"] != models.StepMissingData {
		t.Errorf("expected missing_data without any range, got %+v", result)
	}
}
