// Package funcs provides the calendar event creation function implementation.
package funcs

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/FunnelPipe/internal/calendar"
	"github.com/BTreeMap/FunnelPipe/internal/models"
)

// DefaultEventTitle applies when the LLM supplies no title for a new event.
const DefaultEventTitle = "Meeting"

// CalendarCreateEventTool books appointments.
type CalendarCreateEventTool struct {
	provider calendar.Provider
}

// NewCalendarCreateEventTool creates a new event-creation implementation.
func NewCalendarCreateEventTool(provider calendar.Provider) *CalendarCreateEventTool {
	return &CalendarCreateEventTool{provider: provider}
}

// Execute books an event. The start accepts either a combined ISO startTime or
// a separate date+time pair; formats are checked locally so a bad argument
// fails fast instead of surfacing as a provider-side format error.
func (t *CalendarCreateEventTool) Execute(ctx context.Context, def *models.FunctionDefinition, args map[string]interface{}, execCtx models.ExecutionContext) (models.FunctionResult, error) {
	calendarID := def.ConstData.Calendar.CalendarID

	start, result := resolveStart(args)
	if result != nil {
		return *result, nil
	}

	durationMinutes, err := normalizeDuration(args["durationMinutes"], DefaultEventDurationMinutes)
	if err != nil {
		return models.FunctionFailure(models.StepMissingData, err.Error(), nil), nil
	}

	title := stringArg(args, "title")
	if title == "" {
		title = DefaultEventTitle
	}

	in := calendar.CreateEventInput{
		CalendarID:      calendarID,
		Title:           title,
		Description:     stringArg(args, "description"),
		Start:           start,
		DurationMinutes: durationMinutes,
	}
	// Attendees only when the caller actually supplied an email.
	if email := stringArg(args, "email"); email != "" {
		in.Attendees = []string{email}
	}

	created, err := t.provider.CreateEvent(ctx, in)
	if err != nil {
		slog.Error("CalendarCreateEventTool.Execute: provider call failed",
			"error", err, "calendarID", calendarID, "title", title)
		return models.FunctionFailure(models.StepProviderError, err.Error(), nil), nil
	}

	slog.Info("CalendarCreateEventTool.Execute: event created",
		"calendarID", calendarID, "eventID", created.ID, "title", created.Title,
		"start", created.Start.Format(time.RFC3339))

	return models.FunctionSuccess(map[string]interface{}{
		"step":    models.StepCompleted,
		"eventId": created.ID,
		"title":   created.Title,
		"start":   created.Start.Format(time.RFC3339),
		"end":     created.End.Format(time.RFC3339),
	}), nil
}

// resolveStart derives the event start from either a combined ISO startTime or
// a date+time pair. Returns a failure result when neither form is valid.
func resolveStart(args map[string]interface{}) (time.Time, *models.FunctionResult) {
	if startStr := stringArg(args, "startTime"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			fail := models.FunctionFailure(models.StepInvalidDate,
				"startTime must be an ISO 8601 timestamp", nil)
			return time.Time{}, &fail
		}
		return start, nil
	}

	dateStr := stringArg(args, "date")
	timeStr := stringArg(args, "time")
	if dateStr == "" || timeStr == "" {
		fail := models.FunctionFailure(models.StepMissingData,
			"either startTime or both date and time are required", nil)
		return time.Time{}, &fail
	}
	date, err := parseDate(dateStr)
	if err != nil {
		fail := models.FunctionFailure(models.StepInvalidDate, err.Error(), nil)
		return time.Time{}, &fail
	}
	hour, minute, err := parseClock(timeStr)
	if err != nil {
		fail := models.FunctionFailure(models.StepInvalidTime, err.Error(), nil)
		return time.Time{}, &fail
	}
	return combineDateClock(date, hour, minute), nil
}
