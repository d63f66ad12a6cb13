// Package funcs provides the calendar event update function implementation.
package funcs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/FunnelPipe/internal/calendar"
	"github.com/BTreeMap/FunnelPipe/internal/models"
)

// CalendarUpdateEventTool reschedules or renames an existing appointment.
type CalendarUpdateEventTool struct {
	provider calendar.Provider
	locator  eventLocator
}

// NewCalendarUpdateEventTool creates a new event-update implementation.
func NewCalendarUpdateEventTool(provider calendar.Provider) *CalendarUpdateEventTool {
	return &CalendarUpdateEventTool{provider: provider, locator: &titleLocator{provider: provider}}
}

// Execute locates the target by title within the given day, then applies the
// requested changes. Zero or ambiguous matches come back with the day's
// candidates so the agent can ask a clarifying question.
func (t *CalendarUpdateEventTool) Execute(ctx context.Context, def *models.FunctionDefinition, args map[string]interface{}, execCtx models.ExecutionContext) (models.FunctionResult, error) {
	calendarID := def.ConstData.Calendar.CalendarID

	title := stringArg(args, "title")
	dateStr := stringArg(args, "date")
	if title == "" || dateStr == "" {
		return models.FunctionFailure(models.StepMissingData, "title and date are required", nil), nil
	}
	date, err := parseDate(dateStr)
	if err != nil {
		return models.FunctionFailure(models.StepInvalidDate, err.Error(), nil), nil
	}

	match, fail, err := locateEvent(ctx, t.locator, calendarID, title, date)
	if err != nil {
		return models.FunctionFailure(models.StepProviderError, err.Error(), nil), nil
	}
	if fail != nil {
		return *fail, nil
	}

	changes, result := buildEventChanges(args, match)
	if result != nil {
		return *result, nil
	}

	updated, err := t.provider.UpdateEvent(ctx, calendarID, match.ID, changes)
	if err != nil {
		slog.Error("CalendarUpdateEventTool.Execute: provider call failed",
			"error", err, "calendarID", calendarID, "eventID", match.ID)
		return models.FunctionFailure(models.StepProviderError, err.Error(), nil), nil
	}

	slog.Info("CalendarUpdateEventTool.Execute: event updated",
		"calendarID", calendarID, "eventID", updated.ID, "title", updated.Title)

	return models.FunctionSuccess(map[string]interface{}{
		"step":    models.StepCompleted,
		"eventId": updated.ID,
		"title":   updated.Title,
		"start":   updated.Start.Format(time.RFC3339),
		"end":     updated.End.Format(time.RFC3339),
	}), nil
}

// buildEventChanges translates newTitle/newDate/newTime/newDurationMinutes
// arguments into a partial update relative to the matched event.
func buildEventChanges(args map[string]interface{}, match *calendar.Event) (calendar.EventChanges, *models.FunctionResult) {
	var changes calendar.EventChanges

	if newTitle := stringArg(args, "newTitle"); newTitle != "" {
		changes.Title = &newTitle
	}
	if minutes, ok := numberArg(args, "newDurationMinutes"); ok {
		m := int(minutes)
		if m <= 0 {
			fail := models.FunctionFailure(models.StepMissingData, "newDurationMinutes must be positive", nil)
			return changes, &fail
		}
		changes.DurationMinutes = &m
	}

	newDateStr := stringArg(args, "newDate")
	newTimeStr := stringArg(args, "newTime")
	if newDateStr == "" && newTimeStr == "" {
		if changes.Title == nil && changes.DurationMinutes == nil {
			fail := models.FunctionFailure(models.StepMissingData,
				"nothing to change: supply newTitle, newDate, newTime or newDurationMinutes", nil)
			return changes, &fail
		}
		return changes, nil
	}

	day := match.Start
	if newDateStr != "" {
		parsed, err := parseDate(newDateStr)
		if err != nil {
			fail := models.FunctionFailure(models.StepInvalidDate, err.Error(), nil)
			return changes, &fail
		}
		day = parsed
	}
	hour, minute := match.Start.Hour(), match.Start.Minute()
	if newTimeStr != "" {
		var err error
		hour, minute, err = parseClock(newTimeStr)
		if err != nil {
			fail := models.FunctionFailure(models.StepInvalidTime, err.Error(), nil)
			return changes, &fail
		}
	}
	start := combineDateClock(day, hour, minute)
	changes.Start = &start
	return changes, nil
}

// locateEvent wraps the locator with the shared miss semantics: no events on
// the day is "no_events", events without a title match is "event_not_found"
// plus the candidate list.
func locateEvent(ctx context.Context, locator eventLocator, calendarID, title string, date time.Time) (*calendar.Event, *models.FunctionResult, error) {
	match, candidates, err := locator.Locate(ctx, calendarID, title, date)
	if err != nil {
		return nil, nil, err
	}
	if match != nil {
		return match, nil, nil
	}
	if len(candidates) == 0 {
		fail := models.FunctionFailure(models.StepNoEvents,
			fmt.Sprintf("no events found on %s", date.Format(dateLayout)), nil)
		return nil, &fail, nil
	}
	fail := models.FunctionFailure(models.StepEventNotFound,
		fmt.Sprintf("no event titled %q on %s", title, date.Format(dateLayout)),
		map[string]interface{}{"candidates": candidateSummaries(candidates)})
	return nil, &fail, nil
}
