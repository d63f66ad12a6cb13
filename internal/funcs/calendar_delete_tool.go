// Package funcs provides the calendar event deletion function implementation.
package funcs

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/FunnelPipe/internal/calendar"
	"github.com/BTreeMap/FunnelPipe/internal/models"
)

// CalendarDeleteEventTool cancels an existing appointment.
type CalendarDeleteEventTool struct {
	provider calendar.Provider
	locator  eventLocator
}

// NewCalendarDeleteEventTool creates a new event-deletion implementation.
func NewCalendarDeleteEventTool(provider calendar.Provider) *CalendarDeleteEventTool {
	return &CalendarDeleteEventTool{provider: provider, locator: &titleLocator{provider: provider}}
}

// Execute locates the target by title within the given day and deletes it.
// Miss semantics match the update tool: "no_events" or "event_not_found" plus
// the candidate list.
func (t *CalendarDeleteEventTool) Execute(ctx context.Context, def *models.FunctionDefinition, args map[string]interface{}, execCtx models.ExecutionContext) (models.FunctionResult, error) {
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

	if err := t.provider.DeleteEvent(ctx, calendarID, match.ID); err != nil {
		slog.Error("CalendarDeleteEventTool.Execute: provider call failed",
			"error", err, "calendarID", calendarID, "eventID", match.ID)
		return models.FunctionFailure(models.StepProviderError, err.Error(), nil), nil
	}

	slog.Info("CalendarDeleteEventTool.Execute: event deleted",
		"calendarID", calendarID, "eventID", match.ID, "title", match.Title)

	return models.FunctionSuccess(map[string]interface{}{
		"step":           models.StepCompleted,
		"deletedEventId": match.ID,
		"title":          match.Title,
		"start":          match.Start.Format(time.RFC3339),
	}), nil
}
