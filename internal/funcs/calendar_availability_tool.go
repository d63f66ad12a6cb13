// Package funcs provides the calendar availability function implementation.
package funcs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/FunnelPipe/internal/calendar"
	"github.com/BTreeMap/FunnelPipe/internal/models"
)

// CalendarAvailabilityTool answers "when is the company free" questions.
type CalendarAvailabilityTool struct {
	provider calendar.Provider
}

// NewCalendarAvailabilityTool creates a new availability implementation.
func NewCalendarAvailabilityTool(provider calendar.Provider) *CalendarAvailabilityTool {
	return &CalendarAvailabilityTool{provider: provider}
}

// Execute queries free slots for [date, endDate). When no end date is given
// the window defaults to exactly one day after date.
func (t *CalendarAvailabilityTool) Execute(ctx context.Context, def *models.FunctionDefinition, args map[string]interface{}, execCtx models.ExecutionContext) (models.FunctionResult, error) {
	calendarID := def.ConstData.Calendar.CalendarID

	dateStr := stringArg(args, "date")
	if dateStr == "" {
		return models.FunctionFailure(models.StepMissingData, "date is required", nil), nil
	}
	start, err := parseDate(dateStr)
	if err != nil {
		return models.FunctionFailure(models.StepInvalidDate, err.Error(), nil), nil
	}

	end := start.AddDate(0, 0, 1)
	if endStr := stringArg(args, "endDate"); endStr != "" {
		end, err = parseDate(endStr)
		if err != nil {
			return models.FunctionFailure(models.StepInvalidDate, err.Error(), nil), nil
		}
		if !end.After(start) {
			return models.FunctionFailure(models.StepInvalidDate,
				fmt.Sprintf("endDate %s must be after date %s", endStr, dateStr), nil), nil
		}
	}

	durationMinutes, err := normalizeDuration(args["duration"], DefaultEventDurationMinutes)
	if err != nil {
		return models.FunctionFailure(models.StepMissingData, err.Error(), nil), nil
	}

	slots, err := t.provider.GetAvailableSlots(ctx, calendarID, start, end, durationMinutes)
	if err != nil {
		slog.Error("CalendarAvailabilityTool.Execute: provider call failed",
			"error", err, "calendarID", calendarID, "date", dateStr)
		return models.FunctionFailure(models.StepProviderError, err.Error(), nil), nil
	}

	slog.Debug("CalendarAvailabilityTool.Execute: availability computed",
		"calendarID", calendarID, "start", start.Format(dateLayout),
		"end", end.Format(dateLayout), "durationMinutes", durationMinutes, "slots", len(slots))

	return models.FunctionSuccess(map[string]interface{}{
		"step":            models.StepCompleted,
		"date":            start.Format(dateLayout),
		"endDate":         end.Format(dateLayout),
		"durationMinutes": durationMinutes,
		"slots":           slots,
	}), nil
}
