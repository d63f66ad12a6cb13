// Package funcs provides the calendar event listing function implementation.
package funcs

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/BTreeMap/FunnelPipe/internal/calendar"
	"github.com/BTreeMap/FunnelPipe/internal/models"
)

// CalendarListEventsTool lists appointments for a day, range, or named period.
type CalendarListEventsTool struct {
	provider calendar.Provider
	now      func() time.Time
}

// NewCalendarListEventsTool creates a new event-listing implementation.
func NewCalendarListEventsTool(provider calendar.Provider) *CalendarListEventsTool {
	return &CalendarListEventsTool{provider: provider, now: time.Now}
}

// Execute derives a concrete date range from one of four argument shapes —
// a single date, an explicit startDate+endDate, a named period ("week" or
// "semana"), or nothing (an error) — and returns the events grouped by date
// for compact agent consumption.
func (t *CalendarListEventsTool) Execute(ctx context.Context, def *models.FunctionDefinition, args map[string]interface{}, execCtx models.ExecutionContext) (models.FunctionResult, error) {
	calendarID := def.ConstData.Calendar.CalendarID

	start, end, fail := t.resolveRange(args)
	if fail != nil {
		return *fail, nil
	}

	events, err := t.provider.FindEventsByDateRange(ctx, calendarID, start, end)
	if err != nil {
		slog.Error("CalendarListEventsTool.Execute: provider call failed",
			"error", err, "calendarID", calendarID)
		return models.FunctionFailure(models.StepProviderError, err.Error(), nil), nil
	}

	grouped := make(map[string][]map[string]interface{})
	for _, ev := range events {
		day := ev.Start.Format(dateLayout)
		grouped[day] = append(grouped[day], map[string]interface{}{
			"title": ev.Title,
			"start": ev.Start.Format(timeLayout),
			"end":   ev.End.Format(timeLayout),
		})
	}
	for _, day := range grouped {
		sort.Slice(day, func(i, j int) bool {
			return day[i]["start"].(string) < day[j]["start"].(string)
		})
	}

	slog.Debug("CalendarListEventsTool.Execute: events listed",
		"calendarID", calendarID, "start", start.Format(dateLayout),
		"end", end.Format(dateLayout), "total", len(events))

	return models.FunctionSuccess(map[string]interface{}{
		"step":      models.StepCompleted,
		"startDate": start.Format(dateLayout),
		"endDate":   end.Format(dateLayout),
		"events":    grouped,
		"total":     len(events),
	}), nil
}

// resolveRange picks the first argument shape that applies. The returned end
// is exclusive.
func (t *CalendarListEventsTool) resolveRange(args map[string]interface{}) (start, end time.Time, fail *models.FunctionResult) {
	if dateStr := stringArg(args, "date"); dateStr != "" {
		day, err := parseDate(dateStr)
		if err != nil {
			f := models.FunctionFailure(models.StepInvalidDate, err.Error(), nil)
			return start, end, &f
		}
		return day, day.AddDate(0, 0, 1), nil
	}

	startStr := stringArg(args, "startDate")
	endStr := stringArg(args, "endDate")
	if startStr != "" && endStr != "" {
		from, err := parseDate(startStr)
		if err != nil {
			f := models.FunctionFailure(models.StepInvalidDate, err.Error(), nil)
			return start, end, &f
		}
		to, err := parseDate(endStr)
		if err != nil {
			f := models.FunctionFailure(models.StepInvalidDate, err.Error(), nil)
			return start, end, &f
		}
		// endDate is inclusive for the caller.
		to = to.AddDate(0, 0, 1)
		if !to.After(from) {
			f := models.FunctionFailure(models.StepInvalidDate, "endDate must not be before startDate", nil)
			return start, end, &f
		}
		return from, to, nil
	}

	if period := strings.ToLower(stringArg(args, "period")); period == "week" || period == "semana" {
		return t.currentWeek()
	}

	f := models.FunctionFailure(models.StepMissingData,
		"supply a date, a startDate and endDate, or period \"week\"", nil)
	return start, end, &f
}

// currentWeek returns the Monday-to-Monday window containing now.
func (t *CalendarListEventsTool) currentWeek() (time.Time, time.Time, *models.FunctionResult) {
	now := t.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 7), nil
}
