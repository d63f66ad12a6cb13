// Package funcs provides shared argument parsing for the calendar tools.
package funcs

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/FunnelPipe/internal/calendar"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// DefaultEventDurationMinutes applies when the LLM supplies no duration.
	DefaultEventDurationMinutes = 60
)

var (
	dateRegex    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRegex    = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)
	hourMinRegex = regexp.MustCompile(`^(\d+)h([0-5]?\d)?$`)
	bareNumRegex = regexp.MustCompile(`^(\d+)m?$`)
)

// stringArg extracts a non-empty string argument.
func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// numberArg extracts a numeric argument (JSON numbers decode as float64).
func numberArg(args map[string]interface{}, key string) (float64, bool) {
	n, ok := args[key].(float64)
	return n, ok
}

// parseDate validates and parses a YYYY-MM-DD argument in server-local time.
func parseDate(value string) (time.Time, error) {
	if !dateRegex.MatchString(value) {
		return time.Time{}, fmt.Errorf("date %q must be in YYYY-MM-DD format", value)
	}
	d, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return d, nil
}

// parseClock validates and parses a 24-hour HH:MM argument.
func parseClock(value string) (hour, minute int, err error) {
	if !timeRegex.MatchString(value) {
		return 0, 0, fmt.Errorf("time %q must be in 24-hour HH:MM format", value)
	}
	parts := strings.SplitN(value, ":", 2)
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	return hour, minute, nil
}

// combineDateClock merges a date and an HH:MM clock into one timestamp.
func combineDateClock(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}

// normalizeDuration converts a free-form duration argument into minutes.
// Accepts a bare number ("90"), a minute suffix ("90m"), or hour forms
// ("2h", "1h30").
func normalizeDuration(raw interface{}, defaultMinutes int) (int, error) {
	switch v := raw.(type) {
	case nil:
		return defaultMinutes, nil
	case float64:
		if v <= 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return int(v), nil
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if s == "" {
			return defaultMinutes, nil
		}
		if m := bareNumRegex.FindStringSubmatch(s); m != nil {
			minutes, _ := strconv.Atoi(m[1])
			if minutes <= 0 {
				return 0, fmt.Errorf("duration must be positive")
			}
			return minutes, nil
		}
		if m := hourMinRegex.FindStringSubmatch(s); m != nil {
			hours, _ := strconv.Atoi(m[1])
			minutes := 0
			if m[2] != "" {
				minutes, _ = strconv.Atoi(m[2])
			}
			total := hours*60 + minutes
			if total <= 0 {
				return 0, fmt.Errorf("duration must be positive")
			}
			return total, nil
		}
		return 0, fmt.Errorf("duration %q is not a number of minutes or an hour form like \"2h\"", v)
	default:
		return 0, fmt.Errorf("duration must be a number or a string")
	}
}

// eventLocator finds the target of an update or delete operation. The LLM
// never holds a stable event id, so the default implementation matches by
// title; keeping it behind an interface lets a stable-id lookup replace it
// without touching call sites.
type eventLocator interface {
	Locate(ctx context.Context, calendarID, title string, date time.Time) (match *calendar.Event, candidates []calendar.Event, err error)
}

// titleLocator matches by exact case-insensitive title within the day's events.
type titleLocator struct {
	provider calendar.Provider
}

// Locate returns the matched event, or the day's candidates when no title
// matched. Zero candidates means the day holds no events at all.
func (l *titleLocator) Locate(ctx context.Context, calendarID, title string, date time.Time) (*calendar.Event, []calendar.Event, error) {
	events, err := l.provider.FindEventsByDate(ctx, calendarID, date)
	if err != nil {
		return nil, nil, err
	}
	for i := range events {
		if strings.EqualFold(events[i].Title, title) {
			return &events[i], events, nil
		}
	}
	return nil, events, nil
}

// candidateSummaries renders the day's events so the agent can ask a
// clarifying question.
func candidateSummaries(events []calendar.Event) []map[string]interface{} {
	summaries := make([]map[string]interface{}, 0, len(events))
	for _, ev := range events {
		summaries = append(summaries, map[string]interface{}{
			"title": ev.Title,
			"time":  ev.Start.Format(timeLayout),
		})
	}
	return summaries
}
