// Package funcs provides parameter schema generation for the function catalog.
//
// Schemas follow the JSON-schema subset accepted by the OpenAI tool-call
// protocol: object types with string/number properties only. Date fields are
// therefore exposed as strings with a format hint in the description.
package funcs

import (
	"fmt"

	"github.com/BTreeMap/FunnelPipe/internal/models"
)

// buildChangeStageParameters pins the stageId argument to exactly one value.
// The enum pin prevents prompt-injected arbitrary stage jumps; the function
// IS the transition to this one target stage.
func buildChangeStageParameters(stageID, stageName string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"stageId": map[string]interface{}{
				"type":        "string",
				"enum":        []string{stageID},
				"description": fmt.Sprintf("Identifier of the target stage (%s). Must be exactly this value.", stageName),
			},
		},
		"required": []string{"stageId"},
	}
}

// buildCalendarParameters returns the per-sub-action argument schema.
func buildCalendarParameters(action models.CalendarAction) map[string]interface{} {
	switch action {
	case models.CalendarActionGetAvailability:
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Day to check, in YYYY-MM-DD format",
				},
				"endDate": map[string]interface{}{
					"type":        "string",
					"description": "Optional end of the window in YYYY-MM-DD format; defaults to the day after date",
				},
				"duration": map[string]interface{}{
					"type":        "string",
					"description": "Desired slot length, e.g. \"30\", \"90\", \"2h\" or \"1h30\"; defaults to 60 minutes",
				},
			},
			"required": []string{"date"},
		}
	case models.CalendarActionCreateEvent:
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Title of the appointment",
				},
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Appointment day in YYYY-MM-DD format",
				},
				"time": map[string]interface{}{
					"type":        "string",
					"description": "Appointment start in 24-hour HH:MM format",
				},
				"startTime": map[string]interface{}{
					"type":        "string",
					"description": "Alternative to date+time: full ISO 8601 start timestamp",
				},
				"durationMinutes": map[string]interface{}{
					"type":        "number",
					"description": "Length of the appointment in minutes; defaults to 60",
				},
				"email": map[string]interface{}{
					"type":        "string",
					"description": "Email address of the client to invite",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Optional notes attached to the appointment",
				},
			},
			"required": []string{"date", "startTime", "email"},
		}
	case models.CalendarActionUpdateEvent:
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Exact title of the appointment to change",
				},
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Day the appointment currently sits on, in YYYY-MM-DD format",
				},
				"newTitle": map[string]interface{}{
					"type":        "string",
					"description": "Optional replacement title",
				},
				"newDate": map[string]interface{}{
					"type":        "string",
					"description": "Optional new day in YYYY-MM-DD format",
				},
				"newTime": map[string]interface{}{
					"type":        "string",
					"description": "Optional new start in 24-hour HH:MM format",
				},
				"newDurationMinutes": map[string]interface{}{
					"type":        "number",
					"description": "Optional new length in minutes",
				},
			},
			"required": []string{"title", "date"},
		}
	case models.CalendarActionListEvents:
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Single day to list, in YYYY-MM-DD format",
				},
				"startDate": map[string]interface{}{
					"type":        "string",
					"description": "Start of an explicit range in YYYY-MM-DD format",
				},
				"endDate": map[string]interface{}{
					"type":        "string",
					"description": "End of an explicit range in YYYY-MM-DD format (inclusive)",
				},
				"period": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"week", "semana"},
					"description": "Named period: the calendar week containing today",
				},
			},
			"required": []string{},
		}
	case models.CalendarActionDeleteEvent:
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Exact title of the appointment to cancel",
				},
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Day the appointment sits on, in YYYY-MM-DD format",
				},
			},
			"required": []string{"title", "date"},
		}
	}
	return nil
}

// buildSheetParameters maps the tenant-configured field list to an argument
// schema. Only string and number survive to the LLM; date fields become
// strings with a format hint.
func buildSheetParameters(fields []models.SheetField) map[string]interface{} {
	properties := make(map[string]interface{}, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		schemaType := "string"
		description := f.Description
		switch f.Type {
		case models.SheetFieldTypeNumber:
			schemaType = "number"
		case models.SheetFieldTypeDate:
			if description != "" {
				description += " "
			}
			description += "(date in YYYY-MM-DD format)"
		}
		prop := map[string]interface{}{"type": schemaType}
		if description != "" {
			prop["description"] = description
		}
		properties[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
