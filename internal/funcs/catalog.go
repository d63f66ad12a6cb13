// Package funcs implements the function dispatch and stage-transition engine.
//
// Admins define per-tenant functions (stage change, calendar operations,
// spreadsheet append); the catalog turns those definitions into LLM-consumable
// tool schemas, and the dispatcher routes agent-issued calls to the matching
// implementation.
package funcs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/FunnelPipe/internal/models"
	"github.com/BTreeMap/FunnelPipe/internal/store"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// MaxExternalNameRetries bounds how many fresh ids are tried when the
// generated external name collides with an existing one.
const MaxExternalNameRetries = 5

// CatalogStore is the slice of the store the catalog needs.
type CatalogStore interface {
	store.FunctionStore
	GetStage(stageID string) (*models.Stage, error)
}

// Catalog builds, persists, and exports tenant function definitions.
type Catalog struct {
	store CatalogStore
}

// NewCatalog creates a function catalog backed by the given store.
func NewCatalog(st CatalogStore) *Catalog {
	return &Catalog{store: st}
}

// CreateChangeStageFunction defines a function that moves a client to exactly
// one stage. The target stage is pinned in both the const data and the
// parameter schema, so the LLM cannot pick an arbitrary stage.
func (c *Catalog) CreateChangeStageFunction(ctx context.Context, companyID, stageID string) (*models.FunctionDefinition, error) {
	if stageID == "" {
		return nil, models.ErrMissingStageID
	}
	stage, err := c.store.GetStage(stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up stage %s: %w", stageID, err)
	}
	if stage == nil {
		return nil, fmt.Errorf("stage %s does not exist", stageID)
	}
	if stage.CompanyID != companyID {
		return nil, fmt.Errorf("stage %s does not belong to company %s", stageID, companyID)
	}

	def := models.FunctionDefinition{
		CompanyID:  companyID,
		Kind:       models.FunctionKindChangeStage,
		Parameters: buildChangeStageParameters(stageID, stage.Name),
		ConstData:  models.ConstData{ChangeStage: &models.ChangeStageConst{StageID: stageID}},
	}
	return c.persist(ctx, def)
}

// CreateCalendarFunction defines a function for one calendar sub-action.
// The calendar id is mandatory for every sub-action; its absence is a
// creation-time error, never a runtime one.
func (c *Catalog) CreateCalendarFunction(ctx context.Context, companyID string, action models.CalendarAction, calendarID string) (*models.FunctionDefinition, error) {
	if !models.IsValidCalendarAction(action) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedAction, action)
	}
	if calendarID == "" {
		return nil, models.ErrMissingCalendarID
	}

	def := models.FunctionDefinition{
		CompanyID:  companyID,
		Kind:       models.FunctionKindGoogleCalendar,
		Parameters: buildCalendarParameters(action),
		ConstData:  models.ConstData{Calendar: &models.CalendarConst{Action: action, CalendarID: calendarID}},
	}
	return c.persist(ctx, def)
}

// CreateSheetFunction defines a row-append function whose parameter schema is
// generated from the admin-supplied field list. The schema is built once here
// and cached on the definition.
func (c *Catalog) CreateSheetFunction(ctx context.Context, companyID, sheetURL string, fields []models.SheetField) (*models.FunctionDefinition, error) {
	if sheetURL == "" {
		return nil, models.ErrMissingSheetURL
	}
	if len(fields) == 0 {
		return nil, models.ErrMissingSheetFields
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("sheet field name cannot be empty")
		}
		if !models.IsValidSheetFieldType(f.Type) {
			return nil, fmt.Errorf("%w: field %q has type %q", models.ErrInvalidSheetFieldType, f.Name, f.Type)
		}
	}
	if _, err := spreadsheetIDFromURL(sheetURL); err != nil {
		return nil, err
	}

	def := models.FunctionDefinition{
		CompanyID:  companyID,
		Kind:       models.FunctionKindGoogleSheet,
		Parameters: buildSheetParameters(fields),
		ConstData:  models.ConstData{Sheet: &models.SheetConst{SheetURL: sheetURL, Fields: fields}},
	}
	return c.persist(ctx, def)
}

// persist assigns a fresh id and collision-free external name, then saves the
// definition. The external name is derived from a short prefix of the id, so a
// collision is resolved by generating a whole new id; retries are bounded to
// avoid looping forever under a pathological collision storm.
func (c *Catalog) persist(ctx context.Context, def models.FunctionDefinition) (*models.FunctionDefinition, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= MaxExternalNameRetries; attempt++ {
		now := time.Now().UTC()
		def.ID = uuid.NewString()
		def.ExternalName = externalName(def.ID, def.Kind, def.ConstData)
		def.CreatedAt = now
		def.UpdatedAt = now

		err := c.store.SaveFunction(def)
		if err == nil {
			slog.Info("Catalog.persist: function created",
				"id", def.ID, "companyID", def.CompanyID, "kind", def.Kind,
				"externalName", def.ExternalName, "attempt", attempt)
			return &def, nil
		}
		if err != store.ErrExternalNameConflict {
			slog.Error("Catalog.persist: save failed", "error", err, "companyID", def.CompanyID, "kind", def.Kind)
			return nil, err
		}
		slog.Warn("Catalog.persist: external name collision, retrying with fresh id",
			"externalName", def.ExternalName, "attempt", attempt)
	}

	slog.Error("Catalog.persist: exhausted external name retries",
		"companyID", def.CompanyID, "kind", def.Kind, "retries", MaxExternalNameRetries)
	return nil, models.ErrExternalNameExhausted
}

// externalName derives the globally unique LLM tool name from a short prefix
// of the definition id plus a kind tag.
func externalName(id string, kind models.FunctionKind, cd models.ConstData) string {
	return fmt.Sprintf("fn_%s_%s", id[:8], kindTag(kind, cd))
}

func kindTag(kind models.FunctionKind, cd models.ConstData) string {
	switch kind {
	case models.FunctionKindChangeStage:
		return "change_stage"
	case models.FunctionKindGoogleCalendar:
		switch cd.Calendar.Action {
		case models.CalendarActionGetAvailability:
			return "calendar_availability"
		case models.CalendarActionCreateEvent:
			return "calendar_create_event"
		case models.CalendarActionUpdateEvent:
			return "calendar_update_event"
		case models.CalendarActionListEvents:
			return "calendar_list_events"
		case models.CalendarActionDeleteEvent:
			return "calendar_delete_event"
		}
	case models.FunctionKindGoogleSheet:
		return "sheet_add_row"
	}
	return "unknown"
}

// ToolParam renders one definition as an OpenAI tool declaration for the
// agent loop.
func (c *Catalog) ToolParam(def *models.FunctionDefinition) openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        def.ExternalName,
			Description: openai.String(toolDescription(def)),
			Parameters:  shared.FunctionParameters(def.Parameters),
		},
	}
}

// CompanyTools renders the full tool list exposed to a tenant's agent.
func (c *Catalog) CompanyTools(ctx context.Context, companyID string) ([]openai.ChatCompletionToolParam, error) {
	defs, err := c.store.ListFunctionsByCompany(companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list functions for company %s: %w", companyID, err)
	}
	tools := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for i := range defs {
		tools = append(tools, c.ToolParam(&defs[i]))
	}
	slog.Debug("Catalog.CompanyTools: rendered tool list", "companyID", companyID, "count", len(tools))
	return tools, nil
}

func toolDescription(def *models.FunctionDefinition) string {
	switch def.Kind {
	case models.FunctionKindChangeStage:
		return "Move the current client to the configured funnel stage. Use when the conversation has reached the point this stage represents."
	case models.FunctionKindGoogleCalendar:
		switch def.ConstData.Calendar.Action {
		case models.CalendarActionGetAvailability:
			return "Check available time slots on the company calendar for a given date."
		case models.CalendarActionCreateEvent:
			return "Book an appointment on the company calendar."
		case models.CalendarActionUpdateEvent:
			return "Reschedule or rename an existing appointment, located by its title and date."
		case models.CalendarActionListEvents:
			return "List appointments for a date, an explicit date range, or the current week."
		case models.CalendarActionDeleteEvent:
			return "Cancel an existing appointment, located by its title and date."
		}
	case models.FunctionKindGoogleSheet:
		return "Record the collected client information as a new spreadsheet row."
	}
	return ""
}
