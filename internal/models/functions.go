// Package models defines the core data structures for FunnelPipe.
//
// It includes the tenant-scoped function catalog types, the execution context
// supplied by the agent loop, and the uniform result envelope returned by
// every function implementation.
package models

import (
	"errors"
	"fmt"
	"time"
)

// FunctionKind defines the closed set of LLM-invocable function kinds.
type FunctionKind string

const (
	// FunctionKindChangeStage moves a client to one pre-configured funnel stage.
	FunctionKindChangeStage FunctionKind = "CHANGE_STAGE"
	// FunctionKindGoogleCalendar performs a calendar operation (sub-action in const data).
	FunctionKindGoogleCalendar FunctionKind = "GOOGLE_CALENDAR"
	// FunctionKindGoogleSheet appends a row to a tenant-configured spreadsheet.
	FunctionKindGoogleSheet FunctionKind = "GOOGLE_SHEET"
)

// IsValidFunctionKind checks if the given function kind is supported.
func IsValidFunctionKind(k FunctionKind) bool {
	switch k {
	case FunctionKindChangeStage, FunctionKindGoogleCalendar, FunctionKindGoogleSheet:
		return true
	default:
		return false
	}
}

// CalendarAction defines the calendar sub-action baked into a GOOGLE_CALENDAR function.
type CalendarAction string

const (
	CalendarActionGetAvailability CalendarAction = "get-availability"
	CalendarActionCreateEvent     CalendarAction = "create-event"
	CalendarActionUpdateEvent     CalendarAction = "update-event"
	CalendarActionListEvents      CalendarAction = "list-events"
	CalendarActionDeleteEvent     CalendarAction = "delete-event"
)

// IsValidCalendarAction checks if the given calendar sub-action is supported.
func IsValidCalendarAction(a CalendarAction) bool {
	switch a {
	case CalendarActionGetAvailability, CalendarActionCreateEvent, CalendarActionUpdateEvent,
		CalendarActionListEvents, CalendarActionDeleteEvent:
		return true
	default:
		return false
	}
}

// SheetFieldType constrains the argument types exposed to the LLM for sheet columns.
// Date fields are presented to the LLM as strings with a format hint, since the
// upstream schema format only supports primitive string/number types.
type SheetFieldType string

const (
	SheetFieldTypeString SheetFieldType = "string"
	SheetFieldTypeNumber SheetFieldType = "number"
	SheetFieldTypeDate   SheetFieldType = "date"
)

// IsValidSheetFieldType checks if the given sheet field type is supported.
func IsValidSheetFieldType(t SheetFieldType) bool {
	switch t {
	case SheetFieldTypeString, SheetFieldTypeNumber, SheetFieldTypeDate:
		return true
	default:
		return false
	}
}

// SheetField describes one admin-configured spreadsheet column.
type SheetField struct {
	Name        string         `json:"name"`
	Type        SheetFieldType `json:"type"`
	Required    bool           `json:"required"`
	Description string         `json:"description,omitempty"`
}

// Error variables for function definition validation.
var (
	ErrInvalidFunctionKind     = errors.New("invalid function kind")
	ErrMissingStageID          = errors.New("stage_id is required for change-stage functions")
	ErrMissingCalendarID       = errors.New("calendar_id is required for calendar functions")
	ErrUnsupportedAction       = errors.New("unsupported calendar action")
	ErrMissingSheetURL         = errors.New("sheet_url is required for sheet functions")
	ErrMissingSheetFields      = errors.New("at least one sheet field is required")
	ErrInvalidSheetFieldType   = errors.New("invalid sheet field type")
	ErrConstDataMismatch       = errors.New("const data does not match function kind")
	ErrExternalNameExhausted   = errors.New("failed to generate a unique external name")
	ErrFunctionNotFound        = errors.New("function definition not found")
	ErrCompanyMismatch         = errors.New("function belongs to a different company")
	ErrMissingExecutionContext = errors.New("missing required execution context")
)

// ChangeStageConst is the LLM-invisible execution context for CHANGE_STAGE functions.
// The stage is fixed at configuration time; the LLM cannot pick an arbitrary stage.
type ChangeStageConst struct {
	StageID string `json:"stage_id"`
}

// CalendarConst is the LLM-invisible execution context for GOOGLE_CALENDAR functions.
type CalendarConst struct {
	Action     CalendarAction `json:"action"`
	CalendarID string         `json:"calendar_id"`
}

// SheetConst is the LLM-invisible execution context for GOOGLE_SHEET functions.
type SheetConst struct {
	SheetURL string       `json:"sheet_url"`
	Fields   []SheetField `json:"fields"`
}

// ConstData is the tagged union of per-kind configuration. Exactly one variant
// must be set, and it must agree with the owning definition's Kind.
type ConstData struct {
	ChangeStage *ChangeStageConst `json:"change_stage,omitempty"`
	Calendar    *CalendarConst    `json:"calendar,omitempty"`
	Sheet       *SheetConst       `json:"sheet,omitempty"`
}

// Validate ensures the const data carries exactly the variant matching kind.
func (cd *ConstData) Validate(kind FunctionKind) error {
	switch kind {
	case FunctionKindChangeStage:
		if cd.ChangeStage == nil || cd.Calendar != nil || cd.Sheet != nil {
			return ErrConstDataMismatch
		}
		if cd.ChangeStage.StageID == "" {
			return ErrMissingStageID
		}
	case FunctionKindGoogleCalendar:
		if cd.Calendar == nil || cd.ChangeStage != nil || cd.Sheet != nil {
			return ErrConstDataMismatch
		}
		if !IsValidCalendarAction(cd.Calendar.Action) {
			return fmt.Errorf("%w: %s", ErrUnsupportedAction, cd.Calendar.Action)
		}
		if cd.Calendar.CalendarID == "" {
			return ErrMissingCalendarID
		}
	case FunctionKindGoogleSheet:
		if cd.Sheet == nil || cd.ChangeStage != nil || cd.Calendar != nil {
			return ErrConstDataMismatch
		}
		if cd.Sheet.SheetURL == "" {
			return ErrMissingSheetURL
		}
		if len(cd.Sheet.Fields) == 0 {
			return ErrMissingSheetFields
		}
		for _, f := range cd.Sheet.Fields {
			if !IsValidSheetFieldType(f.Type) {
				return fmt.Errorf("%w: field %q has type %q", ErrInvalidSheetFieldType, f.Name, f.Type)
			}
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidFunctionKind, kind)
	}
	return nil
}

// FunctionDefinition is a tenant-owned, immutable-shape catalog entry.
//
// ExternalName is the globally unique identifier used by the LLM tool-call
// protocol; the namespace spans all tenants, not just the owning one.
// Parameters is the LLM-consumable schema, generated once at creation time
// and cached on the definition (never regenerated per invocation).
type FunctionDefinition struct {
	ID           string                 `json:"id"`
	CompanyID    string                 `json:"company_id"`
	Kind         FunctionKind           `json:"kind"`
	ExternalName string                 `json:"external_name"`
	Parameters   map[string]interface{} `json:"parameters"`
	ConstData    ConstData              `json:"const_data"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Validate checks the cross-field invariants of a definition.
func (fd *FunctionDefinition) Validate() error {
	if fd.CompanyID == "" {
		return errors.New("company_id is required")
	}
	if !IsValidFunctionKind(fd.Kind) {
		return fmt.Errorf("%w: %s", ErrInvalidFunctionKind, fd.Kind)
	}
	return fd.ConstData.Validate(fd.Kind)
}

// ChatMessage is one turn of the conversation forwarded by the agent loop.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExecutionContext carries the caller-supplied, non-LLM-controlled request
// context for a single function execution.
type ExecutionContext struct {
	CompanyID   string        `json:"company_id"`
	ClientID    string        `json:"client_id,omitempty"`
	StageID     string        `json:"stage_id,omitempty"`
	FunnelID    string        `json:"funnel_id,omitempty"`
	ChannelID   string        `json:"channel_id,omitempty"`
	ChatHistory []ChatMessage `json:"chat_history,omitempty"`
}
