// Package funcs provides the function dispatcher.
package funcs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/FunnelPipe/internal/calendar"
	"github.com/BTreeMap/FunnelPipe/internal/models"
	"github.com/BTreeMap/FunnelPipe/internal/notify"
	"github.com/BTreeMap/FunnelPipe/internal/sheets"
	"github.com/BTreeMap/FunnelPipe/internal/store"
)

// implementation is the uniform contract every function variant satisfies.
// Domain failures come back inside the FunctionResult; only infra failures
// (store outages, impossible states) surface as errors.
type implementation interface {
	Execute(ctx context.Context, def *models.FunctionDefinition, args map[string]interface{}, execCtx models.ExecutionContext) (models.FunctionResult, error)
}

// Dispatcher is the single entry point through which the agent loop executes
// functions. Callers never reach implementations directly, so the catalog and
// tenant checks cannot be bypassed.
type Dispatcher struct {
	store store.Store

	// nil when the matching integration is not configured; routing to a
	// function that needs it is refused instead of panicking mid-call.
	cal    calendar.Provider
	sheets sheets.Provider

	changeStage  *ChangeStageTool
	availability *CalendarAvailabilityTool
	createEvent  *CalendarCreateEventTool
	updateEvent  *CalendarUpdateEventTool
	listEvents   *CalendarListEventsTool
	deleteEvent  *CalendarDeleteEventTool
	sheetAddRow  *SheetAddRowTool
}

// NewDispatcher wires the dispatcher with every implementation variant.
func NewDispatcher(st store.Store, cal calendar.Provider, sh sheets.Provider, notifier notify.Notifier) *Dispatcher {
	resolver := NewStageResolver(st)
	return &Dispatcher{
		store:        st,
		cal:          cal,
		sheets:       sh,
		changeStage:  NewChangeStageTool(st, resolver, notifier),
		availability: NewCalendarAvailabilityTool(cal),
		createEvent:  NewCalendarCreateEventTool(cal),
		updateEvent:  NewCalendarUpdateEventTool(cal),
		listEvents:   NewCalendarListEventsTool(cal),
		deleteEvent:  NewCalendarDeleteEventTool(cal),
		sheetAddRow:  NewSheetAddRowTool(sh),
	}
}

// ExecuteFunction loads a definition, authorizes and validates the call, and
// routes it to exactly one implementation.
//
// Error contract: a missing definition, a cross-tenant call, or a broken store
// returns a Go error to the transport layer; every domain-level failure is
// converted into FunctionResult{Success:false} for the agent.
func (d *Dispatcher) ExecuteFunction(ctx context.Context, functionID string, args map[string]interface{}, execCtx models.ExecutionContext) (models.FunctionResult, error) {
	slog.Debug("Dispatcher.ExecuteFunction: executing function",
		"functionID", functionID, "companyID", execCtx.CompanyID, "clientID", execCtx.ClientID)

	def, err := d.store.GetFunction(functionID)
	if err != nil {
		return models.FunctionResult{}, fmt.Errorf("failed to load function %s: %w", functionID, err)
	}
	if def == nil {
		slog.Warn("Dispatcher.ExecuteFunction: function not found", "functionID", functionID)
		return models.FunctionResult{}, fmt.Errorf("%w: %s", models.ErrFunctionNotFound, functionID)
	}

	// Cross-tenant access is denied unconditionally. Never bypassed, not even
	// for debugging.
	if def.CompanyID != execCtx.CompanyID {
		slog.Warn("Dispatcher.ExecuteFunction: cross-tenant call denied",
			"functionID", functionID, "ownerCompanyID", def.CompanyID, "callerCompanyID", execCtx.CompanyID)
		return models.FunctionResult{}, fmt.Errorf("%w: function %s", models.ErrCompanyMismatch, functionID)
	}

	if result, ok := validateContext(def, execCtx); !ok {
		return result, nil
	}

	impl, err := d.route(def)
	if err != nil {
		return models.FunctionResult{}, err
	}

	result, err := impl.Execute(ctx, def, args, execCtx)
	if err != nil {
		// Implementation-level failures never escape to the caller; the agent
		// gets a uniform failure envelope instead.
		slog.Error("Dispatcher.ExecuteFunction: implementation failed",
			"error", err, "functionID", functionID, "kind", def.Kind)
		result = models.FunctionFailure(models.StepProviderError, err.Error(), nil)
	}

	slog.Info("Dispatcher.ExecuteFunction: function executed",
		"functionID", functionID, "externalName", def.ExternalName, "kind", def.Kind,
		"companyID", execCtx.CompanyID, "clientID", execCtx.ClientID,
		"args", args, "success", result.Success, "resultError", result.Error)
	return result, nil
}

// validateContext enforces the per-kind execution context requirements before
// any external call is made.
func validateContext(def *models.FunctionDefinition, execCtx models.ExecutionContext) (models.FunctionResult, bool) {
	switch def.Kind {
	case models.FunctionKindChangeStage:
		if execCtx.ClientID == "" || execCtx.FunnelID == "" {
			return models.FunctionFailure(models.StepMissingData,
				"clientId and funnelId are required to change stage", nil), false
		}
	case models.FunctionKindGoogleCalendar:
		if execCtx.ClientID == "" {
			return models.FunctionFailure(models.StepMissingData,
				"clientId is required for calendar operations", nil), false
		}
	case models.FunctionKindGoogleSheet:
		// Sheet appends carry everything they need in args and const data.
	}
	return models.FunctionResult{}, true
}

// route selects exactly one implementation for the definition. An
// unrecognized kind or sub-action is a hard failure, never a silent no-op.
func (d *Dispatcher) route(def *models.FunctionDefinition) (implementation, error) {
	switch def.Kind {
	case models.FunctionKindChangeStage:
		return d.changeStage, nil
	case models.FunctionKindGoogleCalendar:
		if d.cal == nil {
			return nil, fmt.Errorf("calendar provider is not configured")
		}
		switch def.ConstData.Calendar.Action {
		case models.CalendarActionGetAvailability:
			return d.availability, nil
		case models.CalendarActionCreateEvent:
			return d.createEvent, nil
		case models.CalendarActionUpdateEvent:
			return d.updateEvent, nil
		case models.CalendarActionListEvents:
			return d.listEvents, nil
		case models.CalendarActionDeleteEvent:
			return d.deleteEvent, nil
		default:
			return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedAction, def.ConstData.Calendar.Action)
		}
	case models.FunctionKindGoogleSheet:
		if d.sheets == nil {
			return nil, fmt.Errorf("sheets provider is not configured")
		}
		return d.sheetAddRow, nil
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidFunctionKind, def.Kind)
	}
}

// CloseConversation moves the client's progression back to the funnel's entry
// stage, the system's model for ending a conversation.
func (d *Dispatcher) CloseConversation(ctx context.Context, execCtx models.ExecutionContext) (models.FunctionResult, error) {
	if execCtx.ClientID == "" || execCtx.FunnelID == "" {
		return models.FunctionFailure(models.StepMissingData,
			"clientId and funnelId are required to close a conversation", nil), nil
	}
	return d.changeStage.CloseConversation(ctx, execCtx)
}

// AssignUser sets or clears (empty userID) the human agent on the client's
// resolved progression.
func (d *Dispatcher) AssignUser(ctx context.Context, execCtx models.ExecutionContext, userID string) (models.FunctionResult, error) {
	if execCtx.ClientID == "" || execCtx.FunnelID == "" {
		return models.FunctionFailure(models.StepMissingData,
			"clientId and funnelId are required to assign a user", nil), nil
	}
	prog, err := d.changeStage.resolver.Resolve(ctx, execCtx.ClientID, execCtx.FunnelID, execCtx.ChannelID)
	if err == models.ErrProgressionNotFound {
		return models.FunctionFailure(models.StepNotFound,
			fmt.Sprintf("client %s has no active progression in funnel %s", execCtx.ClientID, execCtx.FunnelID),
			nil), nil
	}
	if err != nil {
		return models.FunctionResult{}, fmt.Errorf("failed to resolve progression: %w", err)
	}
	if err := d.store.UpdateAssignedUser(prog.ID, userID); err != nil {
		return models.FunctionResult{}, fmt.Errorf("failed to update assigned user: %w", err)
	}
	slog.Info("Dispatcher.AssignUser: assignment updated",
		"progressionID", prog.ID, "userID", userID, "clientID", execCtx.ClientID)
	return models.FunctionSuccess(map[string]interface{}{
		"step":           models.StepCompleted,
		"progressionId":  prog.ID,
		"assignedUserId": userID,
	}), nil
}
