// Package funcs provides the stage-change function implementation.
package funcs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/FunnelPipe/internal/models"
	"github.com/BTreeMap/FunnelPipe/internal/notify"
	"github.com/BTreeMap/FunnelPipe/internal/store"
)

// ChangeStageTool moves a client's progression to the one stage baked into the
// function's const data.
type ChangeStageTool struct {
	store    store.ProgressionStore
	resolver *StageResolver
	notifier notify.Notifier
}

// NewChangeStageTool creates a new stage-change implementation.
func NewChangeStageTool(st store.ProgressionStore, resolver *StageResolver, notifier notify.Notifier) *ChangeStageTool {
	slog.Debug("ChangeStageTool.NewChangeStageTool: creating stage change tool",
		"hasResolver", resolver != nil, "hasNotifier", notifier != nil)
	return &ChangeStageTool{store: st, resolver: resolver, notifier: notifier}
}

// Execute validates the LLM-supplied stage id against the configured target,
// resolves the progression to mutate, and applies a targeted update. The
// argument check is defense in depth beyond the schema's enum pin.
func (t *ChangeStageTool) Execute(ctx context.Context, def *models.FunctionDefinition, args map[string]interface{}, execCtx models.ExecutionContext) (models.FunctionResult, error) {
	targetStageID := def.ConstData.ChangeStage.StageID

	argStageID, ok := args["stageId"].(string)
	if !ok || argStageID == "" {
		slog.Warn("ChangeStageTool.Execute: missing stageId argument", "functionID", def.ID)
		return models.FunctionFailure(models.StepMissingData,
			"stageId is required", nil), nil
	}
	if argStageID != targetStageID {
		slog.Warn("ChangeStageTool.Execute: stageId does not match configured target",
			"functionID", def.ID, "argStageID", argStageID, "targetStageID", targetStageID)
		return models.FunctionFailure(models.StepStageMismatch,
			fmt.Sprintf("stageId %s does not match the configured target stage", argStageID),
			map[string]interface{}{"expectedStageId": targetStageID}), nil
	}

	prog, err := t.resolver.Resolve(ctx, execCtx.ClientID, execCtx.FunnelID, execCtx.ChannelID)
	if err == models.ErrProgressionNotFound {
		return models.FunctionFailure(models.StepNotFound,
			fmt.Sprintf("client %s has no active progression in funnel %s", execCtx.ClientID, execCtx.FunnelID),
			nil), nil
	}
	if err != nil {
		return models.FunctionResult{}, fmt.Errorf("failed to resolve progression: %w", err)
	}

	// Capture the current stage before writing so the result reports the
	// transition, then update by progression id only. A concurrent writer
	// touching other fields of the row is never clobbered.
	previousStageID := prog.StageID
	if err := t.store.UpdateProgressionStage(prog.ID, targetStageID); err != nil {
		return models.FunctionResult{}, fmt.Errorf("failed to update progression stage: %w", err)
	}

	t.broadcastMove(ctx, execCtx.CompanyID, models.ClientMovedEvent{
		ClientID:    execCtx.ClientID,
		FromStageID: previousStageID,
		ToStageID:   targetStageID,
		FunnelID:    prog.FunnelID,
		ChannelID:   prog.ChannelID,
	})

	slog.Info("ChangeStageTool.Execute: stage changed",
		"clientID", execCtx.ClientID, "progressionID", prog.ID,
		"fromStageID", previousStageID, "toStageID", targetStageID)

	return models.FunctionSuccess(map[string]interface{}{
		"step":            models.StepCompleted,
		"previousStageId": previousStageID,
		"newStageId":      targetStageID,
		"progressionId":   prog.ID,
	}), nil
}

// CloseConversation moves a client's progression back to the funnel's entry
// stage. Closing is modeled as this move rather than deleting the record.
func (t *ChangeStageTool) CloseConversation(ctx context.Context, execCtx models.ExecutionContext) (models.FunctionResult, error) {
	prog, err := t.resolver.Resolve(ctx, execCtx.ClientID, execCtx.FunnelID, execCtx.ChannelID)
	if err == models.ErrProgressionNotFound {
		return models.FunctionFailure(models.StepNotFound,
			fmt.Sprintf("client %s has no active progression in funnel %s", execCtx.ClientID, execCtx.FunnelID),
			nil), nil
	}
	if err != nil {
		return models.FunctionResult{}, fmt.Errorf("failed to resolve progression: %w", err)
	}

	first, err := t.store.GetFirstStage(prog.FunnelID)
	if err != nil {
		return models.FunctionResult{}, fmt.Errorf("failed to load entry stage of funnel %s: %w", prog.FunnelID, err)
	}
	if first == nil {
		return models.FunctionFailure(models.StepNotFound,
			fmt.Sprintf("funnel %s has no entry stage", prog.FunnelID), nil), nil
	}

	previousStageID := prog.StageID
	if err := t.store.UpdateProgressionStage(prog.ID, first.ID); err != nil {
		return models.FunctionResult{}, fmt.Errorf("failed to update progression stage: %w", err)
	}

	t.broadcastMove(ctx, execCtx.CompanyID, models.ClientMovedEvent{
		ClientID:    execCtx.ClientID,
		FromStageID: previousStageID,
		ToStageID:   first.ID,
		FunnelID:    prog.FunnelID,
		ChannelID:   prog.ChannelID,
	})

	slog.Info("ChangeStageTool.CloseConversation: conversation closed",
		"clientID", execCtx.ClientID, "progressionID", prog.ID,
		"fromStageID", previousStageID, "toStageID", first.ID)

	return models.FunctionSuccess(map[string]interface{}{
		"step":            models.StepCompleted,
		"previousStageId": previousStageID,
		"newStageId":      first.ID,
		"progressionId":   prog.ID,
	}), nil
}

// broadcastMove emits the clientMoved event once per successful write. A
// notification failure never rolls back the stage change; the UI reconciles on
// its next load.
func (t *ChangeStageTool) broadcastMove(ctx context.Context, companyID string, event models.ClientMovedEvent) {
	if t.notifier == nil {
		return
	}
	if err := t.notifier.EmitToCompany(ctx, companyID, models.EventClientMoved, event); err != nil {
		slog.Warn("ChangeStageTool.broadcastMove: failed to emit clientMoved",
			"error", err, "companyID", companyID, "clientID", event.ClientID)
	}
}
