// Package funcs provides the spreadsheet row-append function implementation.
package funcs

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/BTreeMap/FunnelPipe/internal/models"
	"github.com/BTreeMap/FunnelPipe/internal/sheets"
)

var spreadsheetURLRegex = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// sheetDateLayouts are the accepted input shapes for date-typed fields, tried
// in order. Values are normalized to YYYY-MM-DD before writing.
var sheetDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	time.RFC3339,
}

// spreadsheetIDFromURL extracts the document id from a full Sheets URL.
// A bare id (no URL) is accepted as-is.
func spreadsheetIDFromURL(sheetURL string) (string, error) {
	if m := spreadsheetURLRegex.FindStringSubmatch(sheetURL); m != nil {
		return m[1], nil
	}
	if !strings.Contains(sheetURL, "/") && sheetURL != "" {
		return sheetURL, nil
	}
	return "", fmt.Errorf("sheet_url %q is not a valid spreadsheet URL", sheetURL)
}

// SheetAddRowTool appends one row of collected client data to the configured
// spreadsheet.
type SheetAddRowTool struct {
	provider sheets.Provider
}

// NewSheetAddRowTool creates a new row-append implementation.
func NewSheetAddRowTool(provider sheets.Provider) *SheetAddRowTool {
	return &SheetAddRowTool{provider: provider}
}

// Execute validates the arguments against the function's configured field
// list, coerces values per field type, and appends the row. The first write to
// an empty sheet lays down a header row first.
func (t *SheetAddRowTool) Execute(ctx context.Context, def *models.FunctionDefinition, args map[string]interface{}, execCtx models.ExecutionContext) (models.FunctionResult, error) {
	cfg := def.ConstData.Sheet
	spreadsheetID, err := spreadsheetIDFromURL(cfg.SheetURL)
	if err != nil {
		return models.FunctionFailure(models.StepMissingData, err.Error(), nil), nil
	}

	var missing []string
	for _, f := range cfg.Fields {
		if !f.Required {
			continue
		}
		if v, ok := args[f.Name]; !ok || v == nil || v == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return models.FunctionFailure(models.StepMissingData,
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
			map[string]interface{}{"missingFields": missing}), nil
	}

	row := make([]interface{}, 0, len(cfg.Fields))
	for _, f := range cfg.Fields {
		value, fail := coerceFieldValue(f, args[f.Name])
		if fail != nil {
			return *fail, nil
		}
		row = append(row, value)
	}

	headerWritten := false
	existing, err := t.provider.ReadRange(ctx, spreadsheetID, "A1:A1")
	if err != nil {
		slog.Error("SheetAddRowTool.Execute: failed to probe sheet", "error", err, "spreadsheetID", spreadsheetID)
		return models.FunctionFailure(models.StepProviderError, err.Error(), nil), nil
	}
	if len(existing) == 0 {
		header := make([]interface{}, 0, len(cfg.Fields))
		for _, f := range cfg.Fields {
			header = append(header, f.Name)
		}
		if err := t.provider.AppendRow(ctx, spreadsheetID, header); err != nil {
			slog.Error("SheetAddRowTool.Execute: failed to write header row", "error", err, "spreadsheetID", spreadsheetID)
			return models.FunctionFailure(models.StepProviderError, err.Error(), nil), nil
		}
		headerWritten = true
		slog.Debug("SheetAddRowTool.Execute: header row written", "spreadsheetID", spreadsheetID)
	}

	if err := t.provider.AppendRow(ctx, spreadsheetID, row); err != nil {
		slog.Error("SheetAddRowTool.Execute: failed to append row", "error", err, "spreadsheetID", spreadsheetID)
		return models.FunctionFailure(models.StepProviderError, err.Error(), nil), nil
	}

	slog.Info("SheetAddRowTool.Execute: row appended",
		"spreadsheetID", spreadsheetID, "cells", len(row), "headerWritten", headerWritten)

	return models.FunctionSuccess(map[string]interface{}{
		"step":          models.StepCompleted,
		"appendedRow":   row,
		"headerWritten": headerWritten,
	}), nil
}

// coerceFieldValue converts an argument into the cell value for its column.
// Date fields are parsed and normalized to YYYY-MM-DD; an unparsable date is a
// hard validation error naming the offending field.
func coerceFieldValue(f models.SheetField, raw interface{}) (interface{}, *models.FunctionResult) {
	if raw == nil || raw == "" {
		return "", nil
	}
	switch f.Type {
	case models.SheetFieldTypeNumber:
		if n, ok := raw.(float64); ok {
			return n, nil
		}
		return fmt.Sprintf("%v", raw), nil
	case models.SheetFieldTypeDate:
		s, ok := raw.(string)
		if !ok {
			fail := models.FunctionFailure(models.StepInvalidDate,
				fmt.Sprintf("field %q must be a date string", f.Name),
				map[string]interface{}{"field": f.Name})
			return nil, &fail
		}
		for _, layout := range sheetDateLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return parsed.Format(dateLayout), nil
			}
		}
		fail := models.FunctionFailure(models.StepInvalidDate,
			fmt.Sprintf("field %q has unparsable date %q", f.Name, s),
			map[string]interface{}{"field": f.Name})
		return nil, &fail
	default:
		return fmt.Sprintf("%v", raw), nil
	}
}
