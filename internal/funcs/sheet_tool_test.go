package funcs

import (
	"context"
	"testing"

	"github.com/BTreeMap/FunnelPipe/internal/models"
)

func sheetDef(fields []models.SheetField) *models.FunctionDefinition {
	return &models.FunctionDefinition{
		ID:        "fn-sheet",
		CompanyID: "acme",
		Kind:      models.FunctionKindGoogleSheet,
		ConstData: models.ConstData{Sheet: &models.SheetConst{
			SheetURL: "https://docs.google.com/spreadsheets/d/sheet-abc/edit#gid=0",
			Fields:   fields,
		}},
	}
}

func leadFields() []models.SheetField {
	return []models.SheetField{
		{Name: "name", Type: models.SheetFieldTypeString, Required: true},
		{Name: "budget", Type: models.SheetFieldTypeNumber},
		{Name: "visit", Type: models.SheetFieldTypeDate, Required: true},
	}
}

func TestSpreadsheetIDFromURL(t *testing.T) {
	id, err := spreadsheetIDFromURL("https://docs.google.com/spreadsheets/d/abc-123_XYZ/edit#gid=0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "abc-123_XYZ" {
		t.Errorf("expected abc-123_XYZ, got %s", id)
	}

	// A bare document id is accepted as-is.
	id, err = spreadsheetIDFromURL("abc-123_XYZ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "abc-123_XYZ" {
		t.Errorf("expected abc-123_XYZ, got %s", id)
	}

	if _, err := spreadsheetIDFromURL("https://example.com/documents/xyz"); err == nil {
		t.Error("expected error for non-sheet URL")
	}
}

func TestSheetAddRowWritesHeaderOnEmptySheet(t *testing.T) {
	provider := &MockSheetsProvider{}
	tool := NewSheetAddRowTool(provider)

	result, err := tool.Execute(context.Background(), sheetDef(leadFields()),
		map[string]interface{}{"name": "Ada", "budget": float64(5000), "visit": "2024-03-20"},
		models.ExecutionContext{CompanyID: "acme"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Data["headerWritten"] != true {
		t.Error("expected header to be written on the first append")
	}
	if len(provider.rows) != 2 {
		t.Fatalf("expected header plus data row, got %d rows", len(provider.rows))
	}
	header := provider.rows[0]
	if header[0] != "name" || header[1] != "budget" || header[2] != "visit" {
		t.Errorf("unexpected header: %v", header)
	}
	row := provider.rows[1]
	if row[0] != "Ada" || row[1] != float64(5000) || row[2] != "2024-03-20" {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestSheetAddRowSkipsHeaderOnPopulatedSheet(t *testing.T) {
	provider := &MockSheetsProvider{rows: [][]interface{}{{"name", "budget", "visit"}}}
	tool := NewSheetAddRowTool(provider)

	result, err := tool.Execute(context.Background(), sheetDef(leadFields()),
		map[string]interface{}{"name": "Ada", "visit": "2024-03-20"},
		models.ExecutionContext{CompanyID: "acme"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Data["headerWritten"] != false {
		t.Error("header must not be rewritten")
	}
	if len(provider.rows) != 2 {
		t.Fatalf("expected exactly one appended row, got %d total", len(provider.rows))
	}
	// An optional field left unset becomes an empty cell, keeping columns aligned.
	if provider.rows[1][1] != "" {
		t.Errorf("expected empty budget cell, got %v", provider.rows[1][1])
	}
}

func TestSheetAddRowReportsMissingRequiredFields(t *testing.T) {
	provider := &MockSheetsProvider{}
	tool := NewSheetAddRowTool(provider)

	result, err := tool.Execute(context.Background(), sheetDef(leadFields()),
		map[string]interface{}{"budget": float64(100)},
		models.ExecutionContext{CompanyID: "acme"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Success || result.Data["step"] != models.StepMissingData {
		t.Fatalf("expected missing_data failure, got %+v", result)
	}
	missing, ok := result.Data["missingFields"].([]string)
	if !ok || len(missing) != 2 {
		t.Fatalf("expected both missing fields reported, got %v", result.Data["missingFields"])
	}
	if len(provider.rows) != 0 {
		t.Errorf("nothing should have been written, got %v", provider.rows)
	}
}

func TestSheetAddRowNormalizesDates(t *testing.T) {
	fields := []models.SheetField{{Name: "visit", Type: models.SheetFieldTypeDate, Required: true}}

	for _, input := range []string{"2024-03-20", "20/03/2024", "2024/03/20", "2024-03-20T14:30:00Z"} {
		provider := &MockSheetsProvider{rows: [][]interface{}{{"visit"}}}
		tool := NewSheetAddRowTool(provider)

		result, err := tool.Execute(context.Background(), sheetDef(fields),
			map[string]interface{}{"visit": input}, models.ExecutionContext{CompanyID: "acme"})
		if err != nil {
			t.Fatalf("Execute returned error: %v", err)
		}
		if !result.Success {
			t.Fatalf("input %q: expected success, got error %q", input, result.Error)
		}
		if provider.rows[1][0] != "2024-03-20" {
			t.Errorf("input %q: expected normalized 2024-03-20, got %v", input, provider.rows[1][0])
		}
	}
}

func TestSheetAddRowRejectsUnparsableDateNamingField(t *testing.T) {
	provider := &MockSheetsProvider{}
	tool := NewSheetAddRowTool(provider)

	result, err := tool.Execute(context.Background(), sheetDef(leadFields()),
		map[string]interface{}{"name": "Ada", "visit": "next tuesday"},
		models.ExecutionContext{CompanyID: "acme"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Success || result.Data["step"] != models.StepInvalidDate {
		t.Fatalf("expected invalid_date failure, got %+v", result)
	}
	if result.Data["field"] != "visit" {
		t.Errorf("failure must name the offending field, got %v", result.Data["field"])
	}
	if len(provider.rows) != 0 {
		t.Errorf("nothing should have been written, got %v", provider.rows)
	}
}
