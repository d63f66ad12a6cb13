package models

import (
	"errors"
	"testing"
)

func TestConstDataValidate(t *testing.T) {
	tests := []struct {
		name    string
		kind    FunctionKind
		cd      ConstData
		wantErr error
	}{
		{
			name:    "valid change stage",
			kind:    FunctionKindChangeStage,
			cd:      ConstData{ChangeStage: &ChangeStageConst{StageID: "stage-1"}},
			wantErr: nil,
		},
		{
			name:    "change stage without stage id",
			kind:    FunctionKindChangeStage,
			cd:      ConstData{ChangeStage: &ChangeStageConst{}},
			wantErr: ErrMissingStageID,
		},
		{
			name:    "change stage without variant",
			kind:    FunctionKindChangeStage,
			cd:      ConstData{},
			wantErr: ErrConstDataMismatch,
		},
		{
			name: "two variants set at once",
			kind: FunctionKindChangeStage,
			cd: ConstData{
				ChangeStage: &ChangeStageConst{StageID: "stage-1"},
				Calendar:    &CalendarConst{Action: CalendarActionCreateEvent, CalendarID: "cal-1"},
			},
			wantErr: ErrConstDataMismatch,
		},
		{
			name:    "valid calendar",
			kind:    FunctionKindGoogleCalendar,
			cd:      ConstData{Calendar: &CalendarConst{Action: CalendarActionListEvents, CalendarID: "cal-1"}},
			wantErr: nil,
		},
		{
			name:    "calendar with bad action",
			kind:    FunctionKindGoogleCalendar,
			cd:      ConstData{Calendar: &CalendarConst{Action: "teleport-event", CalendarID: "cal-1"}},
			wantErr: ErrUnsupportedAction,
		},
		{
			name:    "calendar without calendar id",
			kind:    FunctionKindGoogleCalendar,
			cd:      ConstData{Calendar: &CalendarConst{Action: CalendarActionCreateEvent}},
			wantErr: ErrMissingCalendarID,
		},
		{
			name: "valid sheet",
			kind: FunctionKindGoogleSheet,
			cd: ConstData{Sheet: &SheetConst{
				SheetURL: "https://docs.google.com/spreadsheets/d/abc/edit",
				Fields:   []SheetField{{Name: "name", Type: SheetFieldTypeString}},
			}},
			wantErr: nil,
		},
		{
			name:    "sheet without url",
			kind:    FunctionKindGoogleSheet,
			cd:      ConstData{Sheet: &SheetConst{Fields: []SheetField{{Name: "name", Type: SheetFieldTypeString}}}},
			wantErr: ErrMissingSheetURL,
		},
		{
			name:    "sheet without fields",
			kind:    FunctionKindGoogleSheet,
			cd:      ConstData{Sheet: &SheetConst{SheetURL: "https://docs.google.com/spreadsheets/d/abc/edit"}},
			wantErr: ErrMissingSheetFields,
		},
		{
			name: "sheet with bad field type",
			kind: FunctionKindGoogleSheet,
			cd: ConstData{Sheet: &SheetConst{
				SheetURL: "https://docs.google.com/spreadsheets/d/abc/edit",
				Fields:   []SheetField{{Name: "blob", Type: "binary"}},
			}},
			wantErr: ErrInvalidSheetFieldType,
		},
		{
			name:    "unknown kind",
			kind:    "TELEPATHY",
			cd:      ConstData{},
			wantErr: ErrInvalidFunctionKind,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cd.Validate(tt.kind)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFunctionDefinitionValidate(t *testing.T) {
	def := FunctionDefinition{
		CompanyID: "acme",
		Kind:      FunctionKindChangeStage,
		ConstData: ConstData{ChangeStage: &ChangeStageConst{StageID: "stage-1"}},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noCompany := def
	noCompany.CompanyID = ""
	if err := noCompany.Validate(); err == nil {
		t.Error("expected error for missing company id")
	}

	badKind := def
	badKind.Kind = "TELEPATHY"
	if !errors.Is(badKind.Validate(), ErrInvalidFunctionKind) {
		t.Error("expected ErrInvalidFunctionKind")
	}
}

func TestFunctionFailureCarriesStepAndExtras(t *testing.T) {
	result := FunctionFailure(StepEventNotFound, "no match",
		map[string]interface{}{"candidates": []string{"Demo call"}})
	if result.Success {
		t.Error("failure result must not be successful")
	}
	if result.Error != "no match" {
		t.Errorf("unexpected error text %q", result.Error)
	}
	if result.Data["step"] != StepEventNotFound {
		t.Errorf("expected step %q, got %v", StepEventNotFound, result.Data["step"])
	}
	if _, ok := result.Data["candidates"]; !ok {
		t.Error("extra data was dropped")
	}
}

func TestIsValidProgressionStatus(t *testing.T) {
	for _, s := range []ProgressionStatus{ProgressionStatusActive, ProgressionStatusCompleted, ProgressionStatusPaused, ProgressionStatusArchived} {
		if !IsValidProgressionStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	if IsValidProgressionStatus("DORMANT") {
		t.Error("DORMANT should be invalid")
	}
}
