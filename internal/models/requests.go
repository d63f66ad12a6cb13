// Package models defines API request types for FunnelPipe endpoints.
package models

import "errors"

// CreateFunctionRequest is the body of POST /functions. Kind selects which of
// the optional sections must be present.
type CreateFunctionRequest struct {
	CompanyID string       `json:"company_id"`
	Kind      FunctionKind `json:"kind"`

	// CHANGE_STAGE
	StageID string `json:"stage_id,omitempty"`

	// GOOGLE_CALENDAR
	Action     CalendarAction `json:"action,omitempty"`
	CalendarID string         `json:"calendar_id,omitempty"`

	// GOOGLE_SHEET
	SheetURL string       `json:"sheet_url,omitempty"`
	Fields   []SheetField `json:"fields,omitempty"`
}

// Validate checks the request shape; kind-specific rules are enforced by the
// catalog at creation time.
func (r *CreateFunctionRequest) Validate() error {
	if r.CompanyID == "" {
		return errors.New("company_id is required")
	}
	if !IsValidFunctionKind(r.Kind) {
		return ErrInvalidFunctionKind
	}
	return nil
}

// ExecuteFunctionRequest is the body of POST /functions/execute.
type ExecuteFunctionRequest struct {
	FunctionID string                 `json:"function_id"`
	Arguments  map[string]interface{} `json:"arguments,omitempty"`
	Context    ExecutionContext       `json:"context"`
}

// Validate checks the request shape.
func (r *ExecuteFunctionRequest) Validate() error {
	if r.FunctionID == "" {
		return errors.New("function_id is required")
	}
	if r.Context.CompanyID == "" {
		return errors.New("context.company_id is required")
	}
	return nil
}

// ConversationActionRequest is the body of the close and assign endpoints.
type ConversationActionRequest struct {
	Context ExecutionContext `json:"context"`
	UserID  string           `json:"user_id,omitempty"`
}

// Validate checks the request shape.
func (r *ConversationActionRequest) Validate() error {
	if r.Context.CompanyID == "" {
		return errors.New("context.company_id is required")
	}
	return nil
}
