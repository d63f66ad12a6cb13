// Package models defines the uniform result envelope for function execution.
package models

// Step discriminators carried in FunctionResult.Data so the calling agent can
// react to failures without parsing error text.
const (
	StepMissingData     = "missing_data"
	StepStageMismatch   = "stage_mismatch"
	StepNotFound        = "not_found"
	StepInvalidDate     = "invalid_date"
	StepInvalidTime     = "invalid_time"
	StepNoEvents        = "no_events"
	StepEventNotFound   = "event_not_found"
	StepProviderError   = "provider_error"
	StepCompleted       = "completed"
)

// FunctionResult is the envelope returned by every function implementation.
// Even on failure, Data should carry a machine-readable "step" discriminator.
type FunctionResult struct {
	Success  bool                   `json:"success"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// FunctionSuccess builds a successful result with the given payload.
func FunctionSuccess(data map[string]interface{}) FunctionResult {
	return FunctionResult{Success: true, Data: data}
}

// FunctionFailure builds a failed result with a step discriminator and message.
// Extra key/value data may be attached for agent-side disambiguation.
func FunctionFailure(step, message string, extra map[string]interface{}) FunctionResult {
	data := map[string]interface{}{"step": step}
	for k, v := range extra {
		data[k] = v
	}
	return FunctionResult{Success: false, Error: message, Data: data}
}
