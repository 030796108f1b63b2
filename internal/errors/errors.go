// Package errors provides structured errors for the conversational query core.
// Malformed or ambiguous natural-language input is always a data condition to
// route on, never a fault that propagates to the caller.
package errors

import (
	"encoding/json"
	"fmt"
)

// Category classifies where an error originated in the turn pipeline.
type Category string

const (
	// UnderstandingError means the utterance could not be interpreted
	UnderstandingError Category = "UNDERSTANDING_ERROR"
	// PlanError means the resolved intent could not produce a valid plan
	PlanError Category = "PLANNING_ERROR"
	// DataError means the executor boundary reported a problem
	DataError Category = "DATA_ERROR"
	// InternalError means a bug or invariant violation inside the core
	InternalError Category = "INTERNAL_ERROR"
)

// Code is a stable machine-readable error code.
type Code string

const (
	// CodeIntentUnresolved means no classification rule matched the utterance
	CodeIntentUnresolved Code = "INTENT_UNRESOLVED"
	// CodeContextMissing means a follow-up shape was detected with no usable context
	CodeContextMissing Code = "CONTEXT_MISSING"
	// CodePlanningError means the intent requires a target that is absent
	CodePlanningError Code = "PLANNING_ERROR"
	// CodeNoData means the executor returned no data for the plan
	CodeNoData Code = "NO_DATA"
	// CodeAuditViolation means the self-audit failed one or more checks
	CodeAuditViolation Code = "AUDIT_VIOLATION"
	// CodeRateLimited means the session exceeded its turn rate
	CodeRateLimited Code = "RATE_LIMITED"
	// CodeInvalidInput means the caller supplied malformed arguments
	CodeInvalidInput Code = "INVALID_INPUT"
)

// StructuredError carries a code, category, message and a recovery suggestion.
type StructuredError struct {
	Code       Code        `json:"code"`
	Category   Category    `json:"category"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

// ToJSON converts the error to a JSON string
func (e *StructuredError) ToJSON() string {
	bytes, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"code":"%s","category":"%s","message":"%s"}`, e.Code, e.Category, e.Message)
	}
	return string(bytes)
}

// New creates a new structured error
func New(code Code, category Category, message string) *StructuredError {
	return &StructuredError{
		Code:     code,
		Category: category,
		Message:  message,
	}
}

// WithDetails adds details to the error
func (e *StructuredError) WithDetails(details interface{}) *StructuredError {
	e.Details = details
	return e
}

// WithSuggestion adds a recovery suggestion to the error
func (e *StructuredError) WithSuggestion(suggestion string) *StructuredError {
	e.Suggestion = suggestion
	return e
}

// NewIntentUnresolved creates an error for an utterance no rule matched
func NewIntentUnresolved(utterance string) *StructuredError {
	e := New(CodeIntentUnresolved, UnderstandingError, "could not determine what the question is asking").
		WithSuggestion("Rephrase with an explicit subject, e.g. 'show alerts for MIDEVSTB'")
	if utterance != "" {
		e = e.WithDetails(map[string]interface{}{"utterance": utterance})
	}
	return e
}

// NewContextMissing creates an error for a follow-up with no prior context
func NewContextMissing(shape string) *StructuredError {
	return New(CodeContextMissing, UnderstandingError,
		fmt.Sprintf("the question looks like a %s follow-up but no prior topic is active", shape)).
		WithSuggestion("Ask a full question first, e.g. 'how many standby alerts?'")
}

// NewPlanningError creates an error for an intent whose required target is absent
func NewPlanningError(message string) *StructuredError {
	return New(CodePlanningError, PlanError, message).
		WithSuggestion("Name the database or topic the question is about")
}

// NewNoData creates an error for an empty executor result
func NewNoData() *StructuredError {
	return New(CodeNoData, DataError, "no alert data available for this query").
		WithSuggestion("Check that the alert table has been loaded")
}

// NewInvalidInput creates an invalid input error
func NewInvalidInput(message string) *StructuredError {
	return New(CodeInvalidInput, UnderstandingError, message).
		WithSuggestion("Check the input parameters and try again")
}

// NewRateLimited creates a rate limit error for a session
func NewRateLimited(sessionID string) *StructuredError {
	return New(CodeRateLimited, InternalError, fmt.Sprintf("session %q exceeded its turn rate", sessionID)).
		WithSuggestion("Wait a moment and try again")
}

// NewInternal creates an internal invariant violation error
func NewInternal(message string) *StructuredError {
	return New(CodeAuditViolation, InternalError, message)
}

// IsCode reports whether err is a StructuredError carrying the given code.
func IsCode(err error, code Code) bool {
	se, ok := err.(*StructuredError)
	return ok && se.Code == code
}
