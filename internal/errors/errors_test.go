package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := New(CodePlanningError, PlanError, "comparison needs two named databases")
	assert.Equal(t, "[PLANNING_ERROR] PLANNING_ERROR: comparison needs two named databases", err.Error())
}

func TestToJSON(t *testing.T) {
	err := NewPlanningError("summary needs a target").WithDetails(map[string]interface{}{"intent": "ALERT_SUMMARY"})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(err.ToJSON()), &decoded))
	assert.Equal(t, string(CodePlanningError), decoded["code"])
	assert.Equal(t, "summary needs a target", decoded["message"])
	assert.NotEmpty(t, decoded["suggestion"])
	assert.NotNil(t, decoded["details"])
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(NewNoData(), CodeNoData))
	assert.False(t, IsCode(NewNoData(), CodeRateLimited))
	assert.False(t, IsCode(errors.New("plain"), CodeNoData))
	assert.False(t, IsCode(nil, CodeNoData))
}

func TestNewIntentUnresolvedDetails(t *testing.T) {
	withUtterance := NewIntentUnresolved("xyzzy plugh")
	require.NotNil(t, withUtterance.Details)

	// An empty utterance produces no details block at all.
	without := NewIntentUnresolved("")
	assert.Nil(t, without.Details)
	assert.Equal(t, CodeIntentUnresolved, without.Code)
}

func TestConstructorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *StructuredError
		code Code
		cat  Category
	}{
		{"context missing", NewContextMissing("limit-only"), CodeContextMissing, UnderstandingError},
		{"invalid input", NewInvalidInput("question must not be empty"), CodeInvalidInput, UnderstandingError},
		{"rate limited", NewRateLimited("s-1"), CodeRateLimited, InternalError},
		{"no data", NewNoData(), CodeNoData, DataError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.cat, tt.err.Category)
			assert.NotEmpty(t, tt.err.Suggestion)
		})
	}
}
