// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountSchema() JSONSchema {
	return JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"email":    {Type: "string", Format: "email", MaxLength: IntPtr(254)},
			"password": {Type: "string", MinLength: IntPtr(6)},
			"plan":     {Type: "string", Enum: []string{"pro", "premium"}},
			"page":     {Type: "integer", Minimum: FloatPtr(1)},
		},
		Required: []string{"email", "password"},
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name      string
		input     map[string]interface{}
		wantValid bool
		wantField string
		wantCode  string
	}{
		{
			name:      "valid with unrelated process variables",
			input:     map[string]interface{}{"email": "ada@example.com", "password": "hunter22", "processStage": "signup"},
			wantValid: true,
		},
		{
			name:      "missing password",
			input:     map[string]interface{}{"email": "ada@example.com"},
			wantField: "password",
			wantCode:  "REQUIRED_FIELD_MISSING",
		},
		{
			name:      "short password",
			input:     map[string]interface{}{"email": "ada@example.com", "password": "abc"},
			wantField: "password",
			wantCode:  "MIN_LENGTH_VIOLATION",
		},
		{
			name:      "bad plan",
			input:     map[string]interface{}{"email": "ada@example.com", "password": "hunter22", "plan": "gold"},
			wantField: "plan",
			wantCode:  "INVALID_ENUM_VALUE",
		},
		{
			name:      "wrong type",
			input:     map[string]interface{}{"email": 42.0, "password": "hunter22"},
			wantField: "email",
			wantCode:  "INVALID_TYPE",
		},
		{
			name:      "page below minimum",
			input:     map[string]interface{}{"email": "ada@example.com", "password": "hunter22", "page": 0.0},
			wantField: "page",
			wantCode:  "MINIMUM_VIOLATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateInput(tt.input, accountSchema())
			assert.Equal(t, tt.wantValid, result.Valid, result.GetErrorMessages())
			if tt.wantValid {
				assert.Empty(t, result.Errors)
				return
			}
			require.True(t, result.HasErrors(tt.wantField), result.GetErrorMessages())
			assert.Equal(t, tt.wantCode, result.GetErrorsForField(tt.wantField)[0].Code)
		})
	}
}

func TestValidateInput_DisallowExtra(t *testing.T) {
	schema := JSONSchema{
		Properties:           map[string]Property{"role": {Type: "string"}},
		AdditionalProperties: BoolPtr(false),
	}
	result := ValidateInput(map[string]interface{}{"role": "Hedge Funds", "other": 1.0}, schema)
	assert.False(t, result.Valid)
	assert.Equal(t, "EXTRA_FIELD", result.Errors[0].Code)
}

func TestValidateTaskType(t *testing.T) {
	assert.NoError(t, ValidateTaskType("account.signin.interactive"))
	assert.NoError(t, ValidateTaskType("account.assign-role"))
	assert.NoError(t, ValidateTaskType("plan.upgrade"))
	assert.Error(t, ValidateTaskType("Plan.Upgrade"))
	assert.Error(t, ValidateTaskType("upgrade"))
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("ada@example.com"))
	assert.False(t, ValidateEmail("ada@"))
}
