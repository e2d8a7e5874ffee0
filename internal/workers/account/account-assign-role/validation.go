// internal/workers/account/account-assign-role/validation.go
package accountassignrole

import "interview-prep-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"accountId", "role"},
		Properties: map[string]validation.Property{
			"accountId": {
				Type:        "string",
				Description: "Account whose role is set",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(128),
			},
			"role": {
				Type:        "string",
				Description: "Free-form target role",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(100),
			},
		},
	}
}
