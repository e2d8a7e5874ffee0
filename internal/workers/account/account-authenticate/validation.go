// internal/workers/account/account-authenticate/validation.go
package accountauthenticate

import "interview-prep-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"email", "password"},
		Properties: map[string]validation.Property{
			"email": {
				Type:        "string",
				Description: "Account email address",
				MinLength:   validation.IntPtr(3),
				MaxLength:   validation.IntPtr(255),
			},
			"password": {
				Type:        "string",
				Description: "Account password",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(128),
			},
		},
	}
}
