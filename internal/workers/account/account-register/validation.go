// internal/workers/account/account-register/validation.go
package accountregister

import "interview-prep-workers/internal/common/validation"

func GetInputSchema(minPasswordLength int) validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"email", "password", "role"},
		Properties: map[string]validation.Property{
			"email": {
				Type:        "string",
				Description: "Sign-up email address",
				Format:      "email",
				MaxLength:   validation.IntPtr(255),
			},
			"password": {
				Type:        "string",
				Description: "Initial password",
				MinLength:   validation.IntPtr(minPasswordLength),
				MaxLength:   validation.IntPtr(128),
			},
			"role": {
				Type:        "string",
				Description: "Target role chosen at sign-up, e.g. Investment Banking",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(100),
			},
		},
	}
}
