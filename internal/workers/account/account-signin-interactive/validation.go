// internal/workers/account/account-signin-interactive/validation.go
package accountsignininteractive

import "interview-prep-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"code": {
				Type:        "string",
				Description: "Authorization code returned by the consent screen",
				MaxLength:   validation.IntPtr(2048),
			},
			"state": {
				Type:        "string",
				Description: "Opaque state echoed by the provider",
				MaxLength:   validation.IntPtr(512),
			},
			"error": {
				Type:        "string",
				Description: "Error reported by the provider instead of a code",
				MaxLength:   validation.IntPtr(256),
			},
			"redirectUri": {
				Type:        "string",
				Description: "Redirect URI used for the consent screen",
				MaxLength:   validation.IntPtr(1024),
			},
		},
	}
}
