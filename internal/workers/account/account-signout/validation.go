// internal/workers/account/account-signout/validation.go
package accountsignout

import "interview-prep-workers/internal/common/validation"

// GetInputSchema takes the session from the flat accountId/sessionId variables
// every sign-in worker writes.
func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"accountId"},
		Properties: map[string]validation.Property{
			"accountId": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
			},
			"sessionId": {
				Type:        "string",
				Description: "Session to end; absent or empty means there is nothing to end",
			},
		},
	}
}
