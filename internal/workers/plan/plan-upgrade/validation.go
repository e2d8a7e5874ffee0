// internal/workers/plan/plan-upgrade/validation.go
package planupgrade

import "interview-prep-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"accountId", "sessionId", "plan"},
		Properties: map[string]validation.Property{
			"accountId": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
			},
			"sessionId": {
				Type:        "string",
				Description: "Signed-in session; upgrades require a live session",
				MinLength:   validation.IntPtr(1),
			},
			"plan": {
				Type:        "string",
				Description: "Target plan",
				Enum:        []string{"pro", "premium"},
			},
		},
	}
}
