// internal/workers/content/content-search/validation.go
package contentsearch

import "interview-prep-workers/internal/common/validation"

func GetInputSchema(maxSize int) validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"accountId", "sessionId"},
		Properties: map[string]validation.Property{
			"accountId": {Type: "string", MinLength: validation.IntPtr(1)},
			"sessionId": {Type: "string", MinLength: validation.IntPtr(1)},
			"query": {
				Type:        "string",
				Description: "free text matched against question and answer",
				MaxLength:   validation.IntPtr(256),
			},
			"size": {
				Type:    "integer",
				Minimum: validation.FloatPtr(1),
				Maximum: validation.FloatPtr(float64(maxSize)),
			},
		},
	}
}
