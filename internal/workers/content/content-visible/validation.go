// internal/workers/content/content-visible/validation.go
package contentvisible

import "interview-prep-workers/internal/common/validation"

// MaxPage bounds the page variables so offsets stay well inside int range.
const MaxPage = 10000

func GetInputSchema(maxPageSize int) validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"accountId": {Type: "string"},
			"sessionId": {Type: "string"},
			"basicPage": {
				Type:        "integer",
				Description: "1-based page of basic questions",
				Minimum:     validation.FloatPtr(1),
				Maximum:     validation.FloatPtr(MaxPage),
			},
			"advancedPage": {
				Type:        "integer",
				Description: "1-based page of advanced questions",
				Minimum:     validation.FloatPtr(1),
				Maximum:     validation.FloatPtr(MaxPage),
			},
			"pageSize": {
				Type:    "integer",
				Minimum: validation.FloatPtr(1),
				Maximum: validation.FloatPtr(float64(maxPageSize)),
			},
		},
	}
}
