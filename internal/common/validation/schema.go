// Package validation checks job variables against per-task JSON schemas.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema is the subset of JSON Schema used to describe job inputs.
// Zeebe hands workers every process variable in scope, so unknown fields
// are allowed unless AdditionalProperties is set explicitly.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties,omitempty"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties *bool               `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Format      string              `json:"format,omitempty"`
	Default     interface{}         `json:"default,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Pattern     *string             `json:"pattern,omitempty"`
	MinLength   *int                `json:"minLength,omitempty"`
	MaxLength   *int                `json:"maxLength,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var errorCodes = map[string]string{
	"required":                        "REQUIRED_FIELD_MISSING",
	"invalid_type":                    "INVALID_TYPE",
	"enum":                            "INVALID_ENUM_VALUE",
	"string_gte":                      "MIN_LENGTH_VIOLATION",
	"string_lte":                      "MAX_LENGTH_VIOLATION",
	"pattern":                         "PATTERN_MISMATCH",
	"number_gte":                      "MINIMUM_VIOLATION",
	"number_lte":                      "MAXIMUM_VIOLATION",
	"format":                          "INVALID_FORMAT",
	"additional_property_not_allowed": "EXTRA_FIELD",
}

// ValidateInput validates decoded job variables against schema.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	if schema.Type == "" {
		schema.Type = "object"
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(input))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(schema)",
			Message: err.Error(),
			Code:    "SCHEMA_ERROR",
		}}}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		code, ok := errorCodes[re.Type()]
		if !ok {
			code = strings.ToUpper(re.Type())
		}
		errs = append(errs, ValidationError{
			Field:   fieldName(re),
			Message: re.Description(),
			Code:    code,
		})
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })

	return &ValidationResult{Valid: result.Valid(), Errors: errs}
}

// fieldName reports required-property errors against the missing property, not its parent.
func fieldName(re gojsonschema.ResultError) string {
	field := re.Field()
	prop, ok := re.Details()["property"].(string)
	if !ok || prop == "" || field == prop || strings.HasSuffix(field, "."+prop) {
		return field
	}
	if field == "" || field == "(root)" {
		return prop
	}
	return field + "." + prop
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	taskTypePattern = regexp.MustCompile(`^[a-z]+(\.[a-z][a-z-]*)+$`)
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateTaskType checks the domain.action[.detail] naming used for job types.
func ValidateTaskType(taskType string) error {
	if !taskTypePattern.MatchString(taskType) {
		return fmt.Errorf("task type %q must follow format: domain.action (e.g. account.signin.interactive)", taskType)
	}
	return nil
}

func IntPtr(i int) *int { return &i }

func FloatPtr(f float64) *float64 { return &f }

func BoolPtr(b bool) *bool { return &b }
