// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Account and entitlement errors
const (
	ErrCodeUserCancelled        ErrorCode = "USER_CANCELLED"
	ErrCodeInvalidCredential    ErrorCode = "INVALID_CREDENTIAL"
	ErrCodeAccountNotFound      ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeAccountAlreadyExists ErrorCode = "ACCOUNT_ALREADY_EXISTS"
	ErrCodeUnauthenticated      ErrorCode = "UNAUTHENTICATED"
	ErrCodeUpstream             ErrorCode = "UPSTREAM_ERROR"
	ErrCodeInvalidPlan          ErrorCode = "INVALID_PLAN"
)

// Storage, search and delivery errors
const (
	ErrCodeDocumentNotFound         ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeContentLoadFailed ErrorCode = "CONTENT_LOAD_FAILED"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// User-facing messages shown by the sign-in and upgrade flows.
const (
	MsgSignInCancelled   = "Google sign-in popup was closed before completion."
	MsgEmailInUse        = "This email is already in use. Please log in instead."
	MsgAccountNotFound   = "No account found with this email. Please sign up."
	MsgIncorrectPassword = "Incorrect password. Please try again."
	MsgNotLoggedIn       = "User is not logged in."
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the upstream cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another StandardError by code, so sentinel comparisons work through wrapping.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError finds the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain carries a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserCancelledError reports an interactive sign-in dismissed or timed out by the user.
func NewUserCancelledError(details string) *StandardError {
	return newError(ErrCodeUserCancelled, MsgSignInCancelled, details, false)
}

// NewInvalidCredentialError reports a wrong password.
func NewInvalidCredentialError(email string) *StandardError {
	return newError(ErrCodeInvalidCredential, MsgIncorrectPassword, fmt.Sprintf("email: %s", email), false)
}

// NewAccountNotFoundError reports that no credential exists for the email.
func NewAccountNotFoundError(email string) *StandardError {
	return newError(ErrCodeAccountNotFound, MsgAccountNotFound, fmt.Sprintf("email: %s", email), false)
}

// NewAccountAlreadyExistsError reports a registration attempt for an existing credential.
func NewAccountAlreadyExistsError(email string) *StandardError {
	return newError(ErrCodeAccountAlreadyExists, MsgEmailInUse, fmt.Sprintf("email: %s", email), false)
}

// NewUnauthenticatedError reports an operation that needs a signed-in session.
func NewUnauthenticatedError(details string) *StandardError {
	return newError(ErrCodeUnauthenticated, MsgNotLoggedIn, details, false)
}

// NewUpstreamError wraps a failure from an external collaborator.
func NewUpstreamError(service string, err error) *StandardError {
	e := newError(ErrCodeUpstream, fmt.Sprintf("Upstream service '%s' error", service), errString(err), true)
	e.cause = err
	return e
}

// NewInvalidPlanError reports an unknown upgrade target.
func NewInvalidPlanError(plan string) *StandardError {
	return newError(ErrCodeInvalidPlan, "Unsupported plan", fmt.Sprintf("plan: %s", plan), false)
}

// NewDocumentNotFoundError reports a missing record in the document store.
func NewDocumentNotFoundError(collection, id string) *StandardError {
	return newError(ErrCodeDocumentNotFound, "Document not found",
		fmt.Sprintf("collection: %s, id: %s", collection, id), false)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	e := newError(ErrCodeDatabaseConnectionFailed, "Database connection error", errString(err), true)
	e.cause = err
	return e
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	e := newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("operation: %s, error: %s", operation, errString(err)), true)
	e.cause = err
	return e
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(operation string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("operation: %s", operation), true)
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	e := newError(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", errString(err), true)
	e.cause = err
	return e
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(index string, err error) *StandardError {
	e := newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, errString(err)), true)
	e.cause = err
	return e
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError(index string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Elasticsearch query timeout", fmt.Sprintf("index: %s", index), true)
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(indexName string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Elasticsearch index not found", fmt.Sprintf("indexName: %s", indexName), false)
}

// NewContentLoadFailedError reports an unreadable or invalid question bank.
func NewContentLoadFailedError(source string, err error) *StandardError {
	e := newError(ErrCodeContentLoadFailed, "Question bank could not be loaded",
		fmt.Sprintf("source: %s, error: %s", source, errString(err)), false)
	e.cause = err
	return e
}

// NewValidationFailedError reports invalid job input.
func NewValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Input validation failed", details, false)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	e := newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, errString(err)), true)
	e.cause = err
	return e
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. BPMN mapping
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeUserCancelled:                 "USER_CANCELLED",
	ErrCodeInvalidCredential:             "INVALID_CREDENTIAL",
	ErrCodeAccountNotFound:               "ACCOUNT_NOT_FOUND",
	ErrCodeAccountAlreadyExists:          "ACCOUNT_ALREADY_EXISTS",
	ErrCodeUnauthenticated:               "UNAUTHENTICATED",
	ErrCodeUpstream:                      "UPSTREAM_ERROR",
	ErrCodeInvalidPlan:                   "INVALID_PLAN",
	ErrCodeDocumentNotFound:              "DOCUMENT_NOT_FOUND",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:          "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:                  "QUERY_TIMEOUT",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeSearchQueryFailed:             "SEARCH_QUERY_FAILED",
	ErrCodeSearchTimeout:                 "SEARCH_TIMEOUT",
	ErrCodeIndexNotFound:                 "INDEX_NOT_FOUND",
	ErrCodeContentLoadFailed:             "CONTENT_LOAD_FAILED",
	ErrCodeValidationFailed:              "VALIDATION_FAILED",
	ErrCodeNotificationSendFailed:        "NOTIFICATION_SEND_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstream,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout:
		return 2 // Partial retry for timeouts

	default:
		return 0 // Business errors: no retry
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ACCOUNT") || strings.Contains(codeStr, "CREDENTIAL") ||
		strings.Contains(codeStr, "UNAUTHENTICATED") || strings.Contains(codeStr, "CANCELLED"):
		return "AUTH"
	case strings.Contains(codeStr, "PLAN"):
		return "ENTITLEMENT"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "DOCUMENT"):
		return "DATABASE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "CONTENT"):
		return "CONTENT"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "UPSTREAM"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
