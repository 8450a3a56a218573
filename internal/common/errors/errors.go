// Package errors provides the standardized error model shared by the HTTP and
// workflow triggers of the job notifier.
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

// Fatal codes abort a pipeline run; per-item codes are only ever logged.
const (
	ErrCodeInvalidJobPosting        ErrorCode = "INVALID_JOB_POSTING"
	ErrCodeProfileLoadFailed        ErrorCode = "PROFILE_LOAD_FAILED"
	ErrCodeNotificationInsertFailed ErrorCode = "NOTIFICATION_INSERT_FAILED"

	ErrCodeMatchEvaluationFailed ErrorCode = "MATCH_EVALUATION_FAILED"
	ErrCodeIdentityLookupFailed  ErrorCode = "IDENTITY_LOOKUP_FAILED"
	ErrCodeTelegramSendFailed    ErrorCode = "TELEGRAM_SEND_FAILED"
	ErrCodeEmailSendFailed       ErrorCode = "EMAIL_SEND_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeExternalService          ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
}

// Is matches any StandardError carrying the same code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is. They match any StandardError with the same code.
var (
	ErrInvalidJobPosting        = &StandardError{Code: ErrCodeInvalidJobPosting}
	ErrProfileLoadFailed        = &StandardError{Code: ErrCodeProfileLoadFailed}
	ErrNotificationInsertFailed = &StandardError{Code: ErrCodeNotificationInsertFailed}
)

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
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

// NewInvalidJobPostingError rejects a trigger payload. Never retried.
func NewInvalidJobPostingError(details string) *StandardError {
	return newError(ErrCodeInvalidJobPosting, "Invalid job posting payload", details, false)
}

// NewProfileLoadFailedError aborts a run when subscriber profiles cannot be read.
func NewProfileLoadFailedError(err error) *StandardError {
	return newError(ErrCodeProfileLoadFailed, "Failed to load subscriber profiles", err.Error(), true)
}

// NewNotificationInsertFailedError aborts a run when the in-app batch insert fails.
func NewNotificationInsertFailedError(count int, err error) *StandardError {
	return newError(ErrCodeNotificationInsertFailed, "Failed to insert notifications",
		fmt.Sprintf("count: %d, error: %s", count, err.Error()), true)
}

func NewMatchEvaluationFailedError(userID string, err error) *StandardError {
	return newError(ErrCodeMatchEvaluationFailed, "Match evaluation failed",
		fmt.Sprintf("userId: %s, error: %s", userID, err.Error()), false)
}

func NewIdentityLookupFailedError(userID string, err error) *StandardError {
	return newError(ErrCodeIdentityLookupFailed, "Email address lookup failed",
		fmt.Sprintf("userId: %s, error: %s", userID, err.Error()), false)
}

func NewTelegramSendFailedError(chatID string, err error) *StandardError {
	return newError(ErrCodeTelegramSendFailed, "Telegram delivery failed",
		fmt.Sprintf("chatId: %s, error: %s", chatID, err.Error()), false)
}

func NewEmailSendFailedError(to string, err error) *StandardError {
	return newError(ErrCodeEmailSendFailed, "Email delivery failed",
		fmt.Sprintf("to: %s, error: %s", to, err.Error()), false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

// NewExternalServiceError wraps a non-2xx or transport failure of a provider.
func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidJobPosting:        "INVALID_JOB_POSTING",
	ErrCodeProfileLoadFailed:        "PROFILE_LOAD_FAILED",
	ErrCodeNotificationInsertFailed: "NOTIFICATION_INSERT_FAILED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeExternalService:          "EXTERNAL_SERVICE_ERROR",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProfileLoadFailed,
		ErrCodeNotificationInsertFailed,
		ErrCodeDatabaseConnectionFailed:
		return 3
	case ErrCodeExternalService:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
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

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "PROFILE") || strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "INSERT"):
		return "DATABASE"
	case strings.Contains(codeStr, "TELEGRAM") || strings.Contains(codeStr, "EMAIL"):
		return "DELIVERY"
	case strings.Contains(codeStr, "IDENTITY"):
		return "IDENTITY"
	case strings.Contains(codeStr, "MATCH"):
		return "MATCHING"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "EXTERNAL"):
		return "EXTERNAL"
	default:
		return "OTHER"
	}
}
