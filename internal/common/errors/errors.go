// Package errors provides the error taxonomy shared by the collections engine and its job workers.
package errors

import (
	"context"
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

const (
	ErrCodeStorageReadFailed  ErrorCode = "STORAGE_READ_FAILED"
	ErrCodeStorageWriteFailed ErrorCode = "STORAGE_WRITE_FAILED"
	ErrCodeStorageTimeout     ErrorCode = "STORAGE_TIMEOUT"

	ErrCodeChannelLookupFailed  ErrorCode = "CHANNEL_LOOKUP_FAILED"
	ErrCodeTemplateLookupFailed ErrorCode = "TEMPLATE_LOOKUP_FAILED"

	ErrCodeTransportSendFailed ErrorCode = "TRANSPORT_SEND_FAILED"
	ErrCodeTransportTimeout    ErrorCode = "TRANSPORT_TIMEOUT"

	ErrCodeQueueInsertFailed       ErrorCode = "QUEUE_INSERT_FAILED"
	ErrCodePayloadValidationFailed ErrorCode = "PAYLOAD_VALIDATION_FAILED"

	ErrCodeTenantNotFound    ErrorCode = "TENANT_NOT_FOUND"
	ErrCodeTenantNotEligible ErrorCode = "TENANT_NOT_ELIGIBLE"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
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
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
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

func newError(code ErrorCode, message string, retryable bool, cause error, details string) *StandardError {
	if details == "" && cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewStorageReadError wraps a failed read. Deadline overruns become STORAGE_TIMEOUT.
func NewStorageReadError(what string, err error) *StandardError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return newError(ErrCodeStorageTimeout, fmt.Sprintf("Timed out reading %s", what), true, err, "")
	}
	return newError(ErrCodeStorageReadFailed, fmt.Sprintf("Failed to read %s", what), true, err, "")
}

// NewStorageWriteError wraps a failed write.
func NewStorageWriteError(what string, err error) *StandardError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return newError(ErrCodeStorageTimeout, fmt.Sprintf("Timed out writing %s", what), true, err, "")
	}
	return newError(ErrCodeStorageWriteFailed, fmt.Sprintf("Failed to write %s", what), true, err, "")
}

func NewChannelLookupError(tenantID string, err error) *StandardError {
	e := newError(ErrCodeChannelLookupFailed, "Messaging channel lookup failed", true, err, "")
	e.Metadata = map[string]interface{}{"tenantId": tenantID}
	return e
}

func NewTemplateLookupError(templateKey string, err error) *StandardError {
	e := newError(ErrCodeTemplateLookupFailed, "Template lookup failed", true, err, "")
	e.Metadata = map[string]interface{}{"templateKey": templateKey}
	return e
}

// NewTransportSendError wraps an outbound send failure. Deadline overruns become TRANSPORT_TIMEOUT.
func NewTransportSendError(transport string, err error) *StandardError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return newError(ErrCodeTransportTimeout, fmt.Sprintf("Transport '%s' timeout", transport), true, err, "")
	}
	return newError(ErrCodeTransportSendFailed, fmt.Sprintf("Transport '%s' send failed", transport), true, err, "")
}

func NewQueueInsertError(err error) *StandardError {
	return newError(ErrCodeQueueInsertFailed, "Notification queue insert failed", true, err, "")
}

func NewPayloadValidationError(err error) *StandardError {
	return newError(ErrCodePayloadValidationFailed, "Queue payload does not match the worker contract", false, err, "")
}

func NewTenantNotFoundError(tenantID string) *StandardError {
	return newError(ErrCodeTenantNotFound, "Tenant not found", false, nil, fmt.Sprintf("tenantId: %s", tenantID))
}

func NewTenantNotEligibleError(tenantID, reason string) *StandardError {
	return newError(ErrCodeTenantNotEligible, "Tenant is not eligible for collections reminders", false, nil,
		fmt.Sprintf("tenantId: %s, reason: %s", tenantID, reason))
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", false, nil, details)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageReadFailed,
		ErrCodeStorageWriteFailed,
		ErrCodeChannelLookupFailed,
		ErrCodeTemplateLookupFailed,
		ErrCodeQueueInsertFailed,
		ErrCodeTransportSendFailed:
		return 3

	case ErrCodeStorageTimeout,
		ErrCodeTransportTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
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

// AsStandardError returns the StandardError in err's chain, if any.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the error code in err's chain, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}

// IsRetryable reports whether the next invocation may succeed.
func IsRetryable(err error) bool {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Retryable
	}
	return false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "STORAGE"):
		return "DATABASE"
	case strings.Contains(codeStr, "CHANNEL") || strings.Contains(codeStr, "TEMPLATE"):
		return "CONFIGURATION"
	case strings.HasPrefix(codeStr, "TRANSPORT"):
		return "TRANSPORT"
	case strings.HasPrefix(codeStr, "QUEUE") || strings.Contains(codeStr, "PAYLOAD"):
		return "QUEUE"
	case strings.HasPrefix(codeStr, "TENANT"):
		return "TENANT"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
