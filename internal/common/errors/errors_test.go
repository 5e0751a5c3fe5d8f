package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorageReadError_Timeout(t *testing.T) {
	err := NewStorageReadError("rules", fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrCodeStorageTimeout, err.Code)
	assert.True(t, err.Retryable)
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
}

func TestNewStorageReadError_Generic(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewStorageReadError("rules", cause)
	assert.Equal(t, ErrCodeStorageReadFailed, err.Code)
	assert.Equal(t, "connection refused", err.Details)
	assert.ErrorIs(t, err, cause)
}

func TestAsStandardError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("tenant t1: %w", NewTenantNotFoundError("t1"))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeTenantNotFound, stdErr.Code)
	assert.Equal(t, ErrCodeTenantNotFound, CodeOf(wrapped))
	assert.False(t, IsRetryable(wrapped))
}

func TestCodeOf_Plain(t *testing.T) {
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), CodeOf(stderrors.New("boom")))
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name    string
		err     *StandardError
		retries int
	}{
		{"transport failure retries", NewTransportSendError("sns", stderrors.New("throttled")), 3},
		{"transport timeout retries less", NewTransportSendError("sns", context.DeadlineExceeded), 2},
		{"invalid input never retries", NewInvalidInputError("tenantId is required"), 0},
		{"payload validation never retries", NewPayloadValidationError(stderrors.New("bad phone")), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.retries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, bpmn.Code, vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeStorageTimeout))
	assert.Equal(t, "TRANSPORT", GetErrorCategory(ErrCodeTransportSendFailed))
	assert.Equal(t, "QUEUE", GetErrorCategory(ErrCodePayloadValidationFailed))
	assert.Equal(t, "CONFIGURATION", GetErrorCategory(ErrCodeTemplateLookupFailed))
	assert.Equal(t, "TENANT", GetErrorCategory(ErrCodeTenantNotEligible))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInput))
}
