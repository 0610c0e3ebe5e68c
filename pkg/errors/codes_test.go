package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeRegistry_Completeness(t *testing.T) {
	allCodes := []ErrorCode{
		ErrTimeout,
		ErrRateLimit,
		ErrRateLimitEmbedding,
		ErrModelUnavailable,
		ErrContextCancelled,
		ErrParseError,
		ErrEmptyContent,
		ErrEmbeddingDimensionMismatch,
		ErrProcessingError,
	}

	for _, code := range allCodes {
		t.Run(string(code), func(t *testing.T) {
			info, ok := ErrorCodeRegistry[code]
			assert.True(t, ok, "ErrorCode %s should be in registry", code)
			assert.Equal(t, code, info.Code)
			assert.NotEmpty(t, info.Description)
			assert.NotEmpty(t, info.SuggestedAction)
		})
	}
}

func TestIsRetryable_ErrorCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected bool
	}{
		{ErrTimeout, true},
		{ErrRateLimit, true},
		{ErrRateLimitEmbedding, true},
		{ErrModelUnavailable, true},
		{ErrContextCancelled, false},
		{ErrParseError, false},
		{ErrEmptyContent, false},
		{ErrEmbeddingDimensionMismatch, false},
		{ErrProcessingError, false},
		{ErrorCode("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.code))
		})
	}
}

func TestGetDescription_Unknown(t *testing.T) {
	assert.Equal(t, "Unknown error", GetDescription(ErrorCode("nope")))
	assert.Equal(t, "API rate limit exceeded", GetDescription(ErrRateLimit))
}

func TestGetSuggestedAction_Fallback(t *testing.T) {
	assert.Contains(t, GetSuggestedAction(ErrorCode("nope")), "--debug")
	assert.Contains(t, GetSuggestedAction(ErrTimeout), "focusflow config set timeout")
}
