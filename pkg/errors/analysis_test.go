package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil, StageEmbed))
}

func TestClassifyError_Context(t *testing.T) {
	result := ClassifyError(fmt.Errorf("embed: %w", context.DeadlineExceeded), StageEmbed)
	require.NotNil(t, result)
	assert.Equal(t, ErrTimeout, result.Code)
	assert.Equal(t, StageEmbed, result.Stage)
	assert.Equal(t, "operation timed out", result.Message)

	result = ClassifyError(context.Canceled, StageSummarize)
	require.NotNil(t, result)
	assert.Equal(t, ErrContextCancelled, result.Code)
	assert.Equal(t, "operation cancelled", result.Message)
}

func TestClassifyError_Patterns(t *testing.T) {
	tests := []struct {
		name     string
		errorMsg string
		want     ErrorCode
	}{
		{"rate limit", "rate limit exceeded", ErrRateLimit},
		{"429 status", "HTTP 429 error", ErrRateLimit},
		{"too many requests", "too many requests", ErrRateLimit},
		{"resource exhausted", "RESOURCE_EXHAUSTED: try later", ErrRateLimit},
		{"embedding quota", "embed content: quota exceeded", ErrRateLimitEmbedding},
		{"connection refused", "dial tcp 127.0.0.1:9000: connection refused", ErrModelUnavailable},
		{"503", "whisper returned 503", ErrModelUnavailable},
		{"no such host", "lookup whisper: no such host", ErrModelUnavailable},
		{"empty response", "gemini returned empty response", ErrEmptyContent},
		{"embedding count", "embedding count mismatch: got 2 want 3", ErrEmbeddingDimensionMismatch},
		{"dimension", "vector dimension mismatch", ErrEmbeddingDimensionMismatch},
		{"decode", "decode response: unexpected EOF", ErrParseError},
		{"unknown", "something strange happened", ErrProcessingError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyError(errors.New(tt.errorMsg), StageTranscribe)
			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.Code)
			assert.Equal(t, tt.errorMsg, result.Message)
		})
	}
}

func TestClassifyError_KeepsExisting(t *testing.T) {
	orig := &AnalysisError{Code: ErrParseError, Stage: StageSummarize, Message: "bad json"}
	result := ClassifyError(fmt.Errorf("wrap: %w", orig), StageEmbed)
	assert.Same(t, orig, result)
}

func TestAnalysisError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AnalysisError
		want string
	}{
		{
			name: "with stage",
			err:  &AnalysisError{Code: ErrRateLimit, Stage: StageEmbed, Message: "429"},
			want: "rate_limit: embed: 429",
		},
		{
			name: "without stage",
			err:  &AnalysisError{Code: ErrProcessingError, Message: "boom"},
			want: "processing_error: boom",
		},
		{
			name: "timeout",
			err: &AnalysisError{Code: ErrTimeout, Stage: StageTranscribe, Message: "x",
				Duration: 95 * time.Second, Timeout: 90 * time.Second},
			want: "timeout: transcribe timed out after 1m35s (limit: 1m30s)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsErrorRetryable(t *testing.T) {
	assert.True(t, IsErrorRetryable(ClassifyError(errors.New("429"), StageEmbed)))
	assert.False(t, IsErrorRetryable(ClassifyError(errors.New("weird"), StageEmbed)))
	assert.False(t, IsErrorRetryable(errors.New("plain")))
	assert.True(t, IsTimeout(ClassifyError(context.DeadlineExceeded, StageEmbed)))
	assert.Equal(t, ErrProcessingError, CodeOf(errors.New("plain")))
	assert.Equal(t, ErrRateLimit, CodeOf(ClassifyError(errors.New("rate limit"), StageEmbed)))
}
