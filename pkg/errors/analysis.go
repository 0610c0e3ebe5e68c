package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a classified analysis error.
type ErrorCode string

const (
	ErrTimeout                    ErrorCode = "timeout"
	ErrRateLimit                  ErrorCode = "rate_limit"
	ErrRateLimitEmbedding         ErrorCode = "rate_limit_embedding"
	ErrModelUnavailable           ErrorCode = "model_unavailable"
	ErrContextCancelled           ErrorCode = "context_cancelled"
	ErrParseError                 ErrorCode = "parse_error"
	ErrEmptyContent               ErrorCode = "empty_content"
	ErrEmbeddingDimensionMismatch ErrorCode = "embedding_dimension_mismatch"
	ErrProcessingError            ErrorCode = "processing_error"
)

// Analysis stages used as AnalysisError.Stage and as metric/span labels.
const (
	StageTranscribe = "transcribe"
	StageEmbed      = "embed"
	StageSummarize  = "summarize"
	StageStore      = "store"
)

// AnalysisError is a structured error for failures in an external analysis stage.
type AnalysisError struct {
	Code     ErrorCode
	Stage    string
	Message  string
	Duration time.Duration
	Timeout  time.Duration
	Cause    error
}

func (e *AnalysisError) Error() string {
	if e.Timeout > 0 && e.Duration > 0 {
		return fmt.Sprintf("%s: %s timed out after %s (limit: %s)", e.Code, e.Stage, e.Duration.Truncate(time.Second), e.Timeout.Truncate(time.Second))
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// ClassifyError inspects an error and returns an *AnalysisError with the appropriate code.
// Errors that already are an *AnalysisError are returned unchanged. Anything that
// matches no known pattern is classified as ErrProcessingError.
func ClassifyError(err error, stage string) *AnalysisError {
	if err == nil {
		return nil
	}

	var existing *AnalysisError
	if errors.As(err, &existing) {
		return existing
	}

	ae := &AnalysisError{
		Stage: stage,
		Cause: err,
	}

	if errors.Is(err, context.DeadlineExceeded) {
		ae.Code = ErrTimeout
		ae.Message = "operation timed out"
		return ae
	}

	if errors.Is(err, context.Canceled) {
		ae.Code = ErrContextCancelled
		ae.Message = "operation cancelled"
		return ae
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	ae.Message = msg

	switch {
	case strings.Contains(lower, "empty content") || strings.Contains(lower, "no content") || strings.Contains(lower, "empty response"):
		ae.Code = ErrEmptyContent
	case strings.Contains(lower, "dimension mismatch") || strings.Contains(lower, "embedding count"):
		ae.Code = ErrEmbeddingDimensionMismatch
	case strings.Contains(lower, "embed") && (strings.Contains(lower, "rate limit") || strings.Contains(lower, "quota") || strings.Contains(lower, "429")):
		ae.Code = ErrRateLimitEmbedding
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "quota exceeded") || strings.Contains(lower, "resource_exhausted"):
		ae.Code = ErrRateLimit
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "unavailable") || strings.Contains(lower, "503") ||
		strings.Contains(lower, "no such host"):
		ae.Code = ErrModelUnavailable
	case strings.Contains(lower, "unmarshal") || strings.Contains(lower, "decode response") || strings.Contains(lower, "invalid character"):
		ae.Code = ErrParseError
	default:
		ae.Code = ErrProcessingError
	}
	return ae
}

// CodeOf returns the classified code of err, or ErrProcessingError when err
// carries no AnalysisError.
func CodeOf(err error) ErrorCode {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrProcessingError
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == ErrTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsErrorRetryable returns true if the error is likely transient and worth retrying.
func IsErrorRetryable(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return IsRetryable(ae.Code)
	}
	return false
}
