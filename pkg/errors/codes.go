package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTimeout: {
		Code:            ErrTimeout,
		Retryable:       true,
		Description:     "External call exceeded time limit",
		SuggestedAction: "Raise the request timeout: focusflow config set timeout 5m",
	},
	ErrRateLimit: {
		Code:            ErrRateLimit,
		Retryable:       true,
		Description:     "API rate limit exceeded",
		SuggestedAction: "Wait and retry, or add another key: focusflow auth login --append",
	},
	ErrRateLimitEmbedding: {
		Code:            ErrRateLimitEmbedding,
		Retryable:       true,
		Description:     "Embedding API rate limit exceeded",
		SuggestedAction: "Enable the Redis embedding cache or wait for the quota window to reset",
	},
	ErrModelUnavailable: {
		Code:            ErrModelUnavailable,
		Retryable:       true,
		Description:     "Transcription, embedding or summarization service unavailable",
		SuggestedAction: "Check the service endpoints in: focusflow config show",
	},
	ErrContextCancelled: {
		Code:            ErrContextCancelled,
		Retryable:       false,
		Description:     "Analysis cancelled by user or system",
		SuggestedAction: "Check if cancellation was intentional",
	},
	ErrParseError: {
		Code:            ErrParseError,
		Retryable:       false,
		Description:     "Service response could not be parsed",
		SuggestedAction: "Re-run with --debug to log the raw response",
	},
	ErrEmptyContent: {
		Code:            ErrEmptyContent,
		Retryable:       false,
		Description:     "Service returned no content",
		SuggestedAction: "Verify the input file is not empty or silent",
	},
	ErrEmbeddingDimensionMismatch: {
		Code:            ErrEmbeddingDimensionMismatch,
		Retryable:       false,
		Description:     "Embedding count or dimension does not match the input",
		SuggestedAction: "Flush the embedding cache after changing the embedding model",
	},
	ErrProcessingError: {
		Code:            ErrProcessingError,
		Retryable:       false,
		Description:     "Unclassified analysis error",
		SuggestedAction: "Re-run with --debug and inspect the logs",
	},
}

// IsRetryable returns true if the given error code represents a transient, retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Re-run with --debug and inspect the logs"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
