// Package errors provides common domain error types for the focusflow application.
//
// Input problems (an empty agenda, an empty transcript, a missing mode-specific
// input) are sentinel errors wrapped together with ErrValidation so callers can
// either branch on the specific cause or treat every input problem alike:
//
//	import fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
//
//	if fferrors.IsValidation(err) {
//	    // reply 400 with err.Error()
//	}
//	if errors.Is(err, fferrors.ErrEmptyAgenda) {
//	    // agenda-specific hint
//	}
package errors

import (
	"errors"
	"fmt"
)

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized indicates missing or unusable service credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidState indicates the operation is not valid for the current state.
	ErrInvalidState = errors.New("invalid state")
)

// Analysis input errors. Each is reported to the caller as a distinct message
// and never produces a partial report.
var (
	// ErrEmptyAgenda indicates the agenda text produced no items.
	ErrEmptyAgenda = errors.New("agenda parsing produced no items")

	// ErrEmptyTranscript indicates the transcript produced no non-empty segments.
	ErrEmptyTranscript = errors.New("transcript contains no usable text")

	// ErrMissingInput indicates the file or text required by the chosen mode was not supplied.
	ErrMissingInput = errors.New("missing input for transcript mode")

	// ErrUnsupportedMode indicates an unknown transcript mode.
	ErrUnsupportedMode = errors.New("unsupported transcript mode")
)

// Input wraps one of the analysis input sentinels so that both the sentinel and
// ErrValidation match with errors.Is.
func Input(sentinel error, format string, args ...interface{}) error {
	if format == "" {
		return fmt.Errorf("%w: %w", ErrValidation, sentinel)
	}
	return fmt.Errorf("%w: %w: %s", ErrValidation, sentinel, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnauthorized reports whether any error in err's chain is ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
