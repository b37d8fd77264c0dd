// Package errors provides domain error types for meeting analysis.
//
// Sentinel errors describe conditions callers branch on. ErrorCode and
// AnalysisError classify failures of the analysis pipeline so results can
// carry a stable code and the CLI can suggest a next step.
//
// Usage:
//
//	import mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
//
//	if mtaerrors.IsTemplateNotFound(err) {
//	    // fall back to the built-in template
//	}
//
//	ae := mtaerrors.ClassifyError(err, mtaerrors.StageGenerate)
//	if mtaerrors.IsRetryable(ae.Code) {
//	    // retry
//	}
package errors

import "errors"

var (
	// ErrNotFound indicates the requested record was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState indicates the operation is not valid for the current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrEmptyTranscript indicates a meeting had no transcript text.
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrNoUtterances indicates a transcript produced no utterances.
	ErrNoUtterances = errors.New("no utterances parsed")

	// ErrTemplateNotFound indicates an unknown prompt template name or version.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrNotConfigured indicates a required backend or credential is missing.
	ErrNotConfigured = errors.New("not configured")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsEmptyTranscript reports whether any error in err's chain is ErrEmptyTranscript.
func IsEmptyTranscript(err error) bool {
	return errors.Is(err, ErrEmptyTranscript)
}

// IsNoUtterances reports whether any error in err's chain is ErrNoUtterances.
func IsNoUtterances(err error) bool {
	return errors.Is(err, ErrNoUtterances)
}

// IsTemplateNotFound reports whether any error in err's chain is ErrTemplateNotFound.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsNotConfigured reports whether any error in err's chain is ErrNotConfigured.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
