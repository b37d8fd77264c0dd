package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a classified analysis failure.
type ErrorCode string

const (
	ErrTimeout              ErrorCode = "timeout"
	ErrRateLimit            ErrorCode = "rate_limit"
	ErrModelUnavailable     ErrorCode = "model_unavailable"
	ErrContextCancelled     ErrorCode = "context_cancelled"
	ErrAuthFailed           ErrorCode = "auth_failed"
	ErrEmptyTranscriptCode  ErrorCode = "empty_transcript"
	ErrParseFailed          ErrorCode = "parse_failed"
	ErrTemplateNotFoundCode ErrorCode = "template_not_found"
	ErrStorage              ErrorCode = "storage_error"
	ErrProcessingError      ErrorCode = "processing_error"
)

// Pipeline stages reported in AnalysisError.Stage.
const (
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StageParse     = "parse"
	StagePrompt    = "prompt"
	StageGenerate  = "generate"
	StageSave      = "save"
)

// AnalysisError is a classified failure of one analysis step.
type AnalysisError struct {
	Code      ErrorCode
	Stage     string
	MeetingID string
	Message   string
	Duration  time.Duration
	Cause     error
}

func (e *AnalysisError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Stage != "" {
		b.WriteString(": ")
		b.WriteString(e.Stage)
	}
	if e.MeetingID != "" {
		fmt.Fprintf(&b, " (meeting %s)", e.MeetingID)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Duration > 0 {
		fmt.Fprintf(&b, " after %s", e.Duration.Truncate(time.Millisecond))
	}
	return b.String()
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Coded is implemented by errors that know their own ErrorCode.
type Coded interface {
	ErrorCode() ErrorCode
}

// ClassifyError maps err to an *AnalysisError. An error that already is an
// *AnalysisError is returned as is. Unknown errors get ErrProcessingError.
func ClassifyError(err error, stage string) *AnalysisError {
	if err == nil {
		return nil
	}

	var existing *AnalysisError
	if errors.As(err, &existing) {
		return existing
	}

	ae := &AnalysisError{Stage: stage, Cause: err, Message: err.Error()}

	var coded Coded
	if errors.As(err, &coded) && coded.ErrorCode() != "" {
		ae.Code = coded.ErrorCode()
		return ae
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		ae.Code = ErrTimeout
		ae.Message = "operation timed out"
		return ae
	case errors.Is(err, context.Canceled):
		ae.Code = ErrContextCancelled
		ae.Message = "operation cancelled"
		return ae
	case errors.Is(err, ErrEmptyTranscript):
		ae.Code = ErrEmptyTranscriptCode
		return ae
	case errors.Is(err, ErrNoUtterances):
		ae.Code = ErrParseFailed
		return ae
	case errors.Is(err, ErrTemplateNotFound):
		ae.Code = ErrTemplateNotFoundCode
		return ae
	}

	lower := strings.ToLower(err.Error())
	switch {
	case containsAny(lower, "rate limit", "429", "too many requests", "quota exceeded", "resource_exhausted"):
		ae.Code = ErrRateLimit
	case containsAny(lower, "401", "403", "api key not valid", "invalid api key", "permission_denied", "unauthenticated"):
		ae.Code = ErrAuthFailed
	case containsAny(lower, "deadline exceeded", "timeout", "timed out"):
		ae.Code = ErrTimeout
	case containsAny(lower, "connection refused", "unavailable", "503", "502", "no such host", "overloaded"):
		ae.Code = ErrModelUnavailable
	case stage == StageFetch || stage == StageSave:
		ae.Code = ErrStorage
	default:
		ae.Code = ErrProcessingError
	}
	return ae
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsTimeout returns true if err classifies as a timeout.
func IsTimeout(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == ErrTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsErrorRetryable returns true if err is an *AnalysisError with a retryable code.
func IsErrorRetryable(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return IsRetryable(ae.Code)
	}
	return false
}

// CodeOf returns the classified code of err, or "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return ClassifyError(err, "").Code
}
