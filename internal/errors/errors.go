// Package errors provides structured pipeline errors with stage and code.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Stage identifies which pipeline stage produced an error.
type Stage string

const (
	StageCapture     Stage = "capture"
	StageRecognition Stage = "recognition"
	StageCorrection  Stage = "correction"
	StageTranslation Stage = "translation"
	StagePersistence Stage = "persistence"
	StageScheduler   Stage = "scheduler"
)

// Code classifies an error within its stage.
type Code string

const (
	CodeUnknown                Code = "UNKNOWN"
	CodeCaptureFailed          Code = "CAPTURE_FAILED"
	CodeRecognitionFailed      Code = "RECOGNITION_FAILED"
	CodeRecognitionUnavailable Code = "RECOGNITION_UNAVAILABLE"
	CodeCorrectionInternal     Code = "CORRECTION_INTERNAL"
	CodeTranslationUnavailable Code = "TRANSLATION_UNAVAILABLE"
	CodeTranslationFailed      Code = "TRANSLATION_FAILED"
	CodePersistenceFailed      Code = "PERSISTENCE_FAILED"
	CodeInvalidArgument        Code = "INVALID_ARGUMENT"
	CodeTimeout                Code = "TIMEOUT"
)

// AppError is the base error type carrying stage, code and optional cause.
type AppError struct {
	Stage   Stage
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s/%s] %s", e.Stage, e.Code, e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates an AppError with the given stage, code and message.
func New(stage Stage, code Code, msg string) *AppError {
	return &AppError{Stage: stage, Code: code, Message: msg}
}

// Newf creates an AppError with a formatted message.
func Newf(stage Stage, code Code, format string, args ...any) *AppError {
	return &AppError{Stage: stage, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with stage and code context.
func Wrap(err error, stage Stage, code Code, msg string) *AppError {
	return &AppError{Stage: stage, Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, stage Stage, code Code, format string, args ...any) *AppError {
	return &AppError{Stage: stage, Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// IsCode reports whether err (or anything it wraps) carries the given code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// StageOf returns the stage of err, or StageScheduler when err carries none.
func StageOf(err error) Stage {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Stage
	}
	return StageScheduler
}

// IsRetryable reports whether the error is worth retrying on a later cycle
// rather than treating the collaborator as misconfigured.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return true
	}
	switch appErr.Code {
	case CodeCaptureFailed, CodeRecognitionFailed, CodeTranslationFailed, CodeTimeout:
		return true
	default:
		return false
	}
}
