package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")

	// ErrGeometry marks coordinate problems: a region outside the page,
	// an inconsistent table shape, a header row outside the row range.
	// Attached to results as warnings, never fatal for a whole document.
	ErrGeometry = errors.New("geometry error")

	// ErrCollaborator marks a missing or failing external reader (OCR,
	// text layer, page geometry). Recorded per field or per document.
	ErrCollaborator = errors.New("collaborator unavailable")

	// ErrDocumentFailed marks a document that cannot be opened or read at
	// all. Isolated to that document; the rest of a batch continues.
	ErrDocumentFailed = errors.New("document failed")

	// ErrTemplateIntegrity marks a template that references a missing
	// cluster or reference document, or fails to deserialize. Surfaced at
	// load time so callers can recover or re-create.
	ErrTemplateIntegrity = errors.New("template integrity error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
