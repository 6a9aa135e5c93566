package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeIO           ErrorType = "io"
	ErrorTypeAPI          ErrorType = "api"
	ErrorTypeRender       ErrorType = "render"
	ErrorTypeOCR          ErrorType = "ocr"
	ErrorTypeAnalysis     ErrorType = "analysis"
	ErrorTypeSearch       ErrorType = "search"
	ErrorTypeProfileFetch ErrorType = "profile_fetch"
)

// ErrProfileNotFound is wrapped by ProfileFetchError when the provider does not
// recognise a handle. It is never retried.
var ErrProfileNotFound = errors.New("profile not recognized by provider")

// ErrEmptyTranscript is wrapped by the OCRError raised when no page of a deck
// produced text. Single page failures never raise it.
var ErrEmptyTranscript = errors.New("transcript is empty")

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether any DomainError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var de *DomainError
		if !errors.As(err, &de) {
			return false
		}
		if de.Type == errType {
			return true
		}
		err = de.Err
	}
	return false
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

func RenderError(message string, err error) *DomainError {
	return NewError(ErrorTypeRender, message, err)
}

func OCRError(message string, err error) *DomainError {
	return NewError(ErrorTypeOCR, message, err)
}

func AnalysisError(message string, err error) *DomainError {
	return NewError(ErrorTypeAnalysis, message, err)
}

func SearchError(message string, err error) *DomainError {
	return NewError(ErrorTypeSearch, message, err)
}

func ProfileFetchError(message string, err error) *DomainError {
	return NewError(ErrorTypeProfileFetch, message, err)
}
