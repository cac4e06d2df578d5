package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
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
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// Extraction error taxonomy. ErrParse and ErrUnsupportedFormat are fatal for a
// document; the rest are contained by the pipeline.
var (
	ErrParse             = errors.New("document could not be parsed")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingDependency = errors.New("missing dependency")
	ErrPageConversion    = errors.New("page conversion failed")
	ErrOCR               = errors.New("OCR failed")
	ErrBudgetExceeded    = errors.New("run budget exceeded")
	ErrCanceled          = errors.New("run cancelled")
)

// PageError is a fault scoped to one page of a document.
type PageError struct {
	Page  int
	Kind  error
	Cause error
}

func (e *PageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
	}
	return e.Kind.Error()
}

func (e *PageError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// NewPageError wraps cause as a page-scoped fault of the given kind.
func NewPageError(page int, kind, cause error) *PageError {
	return &PageError{Page: page, Kind: kind, Cause: cause}
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}
