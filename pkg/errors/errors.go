package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an application error. Callers switch on the kind to decide
// between rejecting, retrying, and re-reading.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicate
	KindGateway
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindGateway:
		return "gateway"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Retryable reports whether an error of this kind may succeed on a later
// attempt. Validation and duplicate failures are final; the rest may be
// transient from a consumer's point of view.
func (k Kind) Retryable() bool {
	switch k {
	case KindValidation, KindDuplicate:
		return false
	default:
		return true
	}
}

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// KindOf extracts the kind from err, defaulting to KindInternal for errors
// that did not originate in this package.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Error constructors
func Validation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func Duplicate(message string) *AppError {
	return &AppError{Kind: KindDuplicate, Message: message}
}

func Gateway(message string, err error) *AppError {
	return &AppError{Kind: KindGateway, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Kind: KindConflict, Message: message, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal error", Err: err}
}
