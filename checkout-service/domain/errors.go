package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies failures so callers can decide between failing fast,
// compensating, or mapping to a transport status.
type ErrorKind string

const (
	ErrorKindValidation            ErrorKind = "validation"
	ErrorKindNotFound              ErrorKind = "not_found"
	ErrorKindInsufficientInventory ErrorKind = "insufficient_inventory"
	ErrorKindInvalidState          ErrorKind = "invalid_state"
	ErrorKindConflict              ErrorKind = "conflict"
	ErrorKindGateway               ErrorKind = "gateway"
	ErrorKindInternal              ErrorKind = "internal"
)

// Error is a typed domain failure
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...interface{}) error {
	return newError(ErrorKindValidation, format, args...)
}

func NewNotFoundError(format string, args ...interface{}) error {
	return newError(ErrorKindNotFound, format, args...)
}

func NewInsufficientInventoryError(available, requested int64) error {
	return newError(ErrorKindInsufficientInventory,
		"insufficient inventory. available: %d, requested: %d", available, requested)
}

func NewInvalidStateError(format string, args ...interface{}) error {
	return newError(ErrorKindInvalidState, format, args...)
}

func NewConflictError(format string, args ...interface{}) error {
	return newError(ErrorKindConflict, format, args...)
}

func NewGatewayError(format string, args ...interface{}) error {
	return newError(ErrorKindGateway, format, args...)
}

// KindOf walks the wrap chain and returns the first domain kind found.
// Errors without a kind are internal.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ErrorKindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
