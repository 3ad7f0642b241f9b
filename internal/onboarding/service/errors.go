package service

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"go.uber.org/zap"
)

// Kind classifies service failures so the boundary can map them to a
// transport status without inspecting messages.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindPrecondition
	KindStoreUnavailable
	KindStoreRejected
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindStoreRejected:
		return "store_rejected"
	default:
		return "internal"
	}
}

// Error is returned by every service operation. Message is safe to show to
// callers; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func precondition(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message}
}

// fail converts an error escaping an operation into a service Error. Store
// failures are logged with full detail and replaced by a generic summary.
func fail(logger *zap.Logger, op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: "not found", Err: err}
	case errors.Is(err, repository.ErrStoreUnavailable):
		logger.Error("store unavailable", zap.String("op", op), zap.Error(err))
		return &Error{Kind: KindStoreUnavailable, Message: repository.ErrStoreUnavailable.Error(), Err: err}
	case errors.Is(err, repository.ErrStoreRejected):
		logger.Error("store rejected operation", zap.String("op", op), zap.Error(err))
		return &Error{Kind: KindStoreRejected, Message: repository.ErrStoreRejected.Error(), Err: err}
	default:
		logger.Error("unexpected failure", zap.String("op", op), zap.Error(err))
		return &Error{Kind: KindInternal, Message: "unexpected server error", Err: err}
	}
}
