package services

import (
	"errors"
	"fmt"
)

// Kind classifies ledger failures so the request layer can map them.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindInvalidState      Kind = "invalid_state"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindPaymentShortfall  Kind = "payment_shortfall"
	KindOverrideRequired  Kind = "override_required"
)

// Sentinels for errors.Is; every *Error matches the sentinel of its Kind.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrPaymentShortfall  = errors.New("payment shortfall")
	ErrOverrideRequired  = errors.New("supervisor override required")
)

var sentinels = map[Kind]error{
	KindValidation:        ErrValidation,
	KindConflict:          ErrConflict,
	KindInvalidState:      ErrInvalidState,
	KindInvalidTransition: ErrInvalidTransition,
	KindNotFound:          ErrNotFound,
	KindPaymentShortfall:  ErrPaymentShortfall,
	KindOverrideRequired:  ErrOverrideRequired,
}

// Error is the typed failure returned by every ledger operation.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Retryable is true for conflicts: the caller may try again after reloading.
func (e *Error) Retryable() bool { return e.Kind == KindConflict }

func newError(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func validationError(op, format string, args ...interface{}) error {
	return newError(KindValidation, op, format, args...)
}

func conflictError(op, format string, args ...interface{}) error {
	return newError(KindConflict, op, format, args...)
}

func invalidStateError(op, format string, args ...interface{}) error {
	return newError(KindInvalidState, op, format, args...)
}

func invalidTransitionError(op string, from, to interface{}) error {
	return newError(KindInvalidTransition, op, "cannot move from %v to %v", from, to)
}

func notFoundError(op, entity string, id uint) error {
	return newError(KindNotFound, op, "%s %d not found", entity, id)
}

// KindOf returns the Kind of err, or "" when err is not a ledger error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ShortfallError is returned when an order would close with less paid than due.
type ShortfallError struct {
	OrderID uint
	Due     string
	Paid    string
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("order %d: paid %s of %s", e.OrderID, e.Paid, e.Due)
}
