package ledger

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by Service wraps exactly one of them.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSameAccount         = errors.New("sender and recipient are the same account")
	ErrInvalidKind         = errors.New("invalid credit kind")
	ErrPersistence         = errors.New("ledger persistence failure")
)

// Error carries the failing operation and account alongside the kind
type Error struct {
	Op        string // Service operation, e.g. "ledger.Transfer"
	AccountID string // Account the failure is about, if any
	Kind      error  // One of the Err* sentinels
	Err       error  // Underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.AccountID != "" {
		msg += fmt.Sprintf(" (account %s)", e.AccountID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func failure(op, accountID string, kind, cause error) error {
	return &Error{Op: op, AccountID: accountID, Kind: kind, Err: cause}
}

// IsClientError reports whether err is caused by the request rather than the system
func IsClientError(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrSameAccount) ||
		errors.Is(err, ErrInvalidKind)
}
