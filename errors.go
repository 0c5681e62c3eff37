package txcore

import (
	"errors"
	"fmt"
)

// ErrorCode enumerates the error kinds the engine raises. Names are taken
// from spec §7; they distinguish "expected" control-flow outcomes (a
// rollback-only transaction diverting commit) from genuine resource manager
// failures.
type ErrorCode int

const (
	// Unknown represents an unspecified error condition.
	Unknown ErrorCode = iota
	// IllegalTransactionState marks a propagation rule violation: NEVER with
	// an existing transaction, MANDATORY with none, double commit/rollback,
	// or an existing-transaction validation mismatch.
	IllegalTransactionState
	// NestedTransactionNotSupported marks a NESTED propagation request that
	// the resource manager cannot honor (no savepoint and no native nesting).
	NestedTransactionNotSupported
	// TransactionSuspensionNotSupported marks a propagation that requires
	// suspension but the resource manager cannot suspend.
	TransactionSuspensionNotSupported
	// InvalidTimeout marks a TransactionDefinition.TimeoutSeconds below -1.
	InvalidTimeout
	// UnexpectedRollback marks a commit that could not proceed because the
	// transaction was globally marked rollback-only.
	UnexpectedRollback
	// TransactionSystem marks an unexpected failure surfaced by the resource
	// manager itself (begin/commit/rollback/suspend/resume).
	TransactionSystem
	// TransactionUsage marks API misuse, e.g. releasing a savepoint that was
	// never held.
	TransactionUsage
)

func (c ErrorCode) String() string {
	switch c {
	case IllegalTransactionState:
		return "IllegalTransactionState"
	case NestedTransactionNotSupported:
		return "NestedTransactionNotSupported"
	case TransactionSuspensionNotSupported:
		return "TransactionSuspensionNotSupported"
	case InvalidTimeout:
		return "InvalidTimeout"
	case UnexpectedRollback:
		return "UnexpectedRollback"
	case TransactionSystem:
		return "TransactionSystem"
	case TransactionUsage:
		return "TransactionUsage"
	default:
		return "Unknown"
	}
}

// Error is the engine's error type: a code, the wrapped cause (if any), and
// optional diagnostic user data (e.g. the offending TransactionDefinition).
type Error struct {
	Code     ErrorCode
	Err      error
	UserData any
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("txcore: %s, user data: %v", e.Code, e.UserData)
	}
	return fmt.Errorf("txcore: %s, user data: %v, details: %w", e.Code, e.UserData, e.Err).Error()
}

// Unwrap allows errors.Is/errors.As to reach the wrapped cause.
func (e Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, userData any, msg string, args ...any) Error {
	return Error{Code: code, Err: fmt.Errorf(msg, args...), UserData: userData}
}

// NewError is the exported form of newError, for use by packages outside
// txcore (engine, dispatch, resourcemanager/*) that need to raise a coded
// Error without access to txcore's unexported helpers.
func NewError(code ErrorCode, userData any, msg string, args ...any) Error {
	return newError(code, userData, msg, args...)
}

// IsCode reports whether err is (or wraps) a txcore.Error carrying code.
func IsCode(err error, code ErrorCode) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
