package fault

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable classification of a gateway error. The
// presentation layer maps kinds to user-facing behavior; collapsing them
// loses the distinction between bad input, a chain rejection, and an
// unknown outcome.
type Kind string

const (
	// Validation: a local precondition failed before any chain call.
	Validation Kind = "validation_error"
	// NoWalletConnected: a write was attempted without a signing session.
	NoWalletConnected Kind = "no_wallet_connected"
	// UserRejected: the signer declined; a no-op, not a fault.
	UserRejected Kind = "user_rejected"
	// InsufficientBalance: pre-flight balance check failed.
	InsufficientBalance Kind = "insufficient_balance"
	// InsufficientAllowance: pre-flight allowance check failed.
	InsufficientAllowance Kind = "insufficient_allowance"
	// SimulationReverted: pre-flight simulation says the call would revert.
	SimulationReverted Kind = "simulation_reverted"
	// TransactionReverted: the transaction mined with a failure status.
	TransactionReverted Kind = "transaction_reverted"
	// ConfirmationTimeout: outcome unknown, not a failure.
	ConfirmationTimeout Kind = "confirmation_timeout"
	// ActionInProgress: another action is in flight for this account.
	ActionInProgress Kind = "action_in_progress"
	// RefreshFailed: the post-success snapshot refresh failed; the action
	// itself still succeeded.
	RefreshFailed Kind = "refresh_failed"
	// RPC: an unclassified node or transport error.
	RPC Kind = "rpc_error"
)

// Error carries a kind plus a human-readable message, optionally wrapping a
// lower-level cause. Chain-level causes are wrapped, never swallowed.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or RPC when err carries no kind.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return RPC
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
