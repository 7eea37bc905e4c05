// internal/fault/fault.go
//
// Error taxonomy shared by the registry, directory, and lifecycle services.
//
// Context
// -------
// Handlers and callers need to branch on the *kind* of failure — uniqueness
// conflict, missing row, illegal state-machine move, provider outage — not
// on error strings.  Every service returns either a *fault.Error or a plain
// wrapped error (treated as Internal).  Provider errors additionally carry a
// retryable flag so the saga can decide between backing off and giving up.
//
// Notes
// -----
// • Kinds are string codes for natural JSON serialization.
// • Exhausted is surfaced as the Domain's `failed` status, never as a
//   synchronous API error; it exists so the saga can record why it stopped.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind string

const (
	// Conflict covers uniqueness violations and busy-saga rejections.
	Conflict Kind = "CONFLICT"

	// NotFound indicates the referenced row does not exist.
	NotFound Kind = "NOT_FOUND"

	// InvalidTransition indicates a state-machine misuse.
	InvalidTransition Kind = "INVALID_TRANSITION"

	// InvalidInput indicates a request that fails local validation.
	InvalidInput Kind = "INVALID_INPUT"

	// Provider wraps an external DNS-provider failure.
	Provider Kind = "EXTERNAL_PROVIDER"

	// Exhausted means the retry budget for a saga step was spent.
	Exhausted Kind = "EXHAUSTED"

	// Internal is the fallback for unclassified errors.
	Internal Kind = "INTERNAL"
)

// Error is the concrete error type carried across package boundaries.
type Error struct {
	Kind      Kind
	Op        string // e.g. "domain.request"
	Msg       string
	Retryable bool // meaningful only for Provider
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error without a cause.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a classified error around a cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ProviderErr wraps an external provider failure and records whether a
// retry could succeed.
func ProviderErr(op string, err error, retryable bool) *Error {
	return &Error{Kind: Provider, Op: op, Err: err, Retryable: retryable}
}

// KindOf extracts the Kind from any error in the chain, or Internal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// IsRetryable reports whether err is a provider failure worth retrying.
// Unclassified errors default to retryable so transport hiccups are not
// promoted to permanent failures.
func IsRetryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Kind == Provider {
			return fe.Retryable
		}
		return false
	}
	return true
}
