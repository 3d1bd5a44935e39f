// Package signalerr defines the typed error kinds of spec §7: each
// wraps an underlying cause and reports whether it is safe to retry.
// Only InputInvalid, NetworkError, and Deadline are meant to surface
// to a caller of generate_signal; everything else resolves internally
// into diagnostics.
package signalerr

import "fmt"

// Kind classifies an error for the caller without needing type
// switches on every concrete error.
type Kind int

const (
	KindInputInvalid Kind = iota
	KindNetworkError
	KindRateLimited
	KindTimeout
	KindUpstreamMalformed
	KindInsufficientCapital
	KindCapacityExhausted
	KindFilterRejected
	KindPredictorUnavailable
	KindRiskLimitBreached
	KindCancelled
	KindDeadline
)

func (k Kind) String() string {
	switch k {
	case KindInputInvalid:
		return "InputInvalid"
	case KindNetworkError:
		return "NetworkError"
	case KindRateLimited:
		return "RateLimited"
	case KindTimeout:
		return "Timeout"
	case KindUpstreamMalformed:
		return "UpstreamMalformed"
	case KindInsufficientCapital:
		return "InsufficientCapital"
	case KindCapacityExhausted:
		return "CapacityExhausted"
	case KindFilterRejected:
		return "FilterRejected"
	case KindPredictorUnavailable:
		return "PredictorUnavailable"
	case KindRiskLimitBreached:
		return "RiskLimitBreached"
	case KindCancelled:
		return "Cancelled"
	case KindDeadline:
		return "Deadline"
	default:
		return "Unknown"
	}
}

// Error is the typed error value carried through the pipeline.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a non-retryable Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WrapRetryable is like Wrap but marks the error retryable (used for
// NetworkError/RateLimited/Timeout per §7).
func WrapRetryable(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Retryable: true}
}

// Is reports whether err is a signalerr.Error of the given kind,
// supporting errors.Is.
func Is(err error, kind Kind) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Kind == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
