package errs

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an auth/OTP failure for boundary-layer translation.
type Kind int

const (
	// KindBadRequest covers malformed or rejected input.
	KindBadRequest Kind = iota
	// KindDuplicateResource signals a uniqueness conflict, e.g. an email that is already registered.
	KindDuplicateResource
	// KindNotFound signals a missing resource.
	KindNotFound
	// KindUnauthorized signals a failed credential or verification requirement.
	KindUnauthorized
	// KindRegistrationExpired signals a pending registration past its 24h deadline.
	KindRegistrationExpired
	// KindOTPInvalid signals a rejected OTP submission; Reason carries the cause.
	KindOTPInvalid
	// KindRateLimited signals a blocked identity; RetryAfter carries the remaining block time.
	KindRateLimited
	// KindNotificationFailed signals that OTP delivery did not complete.
	KindNotificationFailed
)

// String returns the kind name used in logs and API error codes.
func (k Kind) String() string {
	switch k {
	case KindDuplicateResource:
		return "duplicate_resource"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindRegistrationExpired:
		return "registration_expired"
	case KindOTPInvalid:
		return "otp_invalid"
	case KindRateLimited:
		return "rate_limited"
	case KindNotificationFailed:
		return "notification_failed"
	default:
		return "bad_request"
	}
}

// Error is a tagged failure callers can match on without parsing messages.
type Error struct {
	Kind       Kind
	Reason     string
	RetryAfter time.Duration // set for KindRateLimited
	Err        error         // wrapped cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return e.Kind.String()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches errors by kind so sentinel comparisons via errors.Is work.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// New constructs an Error with the given kind and reason.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap constructs an Error that wraps a cause.
func Wrap(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// RateLimited constructs a KindRateLimited error carrying the remaining block time.
func RateLimited(reason string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Reason: reason, RetryAfter: retryAfter}
}

// KindOf extracts the kind from err, defaulting to KindBadRequest.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBadRequest
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
