// Package credential classifies token failures shared by the server guard,
// the websocket handshake and the client-side session coordinator.
package credential

import (
	"herald/internal/errors"
)

// Reason is the machine-readable cause reported to clients.
type Reason string

const (
	ReasonMissing           Reason = "missing"
	ReasonMalformed         Reason = "invalid"
	ReasonExpired           Reason = "expired"
	ReasonRotated           Reason = "rotated"
	ReasonHandshakeRejected Reason = "handshake_rejected"
	ReasonRefreshExhausted  Reason = "refresh_exhausted"
)

// Kind tells callers whether a failure can be fixed by refreshing.
type Kind int

const (
	KindUnknown Kind = iota
	KindRecoverable
	KindTerminal
)

func (k Kind) String() string {
	switch k {
	case KindRecoverable:
		return "recoverable"
	case KindTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Failure is a classified credential error. Compare with errors.Is against
// the Err* sentinels; the comparison matches on Reason only.
type Failure struct {
	reason Reason
	cause  error
}

// Sentinels for errors.Is.
var (
	ErrMissingToken          = &Failure{reason: ReasonMissing}
	ErrMalformedToken        = &Failure{reason: ReasonMalformed}
	ErrExpiredToken          = &Failure{reason: ReasonExpired}
	ErrRotatedOrRevokedToken = &Failure{reason: ReasonRotated}
	ErrHandshakeRejected     = &Failure{reason: ReasonHandshakeRejected}
	ErrRefreshExhausted      = &Failure{reason: ReasonRefreshExhausted}
)

// New returns a Failure for reason, keeping cause for logging.
func New(reason Reason, cause error) *Failure {
	return &Failure{reason: reason, cause: cause}
}

func (f *Failure) Error() string {
	msg := "credential " + string(f.reason)
	if f.cause != nil {
		return msg + ": " + f.cause.Error()
	}

	return msg
}

func (f *Failure) Unwrap() error {
	return f.cause
}

// Is matches any Failure carrying the same reason.
func (f *Failure) Is(target error) bool {
	other, ok := target.(*Failure)
	if !ok {
		return false
	}

	return other.reason == f.reason
}

// Reason returns the machine-readable reason.
func (f *Failure) Reason() Reason {
	return f.reason
}

// Kind reports whether a refresh can recover from this failure.
func (f *Failure) Kind() Kind {
	switch f.reason {
	case ReasonMissing, ReasonMalformed, ReasonExpired, ReasonHandshakeRejected:
		return KindRecoverable
	case ReasonRotated, ReasonRefreshExhausted:
		return KindTerminal
	default:
		return KindUnknown
	}
}

// Terminal is shorthand for Kind() == KindTerminal.
func (f *Failure) Terminal() bool {
	return f.Kind() == KindTerminal
}

// ReasonOf extracts the reason from anywhere in err's chain.
func ReasonOf(err error) (Reason, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.reason, true
	}

	return "", false
}

// KindOf classifies err; errors that are not a Failure are KindUnknown.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind()
	}

	return KindUnknown
}
