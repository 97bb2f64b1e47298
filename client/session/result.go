package session

import (
	"herald/internal/domain/credential"
	"herald/internal/errors"
)

// ErrSessionEnded is returned to every caller once the session is FAILED.
// Only Login starts a new one.
var ErrSessionEnded = errors.New("session ended")

// Result classifies a failed session operation. A terminal Result matches
// ErrSessionEnded under errors.Is.
type Result struct {
	Kind   credential.Kind
	Reason credential.Reason
	Err    error
}

func (r *Result) Error() string {
	msg := "session " + r.Kind.String() + " (" + string(r.Reason) + ")"
	if r.Err != nil {
		return msg + ": " + r.Err.Error()
	}

	return msg
}

func (r *Result) Unwrap() error {
	return r.Err
}

func (r *Result) Is(target error) bool {
	return target == ErrSessionEnded && r.Kind == credential.KindTerminal
}

// Terminal reports whether the session can no longer recover.
func (r *Result) Terminal() bool {
	return r.Kind == credential.KindTerminal
}

func ended(reason credential.Reason, cause error) *Result {
	return &Result{Kind: credential.KindTerminal, Reason: reason, Err: cause}
}

// ResultOf extracts the Result from err's chain.
func ResultOf(err error) (*Result, bool) {
	var r *Result
	if errors.As(err, &r) {
		return r, true
	}

	return nil, false
}
