package errorsx

import "errors"

// ReasonedError carries a machine-readable reason code alongside the
// wrapped error. The message is the wrapped error's own.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e ReasonedError) Unwrap() error {
	return e.Err
}

// Wrap tags err with reason. The innermost reason wins: an error that
// already carries one passes through unchanged, so callers near the
// failure decide its classification. Nil in, nil out.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	var reasoned ReasonedError
	if errors.As(err, &reasoned) {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Reason reports the code carried by err, or ReasonUnknown.
func Reason(err error) ReasonCode {
	if err == nil {
		return ReasonUnknown
	}
	var reasoned ReasonedError
	if errors.As(err, &reasoned) {
		return reasoned.Reason
	}
	return ReasonUnknown
}

// HasReason reports whether err carries the given reason code.
func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}
