package swaperrors

import goerrors "github.com/go-errors/errors"

// LogWrap annotates err with a captured stack trace for the log line a
// caller is about to emit. It must never be used on the public API return
// path — callers compare Code, not stack traces, per the spec's error
// handling design.
func LogWrap(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, 1)
}
