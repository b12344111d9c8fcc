package interview

import "errors"

var (
	// ErrNotStarted is returned when Advance or End is called before Start.
	ErrNotStarted = errors.New("interview: session not started")
	// ErrAlreadyStarted is returned by a second Start call.
	ErrAlreadyStarted = errors.New("interview: session already started")
	// ErrEnded is returned when Advance is called on a completed session.
	ErrEnded = errors.New("interview: session ended")
	// ErrMalformedScore signals grader output that is not an integer score.
	ErrMalformedScore = errors.New("interview: malformed grader score")
	// ErrPersistence wraps sink failures. In-memory state is kept when it is returned.
	ErrPersistence = errors.New("interview: persistence failed")
	// ErrSessionNotFound is returned by repositories for unknown ids.
	ErrSessionNotFound = errors.New("interview: session not found")
)
