package actorerr

import (
	"errors"
	"fmt"
)

// Sentinel errors naming the failure conditions of strand, generator,
// channel, mutex, timer, and socket operations. Channel, mutex, and timer
// operations report their outcome as an AsyncState, not as one of these
// values; reactor.Pool.Submit returns ErrPoolShutdown, and netio's timed
// socket operations report ErrTimedOut.
var (
	// ErrTimedOut marks an operation whose composed timer fired before the
	// operation itself completed.
	ErrTimedOut = errors.New("actorgo: operation timed out")

	// ErrClosed marks an operation on a channel, mutex, or socket after
	// Close has been called.
	ErrClosed = errors.New("actorgo: closed")

	// ErrCancelled marks a waiter woken by Cancel/CancelPush/CancelPop
	// rather than by data, close, or timeout.
	ErrCancelled = errors.New("actorgo: cancelled")

	// ErrStopped marks a generator that has been stopped.
	ErrStopped = errors.New("actorgo: generator stopped")

	// ErrPoolShutdown is a fatal-misuse error: Post/Distribute called after
	// the owning reactor pool has shut down (spec.md §4.1 Failure).
	ErrPoolShutdown = errors.New("actorgo: reactor pool is shut down")

	// ErrWouldBlock marks a non-blocking attempt for which no fast path is
	// available or no counterparty is ready.
	ErrWouldBlock = errors.New("actorgo: would block")

	// ErrDoubleResume is a fatal programming error: a generator's async
	// completion handler fired twice without an intervening await.
	ErrDoubleResume = errors.New("actorgo: double resume of generator")

	// ErrStopLockUnderflow is a fatal programming error: UnlockStop called
	// more times than LockStop.
	ErrStopLockUnderflow = errors.New("actorgo: stop-lock underflow")
)

// PanicError wraps a value recovered from a panic inside a generator body,
// strand callback, or channel waiter. The core assumes bodies communicate
// failure through channel results (spec.md §7); a goroutine that does panic
// is a fatal runtime error, surfaced here for logging and, where the caller
// opted in, re-raised.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("actorgo: panic: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error,
// enabling errors.Is/errors.As through the cause chain.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// AggregateError collects multiple errors from a fan-in operation (e.g. a
// Select that drains several already-ready cases, or a shutdown that
// rejects several pending waiters at once).
type AggregateError struct {
	Errors []error
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "actorgo: aggregate error (empty)"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("actorgo: %d errors, first: %v", len(e.Errors), e.Errors[0])
	}
}

// Unwrap returns the wrapped errors for multi-error unwrapping (Go 1.20+),
// enabling errors.Is/errors.As to check against every contained error.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Is reports whether target is an *AggregateError (regardless of contents),
// matching the teacher pattern of aggregate-aware Is.
func (e *AggregateError) Is(target error) bool {
	var aggTarget *AggregateError
	return errors.As(target, &aggTarget)
}

// TypeError indicates a value passed to a generator or channel operation was
// not of the expected type (e.g. a context-frame cast failed after fork).
type TypeError struct {
	Cause   error
	Message string
}

func (e *TypeError) Error() string {
	if e.Message == "" {
		return "actorgo: type error"
	}
	return e.Message
}

func (e *TypeError) Unwrap() error { return e.Cause }

// RangeError indicates a value was outside its expected range (e.g. a
// negative capacity passed to a bounded channel constructor).
type RangeError struct {
	Cause   error
	Message string
}

func (e *RangeError) Error() string {
	if e.Message == "" {
		return "actorgo: range error"
	}
	return e.Message
}

func (e *RangeError) Unwrap() error { return e.Cause }

// TimeoutError wraps ErrTimedOut (or another deadline-related cause) with
// an operation-specific message, for callers that want a typed result
// from a TimedOp/timed_pop/timed_push/timed_lock composition rather than
// matching on the bare AsyncState/ErrTimedOut sentinel.
type TimeoutError struct {
	Cause   error
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "actorgo: operation timed out"
	}
	return e.Message
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// WrapError wraps an error with a message, preserving the cause chain so
// errors.Is(result, cause) holds.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
