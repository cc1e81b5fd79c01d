// Package errs defines the coordinator's stable error taxonomy. Every
// handler translates anticipated failure conditions into a *CoordError
// carrying one of these kinds, so the gRPC status mapping (internal/rpc)
// and the HTTP status mapping (internal/controlplane) derive from a single
// source of truth instead of inventing their own codes.
package errs

import "fmt"

// Kind is a stable, wire-visible error identifier. Values must never be
// renumbered or reused for a different meaning once shipped.
type Kind string

const (
	// Invalid means input was rejected by validation. Not retriable.
	Invalid Kind = "invalid"
	// AlreadyRegistered means an id conflict occurred on register. Not retriable.
	AlreadyRegistered Kind = "already_registered"
	// UnknownWorker means the referenced worker id does not exist or is
	// quarantined. Retriability depends on the caller's own state.
	UnknownWorker Kind = "unknown_worker"
	// UnknownDataset means the referenced dataset id does not exist.
	UnknownDataset Kind = "unknown_dataset"
	// NoWorkers means the shard ring was empty at lookup time. Retriable
	// with backoff.
	NoWorkers Kind = "no_workers"
	// BarrierMismatch means the declared required_total disagreed with the
	// live barrier's size. Not retriable.
	BarrierMismatch Kind = "barrier_mismatch"
	// NotFound means e.g. no latest checkpoint exists yet. Retriable (wait).
	NotFound Kind = "not_found"
	// RateLimited means the token bucket was exhausted. Retriable with backoff.
	RateLimited Kind = "rate_limited"
	// Transient means a transport or storage hiccup occurred. Retriable.
	Transient Kind = "transient"
	// Internal means an invariant was violated. Never expected in normal
	// operation; always logged when emitted. Not retriable by the caller.
	Internal Kind = "internal"
)

// CoordError is the coordinator's single error type. Handlers return it
// directly; transports translate Kind to their own status codes.
type CoordError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *CoordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *CoordError) Unwrap() error { return e.Err }

// New builds a CoordError with no wrapped cause.
func New(kind Kind, msg string) *CoordError {
	return &CoordError{Kind: kind, Msg: msg}
}

// Wrap builds a CoordError around an existing error.
func Wrap(kind Kind, msg string, err error) *CoordError {
	return &CoordError{Kind: kind, Msg: msg, Err: err}
}

// Newf builds a CoordError with a formatted message.
func Newf(kind Kind, format string, args ...any) *CoordError {
	return &CoordError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err if it is (or wraps) a *CoordError,
// otherwise returns Internal — an untyped error reaching a transport
// boundary is itself a bug worth flagging as an invariant violation.
func KindOf(err error) Kind {
	var ce *CoordError
	if asCoordError(err, &ce) {
		return ce.Kind
	}
	return Internal
}

func asCoordError(err error, target **CoordError) bool {
	for err != nil {
		if ce, ok := err.(*CoordError); ok {
			*target = ce
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

// Retriable reports whether the spec's taxonomy marks this kind as safe to
// retry without operator intervention.
func Retriable(k Kind) bool {
	switch k {
	case NoWorkers, NotFound, RateLimited, Transient:
		return true
	default:
		return false
	}
}
