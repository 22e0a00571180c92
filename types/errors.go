package types

import "errors"

// Error taxonomy shared by the containers and the scope model.
// Every failure is wrapped with context; test with errors.Is.
var (
	// ErrInvalidOperation: the call is not allowed in the current state
	// (capacity change on external storage, retyping, cyclic adoption...).
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrOutOfRange: an index outside [0,size) or front/back on an empty sequence.
	ErrOutOfRange = errors.New("index out of range")

	// ErrTypeMismatch: a typed accessor does not match the active type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrNotFound: a lookup for a key, type id or name failed.
	ErrNotFound = errors.New("not found")

	// ErrUnboundIterator: the iterator does not belong to a container.
	ErrUnboundIterator = errors.New("iterator not bound to a container")
)
