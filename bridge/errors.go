package bridge

import "errors"

var (
	// ErrNilClient is returned when RegisterAll is given no client.
	ErrNilClient = errors.New("bridge: nil client")

	// ErrNilRegistry is returned when RegisterAll is given no registry.
	ErrNilRegistry = errors.New("bridge: nil registry")

	// ErrDuplicateHandler is returned when a handler name is registered twice.
	ErrDuplicateHandler = errors.New("bridge: duplicate handler")

	// ErrUnknownHandler is returned when invoking a name nobody registered.
	ErrUnknownHandler = errors.New("bridge: unknown handler")

	// ErrMissingArgument is returned when a handler call lacks a required
	// argument.
	ErrMissingArgument = errors.New("bridge: missing argument")

	// ErrUnknownOperation is returned when a capability names an operation
	// outside the supported set.
	ErrUnknownOperation = errors.New("bridge: unknown operation")
)
