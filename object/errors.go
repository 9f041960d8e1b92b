package object

import "errors"

// Error kinds returned by the object package and every store. Callers match
// them with errors.Is; the wrapping chain carries the key and cause.
var (
	ErrNotFound    = errors.New("object not found")
	ErrCorrupt     = errors.New("corrupt object")
	ErrInvalidKind = errors.New("invalid object kind")
	ErrInvalidKey  = errors.New("invalid object key")
	ErrIO          = errors.New("object i/o failure")
)
