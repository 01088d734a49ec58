package core

import "errors"

// Sentinel errors matching the taxonomy in spec.md §7. Callers at the
// control-plane boundary (internal/controlplane) map these to RPC status
// kinds; nothing panics on them.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrAlreadyExists    = errors.New("already exists")
	ErrFailedPrecondition = errors.New("failed precondition")
)
