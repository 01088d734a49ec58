// Package controlplane implements the Control Plane from spec.md §4.8: a
// unix-domain-socket RPC server marshaling requests onto the state-loop
// closure channel and responses back out, across four call shapes
// (unary-no-response, unary, server-streaming, bidi-streaming).
package controlplane

import (
	"errors"

	"github.com/bnema/pinnacle/internal/core"
)

// StatusKind is the RPC-facing error taxonomy from spec.md §7.
type StatusKind int

const (
	OK StatusKind = iota
	InvalidArgument
	NotFound
	AlreadyExists
	FailedPrecondition
	Internal
)

func (k StatusKind) String() string {
	switch k {
	case OK:
		return "OK"
	case InvalidArgument:
		return "InvalidArgument"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case FailedPrecondition:
		return "FailedPrecondition"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Status is the rich error/ack shape every RPC reply carries, per spec.md
// §7 "Errors at the RPC boundary are converted to rich status responses."
type Status struct {
	Kind    StatusKind
	Message string
}

// Ok is the zero-value success status, kept as a named constant for
// readability at call sites.
var Ok = Status{Kind: OK}

// StatusFromError classifies a core error into an RPC Status, per
// spec.md §7's taxonomy mapping.
func StatusFromError(err error) Status {
	if err == nil {
		return Ok
	}
	switch {
	case errors.Is(err, core.ErrNotFound):
		return Status{Kind: NotFound, Message: err.Error()}
	case errors.Is(err, core.ErrInvalidArgument):
		return Status{Kind: InvalidArgument, Message: err.Error()}
	case errors.Is(err, core.ErrAlreadyExists):
		return Status{Kind: AlreadyExists, Message: err.Error()}
	case errors.Is(err, core.ErrFailedPrecondition):
		return Status{Kind: FailedPrecondition, Message: err.Error()}
	default:
		return Status{Kind: Internal, Message: err.Error()}
	}
}
