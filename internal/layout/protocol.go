package layout

import "github.com/bnema/pinnacle/internal/core"

// Request is one server→client message on the layout stream, per spec.md
// §4.6 "Wire shape."
type Request struct {
	RequestId  core.RequestId
	OutputName string
	UsableSize core.Rect // X/Y are always 0; Width/Height is the usable area
	ActiveTags []core.TagId
	WindowIds  []core.WindowId
}

// Response is one client→server message answering a Request.
type Response struct {
	RequestId  core.RequestId
	OutputName string
	Tree       *Tree
}

// Stream is the bidirectional transport the Control Plane installs for the
// layout RPC. Send pushes a Request out to the configuration process;
// Responses arrive through the Engine's Feed method.
type Stream interface {
	Send(Request) error
}
