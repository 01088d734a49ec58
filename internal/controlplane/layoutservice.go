package controlplane

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/layout"
)

// LayoutService implements the Layout Protocol RPC from spec.md §4.6: a
// single bidi-streaming call over which the server pushes layout.Requests
// and the configuration process that opened it answers with
// layout.Responses. There is exactly one layout stream per running
// compositor, matching spec.md §4.6's "the configuration process" (singular).
type LayoutService struct {
	Outputs *core.OutputRegistry
	Windows *core.WindowRegistry
	Tags    *core.TagRegistry

	Engine     *layout.Engine
	Configurer layout.Configurer

	mu     sync.Mutex
	stream *ConnWriter
}

// Handle dispatches one decoded Envelope addressed to the Layout service.
func (s *LayoutService) Handle(_ context.Context, w *ConnWriter, env Envelope, post func(func())) error {
	switch env.Method {
	case "Open":
		// Opening the bidi stream registers this connection as the one
		// configuration process Send pushes Requests to; no reply frame is
		// expected, the stream simply stays open for both directions.
		s.mu.Lock()
		s.stream = w
		s.mu.Unlock()
		return nil

	case "Respond":
		var resp layout.Response
		if err := DecodePayload(env.Payload, &resp); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		PostAndWait(post, func() {
			out, ok := s.Outputs.Get(resp.OutputName)
			if !ok {
				return
			}
			var visible []core.WindowId
			for _, win := range s.Windows.All() {
				if core.Visible(win, out, s.Tags) {
					visible = append(visible, win.Id)
				}
			}
			usable := out.UsableRect()
			area := core.Rect{Width: usable.Width, Height: usable.Height}
			s.Engine.Apply(resp, visible, area, s.Configurer, func(map[core.WindowId]core.Rect) {})
		})
		return nil

	default:
		return replyStatus(w, env, Status{Kind: InvalidArgument, Message: "unknown Layout method " + env.Method})
	}
}

// Send implements layout.Stream, pushing req to the registered configuration
// process, if one has opened the stream.
func (s *LayoutService) Send(req layout.Request) error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return fmt.Errorf("layout stream not open: %w", core.ErrFailedPrecondition)
	}
	payload, err := EncodePayload(req)
	if err != nil {
		return err
	}
	return stream.Write(Envelope{Service: "Layout", Method: "Push", Shape: BidiStreaming, Payload: payload})
}
