package controlplane

import (
	"context"
	"fmt"
)

// PostAndWait is the marshaling discipline spec.md §4.8 mandates: "RPC
// handlers never touch state directly. They construct a closure capturing
// the decoded request and a reply channel, send it over the state-loop
// channel, and await the reply." fn runs on the state-loop goroutine; this
// call blocks the RPC-handling goroutine (never the loop) until it's done.
func PostAndWait(post func(func()), fn func()) {
	done := make(chan struct{})
	post(func() {
		fn()
		close(done)
	})
	<-done
}

// Router dispatches decoded Envelopes to one of its seven services,
// implementing the Handler signature socket.Server needs. Every field is
// optional; a call to a nil service makes Handle return an error (no status
// reply is written), which does not happen in a fully-wired compositor.
type Router struct {
	Post func(fn func())

	Pinnacle *PinnacleService
	Input    *InputService
	Output   *OutputService
	Tag      *TagService
	Window   *WindowService
	Layout   *LayoutService
	Signal   *SignalService
}

// Handle implements the Handler type socket.Server invokes per frame.
func (r *Router) Handle(ctx context.Context, w *ConnWriter, env Envelope) error {
	switch env.Service {
	case "Pinnacle":
		if r.Pinnacle == nil {
			return fmt.Errorf("pinnacle service not wired")
		}
		return r.Pinnacle.Handle(ctx, w, env, r.Post)
	case "Input":
		if r.Input == nil {
			return fmt.Errorf("input service not wired")
		}
		return r.Input.Handle(ctx, w, env, r.Post)
	case "Output":
		if r.Output == nil {
			return fmt.Errorf("output service not wired")
		}
		return r.Output.Handle(ctx, w, env, r.Post)
	case "Tag":
		if r.Tag == nil {
			return fmt.Errorf("tag service not wired")
		}
		return r.Tag.Handle(ctx, w, env, r.Post)
	case "Window":
		if r.Window == nil {
			return fmt.Errorf("window service not wired")
		}
		return r.Window.Handle(ctx, w, env, r.Post)
	case "Layout":
		if r.Layout == nil {
			return fmt.Errorf("layout service not wired")
		}
		return r.Layout.Handle(ctx, w, env, r.Post)
	case "Signal":
		if r.Signal == nil {
			return fmt.Errorf("signal service not wired")
		}
		return r.Signal.Handle(ctx, w, env, r.Post)
	default:
		return fmt.Errorf("unknown service %q", env.Service)
	}
}

// replyStatus encodes and writes a Status reply for a unary/unary-no-response call.
func replyStatus(w *ConnWriter, env Envelope, status Status) error {
	payload, err := EncodePayload(status)
	if err != nil {
		return err
	}
	return w.Write(Envelope{Service: env.Service, Method: env.Method, Shape: env.Shape, RequestId: env.RequestId, Payload: payload})
}

// replyValue encodes and writes an arbitrary payload reply for a Unary call.
func replyValue(w *ConnWriter, env Envelope, v interface{}) error {
	payload, err := EncodePayload(v)
	if err != nil {
		return err
	}
	return w.Write(Envelope{Service: env.Service, Method: env.Method, Shape: env.Shape, RequestId: env.RequestId, Payload: payload})
}
