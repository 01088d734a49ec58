package controlplane

import (
	"context"
	"encoding/gob"

	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/layout"
	"github.com/bnema/pinnacle/internal/signal"
)

func init() {
	// signal.Message.Payload (and this package's SignalMessage.Payload) is
	// an interface{} field; gob requires every concrete type ever assigned
	// into it to be registered before it can decode into that field, unlike
	// the rest of this package's concrete-typed EncodePayload/DecodePayload
	// calls.
	gob.Register(core.WindowId(0))
	gob.Register("")
	gob.Register(signal.TagActiveChange{})
	gob.Register(layout.Request{})
}

// SubscribeSignalRequest opens a server-streaming subscription to one
// signal kind, per spec.md §4.9.
type SubscribeSignalRequest struct {
	Kind signal.Kind
}

// SignalMessage is one frame of a Subscribe server-streaming call.
type SignalMessage struct {
	Kind    signal.Kind
	Payload interface{}
}

// SignalService implements the Signal Bus subscription RPC: a client opens
// one server-streaming call per kind it cares about and receives every
// emission from then on (plus, for level-driven kinds, the current value
// immediately), per spec.md §4.9.
type SignalService struct {
	Bus *signal.Bus
}

// Handle dispatches one decoded Envelope addressed to the Signal service.
func (s *SignalService) Handle(ctx context.Context, w *ConnWriter, env Envelope, post func(func())) error {
	switch env.Method {
	case "Subscribe":
		return s.subscribe(ctx, w, env, post)
	default:
		return replyStatus(w, env, Status{Kind: InvalidArgument, Message: "unknown Signal method " + env.Method})
	}
}

// subscribe mirrors InputService.streamBindEdges's ServerStreaming shape:
// one request frame, then response frames until the peer disconnects or the
// subscription is closed (e.g. by a configuration reload clearing the bus).
func (s *SignalService) subscribe(ctx context.Context, w *ConnWriter, env Envelope, post func(func())) error {
	var req SubscribeSignalRequest
	if err := DecodePayload(env.Payload, &req); err != nil {
		return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
	}

	var sub *signal.Subscription
	PostAndWait(post, func() { sub = s.Bus.Subscribe(req.Kind) })

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.C():
				if !ok {
					w.Write(Envelope{Service: env.Service, Method: env.Method, Shape: ServerStreaming, RequestId: env.RequestId, End: true})
					return
				}
				payload, err := EncodePayload(SignalMessage{Kind: msg.Kind, Payload: msg.Payload})
				if err != nil {
					return
				}
				if err := w.Write(Envelope{Service: env.Service, Method: env.Method, Shape: ServerStreaming, RequestId: env.RequestId, Payload: payload}); err != nil {
					return
				}
			}
		}
	}()
	return nil
}
