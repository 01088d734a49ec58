package controlplane

import (
	"context"

	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/input"
)

// KeyboardConfig is the keyboard repeat configuration the Input service
// exposes, per spec.md §6's "Input (... keyboard/pointer config ...)".
// libxkbcommon's actual keymap/repeat application is the out-of-scope
// input-backend boundary (spec.md §1); this only records the requested
// values and hands them to the injected apply callbacks.
type KeyboardConfig struct {
	RepeatRateHz  int32
	RepeatDelayMs int32
}

// PointerConfig is the per-device pointer acceleration the Input service
// exposes.
type PointerConfig struct {
	Device string
	Accel  float64
}

// SetDeviceMapTargetRequest binds an input device to a single output, per
// spec.md §6.
type SetDeviceMapTargetRequest struct {
	Device string
	Output string
}

// StreamBindEdgesRequest opens a bind's edge stream (press/release events),
// per spec.md §4.7 "Edge streams."
type StreamBindEdgesRequest struct {
	BindId core.BindId
}

// BindEdgeMessage is one frame of a StreamBindEdges server-streaming call.
type BindEdgeMessage struct {
	Edge input.Edge
}

// InputService implements the Input service group from spec.md §6: binds,
// keyboard/pointer config, device map target.
type InputService struct {
	Binds *input.BindStore

	ApplyKeyboardConfig  func(KeyboardConfig) error
	ApplyPointerConfig   func(PointerConfig) error
	ApplyDeviceMapTarget func(device, output string) error
}

// Handle dispatches one decoded Envelope addressed to the Input service.
func (s *InputService) Handle(ctx context.Context, w *ConnWriter, env Envelope, post func(func())) error {
	switch env.Method {
	case "ListBinds":
		var binds []*core.Bind
		PostAndWait(post, func() { binds = s.Binds.All() })
		out := make([]core.Bind, len(binds))
		for i, b := range binds {
			out[i] = *b
		}
		return replyValue(w, env, out)

	case "SetKeyboardConfig":
		var req KeyboardConfig
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			if s.ApplyKeyboardConfig != nil {
				callErr = s.ApplyKeyboardConfig(req)
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "SetPointerConfig":
		var req PointerConfig
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			if s.ApplyPointerConfig != nil {
				callErr = s.ApplyPointerConfig(req)
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "SetDeviceMapTarget":
		var req SetDeviceMapTargetRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			if s.ApplyDeviceMapTarget != nil {
				callErr = s.ApplyDeviceMapTarget(req.Device, req.Output)
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "StreamBindEdges":
		return s.streamBindEdges(ctx, w, env)

	default:
		return replyStatus(w, env, Status{Kind: InvalidArgument, Message: "unknown Input method " + env.Method})
	}
}

// streamBindEdges implements the ServerStreaming call shape: one request
// frame, then a sequence of response frames until the peer disconnects or
// the bind's stream is closed (e.g. by a config reload clearing the store).
func (s *InputService) streamBindEdges(ctx context.Context, w *ConnWriter, env Envelope) error {
	var req StreamBindEdgesRequest
	if err := DecodePayload(env.Payload, &req); err != nil {
		return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
	}

	edges, err := s.Binds.Subscribe(req.BindId, 16)
	if err != nil {
		return replyStatus(w, env, StatusFromError(err))
	}

	go func() {
		defer s.Binds.Unsubscribe(req.BindId)
		for {
			select {
			case <-ctx.Done():
				return
			case edge, ok := <-edges:
				if !ok {
					w.Write(Envelope{Service: env.Service, Method: env.Method, Shape: ServerStreaming, RequestId: env.RequestId, End: true})
					return
				}
				payload, err := EncodePayload(BindEdgeMessage{Edge: edge})
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
