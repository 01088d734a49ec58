package controlplane

import (
	"context"
	"fmt"

	"github.com/bnema/pinnacle/internal/core"
)

// OutputService implements the Output service group from spec.md §6:
// enable, mode, transform, scale, location, powered, disconnect.
type OutputService struct {
	Outputs *core.OutputRegistry

	// RequestLayout re-triggers a layout request for an output whose
	// geometry/mode/enablement changed, since its visible-window set or
	// usable rect may now differ. Injected from the compositor
	// orchestration layer.
	RequestLayout func(*core.Output)
	// RefreshWire republishes the output/tag snapshot to the external
	// protocol adapters after a mutation.
	RefreshWire func()
	// Disconnect implements spec.md §4.3's remove(): redistributes windows,
	// persists tag state, fires output.disconnected. Spans multiple
	// registries, so it's injected rather than implemented here.
	Disconnect func(name string) error
}

// SetEnabledRequest toggles an output's participation in the global layout.
type SetEnabledRequest struct {
	Name    string
	Enabled bool
}

// SetModeRequest selects one of an output's known modes.
type SetModeRequest struct {
	Name string
	Mode core.Mode
}

// SetCustomModeRequest installs and selects an arbitrary mode.
type SetCustomModeRequest struct {
	Name string
	Mode core.Mode
}

// SetTransformRequest applies one of the eight orientations.
type SetTransformRequest struct {
	Name      string
	Transform core.Transform
}

// SetScaleRequest sets an absolute fractional scale.
type SetScaleRequest struct {
	Name  string
	Scale float64
}

// ChangeScaleRequest applies a relative scale delta.
type ChangeScaleRequest struct {
	Name  string
	Delta float64
}

// SetLocationRequest repositions an output in the global logical space.
type SetLocationRequest struct {
	Name     string
	Location core.Point
}

// SetPoweredRequest toggles DPMS/backlight state.
type SetPoweredRequest struct {
	Name    string
	Powered bool
}

// OutputNameRequest names a single output, used by Get.
type OutputNameRequest struct {
	Name string
}

// Handle dispatches one decoded Envelope addressed to the Output service.
func (s *OutputService) Handle(_ context.Context, w *ConnWriter, env Envelope, post func(func())) error {
	switch env.Method {
	case "List":
		var outs []*core.Output
		PostAndWait(post, func() { outs = s.Outputs.All() })
		return replyValue(w, env, copyOutputs(outs))

	case "Get":
		var req OutputNameRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var out core.Output
		var found bool
		PostAndWait(post, func() {
			if o, ok := s.Outputs.Get(req.Name); ok {
				out, found = *o, true
			}
		})
		if !found {
			return replyStatus(w, env, Status{Kind: NotFound, Message: "output " + req.Name + " not connected"})
		}
		return replyValue(w, env, out)

	case "SetEnabled":
		var req SetEnabledRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		return s.mutateGeom(w, env, post, req.Name, func() error { return s.Outputs.SetEnabled(req.Name, req.Enabled) })

	case "SetMode":
		var req SetModeRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		return s.mutateGeom(w, env, post, req.Name, func() error { return s.Outputs.SetMode(req.Name, req.Mode) })

	case "SetCustomMode":
		var req SetCustomModeRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		return s.mutateGeom(w, env, post, req.Name, func() error { return s.Outputs.SetCustomMode(req.Name, req.Mode) })

	case "SetTransform":
		var req SetTransformRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		return s.mutateGeom(w, env, post, req.Name, func() error { return s.Outputs.SetTransform(req.Name, req.Transform) })

	case "SetScale":
		var req SetScaleRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		return s.mutateGeom(w, env, post, req.Name, func() error { return s.Outputs.SetScale(req.Name, req.Scale) })

	case "ChangeScale":
		var req ChangeScaleRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		return s.mutateGeom(w, env, post, req.Name, func() error { return s.Outputs.ChangeScale(req.Name, req.Delta) })

	case "SetLocation":
		var req SetLocationRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		return s.mutateGeom(w, env, post, req.Name, func() error { return s.Outputs.SetLocation(req.Name, req.Location) })

	case "SetPowered":
		var req SetPoweredRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		return s.mutateGeom(w, env, post, req.Name, func() error { return s.Outputs.SetPowered(req.Name, req.Powered) })

	case "Disconnect":
		var req OutputNameRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			if s.Disconnect == nil {
				callErr = fmt.Errorf("output disconnect not wired")
				return
			}
			callErr = s.Disconnect(req.Name)
		})
		return replyStatus(w, env, StatusFromError(callErr))

	default:
		return replyStatus(w, env, Status{Kind: InvalidArgument, Message: "unknown Output method " + env.Method})
	}
}

// mutateGeom runs fn on the state loop (the request has already been
// decoded by the caller, which needs name to trigger the post-mutation
// layout/wire refresh), then replies with the resulting Status.
func (s *OutputService) mutateGeom(w *ConnWriter, env Envelope, post func(func()), name string, fn func() error) error {
	var callErr error
	PostAndWait(post, func() {
		callErr = fn()
		if callErr != nil {
			return
		}
		if out, ok := s.Outputs.Get(name); ok && s.RequestLayout != nil {
			s.RequestLayout(out)
		}
		if s.RefreshWire != nil {
			s.RefreshWire()
		}
	})
	return replyStatus(w, env, StatusFromError(callErr))
}

func copyOutputs(outs []*core.Output) []core.Output {
	out := make([]core.Output, len(outs))
	for i, o := range outs {
		out[i] = *o
	}
	return out
}
