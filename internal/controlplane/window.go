package controlplane

import (
	"context"
	"fmt"

	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/signal"
)

// WindowService implements the Window service group from spec.md §6:
// geometry, mode, focus, tag set, raise, close, decoration.
type WindowService struct {
	Windows *core.WindowRegistry
	Outputs *core.OutputRegistry
	Tags    *core.TagRegistry
	Closer  core.Closer

	// OutputFor resolves the output a window currently lives on, needed by
	// the tag-mutating methods to run invariant repair. Injected rather than
	// derived here; the compositor resolves it from which output owns one of
	// the window's tags.
	OutputFor func(core.WindowId) (*core.Output, bool)

	// Notify reports a signal.Kind event to the Signal Bus, injected from
	// the compositor orchestration layer (spec.md §4.9).
	Notify func(kind signal.Kind, payload interface{})
	// RequestLayout re-triggers a layout request for an output whose
	// visible-window set just changed.
	RequestLayout func(*core.Output)
	// Map runs the production add path (spec.md §4.2: Window Rule Engine,
	// then insertion) for a window a backend (or, headless, this RPC
	// itself) is presenting for the first time.
	Map func(w *core.Window, out *core.Output) core.WindowId
}

// MapWindowRequest presents a new client surface for insertion, per
// spec.md §4.2. There is no real xdg-shell backend in this repo (spec.md
// §1), so this is also the entry point the debug tooling and tests use to
// populate a running compositor.
type MapWindowRequest struct {
	Output string
	Role   core.Role
	AppId  string
	Title  string
}

// MapWindowResponse carries the newly allocated window id.
type MapWindowResponse struct {
	Id core.WindowId
}

// WindowView is the gob-safe projection of a Window handed back over the
// wire: core.Window carries unexported-by-convention interface fields
// (Snapshot, ForeignHandle) that have no wire representation, so only the
// RPC-relevant fields are copied across.
type WindowView struct {
	Id         core.WindowId
	Role       core.Role
	AppId      string
	Title      string
	Tags       []core.TagId
	Mode       core.LayoutMode
	Decoration core.DecorationMode
	Committed  core.Rect
	Requested  core.Rect
}

func viewOf(w *core.Window) WindowView {
	return WindowView{
		Id:         w.Id,
		Role:       w.Role,
		AppId:      w.AppId,
		Title:      w.Title,
		Tags:       append([]core.TagId(nil), w.Tags...),
		Mode:       w.Mode,
		Decoration: w.EffectiveDecoration(),
		Committed:  w.Committed,
		Requested:  w.Requested,
	}
}

// WindowIdRequest names a single window, shared by most methods.
type WindowIdRequest struct {
	Id core.WindowId
}

// SetFloatingRectRequest sets a window's remembered floating geometry.
type SetFloatingRectRequest struct {
	Id   core.WindowId
	Rect core.Rect
}

// SetModeRequest drives a window's LayoutMode FSM transition.
type SetModeRequest struct {
	Id     core.WindowId
	Target core.LayoutModeKind
}

// SetModeResponse carries the resulting mode and whether it changed.
type SetModeResponse struct {
	Mode    core.LayoutMode
	Changed bool
}

// SetTagsRequest replaces a window's tag set wholesale.
type SetTagsRequest struct {
	Id   core.WindowId
	Tags []core.TagId
}

// WindowTagRequest is the one-tag shape shared by AddTag/RemoveTag/ToggleTag.
type WindowTagRequest struct {
	Id  core.WindowId
	Tag core.TagId
}

// SetDecorationRequest forces a window's decoration mode.
type SetDecorationRequest struct {
	Id         core.WindowId
	Decoration core.DecorationMode
}

// Handle dispatches one decoded Envelope addressed to the Window service.
func (s *WindowService) Handle(_ context.Context, w *ConnWriter, env Envelope, post func(func())) error {
	switch env.Method {
	case "List":
		var windows []*core.Window
		PostAndWait(post, func() { windows = s.Windows.All() })
		views := make([]WindowView, len(windows))
		for i, win := range windows {
			views[i] = viewOf(win)
		}
		return replyValue(w, env, views)

	case "Get":
		var req WindowIdRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var view WindowView
		var found bool
		PostAndWait(post, func() {
			if win, ok := s.Windows.Get(req.Id); ok {
				view, found = viewOf(win), true
			}
		})
		if !found {
			return replyStatus(w, env, Status{Kind: NotFound, Message: fmt.Sprintf("window %d not mapped", req.Id)})
		}
		return replyValue(w, env, view)

	case "Map":
		var req MapWindowRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var resp MapWindowResponse
		var callErr error
		PostAndWait(post, func() {
			out, ok := s.Outputs.Get(req.Output)
			if !ok {
				callErr = fmt.Errorf("output %q: %w", req.Output, core.ErrNotFound)
				return
			}
			if s.Map == nil {
				callErr = fmt.Errorf("window map not wired")
				return
			}
			win := &core.Window{Role: req.Role, AppId: req.AppId, Title: req.Title}
			resp.Id = s.Map(win, out)
		})
		if callErr != nil {
			return replyStatus(w, env, StatusFromError(callErr))
		}
		return replyValue(w, env, resp)

	case "SetFloatingRect":
		var req SetFloatingRectRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			win, ok := s.Windows.Get(req.Id)
			if !ok {
				callErr = fmt.Errorf("window %d: %w", req.Id, core.ErrNotFound)
				return
			}
			win.FloatingRect = req.Rect
			if win.Mode.Kind == core.Floating {
				win.Committed = req.Rect
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "SetMode":
		var req SetModeRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var resp SetModeResponse
		var callErr error
		PostAndWait(post, func() {
			resp.Mode, resp.Changed, callErr = s.Windows.SetLayoutMode(req.Id, req.Target)
			if callErr == nil && resp.Changed && s.RequestLayout != nil {
				if out, ok := s.OutputFor(req.Id); ok {
					s.RequestLayout(out)
				}
			}
		})
		if callErr != nil {
			return replyStatus(w, env, StatusFromError(callErr))
		}
		return replyValue(w, env, resp)

	case "Focus":
		var req WindowIdRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			out, ok := s.OutputFor(req.Id)
			if !ok {
				callErr = fmt.Errorf("window %d: %w", req.Id, core.ErrNotFound)
				return
			}
			callErr = s.Windows.Focus(req.Id, out)
			if callErr == nil && s.Notify != nil {
				s.Notify(signal.WindowFocused, req.Id)
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "Raise":
		var req WindowIdRequest
		return s.mutate(w, env, post, &req, func() error { return s.Windows.Raise(req.Id) })

	case "Close":
		var req WindowIdRequest
		return s.mutate(w, env, post, &req, func() error { return s.Windows.Close(req.Id, s.Closer) })

	case "SetTags":
		var req SetTagsRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			out, ok := s.OutputFor(req.Id)
			if !ok {
				callErr = fmt.Errorf("window %d: %w", req.Id, core.ErrNotFound)
				return
			}
			callErr = s.Windows.SetTags(req.Id, req.Tags, out, s.Tags)
			if callErr == nil && s.RequestLayout != nil {
				s.RequestLayout(out)
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "AddTag":
		var req WindowTagRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			callErr = s.Windows.AddTag(req.Id, req.Tag)
			if callErr == nil && s.RequestLayout != nil {
				if out, ok := s.OutputFor(req.Id); ok {
					s.RequestLayout(out)
				}
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "RemoveTag":
		var req WindowTagRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			out, ok := s.OutputFor(req.Id)
			if !ok {
				callErr = fmt.Errorf("window %d: %w", req.Id, core.ErrNotFound)
				return
			}
			callErr = s.Windows.RemoveTag(req.Id, req.Tag, out, s.Tags)
			if callErr == nil && s.RequestLayout != nil {
				s.RequestLayout(out)
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "ToggleTag":
		var req WindowTagRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			out, ok := s.OutputFor(req.Id)
			if !ok {
				callErr = fmt.Errorf("window %d: %w", req.Id, core.ErrNotFound)
				return
			}
			callErr = s.Windows.ToggleTag(req.Id, req.Tag, out, s.Tags)
			if callErr == nil && s.RequestLayout != nil {
				s.RequestLayout(out)
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "SetDecoration":
		var req SetDecorationRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			win, ok := s.Windows.Get(req.Id)
			if !ok {
				callErr = fmt.Errorf("window %d: %w", req.Id, core.ErrNotFound)
				return
			}
			win.Decoration = req.Decoration
		})
		return replyStatus(w, env, StatusFromError(callErr))

	default:
		return replyStatus(w, env, Status{Kind: InvalidArgument, Message: "unknown Window method " + env.Method})
	}
}

func (s *WindowService) mutate(w *ConnWriter, env Envelope, post func(func()), req interface{}, fn func() error) error {
	if err := DecodePayload(env.Payload, req); err != nil {
		return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
	}
	var callErr error
	PostAndWait(post, func() { callErr = fn() })
	return replyStatus(w, env, StatusFromError(callErr))
}
