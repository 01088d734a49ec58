package controlplane

import (
	"context"
	"fmt"

	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/signal"
)

// TagService implements the Tag service group from spec.md §6: add,
// remove, activate, switch-to, bind-layout.
type TagService struct {
	Tags    *core.TagRegistry
	Outputs *core.OutputRegistry
	Alloc   *core.Allocators

	// Notify reports a signal.Kind event to the Signal Bus, injected from
	// the compositor orchestration layer (spec.md §4.9).
	Notify func(kind signal.Kind, payload interface{})
	// RequestLayout re-triggers a layout request for a single output.
	RequestLayout func(*core.Output)
	// RequestLayoutAll re-triggers a layout request for every connected
	// output, for mutations that can touch more than one at once.
	RequestLayoutAll func()
	// RefreshWire republishes the tag/output snapshot to the external
	// protocol adapters after a mutation.
	RefreshWire func()
}

// AddTagsRequest creates one or more tags on an output.
type AddTagsRequest struct {
	Output string
	Names  []string
}

// AddTagsResponse carries the freshly allocated ids, in the same order as
// AddTagsRequest.Names.
type AddTagsResponse struct {
	Ids []core.TagId
}

// RemoveTagsRequest deletes the named tags.
type RemoveTagsRequest struct {
	Ids []core.TagId
}

// SetActiveRequest flips one tag's active flag without affecting siblings.
type SetActiveRequest struct {
	Id     core.TagId
	Active bool
}

// SwitchToRequest activates exactly one tag, deactivating its siblings.
type SwitchToRequest struct {
	Id core.TagId
}

// BindLayoutRequest binds a tag to an explicit layout tree.
type BindLayoutRequest struct {
	Id   core.TagId
	Tree core.LayoutTreeId
}

// ListTagsRequest lists the tags on one output.
type ListTagsRequest struct {
	Output string
}

// Handle dispatches one decoded Envelope addressed to the Tag service.
func (s *TagService) Handle(_ context.Context, w *ConnWriter, env Envelope, post func(func())) error {
	switch env.Method {
	case "Add":
		var req AddTagsRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var resp AddTagsResponse
		var callErr error
		PostAndWait(post, func() {
			out, ok := s.Outputs.Get(req.Output)
			if !ok {
				callErr = fmt.Errorf("output %q: %w", req.Output, core.ErrNotFound)
				return
			}
			resp.Ids = s.Tags.Add(s.Alloc, out, req.Names)
			if s.RequestLayout != nil {
				s.RequestLayout(out)
			}
			if s.RefreshWire != nil {
				s.RefreshWire()
			}
		})
		if callErr != nil {
			return replyStatus(w, env, StatusFromError(callErr))
		}
		return replyValue(w, env, resp)

	case "Remove":
		var req RemoveTagsRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		PostAndWait(post, func() {
			s.Tags.Remove(req.Ids, s.Outputs)
			if s.RequestLayoutAll != nil {
				s.RequestLayoutAll()
			}
			if s.RefreshWire != nil {
				s.RefreshWire()
			}
		})
		return replyStatus(w, env, Ok)

	case "SetActive":
		var req SetActiveRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			callErr = s.Tags.SetActive(req.Id, req.Active)
			if callErr != nil {
				return
			}
			if s.Notify != nil {
				s.Notify(signal.TagActiveChanged, signal.TagActiveChange{Tag: req.Id, Active: req.Active})
			}
			if t, ok := s.Tags.Get(req.Id); ok && s.RequestLayout != nil {
				if out, ok := s.Outputs.Get(t.Output); ok {
					s.RequestLayout(out)
				}
			}
			if s.RefreshWire != nil {
				s.RefreshWire()
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "SwitchTo":
		var req SwitchToRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			callErr = s.Tags.SwitchTo(req.Id)
			if callErr != nil {
				return
			}
			if s.Notify != nil {
				s.Notify(signal.TagActiveChanged, signal.TagActiveChange{Tag: req.Id, Active: true})
			}
			if t, ok := s.Tags.Get(req.Id); ok && s.RequestLayout != nil {
				if out, ok := s.Outputs.Get(t.Output); ok {
					s.RequestLayout(out)
				}
			}
			if s.RefreshWire != nil {
				s.RefreshWire()
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "BindLayout":
		var req BindLayoutRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var callErr error
		PostAndWait(post, func() {
			callErr = s.Tags.BindLayout(req.Id, req.Tree)
			if callErr == nil && s.RequestLayout != nil {
				if t, ok := s.Tags.Get(req.Id); ok {
					if out, ok := s.Outputs.Get(t.Output); ok {
						s.RequestLayout(out)
					}
				}
			}
		})
		return replyStatus(w, env, StatusFromError(callErr))

	case "List":
		var req ListTagsRequest
		if err := DecodePayload(env.Payload, &req); err != nil {
			return replyStatus(w, env, Status{Kind: InvalidArgument, Message: err.Error()})
		}
		var tags []core.Tag
		var callErr error
		PostAndWait(post, func() {
			out, ok := s.Outputs.Get(req.Output)
			if !ok {
				callErr = fmt.Errorf("output %q: %w", req.Output, core.ErrNotFound)
				return
			}
			for _, id := range out.Tags {
				if t, ok := s.Tags.Get(id); ok {
					tags = append(tags, *t)
				}
			}
		})
		if callErr != nil {
			return replyStatus(w, env, StatusFromError(callErr))
		}
		return replyValue(w, env, tags)

	default:
		return replyStatus(w, env, Status{Kind: InvalidArgument, Message: "unknown Tag method " + env.Method})
	}
}
