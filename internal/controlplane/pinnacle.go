package controlplane

import "context"

// PinnacleService implements the lifecycle service group from spec.md §6:
// quit and reload. Both are fire-and-forget from the RPC peer's point of
// view (UnaryNoResponse) but still round-trip through the state loop so
// they serialize against every other mutation in flight.
type PinnacleService struct {
	Quit   func()
	Reload func()
}

// Handle dispatches one decoded Envelope addressed to the Pinnacle service.
func (s *PinnacleService) Handle(_ context.Context, w *ConnWriter, env Envelope, post func(func())) error {
	switch env.Method {
	case "Quit":
		PostAndWait(post, func() {
			if s.Quit != nil {
				s.Quit()
			}
		})
		return replyStatus(w, env, Ok)
	case "Reload":
		PostAndWait(post, func() {
			if s.Reload != nil {
				s.Reload()
			}
		})
		return replyStatus(w, env, Ok)
	default:
		return replyStatus(w, env, Status{Kind: InvalidArgument, Message: "unknown Pinnacle method " + env.Method})
	}
}
