package compositor

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bnema/pinnacle/internal/logger"
)

// errQuit is returned internally by the state-loop goroutine when
// State.RequestQuit was called, so the errgroup cancels the sibling
// goroutines; Run translates it back into a nil (normal-shutdown) error.
var errQuit = errors.New("compositor: quit requested")

// tickInterval drives the timer-wheel sibling goroutine: a steady pulse
// that re-evaluates scheduled predicates even when no other event loop
// source has fired, so a schedule() entry waiting on wall-clock-ish state
// (rather than a specific handler's completion) is never stuck.
const tickInterval = 50 * time.Millisecond

// Loop is the State Store's event loop from spec.md §4.1: a single
// goroutine draining a bounded closure channel, with an errgroup
// supervising the sibling goroutines, per SPEC_FULL.md §5.1.
type Loop struct {
	State *State

	ops       chan func()
	scheduled []scheduledEntry

	Socket   Server
	Reloader *Reloader
}

// Server is the narrow capability Loop needs from internal/controlplane's
// Server: start accepting connections and stop cleanly. Named as an
// interface here (rather than importing controlplane.Server directly)
// keeps Loop testable without a real unix socket.
type Server interface {
	Start() error
	Stop()
}

type scheduledEntry struct {
	predicate func(*State) bool
	action    func(*State)
}

// NewLoop constructs a Loop with a bounded post channel, per spec.md §4.1
// "communicate by sending FnOnce(&mut State) closures through a bounded
// channel." capacity follows the teacher's buffered-channel sizing for its
// input/output event pipes (internal/input and internal/display use small
// fixed buffers rather than unbounded channels).
func NewLoop(capacity int) *Loop {
	l := &Loop{ops: make(chan func(), capacity)}
	l.State = NewState(l.Post)
	return l
}

// Post enqueues fn to run on the loop goroutine. It blocks if the channel
// is full, which is the intended backpressure per spec.md §4.1.
func (l *Loop) Post(fn func()) {
	l.ops <- fn
}

// Schedule registers action to run on the first tick (after the current
// closure, or the next timer-wheel pulse) where predicate(State) is true,
// per spec.md §4.1's "Scheduling helper." Must only be called from the
// loop goroutine.
func (l *Loop) Schedule(predicate func(*State) bool, action func(*State)) {
	l.scheduled = append(l.scheduled, scheduledEntry{predicate: predicate, action: action})
}

// runScheduled walks the scheduled list once, per spec.md §4.1
// "Implementation: a list walked once per tick," running and removing
// every entry whose predicate now holds.
func (l *Loop) runScheduled() {
	if len(l.scheduled) == 0 {
		return
	}
	remaining := l.scheduled[:0]
	for _, entry := range l.scheduled {
		if entry.predicate(l.State) {
			entry.action(l.State)
			continue
		}
		remaining = append(remaining, entry)
	}
	l.scheduled = remaining
}

// Run drains the closure channel until ctx is cancelled. An errgroup
// supervises the state loop, the tick goroutine and a goroutine that stops
// the socket server once ctx is done, so any member's error cancels the
// shared context. The socket's accept loop and the Reloader's
// config-process watcher run in their own goroutines outside the group.
func (l *Loop) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	if l.Socket != nil {
		if err := l.Socket.Start(); err != nil {
			return err
		}
		group.Go(func() error {
			<-ctx.Done()
			l.Socket.Stop()
			return nil
		})
	}

	if l.Reloader != nil {
		if err := l.Reloader.Start(ctx); err != nil {
			logger.Errorf("configuration process start: %v", err)
		}
	}

	group.Go(func() error {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				l.Post(func() {})
			}
		}
	})

	group.Go(func() error {
		return l.runStateLoop(ctx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

func (l *Loop) runStateLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.ops:
			fn()
			l.runScheduled()
			if l.State.QuitRequested() {
				return errQuit
			}
		}
	}
}
