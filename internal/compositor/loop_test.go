package compositor

import (
	"context"
	"testing"
	"time"
)

func TestLoopPostRunsOnLoopGoroutine(t *testing.T) {
	l := NewLoop(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() { _ = l.Run(ctx) }()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("posted closure never ran")
	}
	close(done)
}

func TestLoopScheduleRunsOncePredicateTrue(t *testing.T) {
	l := NewLoop(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	ready := false
	fired := make(chan struct{})
	l.Post(func() {
		l.Schedule(func(s *State) bool { return ready }, func(s *State) { close(fired) })
	})

	select {
	case <-fired:
		t.Fatal("action fired before predicate became true")
	case <-time.After(100 * time.Millisecond):
	}

	l.Post(func() { ready = true })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled action never fired after predicate became true")
	}
}

func TestLoopRequestQuitStopsTheLoop(t *testing.T) {
	l := NewLoop(4)
	ctx := context.Background()

	runErr := make(chan error, 1)
	go func() { runErr <- l.Run(ctx) }()

	l.Post(func() { l.State.RequestQuit() })

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on a requested quit", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run never returned after RequestQuit")
	}
}

type fakeServer struct {
	started, stopped chan struct{}
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}, 1), stopped: make(chan struct{}, 1)}
}

func (f *fakeServer) Start() error { f.started <- struct{}{}; return nil }
func (f *fakeServer) Stop()        { f.stopped <- struct{}{} }

func TestLoopStartsAndStopsSocketServer(t *testing.T) {
	l := NewLoop(4)
	srv := newFakeServer()
	l.Socket = srv

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- l.Run(ctx) }()

	select {
	case <-srv.started:
	case <-time.After(time.Second):
		t.Fatal("socket server never started")
	}

	cancel()

	select {
	case <-srv.stopped:
	case <-time.After(time.Second):
		t.Fatal("socket server never stopped")
	}
	<-runErr
}
