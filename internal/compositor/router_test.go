package compositor

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/pinnacle/internal/controlplane"
	"github.com/bnema/pinnacle/internal/core"
)

func TestNewRouterQuitReachesState(t *testing.T) {
	l := NewLoop(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	router := l.NewRouter(nil)

	path := filepath.Join(t.TempDir(), "pinnacle-grpc.sock")
	srv := controlplane.NewServer(path, router.Handle)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Stop()

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	env := controlplane.Envelope{Service: "Pinnacle", Method: "Quit", Shape: controlplane.UnaryNoResponse}
	if err := controlplane.WriteEnvelope(conn, env); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := controlplane.ReadEnvelope(conn); err != nil {
		t.Fatalf("read reply: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for !l.State.QuitRequested() {
		if time.Now().After(deadline) {
			t.Fatal("expected Quit RPC to call State.RequestQuit")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestOutputForWindowFindsOwningOutput(t *testing.T) {
	s := NewState(func(fn func()) { fn() })
	out := &core.Output{Name: "DP-1", Enabled: true}
	s.Outputs.Add(out)
	ids := s.Tags.Add(s.Alloc, out, []string{"1"})

	win := &core.Window{AppId: "term", Tags: []core.TagId{ids[0]}}
	id := s.Windows.Add(s.Alloc, win)

	got, ok := outputForWindow(s, id)
	if !ok || got.Name != "DP-1" {
		t.Fatalf("expected to find DP-1, got %+v ok=%v", got, ok)
	}
}
