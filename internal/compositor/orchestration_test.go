package compositor

import (
	"testing"

	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/signal"
	"github.com/bnema/pinnacle/internal/txn"
)

func TestMapWindowAppliesRulesBeforeInsertion(t *testing.T) {
	s := NewState(func(fn func()) { fn() })
	out := &core.Output{Name: "DP-1", Enabled: true}
	s.Outputs.Add(out)
	ids := s.Tags.Add(s.Alloc, out, []string{"1", "2"})

	forced := ids[1]
	s.Rules.SetRules([]core.Rule{{
		Condition: core.RuleCondition{AppId: strPtr("firefox")},
		Effect:    core.RuleEffect{Tags: []core.TagId{forced}},
	}})

	win := &core.Window{AppId: "firefox", Title: "Mozilla Firefox"}
	id := s.MapWindow(win, out)

	got, ok := s.Windows.Get(id)
	if !ok {
		t.Fatalf("expected window %d to be mapped", id)
	}
	if len(got.Tags) != 1 || got.Tags[0] != forced {
		t.Fatalf("expected rule-forced tag %d, got %v", forced, got.Tags)
	}
}

func TestMapWindowHonorsRuleOutputOverride(t *testing.T) {
	s := NewState(func(fn func()) { fn() })
	a := &core.Output{Name: "DP-1", Enabled: true}
	b := &core.Output{Name: "DP-2", Enabled: true}
	s.Outputs.Add(a)
	s.Outputs.Add(b)
	bIds := s.Tags.Add(s.Alloc, b, []string{"1"})
	s.Tags.SetActive(bIds[0], true)

	s.Rules.SetRules([]core.Rule{{
		Condition: core.RuleCondition{AppId: strPtr("mpv")},
		Effect:    core.RuleEffect{OutputName: strPtr("DP-2")},
	}})

	win := &core.Window{AppId: "mpv"}
	id := s.MapWindow(win, a)

	got, _ := s.Windows.Get(id)
	if len(got.Tags) != 1 || got.Tags[0] != bIds[0] {
		t.Fatalf("expected window routed to DP-2's active tag, got %v", got.Tags)
	}
}

func TestUnmapWindowReleasesTransactionAndRequestsLayout(t *testing.T) {
	s := NewState(func(fn func()) { fn() })
	out := &core.Output{Name: "DP-1", Enabled: true}
	s.Outputs.Add(out)
	ids := s.Tags.Add(s.Alloc, out, []string{"1"})
	s.Tags.SetActive(ids[0], true)

	win := &core.Window{AppId: "term", Tags: []core.TagId{ids[0]}}
	id := s.Windows.Add(s.Alloc, win)
	transaction := s.Txns.Commit(txn.NewBuilder().Expect(id, 1), func(*txn.Transaction) {})
	layoutSub := s.Signals.Subscribe(signal.LayoutNeeded)
	defer layoutSub.Close()

	s.UnmapWindow(id)

	if _, ok := s.Windows.Get(id); ok {
		t.Fatal("expected window to be removed")
	}
	if transaction.State() != txn.Completed {
		t.Fatal("expected unmap to release the window's pending transaction entry")
	}
	if len(layoutSub.C()) != 1 {
		t.Fatalf("expected one layout request for the window's output, got %d", len(layoutSub.C()))
	}
}

func TestDisconnectOutputRedistributesVisibleWindows(t *testing.T) {
	s := NewState(func(fn func()) { fn() })
	a := &core.Output{Name: "A", Enabled: true}
	b := &core.Output{Name: "B", Enabled: true}
	s.Outputs.Add(a)
	s.Outputs.Add(b)

	aIds := s.Tags.Add(s.Alloc, a, []string{"1"})
	bIds := s.Tags.Add(s.Alloc, b, []string{"1"})
	s.Tags.SetActive(aIds[0], true)
	s.Tags.SetActive(bIds[0], true)

	winA := &core.Window{AppId: "term-a", Tags: []core.TagId{aIds[0]}}
	winB := &core.Window{AppId: "term-b", Tags: []core.TagId{bIds[0]}}
	idA := s.Windows.Add(s.Alloc, winA)
	s.Windows.Add(s.Alloc, winB)

	if err := s.DisconnectOutput("A"); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	if _, ok := s.Outputs.Get("A"); ok {
		t.Fatal("expected A to be removed from the registry")
	}

	got, ok := s.Windows.Get(idA)
	if !ok {
		t.Fatal("expected winA to survive disconnect")
	}
	if !got.HasTag(bIds[0]) {
		t.Fatalf("expected winA to gain B's active tag, got %v", got.Tags)
	}

	names, ok := s.Outputs.PersistedTagsFor("A")
	if !ok || len(names) != 1 || names[0] != "1" {
		t.Fatalf("expected A's tag names persisted for reconnection, got %v ok=%v", names, ok)
	}
}

func TestRequestLayoutForBuildsRequestWithoutRouter(t *testing.T) {
	s := NewState(func(fn func()) { fn() })
	out := &core.Output{Name: "DP-1", Enabled: true}
	s.Outputs.Add(out)
	s.Tags.Add(s.Alloc, out, []string{"1"})

	layoutSub := s.Signals.Subscribe(signal.LayoutNeeded)
	defer layoutSub.Close()

	// s.Router is nil until cmd/run.go assigns one; requestLayoutFor must
	// tolerate that instead of panicking.
	s.requestLayoutFor(out)

	if len(layoutSub.C()) != 1 {
		t.Fatalf("expected a layout request to be built and announced, got %d", len(layoutSub.C()))
	}
}

func TestDirectConfigurerAcksThroughConfigureSink(t *testing.T) {
	// Posted closures are queued and drained after Commit, matching
	// layout.Engine.Apply's real order: every participant's Configure runs
	// before the resulting Builder is committed.
	var queue []func()
	s := NewState(func(fn func()) { queue = append(queue, fn) })
	out := &core.Output{Name: "DP-1", Enabled: true}
	s.Outputs.Add(out)
	ids := s.Tags.Add(s.Alloc, out, []string{"1"})

	win := &core.Window{AppId: "term", Tags: []core.TagId{ids[0]}}
	id := s.Windows.Add(s.Alloc, win)

	cfg := directConfigurer{state: s}
	serial := cfg.Configure(id, core.Rect{Width: 800, Height: 600})

	b := txn.NewBuilder().Expect(id, serial)
	transaction := s.Txns.Commit(b, func(*txn.Transaction) {})

	for _, fn := range queue {
		fn()
	}

	if transaction.State() != txn.Completed {
		t.Fatal("expected directConfigurer's self-ack to complete the transaction")
	}
}

func strPtr(s string) *string { return &s }
