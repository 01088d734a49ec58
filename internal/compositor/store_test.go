package compositor

import (
	"testing"

	"github.com/bnema/pinnacle/internal/core"
)

func TestTagOpsActivateDeactivateRemove(t *testing.T) {
	s := NewState(func(fn func()) { fn() })
	out := &core.Output{Name: "DP-1", Enabled: true}
	s.Outputs.Add(out)
	ids := s.Tags.Add(s.Alloc, out, []string{"1", "2"})

	ops := s.TagOps()

	if err := ops.ActivateTag(ids[1]); err != nil {
		t.Fatalf("activate: %v", err)
	}
	tag, _ := s.Tags.Get(ids[1])
	if !tag.Active {
		t.Fatal("expected tag to be active after ActivateTag")
	}

	if err := ops.DeactivateTag(ids[1]); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	tag, _ = s.Tags.Get(ids[1])
	if tag.Active {
		t.Fatal("expected tag to be inactive after DeactivateTag")
	}

	if err := ops.RemoveTag(ids[0]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := s.Tags.Get(ids[0]); ok {
		t.Fatal("expected tag to be gone after RemoveTag")
	}
}

func TestClearForReloadResetsRulesBindsSignalsAndIds(t *testing.T) {
	s := NewState(func(fn func()) { fn() })
	s.Rules.SetRules([]core.Rule{{Effect: core.RuleEffect{Tags: []core.TagId{1}}}})
	s.Binds.Register(s.Alloc, &core.Bind{Kind: core.KeyBind})
	sub := s.Signals.Subscribe(0)
	defer sub.Close()

	firstId := s.Alloc.NextWindow()
	if firstId == 0 {
		t.Fatal("expected allocator to start issuing nonzero ids after one Next call")
	}

	s.clearForReload()

	if eff := s.Rules.Apply(&core.Window{}, ""); eff.Tags != nil {
		t.Fatalf("expected window rules to be cleared, still applied %v", eff.Tags)
	}
	if _, ok := s.Binds.QuitBind(); ok {
		t.Fatal("expected bind store to be cleared")
	}
	if s.Signals.SubscriberCount(0) != 0 {
		t.Fatal("expected signal subscribers to be cleared")
	}
	if got := s.Alloc.NextWindow(); got != firstId {
		t.Fatalf("expected id allocator to reset to the same sequence, got %v want %v", got, firstId)
	}
}

func TestRequestQuitIsIdempotentAndObservable(t *testing.T) {
	s := NewState(func(fn func()) { fn() })
	if s.QuitRequested() {
		t.Fatal("fresh state should not have quit requested")
	}
	s.RequestQuit()
	s.RequestQuit()
	if !s.QuitRequested() {
		t.Fatal("expected QuitRequested to report true after RequestQuit")
	}
}
