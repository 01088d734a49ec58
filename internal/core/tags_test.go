package core

import "testing"

func TestSwitchToDeactivatesSiblingsOnSameOutput(t *testing.T) {
	alloc := &Allocators{}
	outputs := NewOutputRegistry()
	tags := NewTagRegistry()

	out := &Output{Name: "DP-1", Enabled: true, Powered: true}
	outputs.Add(out)
	ids := tags.Add(alloc, out, []string{"1", "2", "3"})
	tags.SetActive(ids[0], true)

	if err := tags.SwitchTo(ids[2]); err != nil {
		t.Fatal(err)
	}
	for i, id := range ids {
		tag, _ := tags.Get(id)
		want := i == 2
		if tag.Active != want {
			t.Errorf("tag %d active=%v, want %v", id, tag.Active, want)
		}
	}
}

func TestSwitchToDoesNotAffectOtherOutputs(t *testing.T) {
	alloc := &Allocators{}
	outputs := NewOutputRegistry()
	tags := NewTagRegistry()

	out1 := &Output{Name: "DP-1", Enabled: true, Powered: true}
	out2 := &Output{Name: "DP-2", Enabled: true, Powered: true}
	outputs.Add(out1)
	outputs.Add(out2)

	ids1 := tags.Add(alloc, out1, []string{"1"})
	ids2 := tags.Add(alloc, out2, []string{"1"})
	tags.SetActive(ids2[0], true)

	tags.SwitchTo(ids1[0])

	t2, _ := tags.Get(ids2[0])
	if !t2.Active {
		t.Fatal("switching tags on DP-1 must not deactivate DP-2's tags")
	}
}

func TestVisibilityIsPureFunctionOfFourInputs(t *testing.T) {
	alloc := &Allocators{}
	outputs := NewOutputRegistry()
	tags := NewTagRegistry()

	out := &Output{Name: "DP-1", Enabled: true, Powered: true}
	outputs.Add(out)
	ids := tags.Add(alloc, out, []string{"1"})

	w := &Window{Tags: []TagId{ids[0]}}

	if Visible(w, out, tags) {
		t.Fatal("tag inactive: should not be visible")
	}
	tags.SetActive(ids[0], true)
	if !Visible(w, out, tags) {
		t.Fatal("tag active + output enabled+powered: should be visible")
	}
	out.Enabled = false
	if Visible(w, out, tags) {
		t.Fatal("output disabled: should not be visible")
	}
	out.Enabled = true
	out.Powered = false
	if Visible(w, out, tags) {
		t.Fatal("output unpowered: should not be visible")
	}
}

func TestRemoveTagRunsInvariantRepairViaCaller(t *testing.T) {
	alloc := &Allocators{}
	outputs := NewOutputRegistry()
	tags := NewTagRegistry()

	out := &Output{Name: "DP-1", Enabled: true, Powered: true}
	outputs.Add(out)
	ids := tags.Add(alloc, out, []string{"1", "2"})

	tags.Remove([]TagId{ids[0]}, outputs)
	if out.HasTag(ids[0]) {
		t.Fatal("removed tag should no longer belong to output")
	}
	if !out.HasTag(ids[1]) {
		t.Fatal("unrelated tag should remain")
	}
}
