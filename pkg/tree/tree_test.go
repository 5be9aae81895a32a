package tree

import (
	"testing"

	"github.com/databeam/databeam/pkg/result"
)

func TestFindEntryNotFound(t *testing.T) {
	tr := New()
	if _, err := tr.FindEntry(tr.Root(), "/does/not/exist"); !result.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestGetEntryMaterializesNamespaces(t *testing.T) {
	tr := New()
	e, err := tr.GetEntry(tr.Root(), "/a/b/c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Variant() != VariantNamespace {
		t.Errorf("Variant = %v, want VariantNamespace", e.Variant())
	}

	again, err := tr.FindEntry(tr.Root(), "/a/b/c")
	if err != nil {
		t.Fatalf("unexpected error on repeat lookup: %v", err)
	}
	if again != e {
		t.Error("repeat GetEntry/FindEntry should resolve to the same *Entry")
	}
}

func TestFindEntryHidesDeleted(t *testing.T) {
	tr := New()
	parent, _ := tr.GetEntry(tr.Root(), "/parent")
	child, _ := tr.GetEntry(parent, "child")
	child.SetNew(false)
	if err := child.setDeleted(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := tr.FindEntry(parent, "child"); !result.IsNotFound(err) {
		t.Errorf("expected NotFound for a deleted child, got %v", err)
	}
	if _, err := tr.FindEntryWithZombies(parent, "child"); err != nil {
		t.Errorf("FindEntryWithZombies should still see a deleted child: %v", err)
	}
}

func TestUpdateListeners(t *testing.T) {
	tr := New()
	var events []bool
	tr.AddUpdateListener(updateFunc(func(starting bool) { events = append(events, starting) }))

	tr.StartUpdate()
	tr.EndUpdate()

	if len(events) != 2 || events[0] != true || events[1] != false {
		t.Fatalf("events = %v, want [true false]", events)
	}
}

func TestRemoveUpdateListener(t *testing.T) {
	tr := New()
	var calls int
	l := updateFunc(func(starting bool) { calls++ })
	tr.AddUpdateListener(l)
	tr.RemoveUpdateListener(l)

	tr.StartUpdate()
	tr.EndUpdate()

	if calls != 0 {
		t.Errorf("expected removed listener not to fire, got %d calls", calls)
	}
}

// updateFunc adapts a plain func into an UpdateListener for tests.
type updateFunc func(starting bool)

func (f updateFunc) OnUpdate(starting bool) { f(starting) }
