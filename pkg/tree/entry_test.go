package tree

import (
	"testing"

	"github.com/databeam/databeam/pkg/sample"
)

func TestVariantString(t *testing.T) {
	tests := map[Variant]string{
		VariantNamespace:   "namespace",
		VariantInput:       "input",
		VariantOutput:      "output",
		VariantObservation: "observation",
		VariantPlaceholder: "placeholder",
		Variant(99):        "unknown",
	}
	for v, want := range tests {
		if got := v.String(); got != want {
			t.Errorf("Variant(%d).String() = %q, want %q", v, got, want)
		}
	}
}

func TestEntryFlags(t *testing.T) {
	tr := New()
	e, err := tr.GetEntry(tr.Root(), "/a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.New() {
		t.Error("freshly materialized entry should have New set")
	}
	e.SetNew(false)
	if e.New() {
		t.Error("SetNew(false) did not clear the flag")
	}
	e.SetRelevant(true)
	if !e.Relevant() {
		t.Error("SetRelevant(true) did not set the flag")
	}
}

func TestChildrenExcludesDeleted(t *testing.T) {
	tr := New()
	parent, _ := tr.GetEntry(tr.Root(), "/parent")
	child, _ := tr.GetEntry(parent, "child")
	child.SetNew(false)
	if err := child.setDeleted(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := Children(parent); len(got) != 0 {
		t.Errorf("Children = %v, want empty (child is deleted)", got)
	}
	if got := ChildrenWithZombies(parent); len(got) != 1 {
		t.Errorf("ChildrenWithZombies = %v, want 1 entry", got)
	}
}

func TestSetDeletedRejectsNonNamespace(t *testing.T) {
	tr := New()
	e, err := tr.GetInput(tr.Root(), "/in-1", sample.Boolean, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.setDeleted(); err == nil {
		t.Fatal("expected error marking a non-namespace entry Deleted")
	}
}

func TestSetDeletedRejectsNewEntry(t *testing.T) {
	tr := New()
	e, err := tr.GetEntry(tr.Root(), "/fresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.setDeleted(); err == nil {
		t.Fatal("expected error marking a New entry Deleted")
	}
}

func TestPruneZombies(t *testing.T) {
	tr := New()
	parent, _ := tr.GetEntry(tr.Root(), "/parent")
	child, _ := tr.GetEntry(parent, "child")
	child.SetNew(false)
	if err := child.setDeleted(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	PruneZombies(parent)
	if got := ChildrenWithZombies(parent); len(got) != 0 {
		t.Errorf("expected childless tombstone pruned, got %v", got)
	}
}
