package tree

import (
	"testing"

	"github.com/databeam/databeam/pkg/result"
	"github.com/databeam/databeam/pkg/sample"
)

func TestSetSourceForwardsPushes(t *testing.T) {
	tr := New()
	src, err := tr.GetOutput(tr.Root(), "/src", sample.Numeric, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dest, err := tr.GetOutput(tr.Root(), "/dest", sample.Numeric, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.SetSource(dest, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Push(src, sample.NewNumeric(1, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := GetCurrentValue(dest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Num() != 10 {
		t.Errorf("expected routed value 10 at dest, got %v", got.Num())
	}
}

func TestRoutedPushIgnoredByInput(t *testing.T) {
	tr := New()
	src, _ := tr.GetOutput(tr.Root(), "/src", sample.Numeric, "")
	in, err := tr.GetInput(tr.Root(), "/in-1", sample.Numeric, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.SetSource(in, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Push(src, sample.NewNumeric(1, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := GetCurrentValue(in); !result.IsUnavailable(err) {
		t.Errorf("expected an Input to ignore routed pushes, got value/err %v", err)
	}
}

func TestSetSourceRejectsSelfCycle(t *testing.T) {
	tr := New()
	e, _ := tr.GetOutput(tr.Root(), "/a", sample.Numeric, "")
	if err := tr.SetSource(e, e); !result.IsDuplicate(err) {
		t.Errorf("expected Duplicate routing an entry from itself, got %v", err)
	}
}

func TestSetSourceRejectsIndirectCycle(t *testing.T) {
	tr := New()
	a, _ := tr.GetOutput(tr.Root(), "/a", sample.Numeric, "")
	b, _ := tr.GetOutput(tr.Root(), "/b", sample.Numeric, "")
	if err := tr.SetSource(b, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.SetSource(a, b); !result.IsDuplicate(err) {
		t.Errorf("expected Duplicate creating a 2-cycle (a->b, attempting b->a), got %v", err)
	}
}

func TestClearSourceStopsForwarding(t *testing.T) {
	tr := New()
	src, _ := tr.GetOutput(tr.Root(), "/src", sample.Numeric, "")
	dest, _ := tr.GetOutput(tr.Root(), "/dest", sample.Numeric, "")
	if err := tr.SetSource(dest, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.ClearSource(dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := GetSource(dest); got != nil {
		t.Errorf("expected nil source after ClearSource, got %v", got)
	}
	if err := tr.Push(src, sample.NewNumeric(1, 5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := GetCurrentValue(dest); !result.IsUnavailable(err) {
		t.Errorf("expected dest to no longer receive forwarded pushes, got %v", err)
	}
}

func TestGetDestinationList(t *testing.T) {
	tr := New()
	src, _ := tr.GetOutput(tr.Root(), "/src", sample.Numeric, "")
	d1, _ := tr.GetOutput(tr.Root(), "/d1", sample.Numeric, "")
	d2, _ := tr.GetOutput(tr.Root(), "/d2", sample.Numeric, "")
	if err := tr.SetSource(d1, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.SetSource(d2, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dests := GetDestinationList(src)
	if len(dests) != 2 {
		t.Fatalf("expected 2 destinations, got %d", len(dests))
	}
}
