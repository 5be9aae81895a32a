package tree

import (
	"github.com/databeam/databeam/pkg/handler"
	"github.com/databeam/databeam/pkg/result"
	"github.com/databeam/databeam/pkg/sample"
)

// Variant identifies the kind of resource an Entry carries.
type Variant int

const (
	// VariantNamespace is a path container with no resource semantics.
	VariantNamespace Variant = iota
	// VariantInput is owned by a data producer.
	VariantInput
	// VariantOutput is owned by a data consumer.
	VariantOutput
	// VariantObservation is a filter/transform/buffer tap.
	VariantObservation
	// VariantPlaceholder holds only admin settings, awaiting a future IO.
	VariantPlaceholder
)

// String renders the variant name for logs and error messages.
func (v Variant) String() string {
	switch v {
	case VariantNamespace:
		return "namespace"
	case VariantInput:
		return "input"
	case VariantOutput:
		return "output"
	case VariantObservation:
		return "observation"
	case VariantPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Entry is a node in the resource tree.
type Entry struct {
	Name     string
	Parent   *Entry
	children []*Entry
	variant  Variant

	// New, Relevant, Deleted form the flag set carried by Namespaces and,
	// by extension, every entry: Deleted may only be set on an entry
	// demoted to Namespace whose New flag is clear (see setDeleted).
	newFlag  bool
	relevant bool
	deleted  bool

	res *resourceState // nil only for VariantNamespace
}

// resourceState is the common Resource payload for Input/Output/
// Observation/Placeholder entries, plus the variant-specific payloads for
// IoPoint (io) and Observation (obs).
type resourceState struct {
	current *sample.Sample

	hasDefault  bool
	defaultType sample.Type
	defaultVal  *sample.Sample

	hasOverride  bool
	overrideType sample.Type
	overrideVal  *sample.Sample

	handlers *handler.List

	source       *Entry
	destinations []*Entry

	adminSettingsPresent bool

	suspended bool
	pending   *sample.Sample // nil means no pending sample

	io  *ioPayload  // non-nil for VariantInput / VariantOutput
	obs *obsPayload // non-nil for VariantObservation
}

func newResourceState() *resourceState {
	return &resourceState{handlers: handler.New()}
}

// newRoot creates a fresh, unparented root Namespace entry.
func newRoot() *Entry {
	return &Entry{Name: "", variant: VariantNamespace}
}

// Variant returns e's variant tag.
func (e *Entry) Variant() Variant { return e.variant }

// IsRoot reports whether e is the tree root.
func (e *Entry) IsRoot() bool { return e.Parent == nil }

// New reports the New flag.
func (e *Entry) New() bool { return e.newFlag }

// Relevant reports the Relevant flag.
func (e *Entry) Relevant() bool { return e.relevant }

// Deleted reports the Deleted flag.
func (e *Entry) Deleted() bool { return e.deleted }

// SetRelevant sets the Relevant flag.
func (e *Entry) SetRelevant(v bool) { e.relevant = v }

// SetNew sets the New flag.
func (e *Entry) SetNew(v bool) { e.newFlag = v }

// setDeleted sets the Deleted flag. A Deleted flag may be set only on an
// entry whose variant has been demoted to Namespace and whose New flag is
// clear.
func (e *Entry) setDeleted() error {
	if e.variant != VariantNamespace {
		return result.New(result.Fault, "cannot mark Deleted on a non-namespace entry").WithPath(AbsolutePath(e))
	}
	if e.newFlag {
		return result.New(result.Fault, "cannot mark Deleted while New flag is set").WithPath(AbsolutePath(e))
	}
	e.deleted = true
	return nil
}

// indexInParent returns e's index within its parent's children, or -1.
func indexInParent(e *Entry) int {
	if e.Parent == nil {
		return -1
	}
	for i, c := range e.Parent.children {
		if c == e {
			return i
		}
	}
	return -1
}

// findChild looks up a direct child by name. withZombies also considers
// children flagged Deleted (used by the snapshot scanner).
func findChild(parent *Entry, name string, withZombies bool) *Entry {
	for _, c := range parent.children {
		if c.Name != name {
			continue
		}
		if c.deleted && !withZombies {
			continue
		}
		return c
	}
	return nil
}

// Children returns e's live (non-deleted) children in insertion order.
func Children(e *Entry) []*Entry {
	out := make([]*Entry, 0, len(e.children))
	for _, c := range e.children {
		if !c.deleted {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenWithZombies returns every child of e, including entries flagged
// Deleted, in insertion order — the view the snapshot scanner uses so a
// deletion is observed exactly once before the tombstone is flushed.
func ChildrenWithZombies(e *Entry) []*Entry {
	out := make([]*Entry, len(e.children))
	copy(out, e.children)
	return out
}

// PruneZombies removes e's children that are flagged Deleted and have no
// children of their own, modeling the snapshot scanner's "flush" step: such
// an entry must survive until observed as deleted by a snapshot scan, at
// which point it may be destroyed. Call this after a scan pass has
// observed the tombstones it needs to see.
func PruneZombies(e *Entry) {
	kept := e.children[:0]
	for _, c := range e.children {
		if c.deleted && len(c.children) == 0 {
			continue
		}
		kept = append(kept, c)
	}
	e.children = kept
}
