// Package handler implements HandlerList: an ordered list of typed push
// callbacks with stable references, attached to a Resource to receive its
// accepted samples.
package handler

import "github.com/databeam/databeam/pkg/sample"

// Func is a push callback. It receives the sample that was just accepted
// and published by the owning resource.
type Func func(s *sample.Sample)

// Ref is a stable reference to a registered handler, usable to remove it
// from whatever List it was added to regardless of how the list has
// mutated since.
type Ref uint64

type entry struct {
	ref     Ref
	typ     sample.Type
	fn      Func
	removed bool
}

// List is an ordered, type-filtered list of push handlers.
type List struct {
	entries []*entry
	next    Ref
}

// New creates an empty handler list.
func New() *List {
	return &List{}
}

// Add registers fn to be called for samples of type typ, returning a stable
// Ref usable with Remove. sample.Trigger acts as a wildcard: a handler
// registered with typ == sample.Trigger fires for every push regardless of
// the pushed sample's type, since Trigger carries no value to match
// against.
func (l *List) Add(typ sample.Type, fn Func) Ref {
	l.next++
	ref := l.next
	l.entries = append(l.entries, &entry{ref: ref, typ: typ, fn: fn})
	return ref
}

// Remove unregisters the handler with the given Ref. Safe to call during
// CallAll iteration (entries are tombstoned, not spliced, while iterating).
func (l *List) Remove(ref Ref) {
	for _, e := range l.entries {
		if e.ref == ref {
			e.removed = true
			return
		}
	}
}

// CallAll dispatches s to every live handler whose declared type matches:
// an exact type match, or a handler declared for sample.Trigger (the
// wildcard). Handlers fire in registration order. Removing a handler from
// within a callback is safe — CallAll snapshots the live set before
// dispatching so removals never skip or double-call an entry mid-iteration.
func (l *List) CallAll(s *sample.Sample) {
	live := make([]*entry, 0, len(l.entries))
	for _, e := range l.entries {
		if !e.removed {
			live = append(live, e)
		}
	}
	l.compact()
	for _, e := range live {
		if e.removed {
			continue
		}
		if e.typ == sample.Trigger || e.typ == s.Type() {
			e.fn(s)
		}
	}
}

// compact drops tombstoned entries so the list doesn't grow unboundedly
// under churn.
func (l *List) compact() {
	if len(l.entries) == 0 {
		return
	}
	kept := l.entries[:0]
	for _, e := range l.entries {
		if !e.removed {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}

// Len reports the number of live handlers.
func (l *List) Len() int {
	n := 0
	for _, e := range l.entries {
		if !e.removed {
			n++
		}
	}
	return n
}
