package tree

import "github.com/databeam/databeam/pkg/result"

// SetSource routes e's pushes to originate from src's output instead of
// direct pushes to e: every accepted sample at src is delivered to e
// exactly as if pushed directly, via pushInternal's viaRouting path.
// Rejects with result.Duplicate if the change would create a routing
// cycle (src is e itself, or e already reaches src through some other
// destination chain). A change applied while an update window is open
// suspends e per markSuspended instead of taking effect immediately.
func (t *Tree) SetSource(e, src *Entry) error {
	if e.res == nil || src.res == nil {
		return result.New(result.NotFound, "route endpoints must be resources").WithPath(AbsolutePath(e))
	}
	if t.policy != nil && !t.policy.Allow(AbsolutePath(e), "", "route") {
		return result.New(result.NotPermitted, "route denied by policy").WithPath(AbsolutePath(e))
	}
	if reaches(e, src) {
		return result.New(result.Duplicate, "route would create a cycle").WithPath(AbsolutePath(e))
	}

	if old := e.res.source; old != nil {
		removeDestination(old, e)
	}
	e.res.source = src
	addDestination(src, e)

	t.markSuspended(e)
	return nil
}

// ClearSource removes e's routing source, if any.
func (t *Tree) ClearSource(e *Entry) error {
	if e.res == nil {
		return result.New(result.NotFound, "not a resource").WithPath(AbsolutePath(e))
	}
	if old := e.res.source; old != nil {
		removeDestination(old, e)
		e.res.source = nil
		t.markSuspended(e)
	}
	return nil
}

// GetSource returns e's routing source entry, or nil if e is not routed.
func GetSource(e *Entry) *Entry {
	if e.res == nil {
		return nil
	}
	return e.res.source
}

// GetDestinationList returns the entries currently routed from e, in
// insertion order.
func GetDestinationList(e *Entry) []*Entry {
	if e.res == nil {
		return nil
	}
	out := make([]*Entry, len(e.res.destinations))
	copy(out, e.res.destinations)
	return out
}

// reaches reports whether from can reach to by following destination
// edges, i.e. whether routing to->from would close a cycle.
func reaches(from, to *Entry) bool {
	if from == to {
		return true
	}
	seen := map[*Entry]bool{from: true}
	queue := []*Entry{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.res == nil {
			continue
		}
		for _, dest := range cur.res.destinations {
			if dest == to {
				return true
			}
			if !seen[dest] {
				seen[dest] = true
				queue = append(queue, dest)
			}
		}
	}
	return false
}

func addDestination(src, dest *Entry) {
	src.res.destinations = append(src.res.destinations, dest)
}

func removeDestination(src, dest *Entry) {
	out := src.res.destinations[:0]
	for _, d := range src.res.destinations {
		if d != dest {
			out = append(out, d)
		}
	}
	src.res.destinations = out
}
