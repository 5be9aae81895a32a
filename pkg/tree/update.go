package tree

// StartUpdate opens the administrative update window: an entry whose
// source is changed through SetSource or ClearSource while the window is
// open buffers only its newest inbound push until EndUpdate. Filter
// changes, and the change to the old or new source's destination list,
// do not suspend anything. Notifies registered UpdateListeners with
// starting=true.
func (t *Tree) StartUpdate() {
	t.updateOpen = true
	for _, l := range t.listeners {
		l.OnUpdate(true)
	}
}

// EndUpdate closes the administrative update window: every resource
// suspended during the window drains its pending slot (delivering at most
// one sample through the normal push pipeline) and resumes normal
// operation, then registered UpdateListeners are notified with
// starting=false.
func (t *Tree) EndUpdate() {
	t.updateOpen = false
	suspended := t.suspendedEntries
	t.suspendedEntries = nil

	for _, e := range suspended {
		e.res.suspended = false
		if e.res.pending == nil {
			continue
		}
		p := e.res.pending
		e.res.pending = nil
		t.pushInternal(e, p, false)
	}

	for _, l := range t.listeners {
		l.OnUpdate(false)
	}
}

// markSuspended flags e as suspended for the remainder of the current
// update window, if one is open. Called by SetSource and ClearSource for
// the entry whose source changes; filter setters do not call it.
func (t *Tree) markSuspended(e *Entry) {
	if !t.updateOpen || e.res == nil || e.res.suspended {
		return
	}
	e.res.suspended = true
	t.suspendedEntries = append(t.suspendedEntries, e)
}
