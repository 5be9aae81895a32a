package tree

// GetPlaceholder materializes (or returns the existing) Placeholder entry
// at path relative to base. A Placeholder carries admin settings —
// default, override, push handlers — for a resource that has not yet been
// created by an owning Input, Output, or Observation. It enforces no
// type; the first push it ever receives fixes nothing, since a later
// GetInput/GetOutput/GetObservation call upgrades it in place and only
// then does type enforcement begin.
func (t *Tree) GetPlaceholder(base *Entry, path string) (*Entry, error) {
	return t.resolve(base, path, true, VariantPlaceholder, false)
}
