package tree

import (
	"github.com/databeam/databeam/pkg/result"
)

// PathPolicy is consulted before a create-mode traversal materializes a new
// Input/Output/Observation, and before a routing change. It is never
// consulted on the push hot path. A nil PathPolicy allows everything.
type PathPolicy interface {
	// Allow reports whether namespace may perform operation ("create",
	// "route") against path. A false return becomes result.NotPermitted.
	Allow(path, namespace, operation string) bool
}

// UpdateListener is notified at StartUpdate and EndUpdate.
type UpdateListener interface {
	OnUpdate(starting bool)
}

// Tree is a hierarchical, path-indexed resource graph.
type Tree struct {
	root *Entry

	policy PathPolicy

	updateOpen      bool
	listeners       []UpdateListener
	suspendedEntries []*Entry

	backend BufferBackend
	plugins TransformRunner
}

// New creates an empty Tree with just a root Namespace.
func New() *Tree {
	return &Tree{root: newRoot()}
}

// Root returns the tree's root entry.
func (t *Tree) Root() *Entry { return t.root }

// SetPolicy installs the PathPolicy consulted on create/route operations.
func (t *Tree) SetPolicy(p PathPolicy) { t.policy = p }

// SetBufferBackend installs the persistence backend used by Observation
// buffer backups. A nil backend disables backups entirely.
func (t *Tree) SetBufferBackend(b BufferBackend) { t.backend = b }

// SetTransformRunner installs the optional custom-transform-plugin runner.
// A nil runner disables plugin transforms; built-in transforms are
// unaffected.
func (t *Tree) SetTransformRunner(r TransformRunner) { t.plugins = r }

// AddUpdateListener registers an UpdateListener, returning nothing to
// remove by identity comparison via RemoveUpdateListener.
func (t *Tree) AddUpdateListener(l UpdateListener) {
	t.listeners = append(t.listeners, l)
}

// RemoveUpdateListener removes a previously registered listener.
func (t *Tree) RemoveUpdateListener(l UpdateListener) {
	out := t.listeners[:0]
	for _, x := range t.listeners {
		if x != l {
			out = append(out, x)
		}
	}
	t.listeners = out
}

// resolve walks path's components starting at base. In create mode, missing
// intermediate entries are materialized as Namespaces; if finalVariant is
// not VariantNamespace, a missing final entry is materialized as that
// variant. withZombies controls whether deleted children are visible to the
// traversal (used by the snapshot scanner).
func (t *Tree) resolve(base *Entry, path string, create bool, finalVariant Variant, withZombies bool) (*Entry, error) {
	components, absolute, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	cur := base
	if absolute {
		cur = t.root
	}
	if len(components) == 0 {
		return cur, nil
	}
	for i, name := range components {
		last := i == len(components)-1
		child := findChild(cur, name, withZombies)
		if child == nil {
			if !create {
				return nil, result.New(result.NotFound, "entry not found").WithPath(path)
			}
			variant := VariantNamespace
			if last {
				variant = finalVariant
			}
			child = &Entry{Name: name, Parent: cur, variant: variant}
			if variant != VariantNamespace {
				child.res = newResourceState()
			}
			child.newFlag = true
			cur.children = append(cur.children, child)
		}
		cur = child
	}
	return cur, nil
}

// FindEntry looks up path relative to base without creating anything.
func (t *Tree) FindEntry(base *Entry, path string) (*Entry, error) {
	return t.resolve(base, path, false, VariantNamespace, false)
}

// FindEntryWithZombies is FindEntry but deleted entries remain visible, for
// use by the snapshot scanner.
func (t *Tree) FindEntryWithZombies(base *Entry, path string) (*Entry, error) {
	return t.resolve(base, path, false, VariantNamespace, true)
}

// GetEntry looks up path relative to base, materializing missing
// Namespaces (and a final Namespace) along the way.
func (t *Tree) GetEntry(base *Entry, path string) (*Entry, error) {
	return t.resolve(base, path, true, VariantNamespace, false)
}
