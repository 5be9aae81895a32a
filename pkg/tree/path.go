package tree

import (
	"strings"

	"github.com/databeam/databeam/pkg/result"
)

// MaxNameLen bounds a single path component, mirroring the bounded name
// buffers of the original C implementation.
const MaxNameLen = 256

// splitPath parses a `/`-separated path into components, reporting whether
// it was absolute. Each component is validated against the name grammar:
// bounded, non-empty, and free of '/', '.', '[', ']'.
func splitPath(path string) (components []string, absolute bool, err error) {
	if path == "" {
		return nil, false, result.New(result.BadParameter, "empty path")
	}
	absolute = strings.HasPrefix(path, "/")
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, absolute, nil
	}
	parts := strings.Split(trimmed, "/")
	for _, p := range parts {
		if err := validateName(p); err != nil {
			return nil, absolute, err
		}
	}
	return parts, absolute, nil
}

// validateName checks a single path component against the name grammar.
func validateName(name string) error {
	if name == "" {
		return result.New(result.BadParameter, "empty path component")
	}
	if len(name) > MaxNameLen {
		return result.New(result.Overflow, "path component too long")
	}
	if strings.ContainsAny(name, "/.[]") {
		return result.New(result.BadParameter, "path component contains reserved character")
	}
	return nil
}

// RenderPath renders e's path relative to base: empty if e == base, the
// bare leaf name if parent(e) == base (prefixed with "/" iff base is
// root), otherwise the parent's rendering with "/name" appended. Returns
// result.NotFound if e is not within base's subtree.
func RenderPath(e, base *Entry) (string, error) {
	if e == base {
		return "", nil
	}
	if e.Parent == nil {
		return "", result.New(result.NotFound, "entry not within base subtree").WithPath(e.Name)
	}
	if e.Parent == base {
		if base.Parent == nil {
			return "/" + e.Name, nil
		}
		return e.Name, nil
	}
	parentPath, err := RenderPath(e.Parent, base)
	if err != nil {
		return "", err
	}
	return parentPath + "/" + e.Name, nil
}

// AbsolutePath renders e's absolute path from the root.
func AbsolutePath(e *Entry) string {
	if e.Parent == nil {
		return "/"
	}
	p, _ := RenderPath(e, root(e))
	return p
}

func root(e *Entry) *Entry {
	for e.Parent != nil {
		e = e.Parent
	}
	return e
}
