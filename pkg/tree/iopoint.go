package tree

import (
	"github.com/databeam/databeam/pkg/result"
	"github.com/databeam/databeam/pkg/sample"
)

// ioPayload is the variant-specific state for Input/Output entries.
type ioPayload struct {
	dataType  sample.Type
	units     string
	mandatory bool
}

// GetInput materializes (or returns the existing) Input entry at path
// relative to base, consulting the tree's PathPolicy when creating. If an
// entry already exists at path with a different variant, it is upgraded in
// place only from Placeholder; any other existing variant is a conflict.
// A repeat call with a matching, already-compatible type is idempotent and
// returns the existing entry without error.
func (t *Tree) GetInput(base *Entry, path string, typ sample.Type, units string) (*Entry, error) {
	return t.getIoPoint(base, path, VariantInput, typ, units)
}

// GetOutput is GetInput for the Output variant.
func (t *Tree) GetOutput(base *Entry, path string, typ sample.Type, units string) (*Entry, error) {
	return t.getIoPoint(base, path, VariantOutput, typ, units)
}

func (t *Tree) getIoPoint(base *Entry, path string, variant Variant, typ sample.Type, units string) (*Entry, error) {
	e, err := t.resolve(base, path, true, variant, false)
	if err != nil {
		return nil, err
	}

	if e.newFlag && e.variant == variant && e.res.io == nil {
		if t.policy != nil && !t.policy.Allow(AbsolutePath(e), "", "create") {
			t.discardNewEntry(e)
			return nil, result.New(result.NotPermitted, "create denied by policy").WithPath(AbsolutePath(e))
		}
		e.variant = variant
		e.res.io = &ioPayload{dataType: typ, units: units}
		return e, nil
	}

	switch e.variant {
	case variant:
		if e.res.io.dataType != typ {
			return nil, result.New(result.Duplicate, "resource already exists with a different type").WithPath(AbsolutePath(e))
		}
		return e, nil
	case VariantPlaceholder:
		// A placeholder upgrades in place, preserving admin settings
		// (default/override/handlers) already attached to it.
		e.variant = variant
		e.res.io = &ioPayload{dataType: typ, units: units}
		return e, nil
	default:
		return nil, result.New(result.Duplicate, "path already holds a different resource variant").WithPath(AbsolutePath(e))
	}
}

// discardNewEntry removes an entry that was freshly materialized by
// resolve but then rejected by policy. Only e itself is removed:
// intermediate Namespaces that resolve materialized on the way to e
// remain in the tree.
func (t *Tree) discardNewEntry(e *Entry) {
	p := e.Parent
	if p == nil {
		return
	}
	idx := indexInParent(e)
	if idx < 0 {
		return
	}
	p.children = append(p.children[:idx], p.children[idx+1:]...)
}

// MarkOptional clears e's mandatory flag (an absent Input no longer blocks
// readiness). MarkMandatory is its inverse.
func MarkOptional(e *Entry) error {
	if e.res == nil || e.res.io == nil {
		return result.New(result.NotFound, "not an IoPoint").WithPath(AbsolutePath(e))
	}
	e.res.io.mandatory = false
	return nil
}

// MarkMandatory sets e's mandatory flag.
func MarkMandatory(e *Entry) error {
	if e.res == nil || e.res.io == nil {
		return result.New(result.NotFound, "not an IoPoint").WithPath(AbsolutePath(e))
	}
	e.res.io.mandatory = true
	return nil
}

// IsMandatory reports whether e is a mandatory IoPoint.
func IsMandatory(e *Entry) bool {
	return e.res != nil && e.res.io != nil && e.res.io.mandatory
}

// Units returns e's configured units string, if any.
func Units(e *Entry) string {
	if e.res == nil || e.res.io == nil {
		return ""
	}
	return e.res.io.units
}

// SetUnits sets e's units string.
func SetUnits(e *Entry, units string) error {
	if e.res == nil || e.res.io == nil {
		return result.New(result.NotFound, "not an IoPoint").WithPath(AbsolutePath(e))
	}
	e.res.io.units = units
	return nil
}

// DataType returns e's configured data type.
func DataType(e *Entry) (sample.Type, error) {
	if e.res == nil || e.res.io == nil {
		return 0, result.New(result.NotFound, "not an IoPoint").WithPath(AbsolutePath(e))
	}
	return e.res.io.dataType, nil
}
