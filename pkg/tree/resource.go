package tree

import (
	"github.com/databeam/databeam/pkg/handler"
	"github.com/databeam/databeam/pkg/result"
	"github.com/databeam/databeam/pkg/sample"
)

// Push delivers s directly to e (from the owning client or administrator,
// never via routing — see SetSource for the routed path). Returns
// result.NotFound if e is a Namespace (no resource payload).
func (t *Tree) Push(e *Entry, s *sample.Sample) error {
	if e.res == nil {
		return result.New(result.NotFound, "push to a namespace entry").WithPath(AbsolutePath(e))
	}
	return t.pushInternal(e, s, false)
}

// pushInternal implements the full push pipeline: suspension check,
// override substitution, variant-specific filter/coercion, current-value
// store, handler fan-out, then destination forwarding (recursing into
// pushInternal with viaRouting=true).
func (t *Tree) pushInternal(e *Entry, s *sample.Sample, viaRouting bool) error {
	r := e.res

	// Inputs accept only direct pushes; routed pushes are silently ignored.
	if viaRouting && e.variant == VariantInput {
		return nil
	}

	if t.updateOpen && r.suspended {
		r.pending = s
		return nil
	}

	if r.hasOverride {
		s = overrideSample(r, s)
	}

	var published *sample.Sample
	var accepted bool

	switch e.variant {
	case VariantObservation:
		published, accepted = t.observationAccept(e, s)
	case VariantInput, VariantOutput:
		coerced, err := sample.Coerce(s, r.io.dataType)
		if err != nil {
			return err
		}
		published, accepted = coerced, true
	case VariantPlaceholder:
		// Placeholders enforce no type; they adopt whatever is pushed.
		published, accepted = s, true
	default:
		return result.New(result.Fault, "push to unsupported variant").WithPath(AbsolutePath(e))
	}

	if !accepted {
		return nil // filtered out; no current-value update, no handler calls
	}

	r.current = published
	r.handlers.CallAll(published)

	for _, dest := range r.destinations {
		if err := t.pushInternal(dest, published, true); err != nil {
			return err
		}
	}
	return nil
}

// overrideSample replaces an incoming sample with a fresh one carrying the
// override value and the incoming sample's timestamp. Applied before any
// filter.
func overrideSample(r *resourceState, incoming *sample.Sample) *sample.Sample {
	ts := incoming.Timestamp()
	switch r.overrideType {
	case sample.Trigger:
		return sample.NewTrigger(ts)
	case sample.Boolean:
		return sample.NewBoolean(ts, r.overrideVal.Bool())
	case sample.Numeric:
		return sample.NewNumeric(ts, r.overrideVal.Num())
	default:
		return r.overrideVal.WithTimestamp(ts)
	}
}

// GetCurrentValue returns e's current value. If no value has ever been
// pushed and a default is configured, the default is returned — the
// default feeds on first read; it never injects itself as a push. Returns
// result.Unavailable if neither exists.
func GetCurrentValue(e *Entry) (*sample.Sample, error) {
	r := e.res
	if r == nil {
		return nil, result.New(result.NotFound, "namespace has no current value").WithPath(AbsolutePath(e))
	}
	if r.current != nil {
		return r.current, nil
	}
	if r.hasDefault {
		return r.defaultVal, nil
	}
	return nil, result.New(result.Unavailable, "no current value").WithPath(AbsolutePath(e))
}

// SetDefault installs a default sample, used by GetCurrentValue when no
// push has yet occurred.
func SetDefault(e *Entry, s *sample.Sample) error {
	r := e.res
	if r == nil {
		return result.New(result.NotFound, "namespace has no default slot").WithPath(AbsolutePath(e))
	}
	r.hasDefault = true
	r.defaultType = s.Type()
	r.defaultVal = s
	r.adminSettingsPresent = true
	return nil
}

// ClearDefault removes e's default.
func ClearDefault(e *Entry) {
	r := e.res
	if r == nil {
		return
	}
	r.hasDefault = false
	r.defaultVal = nil
}

// SetOverride installs an override sample: every subsequent push to e is
// replaced by a fresh sample carrying the override's value, until
// ClearOverride.
func SetOverride(e *Entry, s *sample.Sample) error {
	r := e.res
	if r == nil {
		return result.New(result.NotFound, "namespace has no override slot").WithPath(AbsolutePath(e))
	}
	r.hasOverride = true
	r.overrideType = s.Type()
	r.overrideVal = s
	r.adminSettingsPresent = true
	return nil
}

// ClearOverride removes e's override.
func ClearOverride(e *Entry) {
	r := e.res
	if r == nil {
		return
	}
	r.hasOverride = false
	r.overrideVal = nil
}

// AddPushHandler registers fn for samples of type typ on e. If e already
// has a current value whose type matches typ (or typ is sample.Trigger,
// the wildcard), fn is invoked once immediately with that value.
func AddPushHandler(e *Entry, typ sample.Type, fn handler.Func) (handler.Ref, error) {
	r := e.res
	if r == nil {
		return 0, result.New(result.NotFound, "namespace has no handler list").WithPath(AbsolutePath(e))
	}
	ref := r.handlers.Add(typ, fn)
	if r.current != nil && (typ == sample.Trigger || typ == r.current.Type()) {
		fn(r.current)
	}
	return ref, nil
}

// RemovePushHandler unregisters a previously added handler.
func RemovePushHandler(e *Entry, ref handler.Ref) {
	if e.res == nil {
		return
	}
	e.res.handlers.Remove(ref)
}
