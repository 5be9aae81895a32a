package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"github.com/go-playground/validator/v10"

	"github.com/databeam/databeam/pkg/sample"
	"github.com/databeam/databeam/pkg/tree"
)

// CUEParser parses and validates a bring-up declaration written as CUE.
type CUEParser struct {
	ctx               *cue.Context
	schemaRegistry    *SchemaRegistry
	starlarkEvaluator *StarlarkEvaluator
	validator         *validator.Validate
}

// NewCUEParser creates a new CUE parser with the default 30 second Starlark
// evaluation timeout.
func NewCUEParser() *CUEParser {
	return &CUEParser{
		ctx:               cuecontext.New(),
		schemaRegistry:    NewSchemaRegistry(),
		starlarkEvaluator: NewStarlarkEvaluator(30 * time.Second),
		validator:         validator.New(),
	}
}

// Load parses the given CUE sources (files or directories), validates the
// result, resolves any Starlark-valued defaults/overrides against facts,
// and returns the assembled BringupSpec. A Starlark evaluation error fails
// the whole call, since bring-up is meant to be fail-fast.
func (cp *CUEParser) Load(ctx context.Context, sources []string, facts map[string]interface{}) (*BringupSpec, error) {
	spec, err := cp.Parse(ctx, sources)
	if err != nil {
		return nil, err
	}
	if len(spec.Errors) > 0 {
		return spec, fmt.Errorf("bring-up declaration has %d validation error(s)", len(spec.Errors))
	}

	if err := cp.resolveExpressions(ctx, spec, facts); err != nil {
		return nil, fmt.Errorf("failed to resolve bring-up expressions: %w", err)
	}

	return spec, nil
}

// Parse parses CUE configuration from the given sources without resolving
// Starlark expressions.
func (cp *CUEParser) Parse(_ context.Context, sources []string) (*BringupSpec, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}

	var cueValue cue.Value
	var sourceFiles []string
	var parseErrors []ValidationError

	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("failed to stat source %s: %w", source, err)
		}

		var val cue.Value
		var files []string
		var errs []ValidationError
		if info.IsDir() {
			val, files, errs = cp.loadDirectory(source)
		} else {
			var fileErrs []ValidationError
			val, fileErrs = cp.loadFile(source)
			errs = fileErrs
			files = []string{source}
		}

		if len(errs) > 0 {
			parseErrors = append(parseErrors, errs...)
		}
		if val.Exists() {
			if cueValue.Exists() {
				cueValue = cueValue.Unify(val)
			} else {
				cueValue = val
			}
		}
		sourceFiles = append(sourceFiles, files...)
	}

	if len(parseErrors) > 0 {
		return &BringupSpec{SourceFiles: sourceFiles, ParsedAt: time.Now(), Errors: parseErrors}, nil
	}

	if err := cueValue.Err(); err != nil {
		parseErrors = append(parseErrors, cp.convertCUEErrors(err)...)
		return &BringupSpec{SourceFiles: sourceFiles, ParsedAt: time.Now(), Errors: parseErrors}, nil
	}

	return cp.extractSpec(cueValue, sourceFiles)
}

func (cp *CUEParser) loadDirectory(dir string) (cue.Value, []string, []ValidationError) {
	buildInstances := load.Instances([]string{dir}, nil)
	if len(buildInstances) == 0 {
		return cue.Value{}, nil, []ValidationError{{File: dir, Message: "no CUE files found", Severity: "error"}}
	}

	inst := buildInstances[0]
	if inst.Err != nil {
		return cue.Value{}, nil, cp.convertCUEErrors(inst.Err)
	}

	val := cp.ctx.BuildInstance(inst)
	if err := val.Err(); err != nil {
		return cue.Value{}, nil, cp.convertCUEErrors(err)
	}

	var files []string
	for _, file := range inst.Files {
		if file.Filename != "" {
			files = append(files, file.Filename)
		}
	}

	return val, files, nil
}

func (cp *CUEParser) loadFile(path string) (cue.Value, []ValidationError) {
	content, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, []ValidationError{{File: path, Message: fmt.Sprintf("failed to read file: %v", err), Severity: "error"}}
	}

	val := cp.ctx.CompileString(string(content), cue.Filename(path))
	if err := val.Err(); err != nil {
		return cue.Value{}, cp.convertCUEErrors(err)
	}

	return val, nil
}

// extractSpec decodes the namespaces/inputs/outputs/observations/routes
// top-level fields of a CUE value into a BringupSpec.
func (cp *CUEParser) extractSpec(val cue.Value, sourceFiles []string) (*BringupSpec, error) {
	spec := &BringupSpec{SourceFiles: sourceFiles, ParsedAt: time.Now()}

	cp.decodeList(val, "namespaces", &spec.Errors, func(v cue.Value) error {
		var d NamespaceDecl
		if err := v.Decode(&d); err != nil {
			return err
		}
		if err := cp.validator.Struct(d); err != nil {
			return err
		}
		spec.Namespaces = append(spec.Namespaces, d)
		return nil
	})

	cp.decodeList(val, "inputs", &spec.Errors, func(v cue.Value) error {
		var d IOPointDecl
		if err := v.Decode(&d); err != nil {
			return err
		}
		if err := cp.validator.Struct(d); err != nil {
			return err
		}
		spec.Inputs = append(spec.Inputs, d)
		return nil
	})

	cp.decodeList(val, "outputs", &spec.Errors, func(v cue.Value) error {
		var d IOPointDecl
		if err := v.Decode(&d); err != nil {
			return err
		}
		if err := cp.validator.Struct(d); err != nil {
			return err
		}
		spec.Outputs = append(spec.Outputs, d)
		return nil
	})

	cp.decodeList(val, "observations", &spec.Errors, func(v cue.Value) error {
		var d ObservationDecl
		if err := v.Decode(&d); err != nil {
			return err
		}
		if err := cp.validator.Struct(d); err != nil {
			return err
		}
		spec.Observations = append(spec.Observations, d)
		return nil
	})

	cp.decodeList(val, "routes", &spec.Errors, func(v cue.Value) error {
		var d RouteDecl
		if err := v.Decode(&d); err != nil {
			return err
		}
		if err := cp.validator.Struct(d); err != nil {
			return err
		}
		spec.Routes = append(spec.Routes, d)
		return nil
	})

	return spec, nil
}

// decodeList iterates a top-level CUE list field, applying decode to each
// element and recording any failure as a ValidationError keyed by index.
func (cp *CUEParser) decodeList(val cue.Value, field string, errsOut *[]ValidationError, decode func(cue.Value) error) {
	listVal := val.LookupPath(cue.ParsePath(field))
	if !listVal.Exists() {
		return
	}

	list, err := listVal.List()
	if err != nil {
		*errsOut = append(*errsOut, ValidationError{Path: field, Message: fmt.Sprintf("expected a list: %v", err), Severity: "error"})
		return
	}

	idx := 0
	for list.Next() {
		if err := decode(list.Value()); err != nil {
			*errsOut = append(*errsOut, ValidationError{
				Path:     fmt.Sprintf("%s[%d]", field, idx),
				Message:  err.Error(),
				Severity: "error",
			})
		}
		idx++
	}
}

// resolveExpressions evaluates every Starlark-valued ValueExpr in spec
// against facts, replacing it with the resulting literal.
func (cp *CUEParser) resolveExpressions(ctx context.Context, spec *BringupSpec, facts map[string]interface{}) error {
	resolve := func(ve *ValueExpr) error {
		if ve == nil || ve.Starlark == "" {
			return nil
		}
		result, err := cp.starlarkEvaluator.EvaluateScalar(ctx, ve.Starlark, facts)
		if err != nil {
			return err
		}
		data, err := json.Marshal(result.Value)
		if err != nil {
			return fmt.Errorf("failed to encode evaluated value: %w", err)
		}
		ve.Literal = data
		ve.Starlark = ""
		return nil
	}

	for i := range spec.Inputs {
		if err := resolve(spec.Inputs[i].Default); err != nil {
			return fmt.Errorf("inputs[%d].default: %w", i, err)
		}
		if err := resolve(spec.Inputs[i].Override); err != nil {
			return fmt.Errorf("inputs[%d].override: %w", i, err)
		}
	}
	for i := range spec.Outputs {
		if err := resolve(spec.Outputs[i].Default); err != nil {
			return fmt.Errorf("outputs[%d].default: %w", i, err)
		}
		if err := resolve(spec.Outputs[i].Override); err != nil {
			return fmt.Errorf("outputs[%d].override: %w", i, err)
		}
	}

	return nil
}

func (cp *CUEParser) convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	errs := errors.Errors(err)
	for _, e := range errs {
		pos := errors.Positions(e)
		var file string
		var line, column int

		if len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}

		validationErrors = append(validationErrors, ValidationError{
			File:     file,
			Line:     line,
			Column:   column,
			Message:  errors.Details(e, nil),
			Severity: "error",
		})
	}

	return validationErrors
}

// ParseInline parses inline CUE content, for tests and small embedded specs.
func (cp *CUEParser) ParseInline(_ context.Context, content string) (*BringupSpec, error) {
	val := cp.ctx.CompileString(content)
	if err := val.Err(); err != nil {
		return &BringupSpec{SourceFiles: []string{"inline"}, ParsedAt: time.Now(), Errors: cp.convertCUEErrors(err)}, nil
	}

	return cp.extractSpec(val, []string{"inline"})
}

// GetSchemaRegistry returns the schema registry backing this parser.
func (cp *CUEParser) GetSchemaRegistry() *SchemaRegistry {
	return cp.schemaRegistry
}

// LoadFromDirectory lists all *.cue files under dir, recursively.
func (cp *CUEParser) LoadFromDirectory(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".cue") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return files, nil
}

// Apply seeds t with every declaration in spec: namespaces, then Input and
// Output points (with resolved defaults/overrides applied), then
// Observations (with their filter/buffer/transform settings), then static
// routes. It is the bring-up counterpart to the runtime Push/admin API the
// rest of pkg/tree exposes.
func Apply(t *tree.Tree, spec *BringupSpec) error {
	root := t.Root()

	for _, ns := range spec.Namespaces {
		if _, err := t.GetEntry(root, ns.Path); err != nil {
			return fmt.Errorf("namespace %s: %w", ns.Path, err)
		}
	}

	for _, decl := range spec.Inputs {
		if err := applyIOPoint(t, root, decl, t.GetInput); err != nil {
			return fmt.Errorf("input %s: %w", decl.Path, err)
		}
	}

	for _, decl := range spec.Outputs {
		if err := applyIOPoint(t, root, decl, t.GetOutput); err != nil {
			return fmt.Errorf("output %s: %w", decl.Path, err)
		}
	}

	for _, decl := range spec.Observations {
		if err := applyObservation(t, root, decl); err != nil {
			return fmt.Errorf("observation %s: %w", decl.Path, err)
		}
	}

	for _, route := range spec.Routes {
		srcEntry, err := t.GetEntry(root, route.From)
		if err != nil {
			return fmt.Errorf("route %s -> %s: source: %w", route.From, route.To, err)
		}
		dstEntry, err := t.GetEntry(root, route.To)
		if err != nil {
			return fmt.Errorf("route %s -> %s: destination: %w", route.From, route.To, err)
		}
		if err := t.SetSource(dstEntry, srcEntry); err != nil {
			return fmt.Errorf("route %s -> %s: %w", route.From, route.To, err)
		}
	}

	return nil
}

type ioPointGetter func(base *tree.Entry, path string, typ sample.Type, units string) (*tree.Entry, error)

func applyIOPoint(t *tree.Tree, root *tree.Entry, decl IOPointDecl, get ioPointGetter) error {
	typ, err := parseSampleType(decl.Type)
	if err != nil {
		return err
	}

	entry, err := get(root, decl.Path, typ, decl.Units)
	if err != nil {
		return err
	}

	if decl.Mandatory {
		if err := tree.MarkMandatory(entry); err != nil {
			return err
		}
	} else {
		if err := tree.MarkOptional(entry); err != nil {
			return err
		}
	}

	if decl.Default != nil {
		s, err := sampleFromValueExpr(typ, decl.Default)
		if err != nil {
			return fmt.Errorf("default: %w", err)
		}
		if err := tree.SetDefault(entry, s); err != nil {
			return err
		}
	}

	if decl.Override != nil {
		s, err := sampleFromValueExpr(typ, decl.Override)
		if err != nil {
			return fmt.Errorf("override: %w", err)
		}
		if err := tree.SetOverride(entry, s); err != nil {
			return err
		}
	}

	return nil
}

func applyObservation(t *tree.Tree, root *tree.Entry, decl ObservationDecl) error {
	entry, err := t.GetObservation(root, decl.Path)
	if err != nil {
		return err
	}

	sourceEntry, err := t.GetEntry(root, decl.Source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := t.SetSource(entry, sourceEntry); err != nil {
		return err
	}

	if decl.JSONExtract != "" {
		if err := tree.SetJsonExtraction(entry, decl.JSONExtract); err != nil {
			return err
		}
	}
	if decl.MinPeriod != nil {
		if err := tree.SetMinPeriod(entry, *decl.MinPeriod); err != nil {
			return err
		}
	}
	if decl.RangeLow != nil && decl.RangeHigh != nil {
		if err := tree.SetRange(entry, *decl.RangeLow, *decl.RangeHigh); err != nil {
			return err
		}
	}
	if decl.ChangeBy != nil {
		if err := tree.SetChangeBy(entry, *decl.ChangeBy); err != nil {
			return err
		}
	}
	if decl.BufferMax > 0 {
		if err := tree.SetBufferMax(entry, decl.BufferMax); err != nil {
			return err
		}
	}
	if decl.BufferBackupPath != "" {
		if err := tree.SetBufferBackup(entry, decl.BufferBackupPath, decl.BufferBackupPeriod); err != nil {
			return err
		}
	}
	if decl.TransformPlugin != "" {
		if err := tree.SetTransformPlugin(entry, decl.TransformPlugin); err != nil {
			return err
		}
	}
	if decl.Transform != "" {
		kind, err := parseTransformKind(decl.Transform)
		if err != nil {
			return err
		}
		if err := tree.SetTransform(entry, kind); err != nil {
			return err
		}
	}
	if decl.Destination != "" {
		if err := tree.SetDestination(entry, decl.Destination); err != nil {
			return err
		}
	}

	return nil
}

func parseTransformKind(s string) (tree.TransformKind, error) {
	switch s {
	case "mean":
		return tree.TransformMean, nil
	case "stddev":
		return tree.TransformStdDev, nil
	case "max":
		return tree.TransformMax, nil
	case "min":
		return tree.TransformMin, nil
	default:
		return tree.TransformNone, fmt.Errorf("unknown transform kind %q", s)
	}
}

func parseSampleType(t string) (sample.Type, error) {
	switch t {
	case "trigger":
		return sample.Trigger, nil
	case "bool":
		return sample.Boolean, nil
	case "num":
		return sample.Numeric, nil
	case "str":
		return sample.String, nil
	case "json":
		return sample.JSON, nil
	default:
		return 0, fmt.Errorf("unknown sample type %q", t)
	}
}

func sampleFromValueExpr(typ sample.Type, ve *ValueExpr) (*sample.Sample, error) {
	switch typ {
	case sample.Trigger:
		return sample.NewTrigger(0), nil
	case sample.Boolean:
		var v bool
		if err := json.Unmarshal(ve.Literal, &v); err != nil {
			return nil, err
		}
		return sample.NewBoolean(0, v), nil
	case sample.Numeric:
		var v float64
		if err := json.Unmarshal(ve.Literal, &v); err != nil {
			return nil, err
		}
		return sample.NewNumeric(0, v), nil
	case sample.String:
		var v string
		if err := json.Unmarshal(ve.Literal, &v); err != nil {
			return nil, err
		}
		return sample.NewString(0, v)
	case sample.JSON:
		return sample.NewJSON(0, string(ve.Literal))
	default:
		return nil, fmt.Errorf("unknown sample type %v", typ)
	}
}
