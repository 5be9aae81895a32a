package config

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas used to validate a bring-up declaration
// before it is decoded into Go structs.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	ctx := cuecontext.New()
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	sr.registerBuiltInSchemas()

	return sr
}

func (sr *SchemaRegistry) registerBuiltInSchemas() {
	_ = sr.RegisterSchema("namespace", builtinNamespaceSchema)
	_ = sr.RegisterSchema("iopoint", builtinIOPointSchema)
	_ = sr.RegisterSchema("observation", builtinObservationSchema)
	_ = sr.RegisterSchema("route", builtinRouteSchema)
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(_ context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	return names
}

// Built-in schema definitions. These mirror the shape of BringupSpec's
// declaration structs; the Validate* methods below check a decoded
// declaration against them, failing with a CUE-level error that names the
// offending field. CUEParser.Parse does not consult them: it checks decoded
// declarations with struct tags only. Each file embeds its own definition
// so that the compiled value is the closed schema itself.

const builtinNamespaceSchema = `
#Namespace: {
	path: string & =~"^/"
}
#Namespace
`

const builtinIOPointSchema = `
#IOPoint: {
	path:       string & =~"^/"
	type:       "trigger" | "bool" | "num" | "str" | "json"
	units?:     string
	mandatory?: bool
	default?:   {literal?: _, starlark?: string}
	override?:  {literal?: _, starlark?: string}
}
#IOPoint
`

const builtinObservationSchema = `
#Observation: {
	path:                  string & =~"^/"
	source:                string & =~"^/"
	json_extract?:         string
	min_period?:           number & >=0
	range_low?:            number
	range_high?:           number
	change_by?:            number & >0
	buffer_max?:           int & >0
	buffer_backup_path?:   string
	buffer_backup_period?: number & >0
	transform_plugin?:     string
	transform?:            "mean" | "stddev" | "max" | "min"
	destination?:          string
}
#Observation
`

const builtinRouteSchema = `
#Route: {
	from: string & =~"^/"
	to:   string & =~"^/"
}
#Route
`

// ValidateNamespace validates a namespace declaration against its schema.
func (sr *SchemaRegistry) ValidateNamespace(ctx context.Context, decl NamespaceDecl) error {
	return sr.ValidateAgainstSchema(ctx, "namespace", decl)
}

// ValidateIOPoint validates an Input/Output declaration against its schema.
func (sr *SchemaRegistry) ValidateIOPoint(ctx context.Context, decl IOPointDecl) error {
	return sr.ValidateAgainstSchema(ctx, "iopoint", decl)
}

// ValidateObservation validates an Observation declaration against its schema.
func (sr *SchemaRegistry) ValidateObservation(ctx context.Context, decl ObservationDecl) error {
	return sr.ValidateAgainstSchema(ctx, "observation", decl)
}

// ValidateRoute validates a route declaration against its schema.
func (sr *SchemaRegistry) ValidateRoute(ctx context.Context, decl RouteDecl) error {
	return sr.ValidateAgainstSchema(ctx, "route", decl)
}
