// Package config parses the declarative bring-up description of a hub's
// initial tree: namespaces, Input/Output points, Observations, and static
// routes, written as CUE and validated before being applied to a live
// pkg/tree.Tree.
//
// # Overview
//
// A bring-up declaration lists the entries a hub should have before it
// starts accepting traffic. It is parsed and evaluated with
// cuelang.org/go, decoded into typed Go structs, and struct-tag validated
// with go-playground/validator. A Default or Override value may be given as
// a short Starlark expression instead of a literal; these are evaluated
// once, at load time, against the facts passed to Load.
//
// # Components
//
// CUEParser: parses CUE sources into a BringupSpec and resolves Starlark
// expressions. Apply walks a resolved BringupSpec and calls the
// corresponding pkg/tree constructors and setters to build the tree.
//
// SchemaRegistry: CUE schemas for namespaces, Input/Output points,
// Observations, and routes; its Validate* methods check a decoded
// declaration against them. CUEParser does not consult the registry.
//
// StarlarkEvaluator: evaluates one expression at a time against a `facts`
// dict, sandboxed (no filesystem or network access, suppressed print,
// bounded by a timeout) and narrowed to a single scalar result.
//
// # Usage
//
//	parser := config.NewCUEParser()
//	spec, err := parser.Load(ctx, []string{"bringup.cue"}, map[string]interface{}{
//	    "base": 10.0,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.Apply(t, spec); err != nil {
//	    log.Fatal(err)
//	}
//
// # Declaration shape
//
//	namespaces: [{path: "/sensors"}]
//	inputs: [{
//	    path: "/sensors/temp-1"
//	    type: "num"
//	    units: "celsius"
//	    default: {literal: 20.0}
//	}]
//	outputs: [{
//	    path: "/actuators/fan-1"
//	    type: "bool"
//	    default: {starlark: "facts[\"base\"] > 15"}
//	}]
//	observations: [{
//	    path: "/obs/temp-1-avg"
//	    source: "/sensors/temp-1"
//	    min_period: 1.0
//	    buffer_max: 32
//	}]
//	routes: [{from: "/sensors/temp-1", to: "/actuators/fan-1"}]
//
// # Failure mode
//
// A Starlark expression that errors during evaluation fails the whole
// Load call: bring-up is fail-fast, not partial.
package config
