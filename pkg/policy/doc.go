// Package policy provides Open Policy Agent (OPA) integration for admission
// control over the resource tree: deciding whether a namespace may create
// a new Input/Output/Observation at a given path, or route one resource's
// output into another.
//
// # Architecture
//
// The policy system has three components:
//
//  1. Engine - Compiles and evaluates Rego policies, and implements
//     tree.PathPolicy via Allow
//  2. Loader - Loads policies from files, directories, and bundles, with
//     optional fsnotify-based hot reload
//  3. Built-in Policies - Pre-defined policies for common conventions
//
// # Usage
//
//	logger := zerolog.New(os.Stdout)
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tree.SetPolicy(eng)
//
// Evaluating an admission request directly:
//
//	result, err := eng.Evaluate(ctx, &policy.Input{
//	    Path:      "/sensors/temp-1",
//	    Namespace: "client-a",
//	    Operation: "create",
//	})
//	if !result.Allowed {
//	    for _, v := range result.Violations {
//	        fmt.Printf("policy %s: %s\n", v.Policy, v.Message)
//	    }
//	}
//
// Loading custom policies from disk:
//
//	err = eng.LoadPolicies(ctx, []string{"/etc/databeam/policies"})
//
// # Built-in Policies
//
//  1. path-naming - enforces the lowercase/hyphen/underscore path grammar
//  2. system-namespace - reserves /system for the hub's own namespace
//  3. route-restrictions - flags routes into /system for review
//
// # Hot Reload
//
//	loader := policy.NewLoader(logger)
//	err = loader.Watch(ctx, paths, func(policies []policy.Policy) error {
//	    return eng.LoadPolicies(ctx, paths)
//	})
//
// # Severity Levels
//
//   - info: informational
//   - warning: reviewed but never blocks
//   - error / critical: blocks the request (Result.Allowed becomes false)
package policy
