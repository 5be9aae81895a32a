// Package hub assembles a pkg/tree.Tree together with its policy engine,
// buffer backend, transform-plugin runner, and telemetry into one
// serialized entry point for the rest of the process.
//
// Every call into the tree — bring-up, push, admin update — is executed
// on a single goroutine (the "core loop"), reached only through Submit,
// Push, and Update. This keeps the tree's single-logical-thread
// guarantee even though the surrounding service (CLI, demo producer/
// consumer, metrics server) is an ordinary concurrent Go program: callers
// hand a closure to the core loop over a channel and block on its
// completion rather than touching the tree directly.
//
// # Usage
//
//	h := hub.New(hub.Config{Telemetry: tel, Policy: policyEngine, Backend: store})
//	defer h.Close()
//
//	spec, _ := parser.Load(ctx, sources, facts)
//	if err := h.Bringup(ctx, spec); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := h.Push("/sensors/temp-1", sample.NewNumeric(ts, 21.4)); err != nil {
//	    log.Error().Err(err).Msg("push rejected")
//	}
package hub
