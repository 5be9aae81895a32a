// Package transformplugin runs a custom Observation transform inside a
// WASM sandbox, so a hub operator can plug in a reduction that isn't one
// of the built-in TransformKind values (mean, stddev, max, min).
//
// A plugin module exports four functions: malloc, free, memory, and
// transform(ptr, len) -> packed(ptr, len). transform receives the
// Observation's buffered Numeric samples packed as a little-endian
// float64 array and returns the address and length (always 8) of a
// single float64 result, using the same packed-uint64 return
// convention (output_ptr<<32 | output_len) as the host provider bridge
// this package is narrowed from. There is no WASI instantiation and no
// host-callable function registration: a transform is a pure numeric
// callback, not a capability-bearing provider.
//
// Runner implements pkg/tree.TransformRunner. Each call is bounded by a
// context.WithTimeout so a misbehaving plugin cannot stall the hub's
// core loop.
package transformplugin
