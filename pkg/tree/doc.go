// Package tree implements the data hub's core: a hierarchical,
// path-indexed resource graph (ResourceTree), the per-entry resource state
// machine (Resource/IoPoint/Placeholder/Observation), the routing graph
// with cycle detection, and the administrative update-window protocol
// (StartUpdate/EndUpdate). Reference counting is replaced by the garbage
// collector; tagged unions become a sample.Sample value type.
//
// A single package holds all of these tightly coupled concerns since
// entries reference their parent, children, source, and destinations
// directly, and splitting along those edges would only produce import
// cycles.
package tree
