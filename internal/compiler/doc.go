// Package compiler turns filter nodes into calls on a filter.Adapter.
//
// Each node is compiled under an ambient connective: AND at the top level
// and on entry to every relation scope, and the group's own connective for
// children of a LogicalGroup. Dotted paths open one RelationExists scope per
// relation segment, outermost first.
//
// The compiler holds no per-compilation state. A single Compiler may be used
// from many goroutines as long as each compilation has its own adapter.
package compiler
