// Package linker implements the union-of-modules merge engine.
//
// A Linker owns a growing destination module. LinkInModule consumes one
// source module at a time, resolving symbol collisions by linkage:
// overridable definitions (link_once, weak_any, weak_odr, common) yield to
// the definition already in the destination, FlagOverrideFromSrc forces the
// source definition to win, and two non-overridable definitions are a fatal
// conflict. Colliding internal globals are renamed instead of merged.
//
// Merging can be restricted to an explicit set of globals plus their
// transitive dependencies, which is how selective function import pulls
// single functions out of peer modules.
package linker
