// Package driver orchestrates a whole link run.
//
// A run merges an ordered primary source list into an empty destination
// module, then an override list whose definitions replace earlier ones,
// then optionally simulates cross-module function import: individual
// functions are resolved against lazily loaded peer modules, promoted and
// renamed per the summary index, and merged in restricted to exactly the
// requested symbols. The destination is verified and serialized last; no
// artifact is ever written after a fatal condition.
//
// The driver is single-threaded and synchronous. Merge order is
// significant (it decides which definition wins under override semantics
// and which renames occur) and is preserved exactly.
package driver
