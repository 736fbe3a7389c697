// Package ir defines the intermediate representation module model and its
// binary container format.
//
// A Module is an ordered collection of named globals (functions and
// variables) plus module-level metadata. Globals carry a linkage that
// drives symbol resolution when modules are merged; see the linker package.
//
// # Binary format
//
// The binary container (".irb") starts with a 4-byte magic and a version
// byte, followed by LEB128-sized sections in fixed order:
//
//	symbols (1)   name, kind, linkage, flags, body size per global
//	bodies  (2)   encoded instruction lists, in symbol order
//	meta    (3)   key/value string pairs
//
// # Lazy loading
//
// DecodeLazy parses only the symbol skeleton; bodies and metadata stay in
// encoded form until Global.Materialize or Module.MaterializeMetadata is
// called. Decode materializes everything eagerly. Encoding never forces
// materialization: deferred bodies are copied through as-is.
package ir
