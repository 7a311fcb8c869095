// Package value provides the recursive tagged variant used to represent
// a document's arbitrary YAML `data` payload.
//
// Document data is dynamically typed YAML: it may be a scalar, a
// sequence, or a mapping, nested arbitrarily. Rather than lean on Go's
// `any`/`interface{}` and runtime type assertions scattered across the
// rendering engine, every component in this module operates on Value,
// a sealed interface with exactly seven implementations. Structural
// operations (Get, Set, Delete, DeepMerge) are free functions over this
// variant, per the engine's layering and substitution algorithms, not
// methods on a class hierarchy.
//
// All other internal packages import value; value imports nothing
// internal, so it remains the foundational, dependency-free layer.
package value
