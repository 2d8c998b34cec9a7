// Package vir defines the verification intermediate representation the
// permission core operates on: places (access paths), permission amounts,
// expressions, statements, and predicate definitions.
//
// The IR is an owned recursive tagged tree. Nodes are immutable value
// types; rewrites build fresh nodes and never mutate children in place.
// Place identity is structural and type tags never participate in it.
package vir
