// Package model implements the document model for treedoc: an immutable,
// schema-validated tree of nodes with structural sharing between versions.
//
// The model is built from a few value types:
//
//   - Node: one element of the tree, carrying a type, attributes, marks,
//     and either child content (a Fragment) or text.
//   - Fragment: an ordered collection of sibling nodes with a precomputed
//     total size.
//   - Mark: a piece of inline metadata (emphasis, a link) attached to a node.
//   - Slice: a fragment with "open" boundaries on either side, used to move
//     partial subtrees in and out of a document.
//   - ResolvedPos: an integer document position resolved into a path of
//     ancestors, indices, and offsets.
//
// Every node type belongs to a Schema, which compiles each type's content
// expression into a deterministic automaton (ContentMatch). The automaton is
// consulted by every construction and replace path, so a node whose content
// violates its schema cannot be built through the public API.
//
// # Immutability
//
// All model values are immutable after construction. Mutating operations
// (Cut, Replace, Mark, ...) return new values that share unchanged subtrees
// with the originals. Old and new versions of a document can therefore be
// held and read concurrently without locking.
//
// # Positions
//
// Positions are integers counting one unit per character of text and one
// unit for each side of every non-text node (its open and close boundary).
// ResolvePos turns such an integer into full tree context.
package model
