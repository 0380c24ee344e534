// Package transform turns document edits into first-class values: atomic,
// invertible steps that can be serialized, inverted, and mapped across
// other changes.
//
// A Step describes one primitive edit. Applying a step to a document never
// mutates it; the result either carries the new document or a failure
// message that the caller can react to (typically by dropping the edit).
// Every applied step yields a StepMap describing how it moved positions,
// and a Mapping accumulates those maps so that positions held against an
// older document version can be translated to the newest one.
//
// The Transform type strings steps together against a current document and
// offers higher-level operations (replace, mark changes, lift, wrap,
// split, join) that compile down to steps.
package transform
