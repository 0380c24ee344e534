package model

import (
	"errors"
	"fmt"
)

// Errors returned by model operations.
var (
	// ErrPositionOutOfRange indicates a position is outside the document.
	ErrPositionOutOfRange = errors.New("position out of range")

	// ErrInvalidContent indicates node content the schema does not allow.
	ErrInvalidContent = errors.New("invalid content")

	// ErrInvalidAttrs indicates an attribute set the schema rejects.
	ErrInvalidAttrs = errors.New("invalid attributes")

	// ErrUnknownType indicates a node or mark type name not in the schema.
	ErrUnknownType = errors.New("unknown type")

	// ErrInvalidExpr indicates a malformed content expression.
	ErrInvalidExpr = errors.New("invalid content expression")
)

// ReplaceError is returned when a slice cannot be spliced into a document:
// the open depths do not line up with the target positions, or the content
// produced by the splice is rejected by the schema.
type ReplaceError struct {
	Message string
}

func (e *ReplaceError) Error() string { return e.Message }

func replaceError(format string, args ...any) *ReplaceError {
	return &ReplaceError{Message: fmt.Sprintf(format, args...)}
}

// ContentError is returned when a node is constructed with, or checked
// against, content its type's content expression does not accept.
type ContentError struct {
	Type    string
	Content string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("invalid content for node %s: <%s>", e.Type, e.Content)
}

func (e *ContentError) Unwrap() error { return ErrInvalidContent }
