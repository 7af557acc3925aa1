package tree

import "errors"

var (
	// ErrNotAttached is returned when tree information is requested from a
	// part or node that is not (or no longer) attached.
	ErrNotAttached = errors.New("not attached")

	// ErrPathNotFound is returned by [Node.Resolve] and [Node.PathUntil]
	// when a segment cannot be resolved. The wrapping error names the
	// segment.
	ErrPathNotFound = errors.New("path not found")

	// ErrTypeMismatch is returned by the typed accessors when the part found
	// does not have the requested type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrForeignTree is returned when a part already attached to one tree is
	// attached to another.
	ErrForeignTree = errors.New("part belongs to another tree")

	// ErrReservedName is returned when a named child uses the list-item
	// name form or the root marker.
	ErrReservedName = errors.New("reserved name")
)
