package collections

import (
	"errors"

	perrors "github.com/matzehuels/parttree/pkg/errors"
)

var (
	// ErrIndexOutOfRange is returned when an index does not address an
	// existing entry (or, for set-by-index, is beyond the current length).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrGap is returned by insert operations whose index is beyond the
	// current length. Containers never hold gaps.
	ErrGap = errors.New("insert would leave a gap")

	// ErrDuplicateKey is returned when a key-preserving operation would store
	// the same key at two positions.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStaleIterator is reported by [Enumerator.Err] when the container was
	// mutated after the enumerator started.
	ErrStaleIterator = errors.New("container modified during enumeration")

	// ErrNotFound is returned by [List.Remove] and [List.IndexOf] callers
	// that require the item to be present.
	ErrNotFound = errors.New("item not found")
)

func outOfRange(op string, index, length int) error {
	return perrors.Wrap(perrors.ErrCodeInvalidIndex, ErrIndexOutOfRange, "%s at %d (length %d)", op, index, length)
}

func gap(index, length int) error {
	return perrors.Wrap(perrors.ErrCodeInvalidIndex, ErrGap, "insert at %d (length %d)", index, length)
}
