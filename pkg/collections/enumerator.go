package collections

import perrors "github.com/matzehuels/parttree/pkg/errors"

// Enumerator is a single-pass cursor over an [OrderedIndexMap].
//
// Any structural change to the map after the enumerator was created (or last
// Reset) makes the next call to Next return false and Err report
// [ErrStaleIterator]:
//
//	e := m.Enumerate()
//	for e.Next() {
//	    fmt.Println(e.Index(), e.Key(), e.Value())
//	}
//	if err := e.Err(); err != nil {
//	    return err
//	}
type Enumerator[K comparable, V any] struct {
	m       *OrderedIndexMap[K, V]
	version uint64
	pos     int
	err     error
}

// Next advances to the next entry.
func (e *Enumerator[K, V]) Next() bool {
	if e.err != nil {
		return false
	}
	if e.version != e.m.version {
		e.err = perrors.Wrap(perrors.ErrCodeStaleIterator, ErrStaleIterator,
			"enumerator at version %d, container at version %d", e.version, e.m.version)
		return false
	}
	if e.pos+1 >= len(e.m.keys) {
		e.pos = len(e.m.keys)
		return false
	}
	e.pos++
	return true
}

// Index returns the current position.
func (e *Enumerator[K, V]) Index() int { return e.pos }

// Key returns the current key. It is the zero value outside a valid position.
func (e *Enumerator[K, V]) Key() K {
	if !e.valid() {
		var zero K
		return zero
	}
	return e.m.keys[e.pos]
}

// Value returns the current value.
func (e *Enumerator[K, V]) Value() V {
	if !e.valid() {
		var zero V
		return zero
	}
	return e.m.values[e.m.keys[e.pos]]
}

// Err returns the error that stopped enumeration, if any.
func (e *Enumerator[K, V]) Err() error { return e.err }

// Reset rewinds the enumerator and re-arms it against the current version.
func (e *Enumerator[K, V]) Reset() {
	e.version = e.m.version
	e.pos = -1
	e.err = nil
}

func (e *Enumerator[K, V]) valid() bool {
	return e.err == nil && e.version == e.m.version && e.pos >= 0 && e.pos < len(e.m.keys)
}
