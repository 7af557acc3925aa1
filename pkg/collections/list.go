package collections

import (
	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/notify"
)

// List is a positional sequence backed by an [OrderedIndexMap] with
// generated keys. It raises the same notifications as the map.
//
// The zero value is an empty list ready for use. A List must not be copied
// after first use.
type List[V comparable] struct {
	m    OrderedIndexMap[uint64, V]
	next uint64
}

// NewList returns a list holding items.
func NewList[V comparable](items ...V) *List[V] {
	l := &List[V]{}
	l.Append(items...)
	return l
}

func (l *List[V]) key() uint64 {
	l.next++
	return l.next
}

// Len returns the number of items.
func (l *List[V]) Len() int { return l.m.Len() }

// At returns the item at index.
func (l *List[V]) At(index int) (V, error) { return l.m.At(index) }

// Values returns the items in order.
func (l *List[V]) Values() []V { return l.m.Values() }

// Append adds items at the end, one Add per item.
func (l *List[V]) Append(items ...V) {
	l.m.init()
	for _, v := range items {
		l.m.insertAt(l.m.Len(), l.key(), v)
	}
}

// Insert places v at index, shifting later items up. index == Len appends;
// index > Len fails with [ErrGap].
func (l *List[V]) Insert(index int, v V) error {
	l.m.init()
	if index < 0 || index > l.m.Len() {
		return gap(index, l.m.Len())
	}
	l.m.insertAt(index, l.key(), v)
	return nil
}

// Set stores v at index. index == Len appends, index < Len replaces,
// index > Len fails.
func (l *List[V]) Set(index int, v V) error {
	if index == l.m.Len() {
		return l.Insert(index, v)
	}
	return l.m.Replace(index, v)
}

// RemoveAt removes and returns the item at index.
func (l *List[V]) RemoveAt(index int) (V, error) { return l.m.RemoveAt(index) }

// Remove removes the first occurrence of v and reports whether it was found.
func (l *List[V]) Remove(v V) bool {
	i := l.IndexOf(v)
	if i < 0 {
		return false
	}
	_, _ = l.m.RemoveAt(i)
	return true
}

// MustRemove is like Remove but returns [ErrNotFound] when v is absent.
func (l *List[V]) MustRemove(v V) error {
	if !l.Remove(v) {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, ErrNotFound, "remove %v", v)
	}
	return nil
}

// Move relocates the item at from to position to.
func (l *List[V]) Move(from, to int) error { return l.m.Move(from, to) }

// Clear removes every item, publishing PreReset first.
func (l *List[V]) Clear() { l.m.Clear() }

// IndexOf returns the position of the first occurrence of v, or -1.
func (l *List[V]) IndexOf(v V) int {
	for i, k := range l.m.keys {
		if l.m.values[k] == v {
			return i
		}
	}
	return -1
}

// Contains reports whether v is in the list.
func (l *List[V]) Contains(v V) bool { return l.IndexOf(v) >= 0 }

// Enumerate returns a version-checked enumerator.
func (l *List[V]) Enumerate() *Enumerator[uint64, V] { return l.m.Enumerate() }

// Changes is the collection-changed channel.
func (l *List[V]) Changes() *notify.Feed[Change[V]] { return l.m.Changes() }

// PreReset is published with the items right before Clear removes them.
func (l *List[V]) PreReset() *notify.Feed[[]V] { return l.m.PreReset() }

// ItemChanges re-publishes property changes of observable items.
func (l *List[V]) ItemChanges() *notify.Feed[ItemChange[uint64, V]] { return l.m.ItemChanges() }

// Properties carries the Count and Item[] notifications.
func (l *List[V]) Properties() *notify.Properties { return l.m.Properties() }
