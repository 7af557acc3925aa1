package collections

import (
	"slices"

	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/notify"
)

// ItemChange is published on [OrderedIndexMap.ItemChanges] when a stored
// value that implements [notify.Observable] raises a property change.
type ItemChange[K comparable, V any] struct {
	Key    K
	Index  int
	Item   V
	Change notify.PropertyChange
}

// OrderedIndexMap is addressable by key like a map and by position like a
// slice. Key lookup is O(1); index lookup is O(1) through the key slice.
//
// Every structural change publishes one [Change] on [OrderedIndexMap.Changes],
// then raises [CountProperty] (except for Move and Replace) and
// [IndexerProperty] on [OrderedIndexMap.Properties].
//
// The zero value is an empty map ready for use. An OrderedIndexMap must not be
// copied after first use.
type OrderedIndexMap[K comparable, V any] struct {
	keys    []K
	values  map[K]V
	index   map[K]int
	version uint64

	itemSubs map[K]*notify.Subscription

	changes  notify.Feed[Change[V]]
	preReset notify.Feed[[]V]
	items    notify.Feed[ItemChange[K, V]]
	props    notify.Properties
}

// NewOrderedIndexMap returns an empty map.
func NewOrderedIndexMap[K comparable, V any]() *OrderedIndexMap[K, V] {
	m := &OrderedIndexMap[K, V]{}
	m.init()
	return m
}

func (m *OrderedIndexMap[K, V]) init() {
	if m.values == nil {
		m.values = make(map[K]V)
		m.index = make(map[K]int)
		m.itemSubs = make(map[K]*notify.Subscription)
	}
}

// Changes is the collection-changed channel.
func (m *OrderedIndexMap[K, V]) Changes() *notify.Feed[Change[V]] { return &m.changes }

// PreReset is published with a snapshot of the values right before
// [OrderedIndexMap.Clear] wipes them.
func (m *OrderedIndexMap[K, V]) PreReset() *notify.Feed[[]V] { return &m.preReset }

// ItemChanges re-publishes property changes of observable values.
func (m *OrderedIndexMap[K, V]) ItemChanges() *notify.Feed[ItemChange[K, V]] { return &m.items }

// Properties carries the Count and Item[] notifications.
func (m *OrderedIndexMap[K, V]) Properties() *notify.Properties { return &m.props }

// Len returns the number of entries.
func (m *OrderedIndexMap[K, V]) Len() int { return len(m.keys) }

// Version is incremented by every structural change.
func (m *OrderedIndexMap[K, V]) Version() uint64 { return m.version }

// At returns the value at index.
func (m *OrderedIndexMap[K, V]) At(index int) (V, error) {
	if index < 0 || index >= len(m.keys) {
		var zero V
		return zero, outOfRange("get", index, len(m.keys))
	}
	return m.values[m.keys[index]], nil
}

// KeyAt returns the key at index.
func (m *OrderedIndexMap[K, V]) KeyAt(index int) (K, error) {
	if index < 0 || index >= len(m.keys) {
		var zero K
		return zero, outOfRange("get key", index, len(m.keys))
	}
	return m.keys[index], nil
}

// Get returns the value stored under key.
func (m *OrderedIndexMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// IndexOfKey returns the position of key, or -1.
func (m *OrderedIndexMap[K, V]) IndexOfKey(key K) int {
	if i, ok := m.index[key]; ok {
		return i
	}
	return -1
}

// ContainsKey reports whether key is stored.
func (m *OrderedIndexMap[K, V]) ContainsKey(key K) bool {
	_, ok := m.index[key]
	return ok
}

// Keys returns the keys in order.
func (m *OrderedIndexMap[K, V]) Keys() []K { return slices.Clone(m.keys) }

// Values returns the values in order.
func (m *OrderedIndexMap[K, V]) Values() []V {
	out := make([]V, len(m.keys))
	for i, k := range m.keys {
		out[i] = m.values[k]
	}
	return out
}

// Put stores v under key. An existing key keeps its position and raises a
// Replace; a new key is appended. It reports whether key already existed.
func (m *OrderedIndexMap[K, V]) Put(key K, v V) bool {
	m.init()
	if i, ok := m.index[key]; ok {
		m.replaceAt(i, key, v)
		return true
	}
	m.insertAt(len(m.keys), key, v)
	return false
}

// Insert stores v under key at index, shifting later entries up.
// index may equal Len (append) but never exceed it.
//
// If key is already stored, its value is replaced in place and the entry is
// then moved to index, so the operation raises Replace followed by Move.
func (m *OrderedIndexMap[K, V]) Insert(index int, key K, v V) error {
	m.init()
	if index < 0 || index > len(m.keys) {
		return gap(index, len(m.keys))
	}
	if i, ok := m.index[key]; ok {
		if index >= len(m.keys) {
			return outOfRange("insert existing key", index, len(m.keys))
		}
		m.replaceAt(i, key, v)
		return m.Move(i, index)
	}
	m.insertAt(index, key, v)
	return nil
}

// SetAt stores v under key at index. index == Len appends; index < Len
// replaces the entry at index (re-keying it when key differs) and raises a
// Replace; index > Len fails.
func (m *OrderedIndexMap[K, V]) SetAt(index int, key K, v V) error {
	m.init()
	if index < 0 || index > len(m.keys) {
		return outOfRange("set", index, len(m.keys))
	}
	if j, ok := m.index[key]; ok && j != index {
		return perrors.Wrap(perrors.ErrCodeInvalidIndex, ErrDuplicateKey, "set at %d: key already stored at %d", index, j)
	}
	if index == len(m.keys) {
		m.insertAt(index, key, v)
		return nil
	}
	m.replaceAt(index, key, v)
	return nil
}

// Replace overwrites the value at index, keeping its key.
func (m *OrderedIndexMap[K, V]) Replace(index int, v V) error {
	if index < 0 || index >= len(m.keys) {
		return outOfRange("replace", index, len(m.keys))
	}
	m.replaceAt(index, m.keys[index], v)
	return nil
}

// RemoveAt removes the entry at index and returns its value.
func (m *OrderedIndexMap[K, V]) RemoveAt(index int) (V, error) {
	if index < 0 || index >= len(m.keys) {
		var zero V
		return zero, outOfRange("remove", index, len(m.keys))
	}
	key := m.keys[index]
	v := m.values[key]

	m.keys = slices.Delete(m.keys, index, index+1)
	m.reindex(index, len(m.keys)-1)
	delete(m.values, key)
	delete(m.index, key)
	m.unbind(key)
	m.version++

	m.raise(removed(v, index))
	return v, nil
}

// RemoveKey removes key and returns its value.
func (m *OrderedIndexMap[K, V]) RemoveKey(key K) (V, bool) {
	i, ok := m.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	v, _ := m.RemoveAt(i)
	return v, true
}

// Move relocates the entry at from to position to, shifting the entries in
// between by one in a single pass. Moving to the same index does nothing.
func (m *OrderedIndexMap[K, V]) Move(from, to int) error {
	n := len(m.keys)
	if from < 0 || from >= n {
		return outOfRange("move from", from, n)
	}
	if to < 0 || to >= n {
		return outOfRange("move to", to, n)
	}
	if from == to {
		return nil
	}

	key := m.keys[from]
	if from < to {
		copy(m.keys[from:to], m.keys[from+1:to+1])
	} else {
		copy(m.keys[to+1:from+1], m.keys[to:from])
	}
	m.keys[to] = key
	m.reindex(min(from, to), max(from, to))
	m.version++

	m.raise(moved(m.values[key], from, to))
	return nil
}

// Clear publishes the current values on PreReset, then removes every entry
// and raises a Reset.
func (m *OrderedIndexMap[K, V]) Clear() {
	m.preReset.Publish(m.Values())

	for _, k := range m.keys {
		m.unbind(k)
	}
	m.keys = nil
	clear(m.values)
	clear(m.index)
	m.version++

	m.raise(reset[V]())
}

// Enumerate returns an enumerator positioned before the first entry.
func (m *OrderedIndexMap[K, V]) Enumerate() *Enumerator[K, V] {
	return &Enumerator[K, V]{m: m, version: m.version, pos: -1}
}

func (m *OrderedIndexMap[K, V]) insertAt(index int, key K, v V) {
	m.keys = slices.Insert(m.keys, index, key)
	m.reindex(index, len(m.keys)-1)
	m.values[key] = v
	m.bind(key, v)
	m.version++

	m.raise(added(v, index))
}

func (m *OrderedIndexMap[K, V]) replaceAt(index int, key K, v V) {
	oldKey := m.keys[index]
	oldValue := m.values[oldKey]

	m.unbind(oldKey)
	if oldKey != key {
		delete(m.values, oldKey)
		delete(m.index, oldKey)
		m.keys[index] = key
		m.index[key] = index
	}
	m.values[key] = v
	m.bind(key, v)
	m.version++

	m.raise(replaced(oldValue, v, index))
}

func (m *OrderedIndexMap[K, V]) reindex(from, to int) {
	for i := from; i <= to && i < len(m.keys); i++ {
		m.index[m.keys[i]] = i
	}
}

func (m *OrderedIndexMap[K, V]) bind(key K, v V) {
	o, ok := any(v).(notify.Observable)
	if !ok {
		return
	}
	props := o.Properties()
	if props == nil {
		return
	}
	m.itemSubs[key] = props.Subscribe(func(c notify.PropertyChange) {
		m.items.Publish(ItemChange[K, V]{Key: key, Index: m.IndexOfKey(key), Item: v, Change: c})
	})
}

func (m *OrderedIndexMap[K, V]) unbind(key K) {
	if s, ok := m.itemSubs[key]; ok {
		s.Unsubscribe()
		delete(m.itemSubs, key)
	}
}

func (m *OrderedIndexMap[K, V]) raise(c Change[V]) {
	m.changes.Publish(c)
	if c.AltersCount() {
		m.props.Raise(CountProperty)
	}
	m.props.Raise(IndexerProperty)
}
