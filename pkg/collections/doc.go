// Package collections provides the order-preserving observable containers
// that parttree's node tree is built on.
//
// # OrderedIndexMap
//
// [OrderedIndexMap] stores values by key and keeps their insertion order, so
// an entry can be reached in O(1) either by key or by position. Positional
// operations never leave gaps:
//
//   - [OrderedIndexMap.Insert] accepts index == Len (append) and fails with
//     [ErrGap] beyond that
//   - [OrderedIndexMap.SetAt] appends at Len, replaces below it, fails above
//   - [OrderedIndexMap.RemoveAt] and [OrderedIndexMap.Move] require an
//     existing index and fail with [ErrIndexOutOfRange] otherwise
//
// Move shifts the entries between the two positions in one pass and raises a
// single Move change, never a Remove/Add pair.
//
// # Notifications
//
// Each structural change produces exactly one [Change] on the Changes feed.
// The map then raises "Count" (unless the change was a Move or Replace) and
// "Item[]" on its [notify.Properties]. [OrderedIndexMap.Clear] additionally
// publishes the outgoing values on PreReset before wiping them, so
// subscribers can detach from every item.
//
// Values that implement [notify.Observable] are watched while stored; their
// property changes are re-published on ItemChanges together with the key and
// current index.
//
// # Enumeration
//
// [Enumerator] walks the map by position and is tied to the map's version
// counter. Mutating the map while an enumerator is active fails the next
// [Enumerator.Next] with [ErrStaleIterator]. [Enumerator.Reset] rewinds and
// re-arms the enumerator.
//
// # List
//
// [List] is the sequence form: an OrderedIndexMap keyed by generated ids,
// with Append/Insert/Set/RemoveAt/Remove/Move/Clear and the same feeds.
//
// Errors carry codes from parttree's errors package (INVALID_INDEX,
// STALE_ITERATOR) and wrap the sentinels above, so both errors.Is(err,
// collections.ErrGap) and errors.Is(err, code) style checks work.
package collections
