package collections

import "fmt"

// Property names raised on a container's [notify.Properties] after every
// structural change.
const (
	// CountProperty is raised when the number of entries changes.
	CountProperty = "Count"
	// IndexerProperty is raised after every structural change.
	IndexerProperty = "Item[]"
)

// Action identifies the kind of structural change.
type Action int

const (
	ActionAdd Action = iota
	ActionRemove
	ActionReplace
	ActionMove
	ActionReset
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	case ActionReplace:
		return "replace"
	case ActionMove:
		return "move"
	case ActionReset:
		return "reset"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Change is the canonical description of one structural change.
//
// Index fields are -1 when they do not apply:
//
//	Add      NewItems, NewIndex
//	Remove   OldItems, OldIndex
//	Replace  OldItems, NewItems, OldIndex == NewIndex
//	Move     NewItems (the moved item), OldIndex, NewIndex
//	Reset    nothing
type Change[V any] struct {
	Action   Action
	NewItems []V
	OldItems []V
	NewIndex int
	OldIndex int
}

// AltersCount reports whether the change can alter the number of entries.
func (c Change[V]) AltersCount() bool {
	return c.Action != ActionMove && c.Action != ActionReplace
}

func (c Change[V]) String() string {
	switch c.Action {
	case ActionAdd:
		return fmt.Sprintf("add %d at %d", len(c.NewItems), c.NewIndex)
	case ActionRemove:
		return fmt.Sprintf("remove %d at %d", len(c.OldItems), c.OldIndex)
	case ActionReplace:
		return fmt.Sprintf("replace at %d", c.NewIndex)
	case ActionMove:
		return fmt.Sprintf("move %d -> %d", c.OldIndex, c.NewIndex)
	default:
		return c.Action.String()
	}
}

func added[V any](v V, index int) Change[V] {
	return Change[V]{Action: ActionAdd, NewItems: []V{v}, NewIndex: index, OldIndex: -1}
}

func removed[V any](v V, index int) Change[V] {
	return Change[V]{Action: ActionRemove, OldItems: []V{v}, OldIndex: index, NewIndex: -1}
}

func replaced[V any](oldValue, newValue V, index int) Change[V] {
	return Change[V]{Action: ActionReplace, OldItems: []V{oldValue}, NewItems: []V{newValue}, OldIndex: index, NewIndex: index}
}

func moved[V any](v V, from, to int) Change[V] {
	return Change[V]{Action: ActionMove, NewItems: []V{v}, OldIndex: from, NewIndex: to}
}

func reset[V any]() Change[V] {
	return Change[V]{Action: ActionReset, OldIndex: -1, NewIndex: -1}
}
