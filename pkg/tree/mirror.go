package tree

import (
	"slices"

	"github.com/matzehuels/parttree/pkg/collections"
	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/notify"
)

// ItemPart is the constraint for parts held in a mirrored list.
type ItemPart interface {
	comparable
	Part
}

// Mirror keeps a node's list children and a caller-owned list of parts in
// lockstep. Each direction unsubscribes from the other side while it
// applies a change, so a mutation is mirrored exactly once.
type Mirror[T ItemPart] struct {
	node     *Node
	list     *collections.List[T]
	external *notify.Subscription
	internal *notify.Subscription
}

// MirrorItems binds list to n's list children.
//
// Items already in list that are not yet list children of n are attached
// after n's current list children; list is then rewritten to match. A node
// mirrors at most one list.
func MirrorItems[T ItemPart](n *Node, list *collections.List[T]) (*Mirror[T], error) {
	switch {
	case n == nil || n.state == StateDetached:
		return nil, perrors.Wrap(perrors.ErrCodeNotAttached, ErrNotAttached, "mirror on a detached node")
	case list == nil:
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "nil list to mirror into %s", n.fullPath)
	case n.mirror != nil:
		return nil, perrors.New(perrors.ErrCodeInvalidState, "%s already mirrors a list", n.fullPath)
	}

	m := &Mirror[T]{node: n, list: list}
	for _, item := range list.Values() {
		if c := item.Binding().Node(); c != nil && c.parent == n && n.items.Contains(c) {
			continue
		}
		if _, err := n.AppendItem(item); err != nil {
			return nil, err
		}
	}
	if err := m.rebuildExternal(); err != nil {
		return nil, err
	}

	m.subscribeExternal()
	m.subscribeInternal()
	n.mirror = m
	return m, nil
}

// Node returns the mirrored node.
func (m *Mirror[T]) Node() *Node { return m.node }

// List returns the caller-owned list.
func (m *Mirror[T]) List() *collections.List[T] { return m.list }

// Stop ends mirroring in both directions.
func (m *Mirror[T]) Stop() {
	m.external.Unsubscribe()
	m.internal.Unsubscribe()
	if m.node.mirror == m {
		m.node.mirror = nil
	}
}

func (m *Mirror[T]) subscribeExternal() {
	m.external = m.list.Changes().Subscribe(m.onExternal)
}

func (m *Mirror[T]) subscribeInternal() {
	m.internal = m.node.itemSync.Subscribe(m.onInternal)
}

func (m *Mirror[T]) rebuildExternal() error {
	parts := make([]T, 0, m.node.items.Len())
	for _, c := range m.node.items.Values() {
		p, err := PartAs[T](c)
		if err != nil {
			return err
		}
		parts = append(parts, p)
	}
	if slices.Equal(parts, m.list.Values()) {
		return nil
	}
	m.list.Clear()
	m.list.Append(parts...)
	return nil
}

func (m *Mirror[T]) onExternal(c collections.Change[T]) {
	m.internal.Unsubscribe()
	defer m.subscribeInternal()

	if err := m.applyExternal(c); err != nil {
		m.node.logger().Error("mirror list change into tree", "path", m.node.fullPath, "change", c.String(), "err", err)
	}
	m.resync()
}

// resync rewrites the list from the node's list children when an external
// change could not be mirrored as is: a part added twice is a single child,
// and a rejected part must leave the list again.
func (m *Mirror[T]) resync() {
	if m.node.mirror != m {
		return
	}
	m.external.Unsubscribe()
	defer m.subscribeExternal()

	if err := m.rebuildExternal(); err != nil {
		m.node.logger().Error("resync list from tree", "path", m.node.fullPath, "err", err)
	}
}

func (m *Mirror[T]) applyExternal(c collections.Change[T]) error {
	n := m.node
	switch c.Action {
	case collections.ActionAdd:
		for k, item := range c.NewItems {
			if _, err := n.InsertItem(c.NewIndex+k, item); err != nil {
				return err
			}
		}
	case collections.ActionRemove:
		for range c.OldItems {
			if _, err := n.RemoveItem(c.OldIndex); err != nil {
				return err
			}
		}
	case collections.ActionMove:
		return n.MoveItem(c.OldIndex, c.NewIndex)
	case collections.ActionReplace:
		_, err := n.SetItem(c.NewIndex, c.NewItems[0])
		return err
	case collections.ActionReset:
		n.ClearItems()
	}
	return nil
}

func (m *Mirror[T]) onInternal(c collections.Change[*Node]) {
	m.external.Unsubscribe()
	defer m.subscribeExternal()

	if err := m.applyInternal(c); err != nil {
		m.node.logger().Error("mirror tree change into list", "path", m.node.fullPath, "change", c.String(), "err", err)
	}
}

func (m *Mirror[T]) applyInternal(c collections.Change[*Node]) error {
	switch c.Action {
	case collections.ActionAdd:
		for k, node := range c.NewItems {
			p, err := PartAs[T](node)
			if err != nil {
				return err
			}
			if err := m.list.Insert(c.NewIndex+k, p); err != nil {
				return err
			}
		}
	case collections.ActionRemove:
		for range c.OldItems {
			if _, err := m.list.RemoveAt(c.OldIndex); err != nil {
				return err
			}
		}
	case collections.ActionMove:
		return m.list.Move(c.OldIndex, c.NewIndex)
	case collections.ActionReplace:
		p, err := PartAs[T](c.NewItems[0])
		if err != nil {
			return err
		}
		return m.list.Set(c.NewIndex, p)
	case collections.ActionReset:
		m.list.Clear()
	}
	return nil
}
