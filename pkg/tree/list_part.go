package tree

import "github.com/matzehuels/parttree/pkg/collections"

// ListPart is a part whose list children mirror a [collections.List] of
// typed parts. Embed it to give a part type list semantics:
//
//	type Shelf struct {
//	    tree.ListPart[*Book]
//	}
//
// Mutating Items() attaches, detaches and renumbers the corresponding nodes.
type ListPart[T ItemPart] struct {
	Base
	items  *collections.List[T]
	mirror *Mirror[T]
}

// NewListPart returns a list part holding items.
func NewListPart[T ItemPart](items ...T) *ListPart[T] {
	return &ListPart[T]{items: collections.NewList(items...)}
}

// Items returns the typed list.
func (l *ListPart[T]) Items() *collections.List[T] {
	if l.items == nil {
		l.items = &collections.List[T]{}
	}
	return l.items
}

// Append adds items at the end of the list.
func (l *ListPart[T]) Append(items ...T) { l.Items().Append(items...) }

// DeclareChildren mirrors the list into the node's list children.
func (l *ListPart[T]) DeclareChildren(n *Node) error {
	m, err := MirrorItems(n, l.Items())
	if err != nil {
		return err
	}
	l.mirror = m
	return nil
}
