package tree

import (
	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/notify"
)

// Part is the capability a domain object implements to live in the tree.
//
// DeclareChildren and DeclareDependencies are called exactly once, in that
// order, when the part is attached. Notifications the part raises before both
// hooks return are not propagated.
type Part interface {
	notify.Observable

	// Binding returns the part's link to its node. It must return the same
	// pointer on every call.
	Binding() *Binding

	// DeclareChildren registers named children and list children on n.
	DeclareChildren(n *Node) error

	// DeclareDependencies registers dependency triggers on n.
	DeclareDependencies(n *Node) error

	// NameChanged is called after the node's name changed.
	NameChanged(change notify.PropertyChange)
}

// Binding links a part to the node it is attached to.
// The zero value is an unattached binding.
type Binding struct {
	node *Node
}

// Node returns the bound node, or nil.
func (b *Binding) Node() *Node {
	if b == nil || b.node == nil || b.node.state == StateDetached {
		return nil
	}
	return b.node
}

// Base is embedded by parts to get the notification channel, the binding
// and no-op hooks. Parts override the hooks they need.
//
//	type Leaf struct {
//	    tree.Base
//	    value int
//	}
//
//	func (l *Leaf) Value() int       { return l.value }
//	func (l *Leaf) SetValue(v int)   { notify.Set(l.Properties(), &l.value, "Value", v) }
type Base struct {
	props   notify.Properties
	binding Binding
}

// Properties returns the part's change channel.
func (b *Base) Properties() *notify.Properties { return &b.props }

// Binding returns the link to the part's node.
func (b *Base) Binding() *Binding { return &b.binding }

// DeclareChildren declares no children. Parts with named children override it.
func (b *Base) DeclareChildren(*Node) error { return nil }

// DeclareDependencies declares nothing. Parts that react to other properties
// override it.
func (b *Base) DeclareDependencies(*Node) error { return nil }

// NameChanged is called after the part's node was renamed or renumbered.
func (b *Base) NameChanged(notify.PropertyChange) {}

// Node returns the node the part is attached to, or an error with code
// NOT_ATTACHED.
func (b *Base) Node() (*Node, error) {
	if n := b.binding.Node(); n != nil {
		return n, nil
	}
	return nil, perrors.Wrap(perrors.ErrCodeNotAttached, ErrNotAttached, "part is not attached to a tree")
}

// NodeOf returns the node p is attached to.
func NodeOf(p Part) (*Node, error) {
	if p == nil {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "nil part")
	}
	if n := p.Binding().Node(); n != nil {
		return n, nil
	}
	return nil, perrors.Wrap(perrors.ErrCodeNotAttached, ErrNotAttached, "%T is not attached to a tree", p)
}

// PartAs narrows the part bound to n.
func PartAs[T Part](n *Node) (T, error) {
	var zero T
	if n == nil {
		return zero, perrors.Wrap(perrors.ErrCodeNotAttached, ErrNotAttached, "nil node")
	}
	p, ok := n.part.(T)
	if !ok {
		return zero, perrors.Wrap(perrors.ErrCodeTypeMismatch, ErrTypeMismatch, "%s holds %T, want %T", n.fullPath, n.part, zero)
	}
	return p, nil
}

// ChildPart resolves path from n and narrows the part found there.
func ChildPart[T Part](n *Node, path string) (T, error) {
	child, err := n.Resolve(path)
	if err != nil {
		var zero T
		return zero, err
	}
	return PartAs[T](child)
}

// RootPartAs narrows the root part of n's tree.
func RootPartAs[T Part](n *Node) (T, error) {
	if n == nil {
		var zero T
		return zero, perrors.Wrap(perrors.ErrCodeNotAttached, ErrNotAttached, "nil node")
	}
	return PartAs[T](n.root)
}

// ParentPart narrows the part of n's parent.
func ParentPart[T Part](n *Node) (T, error) {
	var zero T
	if n == nil || n.parent == nil {
		return zero, perrors.Wrap(perrors.ErrCodeNotAttached, ErrNotAttached, "node has no parent")
	}
	return PartAs[T](n.parent)
}
