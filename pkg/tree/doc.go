// Package tree is parttree's reactive property-dependency runtime: a tree of
// parts where each node knows its dotted path and can declare that some of
// its properties must be notified when a property elsewhere in the tree
// changes.
//
// # Parts and nodes
//
// A [Part] is any type that exposes a [notify.Properties] channel, a
// [Binding], and two declaration hooks. Most parts embed [Base]:
//
//	type Leaf struct {
//	    tree.Base
//	    value int
//	}
//
//	func (l *Leaf) SetValue(v int) { notify.Set(l.Properties(), &l.value, "Value", v) }
//
// Attaching a part creates its [Node]. The root comes from [NewRoot]; every
// other node is created by a parent, either as a named child
// ([Node.RegisterChild]) or as a list child ([Node.AppendItem],
// [Node.InsertItem], [MirrorItems]). Attaching runs DeclareChildren, then
// DeclareDependencies, then moves the node from [StateInitializing] to
// [StateListening]. Only then is the node stored in its parent, so the
// parent's notifications always see a fully declared subtree.
//
// # Paths
//
// Every node has a name: the key it is stored under, Item[i] for the list
// child at position i, or [RootName] for the root. The full path joins the
// names from the root with dots:
//
//	*.Orders.Item[2].Lines.Item[0]
//
// The clean path replaces list indices with the [Wildcard] token:
//
//	*.Orders.Item[].Lines.Item[]
//
// List children are renumbered after every insert, remove and move, and all
// cached paths below a renamed node are recomputed before any dependency
// fires. [Node.Resolve] walks a dotted path (named children first, then
// concrete Item[i] positions), so for every attached node
//
//	root.Resolve(node.FullPath()) == node
//
// # Dependencies
//
// Dependencies are declared by the node that wants to be notified:
//
//	func (r *Report) DeclareDependencies(n *tree.Node) error {
//	    return n.DependsOn(n, "Orders.Item[].Lines.Item[].Amount", "Total")
//	}
//
// The trigger is stored in the [DependencyGraph] of the "from" node (n
// here). When a part raises a property, its node fires its own graph with
// the property name. When a node's list children change, it fires with
// "Item[]" and matches every key that continues it, such as "Item[].Amount".
// Either way the event then bubbles: the parent fires with
// "<clean name>.<name>", its parent with one more segment, and so on, each
// level matching keys that equal or extend the growing suffix. That is how a
// dependency declared at the root sees a leaf change deep inside nested
// lists without scanning the tree.
//
// Matching targets are notified by raising the target property on the
// target's part, which re-enters that node's own propagation. Dispatch is
// synchronous. Cyclic declarations (X depends on Y, Y on X) recurse without
// bound; keeping declarations acyclic is the caller's job.
//
// # Lists
//
// [MirrorItems] keeps a node's list children and a caller-owned
// [collections.List] in lockstep in both directions. [ListPart] wraps that
// for the common case of a part that is itself a list.
//
// # Registry and lifecycle
//
// The root owns a [Registry] mapping full paths to listening nodes; it is
// re-keyed on rename and cleaned on detach. Removing a node from its parent
// detaches its whole subtree: part subscriptions are cancelled, mirrors
// stop, and the part can be attached again as a new node.
//
// # Errors
//
// Misuse is reported, never clamped: bad indices (INVALID_INDEX), unknown
// path segments (PATH_NOT_FOUND, naming the segment), detached nodes
// (NOT_ATTACHED), failed narrowing in [PartAs] and friends (TYPE_MISMATCH),
// and malformed paths or triggers (INVALID_PATH).
//
// # Concurrency
//
// A tree has a single logical owner. Only dependency registration is safe
// for concurrent use; everything else must run on one goroutine.
package tree
