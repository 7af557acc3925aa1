package tree

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/parttree/pkg/collections"
	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/notify"
	"github.com/matzehuels/parttree/pkg/observability"
)

// State is a node's lifecycle state.
type State int

const (
	// StateInitializing is the state while the part declares its children
	// and dependencies. Notifications are not propagated.
	StateInitializing State = iota
	// StateListening is entered once, after both declaration hooks returned.
	StateListening
	// StateDetached is final: the node was removed from its parent and its
	// subscriptions are gone.
	StateDetached
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateListening:
		return "listening"
	case StateDetached:
		return "detached"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Node is one part's position in the tree. It owns its named children, its
// list children and its [DependencyGraph]; parent and root are lookup-only.
type Node struct {
	id   uuid.UUID
	part Part

	name          string
	cleanName     string
	fullPath      string
	cleanFullPath string

	parent *Node
	root   *Node

	children collections.OrderedIndexMap[string, *Node]
	items    collections.List[*Node]
	deps     *DependencyGraph

	state    State
	props    notify.Properties
	itemSync notify.Feed[collections.Change[*Node]]
	subs     notify.Subscriptions
	mirror   interface{ Stop() }
	moving   bool

	// set on the root only
	tree *treeState
}

type treeState struct {
	logger   *log.Logger
	registry *Registry
}

// NewRoot attaches part as the root of a new tree. Calling it again with the
// same part returns the existing root.
func NewRoot(part Part, opts *Options) (*Node, error) {
	if part == nil {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "nil root part")
	}
	if existing := part.Binding().Node(); existing != nil {
		if existing.parent == nil {
			return existing, nil
		}
		return nil, perrors.Wrap(perrors.ErrCodeInvalidState, ErrForeignTree, "%T is attached at %s", part, existing.fullPath)
	}

	o := opts.withDefaults()
	n := newNode(part, nil, RootName)
	n.tree = &treeState{logger: o.Logger, registry: newRegistry()}
	if err := n.declare(); err != nil {
		return nil, err
	}
	return n, nil
}

func newNode(part Part, parent *Node, name string) *Node {
	n := &Node{id: uuid.New(), part: part, parent: parent}
	if parent == nil {
		n.root = n
	} else {
		n.root = parent.root
	}
	n.name = name
	n.cleanName = CleanName(name)
	n.computePaths()
	n.deps = newDependencyGraph(n)

	part.Binding().node = n
	n.subs.Add(
		part.Properties().Subscribe(n.onPartChanged),
		n.items.Changes().Subscribe(n.onItemsChanged),
		n.items.PreReset().Subscribe(n.onItemsPreReset),
		n.children.Changes().Subscribe(n.onChildrenChanged),
	)
	return n
}

// declare runs both declaration hooks and starts listening. On failure the
// node is detached again.
func (n *Node) declare() error {
	if err := n.part.DeclareChildren(n); err != nil {
		n.detach()
		return fmt.Errorf("declare children of %s: %w", n.fullPath, err)
	}
	if err := n.part.DeclareDependencies(n); err != nil {
		n.detach()
		return fmt.Errorf("declare dependencies of %s: %w", n.fullPath, err)
	}
	return n.startListening()
}

func (n *Node) startListening() error {
	if n.state != StateInitializing {
		return perrors.New(perrors.ErrCodeInvalidState, "%s cannot start listening while %s", n.fullPath, n.state)
	}
	n.state = StateListening
	n.root.tree.registry.track(n)
	observability.Tree().OnAttach(n.fullPath)
	n.logger().Debug("attached", "path", n.fullPath, "part", fmt.Sprintf("%T", n.part))
	return nil
}

// ID returns the node's identity, stable for its lifetime.
func (n *Node) ID() uuid.UUID { return n.id }

// Part returns the bound part.
func (n *Node) Part() Part { return n.part }

// Name returns the key under which the node is stored in its parent, the
// positional Item[n] name for list children, or [RootName].
func (n *Node) Name() string { return n.name }

// CleanName returns the name with list indices replaced by the wildcard.
func (n *Node) CleanName() string { return n.cleanName }

// FullPath returns the dotted path from the root, starting with [RootName].
func (n *Node) FullPath() string { return n.fullPath }

// CleanFullPath is FullPath with list indices replaced by the wildcard.
func (n *Node) CleanFullPath() string { return n.cleanFullPath }

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Root returns the root of n's tree.
func (n *Node) Root() *Node { return n.root }

// IsRoot reports whether n is the root of its tree.
func (n *Node) IsRoot() bool { return n.parent == nil }

// State returns the lifecycle state.
func (n *Node) State() State { return n.state }

// Properties carries the node's own Name and FullPath notifications.
func (n *Node) Properties() *notify.Properties { return &n.props }

// Graph returns the dependency graph owned by n.
func (n *Node) Graph() *DependencyGraph { return n.deps }

// Registry returns the full-path registry of n's tree.
func (n *Node) Registry() *Registry { return n.root.tree.registry }

func (n *Node) logger() *log.Logger { return n.root.tree.logger }

func (n *Node) String() string { return n.fullPath }

// Child returns the named child called name.
func (n *Node) Child(name string) (*Node, bool) { return n.children.Get(name) }

// Children returns the named children in insertion order.
func (n *Node) Children() []*Node { return n.children.Values() }

// ChildNames returns the named-child keys in insertion order.
func (n *Node) ChildNames() []string { return n.children.Keys() }

// Item returns the list child at index.
func (n *Node) Item(index int) (*Node, error) { return n.items.At(index) }

// Items returns the list children in order.
func (n *Node) Items() []*Node { return n.items.Values() }

// ItemCount returns the number of list children.
func (n *Node) ItemCount() int { return n.items.Len() }

// AllChildren returns the named children followed by the list children.
func (n *Node) AllChildren() []*Node {
	return append(n.children.Values(), n.items.Values()...)
}

// IsListItem reports whether n is stored in its parent's list children.
func (n *Node) IsListItem() bool {
	if n.parent == nil {
		return false
	}
	i, ok := ParseItemName(n.name)
	if !ok {
		return false
	}
	item, err := n.parent.items.At(i)
	return err == nil && item == n
}

// holds reports whether c is currently stored in one of n's containers.
func (n *Node) holds(c *Node) bool {
	if v, ok := n.children.Get(c.name); ok && v == c {
		return true
	}
	return n.items.Contains(c)
}

func (n *Node) isAncestorOf(c *Node) bool {
	for cur := c; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// =============================================================================
// Attaching children
// =============================================================================

// RegisterChild attaches part as the named child called name. A child already
// stored under name is replaced and detached. With raise set, the parent's
// part raises a notification named after the child once it is in place.
func (n *Node) RegisterChild(part Part, name string, raise bool) (*Node, error) {
	if err := checkChildName(name); err != nil {
		return nil, err
	}
	child, err := n.attach(part, name, func(c *Node) error {
		n.children.Put(name, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raise && n.state == StateListening {
		n.part.Properties().Raise(name)
	}
	return child, nil
}

// RemoveChild removes and detaches the named child called name. The
// parent's part raises a notification named after the child.
func (n *Node) RemoveChild(name string) error {
	if n.state == StateDetached {
		return notAttached(n)
	}
	if _, ok := n.children.RemoveKey(name); !ok {
		return perrors.Wrap(perrors.ErrCodePathNotFound, ErrPathNotFound, "no child %q under %s", name, n.fullPath)
	}
	if n.state == StateListening {
		n.part.Properties().Raise(name)
	}
	return nil
}

// SetName renames a named child. List children are named by position and
// the root name is fixed.
func (n *Node) SetName(name string) error {
	switch {
	case n.state == StateDetached:
		return notAttached(n)
	case n.parent == nil:
		return perrors.New(perrors.ErrCodeInvalidState, "the root name is fixed")
	case n.IsListItem():
		return perrors.New(perrors.ErrCodeInvalidState, "%s is a list item; its name follows its position", n.fullPath)
	}
	if err := checkChildName(name); err != nil {
		return err
	}
	if name == n.name {
		return nil
	}
	if n.parent.children.ContainsKey(name) {
		return perrors.New(perrors.ErrCodeInvalidName, "%s already has a child %q", n.parent.fullPath, name)
	}
	if i := n.parent.children.IndexOfKey(n.name); i >= 0 {
		n.moving = true
		err := n.parent.children.SetAt(i, name, n)
		n.moving = false
		if err != nil {
			return err
		}
	}
	n.setName(name)
	return nil
}

// AppendItem attaches part as the last list child.
func (n *Node) AppendItem(part Part) (*Node, error) {
	return n.InsertItem(n.items.Len(), part)
}

// AppendItems attaches parts as list children in order.
func (n *Node) AppendItems(parts ...Part) ([]*Node, error) {
	out := make([]*Node, 0, len(parts))
	for _, p := range parts {
		c, err := n.AppendItem(p)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

// InsertItem attaches part as the list child at index, shifting later items.
// index may equal the item count but never exceed it.
func (n *Node) InsertItem(index int, part Part) (*Node, error) {
	if index < 0 || index > n.items.Len() {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidIndex, collections.ErrGap, "insert item at %d under %s (length %d)", index, n.fullPath, n.items.Len())
	}
	return n.attach(part, ItemName(index), func(c *Node) error {
		return n.items.Insert(min(index, n.items.Len()), c)
	})
}

// SetItem stores part at index: appending at the item count, replacing (and
// detaching the previous item) below it.
func (n *Node) SetItem(index int, part Part) (*Node, error) {
	if index == n.items.Len() {
		return n.InsertItem(index, part)
	}
	if index < 0 || index > n.items.Len() {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidIndex, collections.ErrIndexOutOfRange, "set item at %d under %s (length %d)", index, n.fullPath, n.items.Len())
	}
	return n.attach(part, ItemName(index), func(c *Node) error {
		return n.items.Set(index, c)
	})
}

// RemoveItem removes and detaches the list child at index.
func (n *Node) RemoveItem(index int) (*Node, error) {
	if n.state == StateDetached {
		return nil, notAttached(n)
	}
	return n.items.RemoveAt(index)
}

// MoveItem moves the list child at from to position to. Items in between are
// renumbered.
func (n *Node) MoveItem(from, to int) error {
	if n.state == StateDetached {
		return notAttached(n)
	}
	return n.items.Move(from, to)
}

// ClearItems removes and detaches every list child.
func (n *Node) ClearItems() {
	n.items.Clear()
}

// Detach removes n from its parent, detaching its whole subtree. Detaching
// the root tears down the tree.
func (n *Node) Detach() error {
	if n.state == StateDetached {
		return nil
	}
	p := n.parent
	switch {
	case p == nil:
		n.detach()
		return nil
	case n.IsListItem():
		_, err := p.items.RemoveAt(p.items.IndexOf(n))
		return err
	case p.holds(n):
		return p.RemoveChild(n.name)
	default:
		n.detach()
		return nil
	}
}

// attach binds part below n as name and stores it with place. A part that is
// already attached elsewhere in this tree keeps its node, which is moved.
func (n *Node) attach(part Part, name string, place func(*Node) error) (*Node, error) {
	if n.state == StateDetached {
		return nil, notAttached(n)
	}
	if part == nil {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "nil part for %s under %s", name, n.fullPath)
	}

	if existing := part.Binding().Node(); existing != nil {
		if existing.root != n.root {
			return nil, perrors.Wrap(perrors.ErrCodeInvalidState, ErrForeignTree, "%T is attached at %s", part, existing.fullPath)
		}
		if existing.isAncestorOf(n) {
			return nil, perrors.New(perrors.ErrCodeInvalidState, "cannot attach %s below itself", existing.fullPath)
		}
		if err := existing.reparent(n, name, place); err != nil {
			return nil, err
		}
		return existing, nil
	}

	child := newNode(part, n, name)
	if err := child.declare(); err != nil {
		return nil, err
	}
	if err := place(child); err != nil {
		child.detach()
		return nil, err
	}
	return child, nil
}

func (n *Node) reparent(parent *Node, name string, place func(*Node) error) error {
	old := n.parent
	if old == parent && n.name == name && parent.holds(n) {
		return nil
	}
	n.parent = parent
	if old != nil {
		n.moving = true
		old.release(n)
		n.moving = false
	}
	n.setName(name)
	n.logger().Debug("moved", "path", n.fullPath)
	return place(n)
}

// release removes c from n's containers without detaching it.
func (n *Node) release(c *Node) {
	if v, ok := n.children.Get(c.name); ok && v == c {
		n.children.RemoveKey(c.name)
		return
	}
	if i := n.items.IndexOf(c); i >= 0 {
		_, _ = n.items.RemoveAt(i)
	}
}

// detach severs n and its subtree from the tree.
func (n *Node) detach() {
	if n.state == StateDetached {
		return
	}
	for _, c := range n.AllChildren() {
		if c.parent == n {
			c.detach()
		}
	}

	wasListening := n.state == StateListening
	n.subs.Unsubscribe()
	if n.mirror != nil {
		n.mirror.Stop()
		n.mirror = nil
	}
	n.state = StateDetached
	if b := n.part.Binding(); b.node == n {
		b.node = nil
	}

	if wasListening {
		n.root.tree.registry.untrack(n)
		observability.Tree().OnDetach(n.fullPath)
		n.logger().Debug("detached", "path", n.fullPath)
	}
}

// =============================================================================
// Change handling
// =============================================================================

func (n *Node) onPartChanged(c notify.PropertyChange) {
	if n.state != StateListening {
		return
	}
	n.deps.fire(c.Name, false)
}

func (n *Node) onItemsChanged(c collections.Change[*Node]) {
	for _, old := range c.OldItems {
		if old.parent == n && !old.moving && !n.holds(old) {
			old.detach()
		}
	}
	n.renumber()
	n.itemSync.Publish(c)
	if n.state == StateListening {
		n.deps.fire(Wildcard, true)
	}
}

func (n *Node) onItemsPreReset(nodes []*Node) {
	for _, c := range nodes {
		if c.parent == n {
			c.detach()
		}
	}
}

func (n *Node) onChildrenChanged(c collections.Change[*Node]) {
	for _, old := range c.OldItems {
		if old.parent == n && !old.moving && !n.holds(old) {
			old.detach()
		}
	}
}

// renumber re-derives Item[i] names in index order.
func (n *Node) renumber() {
	for i, c := range n.items.Values() {
		c.setName(ItemName(i))
	}
}

// =============================================================================
// Names and paths
// =============================================================================

func (n *Node) setName(name string) {
	if n.name == name {
		return
	}
	old := n.name
	n.name = name
	n.cleanName = CleanName(name)
	n.refreshPaths()

	if n.state == StateListening {
		n.props.Changed(NameProperty, old, name)
	}
	n.part.NameChanged(notify.PropertyChange{
		Name:          NameProperty,
		Old:           old,
		New:           name,
		OldMeaningful: true,
		NewMeaningful: true,
	})
}

type renamed struct {
	node *Node
	old  string
}

// refreshPaths recomputes n's cached paths and those of every descendant,
// then publishes the FullPath changes top-down.
func (n *Node) refreshPaths() {
	var changed []renamed
	n.recompute(&changed)
	for _, r := range changed {
		if r.node.state != StateListening {
			continue
		}
		observability.Tree().OnRename(r.old, r.node.fullPath)
		r.node.props.Changed(FullPathProperty, r.old, r.node.fullPath)
	}
}

func (n *Node) recompute(acc *[]renamed) {
	old := n.fullPath
	n.computePaths()
	if n.fullPath == old {
		return
	}
	*acc = append(*acc, renamed{node: n, old: old})
	for _, c := range n.AllChildren() {
		c.recompute(acc)
	}
}

func (n *Node) computePaths() {
	if n.parent == nil {
		n.fullPath = n.name
		n.cleanFullPath = n.cleanName
		return
	}
	n.fullPath = n.parent.fullPath + Separator + n.name
	n.cleanFullPath = n.parent.cleanFullPath + Separator + n.cleanName
}

// Resolve walks path from n. Each segment is looked up among the named
// children first; a concrete Item[i] segment falls back to the list child at
// i. A path starting with [RootName] is resolved from the root.
func (n *Node) Resolve(path string) (*Node, error) {
	if n.state == StateDetached {
		return nil, notAttached(n)
	}
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	cur := n
	if segments[0] == RootName {
		cur = n.root
		segments = segments[1:]
	}
	for _, s := range segments {
		next, ok := cur.children.Get(s)
		if !ok {
			if i, isItem := ParseItemName(s); isItem {
				next, err = cur.items.At(i)
				ok = err == nil
			}
		}
		if !ok {
			return nil, perrors.Wrap(perrors.ErrCodePathNotFound, ErrPathNotFound, "segment %q of %q not found under %s", s, path, cur.fullPath)
		}
		cur = next
	}
	return cur, nil
}

// PathUntil returns the dotted path from ancestor (exclusive) down to n,
// followed by property when it is not empty.
func (n *Node) PathUntil(ancestor *Node, property string) (string, error) {
	var segments []string
	for cur := n; cur != ancestor; cur = cur.parent {
		if cur == nil {
			return "", perrors.Wrap(perrors.ErrCodePathNotFound, ErrPathNotFound, "%s is not below %v", n.fullPath, ancestor)
		}
		segments = append(segments, cur.name)
	}
	slices.Reverse(segments)
	return JoinPath(append(segments, property)...), nil
}

// PathToRoot returns the dotted path from the root (exclusive) down to n,
// followed by property when it is not empty.
func (n *Node) PathToRoot(property string) string {
	p, _ := n.PathUntil(n.root, property)
	return p
}

// =============================================================================
// Dependencies
// =============================================================================

// DependsOn declares that each of n's properties must be notified when
// trigger fires on from. A nil from means n itself.
//
// trigger is a property name of from's part, or a dotted path relative to
// from that may use the wildcard in list positions, e.g. "A.Item[].Value".
func (n *Node) DependsOn(from *Node, trigger string, properties ...string) error {
	if from == nil {
		from = n
	}
	if err := n.checkRegistration(from, trigger); err != nil {
		return err
	}
	if len(properties) == 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "dependency on %q declares no property", trigger)
	}
	targets := make([]Target, len(properties))
	for i, p := range properties {
		targets[i] = Target{Node: n, Property: p}
	}
	from.deps.register(trigger, targets...)
	return nil
}

// DependsOnEach declares that property must be notified when any of
// triggers fires on from.
func (n *Node) DependsOnEach(from *Node, property string, triggers ...string) error {
	for _, t := range triggers {
		if err := n.DependsOn(from, t, property); err != nil {
			return err
		}
	}
	return nil
}

// DependsOnItems declares that properties must be notified when itemProperty
// changes on any list child of from, or when from's list changes.
func (n *Node) DependsOnItems(from *Node, itemProperty string, properties ...string) error {
	return n.DependsOn(from, Wildcard+Separator+itemProperty, properties...)
}

// OnChange registers h to run when trigger fires on from.
func (n *Node) OnChange(from *Node, trigger string, h *Handler) error {
	if from == nil {
		from = n
	}
	if err := n.checkRegistration(from, trigger); err != nil {
		return err
	}
	if h == nil || h.fn == nil {
		return perrors.New(perrors.ErrCodeInvalidInput, "nil handler for %q", trigger)
	}
	from.deps.registerHandler(trigger, h)
	return nil
}

func (n *Node) checkRegistration(from *Node, trigger string) error {
	if n.state == StateDetached {
		return notAttached(n)
	}
	if from.state == StateDetached {
		return notAttached(from)
	}
	if from.root != n.root {
		return perrors.Wrap(perrors.ErrCodeInvalidState, ErrForeignTree, "%s and %s are in different trees", n.fullPath, from.fullPath)
	}
	return ValidateTrigger(trigger)
}

func notAttached(n *Node) error {
	return perrors.Wrap(perrors.ErrCodeNotAttached, ErrNotAttached, "%s is detached", n.fullPath)
}

func checkChildName(name string) error {
	if err := perrors.ValidateName(name); err != nil {
		return err
	}
	if name == RootName || strings.HasPrefix(name, "Item[") {
		return perrors.Wrap(perrors.ErrCodeInvalidName, ErrReservedName, "%q is reserved for list items and the root", name)
	}
	return nil
}
