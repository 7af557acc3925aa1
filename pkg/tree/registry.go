package tree

import (
	"maps"
	"slices"

	"github.com/matzehuels/parttree/pkg/collections"
	"github.com/matzehuels/parttree/pkg/notify"
)

// Registry maps full paths to the listening nodes of one tree. It follows
// FullPath notifications to re-key nodes on rename and drops nodes when they
// detach.
//
// While a list is being renumbered two nodes can briefly claim the same path;
// the entry ends up with the node that claimed it last.
type Registry struct {
	nodes collections.OrderedIndexMap[string, *Node]
	subs  map[*Node]*notify.Subscription
}

func newRegistry() *Registry {
	return &Registry{subs: make(map[*Node]*notify.Subscription)}
}

// Put stores n under its current full path and returns the node it
// displaced, if any.
func (r *Registry) Put(n *Node) *Node {
	prev, ok := r.nodes.Get(n.fullPath)
	r.nodes.Put(n.fullPath, n)
	if ok && prev != n {
		return prev
	}
	return nil
}

// Lookup returns the node registered under fullPath.
func (r *Registry) Lookup(fullPath string) (*Node, bool) {
	return r.nodes.Get(fullPath)
}

// Len returns the number of registered paths.
func (r *Registry) Len() int { return r.nodes.Len() }

// Paths returns the registered paths, sorted.
func (r *Registry) Paths() []string {
	return slices.Sorted(slices.Values(r.nodes.Keys()))
}

// Nodes returns the registered nodes ordered by full path.
func (r *Registry) Nodes() []*Node {
	out := make([]*Node, 0, r.nodes.Len())
	for _, p := range r.Paths() {
		n, _ := r.nodes.Get(p)
		out = append(out, n)
	}
	return out
}

func (r *Registry) track(n *Node) {
	if displaced := r.Put(n); displaced != nil {
		n.logger().Debug("registry collision", "path", n.fullPath)
	}
	if _, ok := r.subs[n]; ok {
		return
	}
	r.subs[n] = n.props.Subscribe(func(c notify.PropertyChange) {
		if c.Name != FullPathProperty {
			return
		}
		old, _ := c.Old.(string)
		r.rename(n, old)
	})
}

func (r *Registry) rename(n *Node, old string) {
	if cur, ok := r.nodes.Get(old); ok && cur == n {
		r.nodes.RemoveKey(old)
	}
	r.Put(n)
}

func (r *Registry) untrack(n *Node) {
	if cur, ok := r.nodes.Get(n.fullPath); ok && cur == n {
		r.nodes.RemoveKey(n.fullPath)
	}
	if s, ok := r.subs[n]; ok {
		s.Unsubscribe()
		delete(r.subs, n)
	}
}

// tracked reports the nodes with a live rename subscription.
func (r *Registry) tracked() []*Node {
	return slices.Collect(maps.Keys(r.subs))
}
