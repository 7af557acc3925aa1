package tree

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/parttree/pkg/observability"
)

// Target is one (node, property) pair notified when a trigger fires.
type Target struct {
	Node     *Node
	Property string
}

// Event is passed to a [Handler] when its trigger fires.
type Event struct {
	// From is the node whose graph matched.
	From *Node
	// Trigger is the registered key that matched.
	Trigger string
	// Name is the name the graph was fired with: a property name, the
	// wildcard, or a clean relative path when bubbling.
	Name string
}

// Handler wraps a callback registered with [Node.OnChange]. Handlers are
// compared by pointer, so registering the same *Handler twice under one
// trigger is a no-op.
type Handler struct {
	fn func(Event)
}

// NewHandler returns a handler calling fn.
func NewHandler(fn func(Event)) *Handler {
	return &Handler{fn: fn}
}

type entry struct {
	targets  map[Target]struct{}
	handlers map[*Handler]struct{}
}

// DependencyGraph maps trigger keys to the targets and handlers interested
// in them, for one node (the "from" side). Registration is safe for
// concurrent use; firing takes a snapshot and dispatches without the lock.
type DependencyGraph struct {
	node *Node

	mu      sync.RWMutex
	entries map[string]*entry
}

func newDependencyGraph(n *Node) *DependencyGraph {
	return &DependencyGraph{node: n, entries: make(map[string]*entry)}
}

func (g *DependencyGraph) entry(trigger string) *entry {
	e, ok := g.entries[trigger]
	if !ok {
		e = &entry{targets: make(map[Target]struct{}), handlers: make(map[*Handler]struct{})}
		g.entries[trigger] = e
	}
	return e
}

func (g *DependencyGraph) register(trigger string, targets ...Target) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.entry(trigger)
	for _, t := range targets {
		e.targets[t] = struct{}{}
	}
}

func (g *DependencyGraph) registerHandler(trigger string, h *Handler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entry(trigger).handlers[h] = struct{}{}
}

// Len returns the number of trigger keys.
func (g *DependencyGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Triggers returns the registered trigger keys, sorted.
func (g *DependencyGraph) Triggers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Sorted(maps.Keys(g.entries))
}

// Targets returns the targets registered under trigger, ordered by full
// path then property.
func (g *DependencyGraph) Targets(trigger string) []Target {
	g.mu.RLock()
	e, ok := g.entries[trigger]
	var out []Target
	if ok {
		out = slices.Collect(maps.Keys(e.targets))
	}
	g.mu.RUnlock()

	slices.SortFunc(out, func(a, b Target) int {
		if c := strings.Compare(a.Node.fullPath, b.Node.fullPath); c != 0 {
			return c
		}
		return strings.Compare(a.Property, b.Property)
	})
	return out
}

// Handlers returns the number of handlers registered under trigger.
func (g *DependencyGraph) Handlers(trigger string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if e, ok := g.entries[trigger]; ok {
		return len(e.handlers)
	}
	return 0
}

type match struct {
	trigger  string
	targets  []Target
	handlers []*Handler
}

// matches collects the entries fired by name. With prefix set, a key matches
// when it equals name or continues it at a segment boundary.
func (g *DependencyGraph) matches(name string, prefix bool) []match {
	g.mu.RLock()
	defer g.mu.RUnlock()

	collect := func(key string, e *entry) match {
		return match{
			trigger:  key,
			targets:  slices.Collect(maps.Keys(e.targets)),
			handlers: slices.Collect(maps.Keys(e.handlers)),
		}
	}

	if !prefix {
		if e, ok := g.entries[name]; ok {
			return []match{collect(name, e)}
		}
		return nil
	}

	var out []match
	for key, e := range g.entries {
		if key == name || strings.HasPrefix(key, name+Separator) {
			out = append(out, collect(key, e))
		}
	}
	return out
}

// fire dispatches every entry matching name, then bubbles to the parent
// graph with this node's clean name prepended. Bubbling stops at a parent
// that is still initializing.
//
// Dispatch is synchronous and re-entrant: raising a target property runs the
// target node's own propagation before fire returns. Cyclic registrations
// recurse without bound.
func (g *DependencyGraph) fire(name string, prefix bool) {
	n := g.node
	ms := g.matches(name, prefix)
	if len(ms) > 0 {
		n.logger().Debug("propagate", "from", n.fullPath, "name", name, "matched", len(ms))
		observability.Tree().OnPropagate(n.fullPath, name, len(ms))
	}

	for _, m := range ms {
		for _, t := range m.targets {
			if t.Node.state == StateDetached {
				continue
			}
			t.Node.part.Properties().Raise(t.Property)
		}
		for _, h := range m.handlers {
			h.fn(Event{From: n, Trigger: m.trigger, Name: name})
		}
	}

	if p := n.parent; p != nil && p.state == StateListening && n.state != StateDetached {
		p.deps.fire(n.cleanName+Separator+name, true)
	}
}
