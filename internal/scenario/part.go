package scenario

import (
	"maps"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/notify"
	"github.com/matzehuels/parttree/pkg/tree"
)

// Part is a part instantiated from a scenario [Type]. Fields hold integers;
// computed properties are evaluated on read.
type Part struct {
	tree.Base

	typ      *Type
	fields   map[string]int
	programs map[string]*vm.Program
	raised   map[string]int
	busy     map[string]bool
	onRaise  func(*Part, notify.PropertyChange)

	// initial children, declared on the first attach only
	children []*Part
	items    []*Part
}

// NewPart instantiates t, including its declared children and initial list
// items. onRaise, when not nil, sees every notification the part raises.
func NewPart(sc *Scenario, t *Type, onRaise func(*Part, notify.PropertyChange)) *Part {
	p := &Part{
		typ:     t,
		fields:  maps.Clone(t.Fields),
		raised:  make(map[string]int),
		busy:    make(map[string]bool),
		onRaise: onRaise,
	}
	if p.fields == nil {
		p.fields = make(map[string]int)
	}
	for _, c := range t.Children {
		ct, _ := sc.Type(c.Type)
		p.children = append(p.children, NewPart(sc, ct, onRaise))
	}
	if it, ok := sc.Type(t.Items); ok {
		for range t.Count {
			p.items = append(p.items, NewPart(sc, it, onRaise))
		}
	}
	p.Properties().Subscribe(p.record)
	return p
}

// Type returns the declaring type.
func (p *Part) Type() *Type { return p.typ }

func (p *Part) record(c notify.PropertyChange) {
	p.raised[c.Name]++
	if p.onRaise != nil {
		p.onRaise(p, c)
	}
}

// Raised returns how often name was raised since the last reset.
func (p *Part) Raised(name string) int { return p.raised[name] }

func (p *Part) resetRaised() { clear(p.raised) }

// DeclareChildren attaches the declared named children and initial items.
func (p *Part) DeclareChildren(n *tree.Node) error {
	children, items := p.children, p.items
	p.children, p.items = nil, nil

	for i, c := range children {
		if _, err := n.RegisterChild(c, p.typ.Children[i].Name, false); err != nil {
			return err
		}
	}
	parts := make([]tree.Part, len(items))
	for i, it := range items {
		parts[i] = it
	}
	_, err := n.AppendItems(parts...)
	return err
}

// DeclareDependencies compiles the computed properties and registers their
// triggers on n.
func (p *Part) DeclareDependencies(n *tree.Node) error {
	p.programs = make(map[string]*vm.Program, len(p.typ.Computed))
	for _, c := range p.typ.Computed {
		prg, err := expr.Compile(c.Expr, exprOptions(p.typ, p)...)
		if err != nil {
			return perrors.Wrap(perrors.ErrCodeInvalidScenario, err, "computed %q", c.Name)
		}
		p.programs[c.Name] = prg
		for _, on := range c.On {
			if err := n.DependsOn(n, on, c.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// PropertyNames returns the field names, sorted, followed by the computed
// property names in declaration order.
func (p *Part) PropertyNames() []string {
	names := slices.Sorted(maps.Keys(p.fields))
	for _, c := range p.typ.Computed {
		names = append(names, c.Name)
	}
	return names
}

// Value returns a field or evaluates a computed property.
func (p *Part) Value(name string) (int, error) {
	if v, ok := p.fields[name]; ok {
		return v, nil
	}
	prg, ok := p.programs[name]
	if !ok {
		return 0, perrors.New(perrors.ErrCodeInvalidInput, "%s has no property %q", p.typ.Name, name)
	}
	if p.busy[name] {
		return 0, perrors.New(perrors.ErrCodeInvalidState, "%s.%s depends on itself", p.typ.Name, name)
	}
	p.busy[name] = true
	defer delete(p.busy, name)

	env := make(map[string]any, len(p.fields))
	for k, v := range p.fields {
		env[k] = v
	}
	out, err := expr.Run(prg, env)
	if err != nil {
		return 0, perrors.Wrap(perrors.ErrCodeInvalidState, err, "evaluate %s.%s", p.typ.Name, name)
	}
	return toInt(out, name)
}

// Set assigns a field. Assigning the current value again raises nothing.
func (p *Part) Set(name string, v int) error {
	old, ok := p.fields[name]
	if !ok {
		return perrors.New(perrors.ErrCodeInvalidInput, "%s has no field %q", p.typ.Name, name)
	}
	props := p.Properties()
	if props.Assigned(name) && old == v {
		return nil
	}
	p.fields[name] = v
	props.Changed(name, old, v)
	return nil
}

func toInt(v any, name string) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, perrors.New(perrors.ErrCodeTypeMismatch, "%s evaluated to %T, want a number", name, v)
	}
}

// =============================================================================
// Expression functions
// =============================================================================

// exprOptions declares the environment of computed expressions of t. Paths
// are relative to the evaluating part's node and may use the list wildcard:
//
//	sumOf("A.Item[].Value")   adds Value over every matched node
//	countOf("A.Item[]")       counts matched nodes
//	valueOf("Left.Value")     reads one property of exactly one node
//
// p may be nil when compiling for validation only.
func exprOptions(t *Type, p *Part) []expr.Option {
	env := make(map[string]any, len(t.Fields))
	for k := range t.Fields {
		env[k] = 0
	}
	return []expr.Option{
		expr.Env(env),
		expr.Function("sumOf", func(params ...any) (any, error) {
			return p.sum(params[0].(string))
		},
			new(func(string) int)),
		expr.Function("countOf", func(params ...any) (any, error) {
			return p.count(params[0].(string))
		},
			new(func(string) int)),
		expr.Function("valueOf", func(params ...any) (any, error) {
			return p.value(params[0].(string))
		},
			new(func(string) int)),
	}
}

func (p *Part) sum(path string) (int, error) {
	nodes, prop, err := p.property(path)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range nodes {
		v, err := valueAt(n, prop)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

func (p *Part) count(path string) (int, error) {
	n, err := p.node()
	if err != nil {
		return 0, err
	}
	segments, err := splitTrigger(path)
	if err != nil {
		return 0, err
	}
	nodes, err := nodesAt(n, segments)
	return len(nodes), err
}

func (p *Part) value(path string) (int, error) {
	nodes, prop, err := p.property(path)
	if err != nil {
		return 0, err
	}
	if len(nodes) != 1 {
		return 0, perrors.New(perrors.ErrCodeInvalidInput, "value(%q) matched %d nodes, want 1", path, len(nodes))
	}
	return valueAt(nodes[0], prop)
}

// property splits path into the nodes it designates and a trailing property.
func (p *Part) property(path string) ([]*tree.Node, string, error) {
	n, err := p.node()
	if err != nil {
		return nil, "", err
	}
	segments, err := splitTrigger(path)
	if err != nil {
		return nil, "", err
	}
	last := len(segments) - 1
	nodes, err := nodesAt(n, segments[:last])
	return nodes, segments[last], err
}

func (p *Part) node() (*tree.Node, error) {
	if p == nil {
		return nil, perrors.New(perrors.ErrCodeNotAttached, "expression evaluated without a part")
	}
	return p.Base.Node()
}

func splitTrigger(path string) ([]string, error) {
	if err := tree.ValidateTrigger(path); err != nil {
		return nil, err
	}
	return strings.Split(path, tree.Separator), nil
}

// nodesAt expands segments from n; the wildcard fans out over list children.
func nodesAt(n *tree.Node, segments []string) ([]*tree.Node, error) {
	cur := []*tree.Node{n}
	for _, s := range segments {
		var next []*tree.Node
		for _, c := range cur {
			if s == tree.Wildcard {
				next = append(next, c.Items()...)
				continue
			}
			child, err := c.Resolve(s)
			if err != nil {
				return nil, err
			}
			next = append(next, child)
		}
		cur = next
	}
	return cur, nil
}

func valueAt(n *tree.Node, prop string) (int, error) {
	q, err := tree.PartAs[*Part](n)
	if err != nil {
		return 0, err
	}
	return q.Value(prop)
}
