package tree

import (
	"testing"

	"github.com/matzehuels/parttree/pkg/notify"
)

// leaf is a part with one int property.
type leaf struct {
	Base
	value int
	names []string
}

func newLeaf(v int) *leaf { return &leaf{value: v} }

func (l *leaf) Value() int { return l.value }

func (l *leaf) SetValue(v int) { notify.Set(l.Properties(), &l.value, "Value", v) }

func (l *leaf) NameChanged(c notify.PropertyChange) {
	l.names = append(l.names, c.New.(string))
}

type listC struct{ ListPart[*leaf] }

type listB struct{ ListPart[*listC] }

// sumRoot declares A : List<B>, B : List<C>, C : List<leaf> and a ValueSum
// computed over every leaf.
type sumRoot struct {
	Base
	A *ListPart[*listB]
}

func newSumRoot() *sumRoot {
	return &sumRoot{A: NewListPart[*listB]()}
}

func (r *sumRoot) DeclareChildren(n *Node) error {
	_, err := n.RegisterChild(r.A, "A", false)
	return err
}

func (r *sumRoot) DeclareDependencies(n *Node) error {
	return n.DependsOn(n, "A.Item[].Item[].Item[].Value", "ValueSum")
}

func (r *sumRoot) ValueSum() int {
	sum := 0
	for _, b := range r.A.Items().Values() {
		for _, c := range b.Items().Values() {
			for _, d := range c.Items().Values() {
				sum += d.Value()
			}
		}
	}
	return sum
}

// plain is a root with named children only.
type plain struct {
	Base
	children map[string]Part
	order    []string
	declare  func(n *Node) error
}

func newPlain() *plain { return &plain{children: map[string]Part{}} }

func (p *plain) with(name string, child Part) *plain {
	p.children[name] = child
	p.order = append(p.order, name)
	return p
}

func (p *plain) DeclareChildren(n *Node) error {
	for _, name := range p.order {
		if _, err := n.RegisterChild(p.children[name], name, false); err != nil {
			return err
		}
	}
	return nil
}

func (p *plain) DeclareDependencies(n *Node) error {
	if p.declare != nil {
		return p.declare(n)
	}
	return nil
}

func countRaises(p *notify.Properties, name string) *int {
	count := new(int)
	p.Subscribe(func(c notify.PropertyChange) {
		if c.Name == name {
			*count++
		}
	})
	return count
}

func mustRoot(t *testing.T, p Part) *Node {
	t.Helper()
	n, err := NewRoot(p, nil)
	if err != nil {
		t.Fatalf("NewRoot() error = %v", err)
	}
	return n
}

// walk returns n and every node below it.
func walk(n *Node) []*Node {
	out := []*Node{n}
	for _, c := range n.AllChildren() {
		out = append(out, walk(c)...)
	}
	return out
}
