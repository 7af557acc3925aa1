package tree

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/parttree/pkg/collections"
	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/notify"
)

type hookOrder struct {
	Base
	log *[]string
	tag string
}

func (h *hookOrder) DeclareChildren(n *Node) error {
	*h.log = append(*h.log, h.tag+":children:"+n.State().String())
	return nil
}

func (h *hookOrder) DeclareDependencies(n *Node) error {
	*h.log = append(*h.log, h.tag+":deps:"+n.State().String())
	return nil
}

func TestAttachOrder(t *testing.T) {
	var log []string
	child := &hookOrder{log: &log, tag: "child"}
	root := newPlain().with("C", child)
	root.declare = func(n *Node) error {
		c, ok := n.Child("C")
		if !ok {
			t.Error("child not stored before parent declares dependencies")
		} else if c.State() != StateListening {
			t.Errorf("child State() = %v, want %v", c.State(), StateListening)
		}
		return nil
	}

	n := mustRoot(t, root)

	want := []string{"child:children:initializing", "child:deps:initializing"}
	if !slices.Equal(log, want) {
		t.Errorf("hooks = %v, want %v", log, want)
	}
	if n.State() != StateListening {
		t.Errorf("root State() = %v, want %v", n.State(), StateListening)
	}
	if n.Name() != RootName || n.FullPath() != RootName {
		t.Errorf("root name/path = %q/%q, want %q", n.Name(), n.FullPath(), RootName)
	}
}

func TestNewRootIdempotent(t *testing.T) {
	p := newPlain()
	a := mustRoot(t, p)
	b := mustRoot(t, p)
	if a != b {
		t.Error("NewRoot() twice returned different nodes")
	}
	if _, err := NewRoot(nil, nil); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("NewRoot(nil) error = %v, want %v", err, perrors.ErrCodeInvalidInput)
	}
}

// eager raises notifications while it is being declared.
type eager struct {
	Base
	value int
}

func (e *eager) DeclareChildren(*Node) error {
	notify.Set(e.Properties(), &e.value, "Value", 1)
	return nil
}

func (e *eager) DeclareDependencies(n *Node) error {
	notify.Set(e.Properties(), &e.value, "Value", 2)
	return n.DependsOn(n, "Value", "Doubled")
}

func TestInitializingSuppression(t *testing.T) {
	e := &eager{}
	root := newPlain().with("E", e)
	root.declare = func(n *Node) error { return n.DependsOn(n, "E.Value", "Watched") }

	doubled := countRaises(e.Properties(), "Doubled")
	watched := countRaises(root.Properties(), "Watched")

	mustRoot(t, root)
	if *doubled != 0 || *watched != 0 {
		t.Fatalf("during attach: Doubled = %d, Watched = %d, want 0, 0", *doubled, *watched)
	}

	notify.Set(e.Properties(), &e.value, "Value", 3)
	if *doubled != 1 || *watched != 1 {
		t.Errorf("after attach: Doubled = %d, Watched = %d, want 1, 1", *doubled, *watched)
	}
}

func TestDeclareErrorDetaches(t *testing.T) {
	boom := errors.New("boom")
	bad := newPlain()
	bad.declare = func(*Node) error { return boom }
	root := newPlain().with("Bad", bad)

	_, err := NewRoot(root, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("NewRoot() error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "*.Bad") {
		t.Errorf("error %q does not name the failing node", err)
	}
	if bad.Binding().Node() != nil || root.Binding().Node() != nil {
		t.Error("failed attach left parts bound")
	}
}

func TestListRenumbering(t *testing.T) {
	lp := NewListPart(newLeaf(0), newLeaf(1), newLeaf(2))
	n := mustRoot(t, lp)

	names := func() []string {
		var out []string
		for _, c := range n.Items() {
			out = append(out, c.Name())
		}
		return out
	}
	values := func() []int {
		var out []int
		for _, c := range n.Items() {
			out = append(out, c.Part().(*leaf).Value())
		}
		return out
	}

	first, _ := lp.Items().At(0)
	if err := lp.Items().Move(0, 2); err != nil {
		t.Fatal(err)
	}
	if got := values(); !slices.Equal(got, []int{1, 2, 0}) {
		t.Errorf("values = %v, want [1 2 0]", got)
	}
	if got := names(); !slices.Equal(got, []string{"Item[0]", "Item[1]", "Item[2]"}) {
		t.Errorf("names = %v, want positional", got)
	}
	if !slices.Equal(first.names, []string{"Item[2]"}) {
		t.Errorf("NameChanged calls = %v, want [Item[2]]", first.names)
	}

	if err := lp.Items().Insert(1, newLeaf(9)); err != nil {
		t.Fatal(err)
	}
	if got := values(); !slices.Equal(got, []int{1, 9, 2, 0}) {
		t.Errorf("values = %v, want [1 9 2 0]", got)
	}
	if got := names(); !slices.Equal(got, []string{"Item[0]", "Item[1]", "Item[2]", "Item[3]"}) {
		t.Errorf("names = %v, want positional", got)
	}
	assertRegistry(t, n)
}

type orders struct {
	Base
	Lines *ListPart[*leaf]
}

func (o *orders) DeclareChildren(n *Node) error {
	_, err := n.RegisterChild(o.Lines, "Lines", false)
	return err
}

func TestRenamePropagation(t *testing.T) {
	o := &orders{Lines: NewListPart(newLeaf(1), newLeaf(2))}
	root := newPlain().with("Orders", o)
	n := mustRoot(t, root)

	on, _ := n.Child("Orders")
	line, _ := n.Resolve("Orders.Lines.Item[1]")

	var renamed []string
	line.Properties().Subscribe(func(c notify.PropertyChange) {
		if c.Name == FullPathProperty {
			renamed = append(renamed, c.Old.(string)+" -> "+c.New.(string))
		}
	})

	if err := on.SetName("Sales"); err != nil {
		t.Fatalf("SetName() error = %v", err)
	}

	if got, want := line.FullPath(), "*.Sales.Lines.Item[1]"; got != want {
		t.Errorf("FullPath() = %v, want %v", got, want)
	}
	if got, want := line.CleanFullPath(), "*.Sales.Lines.Item[]"; got != want {
		t.Errorf("CleanFullPath() = %v, want %v", got, want)
	}
	if want := []string{"*.Orders.Lines.Item[1] -> *.Sales.Lines.Item[1]"}; !slices.Equal(renamed, want) {
		t.Errorf("FullPath changes = %v, want %v", renamed, want)
	}
	if got, _ := n.Child("Sales"); got != on {
		t.Error("parent does not store the child under its new name")
	}
	if _, ok := n.Registry().Lookup("*.Orders.Lines.Item[1]"); ok {
		t.Error("registry still holds the old path")
	}
	if got, ok := n.Registry().Lookup("*.Sales.Lines.Item[1]"); !ok || got != line {
		t.Error("registry does not hold the new path")
	}
	assertRegistry(t, n)
}

func TestSetNameErrors(t *testing.T) {
	lp := NewListPart(newLeaf(1))
	root := newPlain().with("L", lp).with("M", newLeaf(0))
	n := mustRoot(t, root)
	l, _ := n.Child("L")
	item, _ := l.Item(0)

	tests := []struct {
		name string
		node *Node
		to   string
		code perrors.Code
	}{
		{"root", n, "x", perrors.ErrCodeInvalidState},
		{"list item", item, "x", perrors.ErrCodeInvalidState},
		{"taken", l, "M", perrors.ErrCodeInvalidName},
		{"dot", l, "a.b", perrors.ErrCodeInvalidName},
		{"reserved item", l, "Item[3]", perrors.ErrCodeInvalidName},
		{"reserved root", l, RootName, perrors.ErrCodeInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.SetName(tt.to)
			if !perrors.Is(err, tt.code) {
				t.Errorf("SetName(%q) error = %v, want code %v", tt.to, err, tt.code)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	r := newSumRoot()
	n := mustRoot(t, r)
	b := &listB{}
	b.Append(&listC{})
	r.A.Append(b)

	tests := []struct {
		name string
		from *Node
		path string
		want string
		code perrors.Code
	}{
		{"named", n, "A", "*.A", ""},
		{"absolute", n, "*.A.Item[0]", "*.A.Item[0]", ""},
		{"positional", n, "A.Item[0].Item[0]", "*.A.Item[0].Item[0]", ""},
		{"absolute from below", b.Binding().Node(), "*.A", "*.A", ""},
		{"relative from below", b.Binding().Node(), "Item[0]", "*.A.Item[0].Item[0]", ""},
		{"missing name", n, "A.B", "", perrors.ErrCodePathNotFound},
		{"missing index", n, "A.Item[4]", "", perrors.ErrCodePathNotFound},
		{"wildcard", n, "A.Item[]", "", perrors.ErrCodeInvalidPath},
		{"empty segment", n, "A..Item[0]", "", perrors.ErrCodeInvalidPath},
		{"empty", n, "", "", perrors.ErrCodeInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.Resolve(tt.path)
			if tt.code != "" {
				if !perrors.Is(err, tt.code) {
					t.Fatalf("Resolve(%q) error = %v, want code %v", tt.path, err, tt.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.path, err)
			}
			if got.FullPath() != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.path, got.FullPath(), tt.want)
			}
		})
	}

	_, err := n.Resolve("A.Nope.Item[0]")
	if !errors.Is(err, ErrPathNotFound) || !strings.Contains(err.Error(), `"Nope"`) {
		t.Errorf("Resolve() error = %v, want ErrPathNotFound naming the segment", err)
	}
}

func TestPathUntil(t *testing.T) {
	r := newSumRoot()
	n := mustRoot(t, r)
	b := &listB{}
	c := &listC{}
	b.Append(c)
	r.A.Append(b)
	an, _ := n.Child("A")
	cn := c.Binding().Node()

	tests := []struct {
		name     string
		ancestor *Node
		prop     string
		want     string
	}{
		{"to root", n, "", "A.Item[0].Item[0]"},
		{"to root with property", n, "Count", "A.Item[0].Item[0].Count"},
		{"to A", an, "", "Item[0].Item[0]"},
		{"to self", cn, "Value", "Value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cn.PathUntil(tt.ancestor, tt.prop)
			if err != nil {
				t.Fatalf("PathUntil() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("PathUntil() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := cn.PathToRoot(""); got != "A.Item[0].Item[0]" {
		t.Errorf("PathToRoot() = %v, want %v", got, "A.Item[0].Item[0]")
	}
	if _, err := an.PathUntil(cn, ""); !perrors.Is(err, perrors.ErrCodePathNotFound) {
		t.Errorf("PathUntil(non-ancestor) error = %v, want %v", err, perrors.ErrCodePathNotFound)
	}
	resolved, err := n.Resolve(cn.PathToRoot(""))
	if err != nil || resolved != cn {
		t.Errorf("Resolve(PathToRoot()) = %v, %v, want %v", resolved, err, cn)
	}
}

func TestTypedAccessors(t *testing.T) {
	r := newSumRoot()
	n := mustRoot(t, r)
	b := &listB{}
	r.A.Append(b)
	bn := b.Binding().Node()

	if got, err := RootPartAs[*sumRoot](bn); err != nil || got != r {
		t.Errorf("RootPartAs() = %v, %v, want root part", got, err)
	}
	if got, err := ParentPart[*ListPart[*listB]](bn); err != nil || got != r.A {
		t.Errorf("ParentPart() = %v, %v, want A", got, err)
	}
	if got, err := ChildPart[*listB](n, "A.Item[0]"); err != nil || got != b {
		t.Errorf("ChildPart() = %v, %v, want b", got, err)
	}
	if _, err := PartAs[*leaf](n); !errors.Is(err, ErrTypeMismatch) || !perrors.Is(err, perrors.ErrCodeTypeMismatch) {
		t.Errorf("PartAs[*leaf](root) error = %v, want type mismatch", err)
	}
	if _, err := ParentPart[*sumRoot](n); !perrors.Is(err, perrors.ErrCodeNotAttached) {
		t.Errorf("ParentPart(root) error = %v, want %v", err, perrors.ErrCodeNotAttached)
	}
	if _, err := ChildPart[*listB](n, "A.Item[3]"); !perrors.Is(err, perrors.ErrCodePathNotFound) {
		t.Errorf("ChildPart(missing) error = %v, want %v", err, perrors.ErrCodePathNotFound)
	}
}

func TestUninitializedAccess(t *testing.T) {
	l := newLeaf(1)
	if _, err := l.Node(); !errors.Is(err, ErrNotAttached) {
		t.Errorf("Node() error = %v, want %v", err, ErrNotAttached)
	}
	if _, err := NodeOf(l); !perrors.Is(err, perrors.ErrCodeNotAttached) {
		t.Errorf("NodeOf() error = %v, want %v", err, perrors.ErrCodeNotAttached)
	}

	root := newPlain().with("L", l)
	n := mustRoot(t, root)
	ln, err := l.Node()
	if err != nil {
		t.Fatalf("Node() after attach error = %v", err)
	}
	if err := n.RemoveChild("L"); err != nil {
		t.Fatal(err)
	}
	if _, err := ln.Resolve("X"); !perrors.Is(err, perrors.ErrCodeNotAttached) {
		t.Errorf("Resolve() on detached node error = %v, want %v", err, perrors.ErrCodeNotAttached)
	}
	if err := ln.DependsOn(nil, "Value", "X"); !perrors.Is(err, perrors.ErrCodeNotAttached) {
		t.Errorf("DependsOn() on detached node error = %v, want %v", err, perrors.ErrCodeNotAttached)
	}
	if _, err := l.Node(); !errors.Is(err, ErrNotAttached) {
		t.Errorf("Node() after detach error = %v, want %v", err, ErrNotAttached)
	}
}

func TestDetachSeversSubscriptions(t *testing.T) {
	r := newSumRoot()
	n := mustRoot(t, r)
	c := &listC{}
	d := newLeaf(5)
	c.Append(d)
	b := &listB{}
	b.Append(c)
	r.A.Append(b)

	dn := d.Binding().Node()
	subscribers := d.Properties().Len()
	if err := b.Binding().Node().Detach(); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}

	if dn.State() != StateDetached {
		t.Errorf("descendant State() = %v, want %v", dn.State(), StateDetached)
	}
	// the caller-owned list still watches the leaf; the node does not
	if got := d.Properties().Len(); got != subscribers-1 {
		t.Errorf("detached leaf subscribers = %v, want %v", got, subscribers-1)
	}
	if r.A.Items().Len() != 0 {
		t.Errorf("A length = %v after detaching its item, want 0", r.A.Items().Len())
	}
	if slices.Contains(n.Registry().tracked(), dn) {
		t.Error("registry still tracks a detached node")
	}
	if _, ok := n.Registry().Lookup(dn.FullPath()); ok {
		t.Error("registry still maps the detached path")
	}

	// a detached part can be attached again as a new node
	r.A.Append(b)
	if again := d.Binding().Node(); again == nil || again == dn || again.ID() == dn.ID() {
		t.Error("re-attached leaf did not get a new node")
	}
	assertRegistry(t, n)
}

func TestReattachMovesNode(t *testing.T) {
	l := newLeaf(1)
	root := newPlain().with("X", l)
	n := mustRoot(t, root)
	ln := l.Binding().Node()

	moved, err := n.RegisterChild(l, "Y", false)
	if err != nil {
		t.Fatalf("RegisterChild() error = %v", err)
	}
	if moved != ln {
		t.Error("attaching an attached part created a new node")
	}
	if _, ok := n.Child("X"); ok {
		t.Error("old key still present")
	}
	if ln.State() != StateListening || ln.FullPath() != "*.Y" {
		t.Errorf("moved node = %v (%v), want *.Y listening", ln.FullPath(), ln.State())
	}

	again, err := n.RegisterChild(l, "Y", false)
	if err != nil || again != ln {
		t.Errorf("RegisterChild() idempotent = %v, %v", again, err)
	}

	other := mustRoot(t, newPlain())
	if _, err := other.RegisterChild(l, "Z", false); !errors.Is(err, ErrForeignTree) {
		t.Errorf("RegisterChild(foreign) error = %v, want %v", err, ErrForeignTree)
	}
	if _, err := ln.RegisterChild(root, "Loop", false); !perrors.Is(err, perrors.ErrCodeInvalidState) {
		t.Errorf("RegisterChild(ancestor) error = %v, want %v", err, perrors.ErrCodeInvalidState)
	}
}

func TestRegisterChildRaise(t *testing.T) {
	root := newPlain()
	n := mustRoot(t, root)
	raised := countRaises(root.Properties(), "Extra")

	if _, err := n.RegisterChild(newLeaf(1), "Extra", true); err != nil {
		t.Fatal(err)
	}
	if err := n.RemoveChild("Extra"); err != nil {
		t.Fatal(err)
	}
	if *raised != 2 {
		t.Errorf("Extra raised %d times, want 2", *raised)
	}
	if err := n.RemoveChild("Extra"); !perrors.Is(err, perrors.ErrCodePathNotFound) {
		t.Errorf("RemoveChild(missing) error = %v, want %v", err, perrors.ErrCodePathNotFound)
	}
}

func TestItemIndexErrors(t *testing.T) {
	n := mustRoot(t, NewListPart[*leaf]())

	if _, err := n.InsertItem(1, newLeaf(0)); !errors.Is(err, collections.ErrGap) {
		t.Errorf("InsertItem(gap) error = %v, want gap", err)
	}
	if _, err := n.SetItem(2, newLeaf(0)); !perrors.Is(err, perrors.ErrCodeInvalidIndex) {
		t.Errorf("SetItem(beyond) error = %v, want %v", err, perrors.ErrCodeInvalidIndex)
	}
	if _, err := n.RemoveItem(0); !perrors.Is(err, perrors.ErrCodeInvalidIndex) {
		t.Errorf("RemoveItem(empty) error = %v, want %v", err, perrors.ErrCodeInvalidIndex)
	}
	if err := n.MoveItem(0, 0); !perrors.Is(err, perrors.ErrCodeInvalidIndex) {
		t.Errorf("MoveItem(empty) error = %v, want %v", err, perrors.ErrCodeInvalidIndex)
	}
}

// assertRegistry checks that every listening node is registered under its
// full path and nothing else is.
func assertRegistry(t *testing.T, root *Node) {
	t.Helper()
	nodes := walk(root)
	reg := root.Registry()
	if reg.Len() != len(nodes) {
		t.Errorf("registry Len() = %v, want %v (%v)", reg.Len(), len(nodes), reg.Paths())
	}
	for _, n := range nodes {
		if got, ok := reg.Lookup(n.FullPath()); !ok || got != n {
			t.Errorf("registry[%s] = %v, want the node", n.FullPath(), got)
		}
	}
}
