package tree

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	perrors "github.com/matzehuels/parttree/pkg/errors"
)

func TestMatchesSegmentBoundary(t *testing.T) {
	n := mustRoot(t, newPlain())
	g := n.Graph()
	for _, k := range []string{"A", "A.Value", "Ab.Value", "A.Item[].Value", "B"} {
		g.register(k, Target{Node: n, Property: "X"})
	}

	tests := []struct {
		name   string
		fire   string
		prefix bool
		want   []string
	}{
		{"exact", "A", false, []string{"A"}},
		{"exact miss", "A.Item[]", false, nil},
		{"prefix", "A", true, []string{"A", "A.Item[].Value", "A.Value"}},
		{"prefix wildcard", "A.Item[]", true, []string{"A.Item[].Value"}},
		{"prefix full key", "A.Item[].Value", true, []string{"A.Item[].Value"}},
		{"no partial segment", "A.Val", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, m := range g.matches(tt.fire, tt.prefix) {
				got = append(got, m.trigger)
			}
			slices.Sort(got)
			if !slices.Equal(got, tt.want) {
				t.Errorf("matches(%q, %v) = %v, want %v", tt.fire, tt.prefix, got, tt.want)
			}
		})
	}
}

type pair struct {
	Base
	left, right *leaf
}

func (p *pair) DeclareChildren(n *Node) error {
	if _, err := n.RegisterChild(p.left, "Left", false); err != nil {
		return err
	}
	_, err := n.RegisterChild(p.right, "Right", false)
	return err
}

func (p *pair) DeclareDependencies(n *Node) error {
	return n.DependsOnEach(n, "Total", "Left.Value", "Right.Value")
}

func TestDependsOnEach(t *testing.T) {
	p := &pair{left: newLeaf(1), right: newLeaf(2)}
	n := mustRoot(t, p)
	total := countRaises(p.Properties(), "Total")

	p.left.SetValue(5)
	p.right.SetValue(6)

	if *total != 2 {
		t.Errorf("Total raised %d times, want 2", *total)
	}
	if got := n.Graph().Triggers(); !slices.Equal(got, []string{"Left.Value", "Right.Value"}) {
		t.Errorf("Triggers() = %v", got)
	}
	targets := n.Graph().Targets("Left.Value")
	if len(targets) != 1 || targets[0].Node != n || targets[0].Property != "Total" {
		t.Errorf("Targets() = %v, want [{root Total}]", targets)
	}
}

func TestDependsOnItems(t *testing.T) {
	lp := NewListPart(newLeaf(1))
	n := mustRoot(t, lp)
	if err := n.DependsOnItems(n, "Value", "Sum", "Avg"); err != nil {
		t.Fatal(err)
	}
	sum := countRaises(lp.Properties(), "Sum")
	avg := countRaises(lp.Properties(), "Avg")

	first, _ := lp.Items().At(0)
	first.SetValue(4)
	lp.Append(newLeaf(2))

	if *sum != 2 || *avg != 2 {
		t.Errorf("Sum, Avg raised %d, %d times, want 2, 2", *sum, *avg)
	}
}

func TestOnChangeHandlerSet(t *testing.T) {
	lp := NewListPart(newLeaf(1))
	n := mustRoot(t, lp)

	var events []Event
	h := NewHandler(func(e Event) { events = append(events, e) })
	for range 3 {
		if err := n.OnChange(n, "Item[].Value", h); err != nil {
			t.Fatal(err)
		}
	}
	if got := n.Graph().Handlers("Item[].Value"); got != 1 {
		t.Errorf("Handlers() = %v, want 1", got)
	}

	first, _ := lp.Items().At(0)
	first.SetValue(2)

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.From != n || e.Trigger != "Item[].Value" || e.Name != "Item[].Value" {
		t.Errorf("event = %+v", e)
	}

	other := NewHandler(func(Event) {})
	if err := n.OnChange(nil, "Item[].Value", other); err != nil {
		t.Fatal(err)
	}
	if got := n.Graph().Handlers("Item[].Value"); got != 2 {
		t.Errorf("Handlers() = %v, want 2", got)
	}
}

func TestRegistrationErrors(t *testing.T) {
	n := mustRoot(t, newPlain())
	other := mustRoot(t, newPlain())

	tests := []struct {
		name string
		err  error
		code perrors.Code
	}{
		{"empty trigger", n.DependsOn(n, "", "X"), perrors.ErrCodeInvalidPath},
		{"bad list segment", n.DependsOn(n, "A.Item[x].V", "X"), perrors.ErrCodeInvalidPath},
		{"no properties", n.DependsOn(n, "A"), perrors.ErrCodeInvalidInput},
		{"foreign", n.DependsOn(other, "A", "X"), perrors.ErrCodeInvalidState},
		{"nil handler", n.OnChange(n, "A", nil), perrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !perrors.Is(tt.err, tt.code) {
				t.Errorf("error = %v, want code %v", tt.err, tt.code)
			}
		})
	}
	if n.Graph().Len() != 0 {
		t.Errorf("Len() = %v after failed registrations, want 0", n.Graph().Len())
	}
}

func TestConcurrentRegistration(t *testing.T) {
	n := mustRoot(t, newPlain())

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				if err := n.DependsOn(n, fmt.Sprintf("W%d.P%d", w, i), "X", "Y"); err != nil {
					t.Error(err)
					return
				}
				_ = n.DependsOn(n, "Shared", "X")
			}
		}()
	}
	wg.Wait()

	if got := n.Graph().Len(); got != 8*50+1 {
		t.Errorf("Len() = %v, want %v", got, 8*50+1)
	}
	if got := n.Graph().Targets("Shared"); len(got) != 1 {
		t.Errorf("Targets(Shared) = %v, want one deduplicated target", got)
	}
}
