package cli

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/parttree/internal/scenario"
)

func newTestStepModel(t *testing.T) StepModel {
	t.Helper()
	sc, err := scenario.Builtin("orders")
	if err != nil {
		t.Fatal(err)
	}
	r, err := scenario.NewRunner(sc, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewStepModel(context.Background(), r, newLogTail(4))
}

func press(m tea.Model, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	return m.Update(msg)
}

func TestStepModelAdvances(t *testing.T) {
	var m tea.Model = newTestStepModel(t)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeySpace})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})

	sm := m.(StepModel)
	if len(sm.Results) != 2 {
		t.Fatalf("len(Results) = %v, want %v", len(sm.Results), 2)
	}
	for _, res := range sm.Results {
		if res.Err != nil {
			t.Errorf("step %d: %v", res.Index, res.Err)
		}
	}

	view := sm.View()
	total := len(sm.runner.Scenario().Steps)
	for _, want := range []string{"orders", fmt.Sprintf("[2/%d]", total), "*.Orders.Item[0]", "▸ append"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestStepModelApplyAll(t *testing.T) {
	var m tea.Model = newTestStepModel(t)
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})

	sm := m.(StepModel)
	if !sm.runner.Done() {
		t.Fatal("runner should be done after 'a'")
	}
	if !strings.Contains(sm.View(), "done") {
		t.Error("View() should report done")
	}

	// further steps are ignored
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := len(m.(StepModel).Results); got != len(sm.Results) {
		t.Errorf("len(Results) = %v, want %v", got, len(sm.Results))
	}
}

func TestStepModelQuit(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := press(newTestStepModel(t), key)
		if cmd == nil {
			t.Fatalf("%s: cmd = nil, want tea.Quit", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: cmd() is not a QuitMsg", key)
		}
	}
}

func TestRenderRegistry(t *testing.T) {
	m := newTestStepModel(t)
	out := renderRegistry(m.runner.Root(), -1)
	for _, want := range []string{"Full path", "Clean path", "*.Orders", "Revenue=0"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderRegistry() missing %q:\n%s", want, out)
		}
	}
}
