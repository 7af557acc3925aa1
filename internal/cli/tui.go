package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/parttree/internal/scenario"
	perrors "github.com/matzehuels/parttree/pkg/errors"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// recentResults is how many applied steps the stepper lists.
const recentResults = 5

// =============================================================================
// StepModel - Interactive scenario stepper
// =============================================================================

// StepModel is the bubbletea model for applying scenario steps one at a time.
type StepModel struct {
	ctx     context.Context
	runner  *scenario.Runner
	logs    *logTail
	Results []scenario.Result
}

// NewStepModel creates a stepper over r. Log lines written to logs are shown
// below the tree; logs may be nil.
func NewStepModel(ctx context.Context, r *scenario.Runner, logs *logTail) StepModel {
	return StepModel{ctx: ctx, runner: r, logs: logs}
}

func (m StepModel) Init() tea.Cmd {
	return nil
}

func (m StepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "enter", "n":
		if !m.runner.Done() {
			m.Results = append(m.Results, m.runner.Step(m.ctx))
		}
	case "a":
		for !m.runner.Done() {
			m.Results = append(m.Results, m.runner.Step(m.ctx))
		}
	}
	return m, nil
}

func (m StepModel) View() string {
	var b strings.Builder
	sc := m.runner.Scenario()

	b.WriteString(StyleTitle.Render(sc.Name))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.runner.Position(), len(sc.Steps))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("space/enter step  a all  q quit"))
	b.WriteString("\n\n")

	b.WriteString(renderRegistry(m.runner.Root(), m.highlight()))
	b.WriteString("\n\n")

	start := max(0, len(m.Results)-recentResults)
	for _, res := range m.Results[start:] {
		b.WriteString(formatResult(res))
		b.WriteString("\n")
	}

	if m.runner.Done() {
		b.WriteString(StyleSuccess.Render("done"))
	} else {
		next := m.runner.Scenario().Steps[m.runner.Position()]
		b.WriteString(listSelectedStyle.Render("▸ " + next.String()))
	}
	b.WriteString("\n")

	if m.logs != nil {
		if lines := m.logs.Lines(); len(lines) > 0 {
			b.WriteString("\n")
			b.WriteString(listDimStyle.Render(strings.Join(lines, "\n")))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// highlight returns the registry row of the node the last step touched, or
// -1.
func (m StepModel) highlight() int {
	if len(m.Results) == 0 {
		return -1
	}
	path := m.Results[len(m.Results)-1].Step.Path
	root := m.runner.Root()
	n := root
	if path != "" {
		var err error
		if n, err = root.Resolve(path); err != nil {
			return -1
		}
	}
	for i, p := range root.Registry().Paths() {
		if p == n.FullPath() {
			return i
		}
	}
	return -1
}

func formatResult(res scenario.Result) string {
	line := fmt.Sprintf("%3d %s", res.Index, res.Step)
	switch {
	case res.Err != nil:
		return styleIconError.Render(iconError) + " " + line + " " + StyleError.Render(perrors.UserMessage(res.Err))
	case res.Step.Op == scenario.OpExpect:
		return styleIconSuccess.Render(iconSuccess) + " " + line
	default:
		return styleIconInfo.Render(iconInfo) + " " + line
	}
}

// =============================================================================
// logTail - recent log lines for the stepper
// =============================================================================

// logTail is an io.Writer keeping the last lines written to it.
type logTail struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newLogTail(n int) *logTail {
	return &logTail{max: n}
}

func (t *logTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		t.lines = append(t.lines, line)
	}
	if over := len(t.lines) - t.max; over > 0 {
		t.lines = t.lines[over:]
	}
	return len(p), nil
}

// Lines returns a copy of the retained lines, oldest first.
func (t *logTail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}
