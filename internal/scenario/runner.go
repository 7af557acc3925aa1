package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/notify"
	"github.com/matzehuels/parttree/pkg/observability"
	"github.com/matzehuels/parttree/pkg/tree"
)

// Options configures a [Runner].
type Options struct {
	// Logger receives step and notification logs. Computed-property
	// notifications are logged at info level, everything else at debug.
	Logger *log.Logger
}

// Result is the outcome of one step.
type Result struct {
	Index    int
	Step     Step
	Duration time.Duration
	Err      error
}

// Failed reports whether the step failed an expectation.
func (r Result) Failed() bool {
	var e *perrors.ExpectationError
	return errors.As(r.Err, &e)
}

// Report collects the results of a run.
type Report struct {
	Scenario string
	Results  []Result
}

// Failures returns the results whose expectation failed.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether every step succeeded.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return false
		}
	}
	return true
}

// Runner builds a scenario tree and applies its steps one at a time.
type Runner struct {
	sc     *Scenario
	logger *log.Logger
	root   *tree.Node
	next   int
}

// NewRunner builds the scenario's root part and attaches it as a new tree.
func NewRunner(sc *Scenario, opts *Options) (*Runner, error) {
	r := &Runner{sc: sc}
	if opts != nil && opts.Logger != nil {
		r.logger = opts.Logger
	} else {
		r.logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	t, ok := sc.Type(sc.Root)
	if !ok {
		return nil, perrors.New(perrors.ErrCodeInvalidScenario, "root type %q is not declared", sc.Root)
	}
	root, err := tree.NewRoot(NewPart(sc, t, r.observe), &tree.Options{Logger: r.logger})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", sc.Name, err)
	}
	r.root = root
	r.logger.Debug("built tree", "scenario", sc.Name, "nodes", root.Registry().Len())
	return r, nil
}

// Root returns the root node of the scenario tree.
func (r *Runner) Root() *tree.Node { return r.root }

// Scenario returns the scenario being run.
func (r *Runner) Scenario() *Scenario { return r.sc }

// Position returns the index of the next step.
func (r *Runner) Position() int { return r.next }

// Done reports whether every step was applied.
func (r *Runner) Done() bool { return r.next >= len(r.sc.Steps) }

// Run applies the remaining steps. Failed expectations are recorded and the
// run continues; any other step error stops the run and is returned.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{Scenario: r.sc.Name}
	for !r.Done() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := r.Step(ctx)
		report.Results = append(report.Results, res)
		if res.Err != nil && !res.Failed() {
			return report, fmt.Errorf("step %d (%s): %w", res.Index, res.Step, res.Err)
		}
	}
	return report, nil
}

// Step applies the next step. It must not be called once Done.
func (r *Runner) Step(ctx context.Context) Result {
	i := r.next
	s := r.sc.Steps[i]
	r.next++

	hooks := observability.Scenario()
	hooks.OnStepStart(ctx, i, s.Op)
	if s.Op != OpExpect {
		r.resetRaised()
	}

	start := time.Now()
	err := r.apply(s)
	res := Result{Index: i, Step: s, Duration: time.Since(start), Err: err}
	hooks.OnStepComplete(ctx, i, s.Op, res.Duration, err)

	switch {
	case res.Failed():
		r.logger.Warn("expectation failed", "step", i, "err", err)
	case err != nil:
		r.logger.Error("step failed", "step", i, "op", s.Op, "err", err)
	default:
		r.logger.Debug("step", "index", i, "step", s.String())
	}
	return res
}

func (r *Runner) apply(s Step) error {
	n, err := r.resolve(s.Path)
	if err != nil {
		return err
	}

	switch s.Op {
	case OpAppend:
		t, err := r.itemType(n, s.Type)
		if err != nil {
			return err
		}
		for range max(s.Count, 1) {
			if _, err := n.AppendItem(NewPart(r.sc, t, r.observe)); err != nil {
				return err
			}
		}
	case OpInsert:
		t, err := r.itemType(n, s.Type)
		if err != nil {
			return err
		}
		_, err = n.InsertItem(s.Index, NewPart(r.sc, t, r.observe))
		return err
	case OpRemove:
		_, err := n.RemoveItem(s.Index)
		return err
	case OpMove:
		return n.MoveItem(s.Index, s.To)
	case OpClear:
		n.ClearItems()
	case OpSet:
		p, err := tree.PartAs[*Part](n)
		if err != nil {
			return err
		}
		return p.Set(s.Field, s.Value)
	case OpRename:
		return n.SetName(s.Name)
	case OpDetach:
		return n.Detach()
	case OpReparent:
		target, err := r.resolve(s.Target)
		if err != nil {
			return err
		}
		if s.Name != "" {
			_, err = target.RegisterChild(n.Part(), s.Name, false)
		} else {
			_, err = target.AppendItem(n.Part())
		}
		return err
	case OpExpect:
		return r.expect(n, s)
	default:
		return perrors.New(perrors.ErrCodeInvalidScenario, "unknown op %q", s.Op)
	}
	return nil
}

func (r *Runner) expect(n *tree.Node, s Step) error {
	p, err := tree.PartAs[*Part](n)
	if err != nil {
		return err
	}
	path := n.FullPath() + tree.Separator + s.Field
	if s.Want != nil {
		got, err := p.Value(s.Field)
		if err != nil {
			return err
		}
		if got != *s.Want {
			return &perrors.ExpectationError{Path: path, Want: *s.Want, Got: got}
		}
	}
	if s.Raises != nil {
		if got := p.Raised(s.Field); got != *s.Raises {
			return &perrors.ExpectationError{Path: path + " raises", Want: *s.Raises, Got: got}
		}
	}
	return nil
}

func (r *Runner) resolve(path string) (*tree.Node, error) {
	if path == "" {
		return r.root, nil
	}
	return r.root.Resolve(path)
}

func (r *Runner) itemType(n *tree.Node, name string) (*Type, error) {
	if name == "" {
		p, err := tree.PartAs[*Part](n)
		if err != nil {
			return nil, err
		}
		name = p.typ.Items
	}
	t, ok := r.sc.Type(name)
	if !ok {
		return nil, perrors.New(perrors.ErrCodeInvalidScenario, "%s has no item type", n.FullPath())
	}
	return t, nil
}

func (r *Runner) resetRaised() {
	var walk func(n *tree.Node)
	walk = func(n *tree.Node) {
		if p, err := tree.PartAs[*Part](n); err == nil {
			p.resetRaised()
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(r.root)
}

func (r *Runner) observe(p *Part, c notify.PropertyChange) {
	n := p.Binding().Node()
	if n == nil {
		return
	}
	if _, computed := p.programs[c.Name]; !computed {
		r.logger.Debug("changed", "path", n.FullPath(), "property", c.Name, "old", c.Old, "new", c.New)
		return
	}
	v, err := p.Value(c.Name)
	if err != nil {
		r.logger.Warn("changed", "path", n.FullPath(), "property", c.Name, "err", err)
		return
	}
	r.logger.Info("changed", "path", n.FullPath(), "property", c.Name, "value", v)
}
