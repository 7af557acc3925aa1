package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/parttree/internal/scenario"
	perrors "github.com/matzehuels/parttree/pkg/errors"
)

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Build a scenario tree and apply its steps",
		Long: `Build the tree described by a scenario file, apply every step and check
its expectations. Notifications reaching computed properties are logged at
info level, everything else at debug level (-v).

Use builtin:<name> to run an embedded scenario.`,
		Example: `  parttree run cart.toml
  parttree run --watch cart.toml
  parttree run builtin:bubbling`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			if watch {
				return c.watchScenario(ctx, cmd.OutOrStdout(), args[0])
			}
			return c.runScenario(ctx, cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-run whenever the scenario file changes")
	return cmd
}

// runScenario runs a scenario to completion and prints its report. Failed
// expectations produce an EXPECTATION_FAILED error after the report.
func (c *CLI) runScenario(ctx context.Context, w io.Writer, arg string) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	r, err := c.buildRunner(ctx, arg, false)
	if err != nil {
		return err
	}
	report, runErr := r.Run(ctx)
	printReport(w, report)
	if runErr != nil {
		return runErr
	}
	prog.done(fmt.Sprintf("Ran %d steps", len(report.Results)))

	if failures := report.Failures(); len(failures) > 0 {
		return perrors.New(perrors.ErrCodeExpectationFailed, "%s: %d of %d expectations failed",
			report.Scenario, len(failures), countExpectations(report))
	}
	return nil
}

func printReport(w io.Writer, report *scenario.Report) {
	fmt.Fprintln(w, StyleTitle.Render(report.Scenario))
	for _, res := range report.Results {
		switch {
		case res.Failed():
			printError(w, "step %d %s", res.Index, res.Step)
			printDetail(w, "%s", perrors.UserMessage(res.Err))
		case res.Err != nil:
			printError(w, "step %d %s: %s", res.Index, res.Step, perrors.UserMessage(res.Err))
		case res.Step.Op == scenario.OpExpect:
			printSuccess(w, "step %d %s", res.Index, res.Step)
		}
	}

	total := countExpectations(report)
	failed := len(report.Failures())
	printKeyValue(w, "steps", StyleNumber.Render(fmt.Sprint(len(report.Results))))
	printKeyValue(w, "expectations", fmt.Sprintf("%s passed, %s failed",
		StyleSuccess.Render(fmt.Sprint(total-failed)), failedStyle(failed).Render(fmt.Sprint(failed))))
}

func countExpectations(report *scenario.Report) int {
	n := 0
	for _, res := range report.Results {
		if res.Step.Op == scenario.OpExpect {
			n++
		}
	}
	return n
}

// watchScenario runs a scenario, then re-runs it every time its file
// changes until ctx is cancelled. Run errors are printed, not returned.
func (c *CLI) watchScenario(ctx context.Context, w io.Writer, arg string) error {
	if strings.HasPrefix(arg, builtinPrefix) {
		return perrors.New(perrors.ErrCodeInvalidInput, "cannot watch embedded scenario %q", arg)
	}

	wt, err := newWatcher(arg, c.cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	changes, err := wt.start()
	if err != nil {
		return err
	}
	defer wt.stop()

	rerun := func() {
		if err := c.runScenario(ctx, w, arg); err != nil {
			printWarning(w, "%s", perrors.UserMessage(err))
		}
		printDetail(w, "watching %s (ctrl+c to stop)", arg)
	}

	rerun()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
			printInfo(w, "%s changed", arg)
			rerun()
		}
	}
}

func failedStyle(n int) lipgloss.Style {
	if n > 0 {
		return StyleError
	}
	return StyleDim
}
