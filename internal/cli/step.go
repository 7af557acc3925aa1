package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// stepCommand creates the interactive stepper command.
func (c *CLI) stepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "step <scenario>",
		Short: "Apply scenario steps interactively",
		Long: `Open an interactive view of a scenario tree. Each key press applies the next
step and shows the registry with the touched node highlighted, the recent
results and the latest notifications.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs := newLogTail(8)
			logger := newLogger(logs, c.Logger.GetLevel())
			ctx := withLogger(cmd.Context(), logger)

			r, err := c.buildRunner(ctx, args[0], false)
			if err != nil {
				return err
			}

			p := tea.NewProgram(NewStepModel(ctx, r, logs), tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))
			final, err := p.Run()
			if err != nil {
				return err
			}

			m := final.(StepModel)
			failed := 0
			for _, res := range m.Results {
				if res.Err != nil {
					failed++
				}
			}
			printInfo(cmd.OutOrStdout(), "Applied %d of %d steps, %s failed",
				len(m.Results), len(r.Scenario().Steps), failedStyle(failed).Render(fmt.Sprint(failed)))
			return nil
		},
	}
}
