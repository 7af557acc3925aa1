package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/parttree/internal/scenario"
)

const defaultDemo = "bubbling"

// demoCommand creates the demo command, which runs an embedded scenario.
func (c *CLI) demoCommand() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "demo [name]",
		Short: "Run a built-in scenario",
		Long: `Run one of the embedded scenarios. Without a name, runs the bubbling
scenario: a sum over three nested lists that must be notified exactly once
per change below it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if list {
				for _, name := range scenario.Builtins() {
					printInfo(w, "%s", name)
				}
				return nil
			}

			name := defaultDemo
			if len(args) == 1 {
				name = args[0]
			}
			return c.runScenario(withLogger(cmd.Context(), c.Logger), w, builtinPrefix+name)
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "list the built-in scenarios")
	return cmd
}
