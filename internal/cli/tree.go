package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/parttree/internal/scenario"
	"github.com/matzehuels/parttree/pkg/tree"
)

// treeCommand creates the tree command.
func (c *CLI) treeCommand() *cobra.Command {
	var initial bool

	cmd := &cobra.Command{
		Use:   "tree <scenario>",
		Short: "Print the node registry of a scenario tree",
		Long: `Print every registered node of a scenario tree with its clean path, list
size, trigger count and current property values. Steps are applied first
unless --initial is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			r, err := c.buildRunner(ctx, args[0], !initial)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRegistry(r.Root(), -1))
			return nil
		},
	}

	cmd.Flags().BoolVar(&initial, "initial", false, "show the tree before any step is applied")
	return cmd
}

// renderRegistry renders the registry of root as a table. The row at
// highlight (if any) is emphasized.
func renderRegistry(root *tree.Node, highlight int) string {
	nodes := root.Registry().Nodes()
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{
			n.FullPath(),
			n.CleanFullPath(),
			fmt.Sprint(n.ItemCount()),
			fmt.Sprint(n.Graph().Len()),
			formatValues(n),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Full path", "Clean path", "Items", "Triggers", "Values").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == -1:
				return styleHeader.Padding(0, 1)
			case row == highlight:
				return base.Foreground(colorCyan).Bold(true)
			case col == 1:
				return base.Foreground(colorGray)
			case col == 2 || col == 3:
				return base.Foreground(colorDim)
			}
			return base
		})
	return t.Render()
}

// formatValues lists a scenario part's properties as "name=value".
func formatValues(n *tree.Node) string {
	p, err := tree.PartAs[*scenario.Part](n)
	if err != nil {
		return ""
	}
	var parts []string
	for _, name := range p.PropertyNames() {
		v, err := p.Value(name)
		if err != nil {
			parts = append(parts, name+"=?")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", name, v))
	}
	return strings.Join(parts, " ")
}
