package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/tree/dot"
)

// dotCommand creates the dot command.
func (c *CLI) dotCommand() *cobra.Command {
	var (
		output   string
		initial  bool
		detailed bool
		noDeps   bool
	)

	cmd := &cobra.Command{
		Use:   "dot <scenario>",
		Short: "Export a scenario tree as a Graphviz diagram",
		Long: `Export a scenario tree with its dependency edges as Graphviz DOT, or render
it to SVG with --format svg. Steps are applied first unless --initial is set.`,
		Example: `  parttree dot cart.toml -o cart.dot
  parttree dot cart.toml --format svg -o cart.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			r, err := c.buildRunner(ctx, args[0], !initial)
			if err != nil {
				return err
			}

			src := dot.ToDOT(r.Root(), dot.Options{Detailed: detailed, Dependencies: !noDeps})
			data, err := c.renderDOT(ctx, src, output != "")
			if err != nil {
				return err
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "write %s", output)
			}
			printSuccess(cmd.OutOrStdout(), "Wrote %s diagram", c.cfg.Dot.Format)
			printFile(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().String("format", formatDOT, "output format: dot or svg")
	cmd.Flags().BoolVar(&initial, "initial", false, "export the tree before any step is applied")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "add part type, list size and trigger count to labels")
	cmd.Flags().BoolVar(&noDeps, "no-deps", false, "omit dependency edges")
	_ = c.config.BindPFlag("dot.format", cmd.Flags().Lookup("format"))

	return cmd
}

// renderDOT converts DOT source to the configured format. A spinner is shown
// for SVG rendering when the result goes to a file.
func (c *CLI) renderDOT(ctx context.Context, src string, spin bool) ([]byte, error) {
	if c.cfg.Dot.Format != formatSVG {
		return []byte(src), nil
	}

	var s *Spinner
	if spin {
		s = newSpinner(ctx, os.Stderr, "Rendering SVG...")
		s.Start()
	}
	svg, err := dot.RenderSVG(ctx, src)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return nil, fmt.Errorf("render svg: %w", err)
	}
	return svg, nil
}
