// Package dot exports a part tree as a Graphviz diagram.
//
// Structural edges (parent to child) are drawn solid. Dependency edges run
// from the node whose graph holds a trigger to each target node, dashed and
// labelled "trigger -> property". Nodes are keyed by [tree.Node.ID], so a
// diagram stays stable across renames.
package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/parttree/pkg/tree"
)

// Options configures diagram output.
type Options struct {
	// Detailed adds the part type and list size to node labels.
	Detailed bool

	// Dependencies draws dependency edges in addition to the structure.
	Dependencies bool
}

// ToDOT converts the subtree below root to Graphviz DOT format.
// The result can be rendered with [RenderSVG].
func ToDOT(root *tree.Node, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	nodes := collect(root)
	for _, n := range nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID().String(), strings.Join(fmtAttrs(n, fmtLabel(n, opts.Detailed)), ", "))
	}

	buf.WriteString("\n")
	for _, n := range nodes {
		for _, c := range n.AllChildren() {
			fmt.Fprintf(&buf, "  %q -> %q;\n", n.ID().String(), c.ID().String())
		}
	}

	if opts.Dependencies {
		buf.WriteString("\n")
		for _, n := range nodes {
			for _, trigger := range n.Graph().Triggers() {
				for _, t := range n.Graph().Targets(trigger) {
					fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=\"#4a6fa5\", fontsize=10, label=%q, constraint=false];\n",
						n.ID().String(), t.Node.ID().String(), trigger+" -> "+t.Property)
				}
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func collect(n *tree.Node) []*tree.Node {
	out := []*tree.Node{n}
	for _, c := range n.AllChildren() {
		out = append(out, collect(c)...)
	}
	return out
}

func fmtLabel(n *tree.Node, detailed bool) string {
	if !detailed {
		return n.Name()
	}
	parts := []string{fmt.Sprintf("%T", n.Part())}
	if c := n.ItemCount(); c > 0 {
		parts = append(parts, fmt.Sprintf("items: %d", c))
	}
	if c := n.Graph().Len(); c > 0 {
		parts = append(parts, fmt.Sprintf("triggers: %d", c))
	}
	return n.Name() + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *tree.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label), fmt.Sprintf("tooltip=%q", n.FullPath())}
	if n.IsListItem() {
		attrs = append(attrs, "fillcolor=\"#f2f2f2\"")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
