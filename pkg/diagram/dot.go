package diagram

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

// Status colors.
const (
	colorSatisfied = "forestgreen"
	colorViolated  = "red3"
	colorUnchecked = "grey50"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds constraint values and check errors to edge labels and
	// anchor counts to component labels.
	Detailed bool
}

// ToDOT converts an assembly's constraint system to Graphviz DOT.
// Elements that do not resolve to a component are drawn as dashed
// placeholders so broken references stay visible.
func ToDOT(a *assembly.Assembly, opts Options) string {
	ix := assembly.NewIndex(a)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	if a != nil && a.Name != "" {
		fmt.Fprintf(&buf, "  label=%q;\n", a.Name)
	}
	buf.WriteString("\n")

	var constraints []assembly.Constraint
	if a != nil {
		constraints = a.AllConstraints()
	}

	grounded := map[assembly.ComponentID]assembly.Constraint{}
	for _, c := range constraints {
		if f, ok := c.Data.(assembly.Fixed); ok {
			if owner, _, ok := ix.Resolve(f.A); ok {
				grounded[owner] = c
			}
		}
	}

	for _, id := range ix.IDs() {
		comp, _ := ix.Component(id)
		attrs := []string{fmt.Sprintf("label=%q", componentLabel(comp, opts.Detailed))}
		if comp.Type != assembly.TypePart {
			attrs = append(attrs, "fillcolor=lightgrey")
		}
		if fixed, ok := grounded[id]; ok {
			attrs = append(attrs, "peripheries=2", fmt.Sprintf("color=%s", statusColor(fixed)))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
	}

	missing := map[assembly.ElementID]bool{}
	endpoint := func(e assembly.ElementID) string {
		if owner, _, ok := ix.Resolve(e); ok {
			return string(owner)
		}
		if !missing[e] {
			missing[e] = true
			fmt.Fprintf(&buf, "  %q [style=\"rounded,dashed\", color=%s, fontcolor=%s];\n", e, colorViolated, colorViolated)
		}
		return string(e)
	}

	buf.WriteString("\n")
	for _, id := range ix.IDs() {
		if parent, ok := ix.Parent(id); ok {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=grey70, arrowhead=none];\n", parent.ID, id)
		}
	}

	for _, c := range constraints {
		els := c.Elements()
		if len(els) < 2 {
			continue
		}
		from, to := endpoint(els[0]), endpoint(els[1])
		attrs := []string{
			fmt.Sprintf("label=%q", constraintLabel(c, opts.Detailed)),
			fmt.Sprintf("color=%s", statusColor(c)),
			fmt.Sprintf("fontcolor=%s", statusColor(c)),
			"dir=none",
		}
		if c.Checked && !c.Satisfied {
			attrs = append(attrs, "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", from, to, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func componentLabel(c *assembly.Component, detailed bool) string {
	label := string(c.ID)
	if c.Name != "" && c.Name != string(c.ID) {
		label = c.Name + "\n" + label
	}
	if !detailed {
		return label
	}
	parts := []string{label, c.Type.String()}
	if n := len(c.AnchorPoints); n > 0 {
		parts = append(parts, fmt.Sprintf("anchors: %d", n))
	}
	return strings.Join(parts, "\n")
}

func constraintLabel(c assembly.Constraint, detailed bool) string {
	label := c.Kind().String()
	if !detailed {
		return label
	}
	switch d := c.Data.(type) {
	case assembly.Distance:
		label += fmt.Sprintf(" %g", d.Value)
	case assembly.Angle:
		label += fmt.Sprintf(" %g°", d.Degrees)
	}
	if c.Checked {
		label += fmt.Sprintf("\nerr %.3g", c.Error)
	}
	return label
}

func statusColor(c assembly.Constraint) string {
	switch {
	case !c.Checked:
		return colorUnchecked
	case c.Satisfied:
		return colorSatisfied
	default:
		return colorViolated
	}
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
	return buf.Bytes(), nil
}
