package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleHeading = lipgloss.NewStyle().Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
)

// renderReport formats a report for the terminal. asm supplies component
// order and may be nil when the script failed.
func renderReport(r Report, asm *assembly.Assembly) string {
	var b strings.Builder

	if len(r.Errors) > 0 {
		b.WriteString(styleError.Render(iconError+" script failed") + "\n")
		for _, e := range r.Errors {
			loc := ""
			if e.Line > 0 {
				loc = styleDim.Render(fmt.Sprintf("line %d: ", e.Line))
			}
			fmt.Fprintf(&b, "  %s%s\n", loc, e.Message)
		}
		return b.String()
	}

	name := r.Assembly
	if name == "" {
		name = "untitled"
	}
	v := r.Validation
	fmt.Fprintf(&b, "%s  %s components · %s constraints · %s\n",
		styleTitle.Render(name),
		styleNumber.Render(fmt.Sprint(r.Components)),
		styleNumber.Render(fmt.Sprint(v.ConstraintCount)),
		styleDim.Render(fmt.Sprintf("DOF %d", v.DegreesOfFreedom)))

	for _, f := range v.Errors {
		b.WriteString("  " + styleError.Render(iconError+" "+f.Code) + " " + f.Message + "\n")
	}
	for _, f := range v.Warnings {
		b.WriteString("  " + styleWarning.Render(iconWarning+" "+f.Code) + " " + f.Message + "\n")
	}

	if r.Solve != nil {
		icon, style := iconSuccess, styleSuccess
		if !r.Solve.Success {
			icon, style = iconError, styleError
		}
		fmt.Fprintf(&b, "%s %s\n", style.Render(icon+" "+r.Solve.Message),
			styleDim.Render(fmt.Sprintf("(%.2f ms)", r.Solve.SolverTime)))
	}

	if asm != nil && r.Solve != nil {
		b.WriteString("\n" + styleHeading.Render("Positions") + "\n")
		asm.Walk(func(c, _ *assembly.Component) bool {
			p, ok := r.Solve.Positions[c.ID]
			if !ok {
				p = c.Position
			}
			fmt.Fprintf(&b, "  %-20s (%10.3f, %10.3f, %10.3f)\n", c.ID, p.X, p.Y, p.Z)
			return true
		})
	}

	if len(r.Checks) > 0 {
		b.WriteString("\n" + styleHeading.Render("Constraints") + "\n")
		for _, c := range r.Checks {
			icon := styleSuccess.Render(iconSuccess)
			if !c.Satisfied {
				icon = styleError.Render(iconError)
			}
			fmt.Fprintf(&b, "  %s %-32s %s\n", icon, c.ConstraintID, styleDim.Render(fmt.Sprintf("error %.3g", c.Error)))
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n")
		for _, w := range r.Warnings {
			b.WriteString(styleWarning.Render(iconWarning+" "+w) + "\n")
		}
	}
	return b.String()
}
