package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ProjectSummary is one row of the check summary.
type ProjectSummary struct {
	Name        string
	OK          bool
	Operations  int
	Fragments   int
	Diagnostics int
}

// Summary renders a bordered table of project results. Styling is dropped
// when color is false.
func Summary(projects []ProjectSummary, elapsed time.Duration, color bool) string {
	var (
		okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
		failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
		dimStyle  = lipgloss.NewStyle().Faint(true)
		box       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	)
	if !color {
		okStyle, failStyle, dimStyle = lipgloss.NewStyle(), lipgloss.NewStyle(), lipgloss.NewStyle()
	}

	nameWidth := len("project")
	for _, p := range projects {
		nameWidth = max(nameWidth, lipgloss.Width(p.Name))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %-6s  %4s  %4s  %5s\n", nameWidth, "project", "status", "ops", "frag", "diags")
	failed := 0
	for _, p := range projects {
		status := okStyle.Render("ok    ")
		if !p.OK {
			status = failStyle.Render("failed")
			failed++
		}
		fmt.Fprintf(&b, "%-*s  %s  %4d  %4d  %5d\n", nameWidth, p.Name, status, p.Operations, p.Fragments, p.Diagnostics)
	}
	verdict := okStyle.Render("all projects ok")
	if failed > 0 {
		verdict = failStyle.Render(fmt.Sprintf("%d of %d projects failed", failed, len(projects)))
	}
	fmt.Fprintf(&b, "%s %s", verdict, dimStyle.Render(fmt.Sprintf("in %s", elapsed.Round(time.Millisecond))))
	return box.Render(b.String())
}
