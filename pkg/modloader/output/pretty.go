package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Mods:"), ValueStyle.Render(r.ModsRoot)),
	}

	if r.Game != "" || r.Patch != "" {
		var parts []string
		if r.Game != "" {
			parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Game:"), ValueStyle.Render(r.Game)))
		}
		if r.Patch != "" {
			parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Loader:"), PatchStyle(r.Patch).Render(r.Patch)))
		}
		lines = append(lines, strings.Join(parts, "  "))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Mods) == 0 {
		return MutedStyle.Render("  No mods installed") + "\n"
	}

	measured := r.TotalSize() > 0

	titleWidth := len("TITLE")
	versionWidth := len("VERSION")
	for _, m := range r.Mods {
		titleWidth = max(titleWidth, lipgloss.Width(m.Title))
		versionWidth = max(versionWidth, lipgloss.Width(m.Version))
	}

	var sb strings.Builder

	header := fmt.Sprintf("  %s  %s  %s  %s",
		padLeft("#", 3),
		padRight("TITLE", titleWidth),
		padRight("VERSION", versionWidth),
		"AUTHOR")
	if measured {
		header += "  SIZE"
	}
	sb.WriteString(TableHeaderStyle.Render(header))
	sb.WriteString("\n")

	for _, m := range r.Mods {
		title := padRight(m.Title, titleWidth)
		if m.Active {
			title = ActiveTitleStyle.Render(title)
		} else {
			title = MutedStyle.Render(title)
		}

		row := fmt.Sprintf("  %s  %s  %s  %s",
			PriorityStyle.Render(padLeft(m.PriorityLabel(), 3)),
			title,
			ValueStyle.Render(padRight(m.Version, versionWidth)),
			MutedStyle.Render(m.Author))
		if measured {
			row += "  " + SizeStyle.Render(m.SizeHuman)
		}
		sb.WriteString(row)
		sb.WriteString("\n")
	}

	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Mods:"), ValueStyle.Render(humanize.Comma(int64(len(r.Mods))))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Active:"), SuccessStyle.Render(humanize.Comma(int64(r.ActiveCount())))),
	}

	if total := r.TotalSize(); total > 0 {
		parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Size:"), SizeStyle.Render(humanize.IBytes(uint64(total)))))
	}

	parts = append(parts, MutedStyle.Render("Use -o plain for unformatted output"))
	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

// padLeft pads s with spaces on the left to width display cells.
func padLeft(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return strings.Repeat(" ", width-w) + s
	}
	return s
}

// padRight pads s with spaces on the right to width display cells.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
