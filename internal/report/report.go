// Package report renders migration outcomes and rule listings for people
// and for tooling.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/imyousuf/csmigrate/internal/engine"
)

// Format selects how an outcome is rendered.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts the format names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown report format %q (want text, json or markdown)", s)
}

// Stats are run figures that are not part of the outcome itself.
type Stats struct {
	Elapsed time.Duration
	// Bytes is the total size of the files handed to the run.
	Bytes uint64
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	sectionStyle = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)

	successColor = color.New(color.FgGreen, color.Bold)
	failureColor = color.New(color.FgRed, color.Bold)
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
	hunkColor    = color.New(color.FgCyan)
)

// Write renders o to w in the given format.
func Write(w io.Writer, o *engine.Outcome, format Format, stats Stats) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, o)
	case FormatMarkdown:
		return writeMarkdown(w, o, stats)
	default:
		return writeText(w, o, stats)
	}
}

func writeJSON(w io.Writer, o *engine.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}

func writeText(w io.Writer, o *engine.Outcome, stats Stats) error {
	title := "Migration"
	if o.DryRun {
		title = "Migration (dry run)"
	}
	fmt.Fprintln(w, headerStyle.Render(title))
	fmt.Fprintln(w, faintStyle.Render(scanLine(o, stats)))
	fmt.Fprintln(w)

	if len(o.ModifiedFiles) > 0 {
		heading := "Modified files"
		if o.DryRun {
			heading = "Files that would change"
		}
		fmt.Fprintf(w, "  %s\n", sectionStyle.Render(heading))
		for _, f := range o.ModifiedFiles {
			fmt.Fprintf(w, "    %s\n", f)
		}
		fmt.Fprintln(w)
	}
	if len(o.AppliedRules) > 0 {
		fmt.Fprintf(w, "  %s\n", sectionStyle.Render("Applied rules"))
		for _, r := range o.AppliedRules {
			fmt.Fprintf(w, "    %s\n", r)
		}
		fmt.Fprintln(w)
	}
	if len(o.Errors) > 0 {
		fmt.Fprintf(w, "  %s\n", sectionStyle.Render("Errors"))
		for _, e := range o.Errors {
			removedColor.Fprintf(w, "    %s\n", e)
		}
		fmt.Fprintln(w)
	}
	for _, c := range o.Changes {
		writeColoredDiff(w, c.Diff)
		fmt.Fprintln(w)
	}

	if o.Success {
		successColor.Fprintln(w, o.Summary)
	} else {
		failureColor.Fprintln(w, o.Summary)
	}
	return nil
}

func writeColoredDiff(w io.Writer, diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "):
			fmt.Fprint(w, sectionStyle.Render(strings.TrimSuffix(line, "\n"))+"\n")
		case strings.HasPrefix(line, "@@"):
			hunkColor.Fprint(w, line)
		case strings.HasPrefix(line, "+"):
			addedColor.Fprint(w, line)
		case strings.HasPrefix(line, "-"):
			removedColor.Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}
}

func writeMarkdown(w io.Writer, o *engine.Outcome, stats Stats) error {
	status := "✅"
	if !o.Success {
		status = "❌"
	}
	fmt.Fprintf(w, "# Migration report\n\n%s %s\n\n", status, o.Summary)
	fmt.Fprintf(w, "%s\n\n", scanLine(o, stats))

	tbl := table.NewWriter()
	tbl.AppendHeader(table.Row{"File", "Status"})
	for _, f := range o.ModifiedFiles {
		status := "modified"
		if o.DryRun {
			status = "would change"
		}
		tbl.AppendRow(table.Row{f, status})
	}
	if len(o.ModifiedFiles) > 0 {
		fmt.Fprintf(w, "## Files\n\n%s\n\n", tbl.RenderMarkdown())
	}

	if len(o.AppliedRules) > 0 {
		fmt.Fprint(w, "## Applied rules\n\n")
		for _, r := range o.AppliedRules {
			fmt.Fprintf(w, "- %s\n", r)
		}
		fmt.Fprintln(w)
	}
	if len(o.Errors) > 0 {
		fmt.Fprint(w, "## Errors\n\n")
		for _, e := range o.Errors {
			fmt.Fprintf(w, "- `%s`\n", e)
		}
		fmt.Fprintln(w)
	}
	if len(o.Changes) > 0 {
		fmt.Fprint(w, "## Changes\n\n")
		for _, c := range o.Changes {
			fmt.Fprintf(w, "```diff\n%s```\n\n", c.Diff)
		}
	}
	return nil
}

func scanLine(o *engine.Outcome, stats Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Scanned %s file(s)", humanize.Comma(int64(o.FilesScanned)))
	if stats.Bytes > 0 {
		fmt.Fprintf(&sb, " (%s)", humanize.Bytes(stats.Bytes))
	}
	if o.FilesSkipped > 0 {
		fmt.Fprintf(&sb, ", skipped %s", humanize.Comma(int64(o.FilesSkipped)))
	}
	if stats.Elapsed > 0 {
		fmt.Fprintf(&sb, " in %s", stats.Elapsed.Round(time.Millisecond))
	}
	return sb.String()
}
