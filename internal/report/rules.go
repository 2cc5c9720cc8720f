package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/imyousuf/csmigrate/internal/rules"
	"github.com/imyousuf/csmigrate/internal/transform"
)

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	return tbl
}

// WriteRules lists rules with their targets and action. Rules whose action
// cannot apply to a target are marked, since they run as no-ops.
func WriteRules(w io.Writer, rs []rules.Rule) {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Rule", "Target", "Constraints", "Action", "Applies"})
	for _, r := range rs {
		for i, t := range r.Targets {
			name := ""
			action := ""
			if i == 0 {
				name, action = r.Name, r.Action.Type
			}
			applies := "yes"
			if !transform.Supported(t.Kind, r.Action.Kind) {
				applies = "no-op"
			}
			tbl.AppendRow(table.Row{name, t.Type, constraints(t), action, applies})
		}
		if len(r.Targets) == 0 {
			tbl.AppendRow(table.Row{r.Name, "", "", r.Action.Type, "no-op"})
		}
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d rules", len(rs))})
	fmt.Fprintln(w, tbl.Render())
}

func constraints(t rules.TargetMatcher) string {
	var parts []string
	if t.Name != "" {
		parts = append(parts, "name="+t.Name)
	}
	if t.ContainingType != "" {
		parts = append(parts, "type="+t.ContainingType)
	}
	if t.ContainingNamespace != "" {
		parts = append(parts, "namespace="+t.ContainingNamespace)
	}
	if len(t.Attributes) > 0 {
		parts = append(parts, "attributes="+strings.Join(t.Attributes, ","))
	}
	if t.Parameters != nil {
		parts = append(parts, fmt.Sprintf("params=%d", len(t.Parameters)))
	}
	return strings.Join(parts, " ")
}

// WriteActions prints the actions each target kind supports.
func WriteActions(w io.Writer) {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Target", "Actions"})
	for _, k := range []rules.TargetKind{rules.Invocation, rules.MethodDecl, rules.ClassDecl, rules.FieldDecl, rules.ParameterDecl} {
		var names []string
		for _, a := range transform.SupportedActions(k) {
			names = append(names, a.String())
		}
		tbl.AppendRow(table.Row{k.String(), strings.Join(names, ", ")})
	}
	fmt.Fprintln(w, tbl.Render())
}

// WriteIssues prints rule file validation issues, one per line.
func WriteIssues(w io.Writer, issues []rules.Issue) {
	for _, issue := range issues {
		c := removedColor
		if issue.Severity == rules.SeverityWarning {
			c = hunkColor
		}
		c.Fprintln(w, issue.String())
	}
}
