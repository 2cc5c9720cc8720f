package rules

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a problem found in a rule set. Warnings describe rules the engine
// will treat as no-ops; errors describe rules that cannot work as written.
type Issue struct {
	Severity Severity
	Rule     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: rule %q: %s", i.Severity, i.Rule, i.Message)
}

var targetKindSpellings = []string{
	"InvocationExpression", "MethodDeclaration", "ClassDeclaration", "FieldDeclaration", "Parameter",
}

var requiredFields = map[ActionKind]func(Action) bool{
	RemoveInvocation:       func(Action) bool { return true },
	ReplaceInvocation:      func(a Action) bool { return a.ReplacementName != "" || a.ReplacementCode != "" },
	RemoveArgument:         func(a Action) bool { return a.ArgumentName != "" },
	RenameMethod:           func(a Action) bool { return a.ReplacementName != "" },
	ReplaceMethodSignature: func(a Action) bool { return a.ReplacementCode != "" },
	ReplaceReturnType:      func(a Action) bool { return a.ReplacementType != "" },
	AddAttribute:           func(a Action) bool { return a.AttributeName != "" },
	RemoveAttribute:        func(a Action) bool { return a.AttributeName != "" },
	RenameClass:            func(a Action) bool { return a.ReplacementName != "" },
	ChangeBaseClass:        func(a Action) bool { return a.ReplacementType != "" },
	AddInterface:           func(a Action) bool { return a.ReplacementType != "" },
	ReplaceFieldType:       func(a Action) bool { return a.ReplacementType != "" },
	RenameField:            func(a Action) bool { return a.ReplacementName != "" },
	ChangeAccessibility:    func(a Action) bool { return a.Accessibility != "" || a.ReplacementCode != "" },
	ReplaceParameterType:   func(a Action) bool { return a.ReplacementType != "" },
	RenameParameter:        func(a Action) bool { return a.ReplacementName != "" },
}

// HasRequiredFields reports whether the action carries the fields its kind
// needs. Actions without them are no-ops.
func (a Action) HasRequiredFields() bool {
	check, ok := requiredFields[a.Kind]
	return ok && check(a)
}

// Validate checks a rule set for mistakes the schema cannot express.
func (s *RuleSet) Validate() []Issue {
	var issues []Issue
	seen := make(map[string]bool)
	for _, r := range s.All() {
		add := func(sev Severity, format string, args ...any) {
			issues = append(issues, Issue{Severity: sev, Rule: r.Name, Message: fmt.Sprintf(format, args...)})
		}
		if seen[r.Name] {
			add(SeverityWarning, "duplicate rule name; applied rules are reported by name")
		}
		seen[r.Name] = true

		if len(r.Targets) == 0 {
			add(SeverityError, "no target nodes")
		}
		for i, t := range r.Targets {
			if t.Kind == KindUnknown {
				add(SeverityWarning, "target %d: unknown node type %q%s", i, t.Type, suggest(t.Type, targetKindSpellings))
			}
		}

		switch {
		case r.Action.Kind == ActionUnknown:
			add(SeverityWarning, "action %q is not supported and will be skipped%s",
				r.Action.Type, suggest(r.Action.Type, ActionNames()))
		case !r.Action.HasRequiredFields():
			add(SeverityWarning, "action %s is missing its replacement field and will be skipped", r.Action.Kind)
		}
	}
	for _, m := range s.Migrations {
		for _, c := range m.VersionConditions {
			if _, err := canonicalVersion(c.Version); err != nil {
				issues = append(issues, Issue{Severity: SeverityError, Rule: m.ID, Message: err.Error()})
			}
		}
	}
	return issues
}

// suggest returns a ` (did you mean "x"?)` hint for the closest candidate.
func suggest(input string, candidates []string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return ""
	}
	best, bestDistance := "", 1000
	for _, c := range candidates {
		d := edlib.LevenshteinDistance(input, strings.ToLower(c))
		if d < bestDistance {
			best, bestDistance = c, d
		}
	}
	if best == "" || bestDistance > len(input)/2+1 {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}
