// Package rules defines migration rules and loads them from rule files.
package rules

import "strings"

// TargetKind is the syntactic kind of node a matcher selects.
type TargetKind int

const (
	// KindUnknown is any kind string the engine does not recognize. Matchers
	// of this kind select nothing.
	KindUnknown TargetKind = iota
	Invocation
	MethodDecl
	ClassDecl
	FieldDecl
	ParameterDecl
)

var targetKindNames = map[TargetKind]string{
	KindUnknown:   "Unknown",
	Invocation:    "Invocation",
	MethodDecl:    "MethodDecl",
	ClassDecl:     "ClassDecl",
	FieldDecl:     "FieldDecl",
	ParameterDecl: "ParameterDecl",
}

var targetKindAliases = map[string]TargetKind{
	"invocation":           Invocation,
	"invocationexpression": Invocation,
	"methoddecl":           MethodDecl,
	"method":               MethodDecl,
	"methoddeclaration":    MethodDecl,
	"classdecl":            ClassDecl,
	"class":                ClassDecl,
	"classdeclaration":     ClassDecl,
	"fielddecl":            FieldDecl,
	"field":                FieldDecl,
	"fielddeclaration":     FieldDecl,
	"parameterdecl":        ParameterDecl,
	"parameter":            ParameterDecl,
	"parameterdeclaration": ParameterDecl,
}

// String returns the canonical name of k.
func (k TargetKind) String() string {
	if s, ok := targetKindNames[k]; ok {
		return s
	}
	return targetKindNames[KindUnknown]
}

// ParseTargetKind maps a rule-file kind string to a TargetKind. Matching
// ignores case and underscores, so "InvocationExpression" and
// "invocation_expression" are the same kind.
func ParseTargetKind(s string) TargetKind {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	if k, ok := targetKindAliases[key]; ok {
		return k
	}
	return KindUnknown
}

// ActionKind selects the transformation a rule applies.
type ActionKind int

const (
	// ActionUnknown is any action type the engine does not implement.
	// Dispatching it is a no-op.
	ActionUnknown ActionKind = iota
	RemoveInvocation
	ReplaceInvocation
	RemoveArgument
	RenameMethod
	ReplaceMethodSignature
	ReplaceReturnType
	AddAttribute
	RemoveAttribute
	RenameClass
	ChangeBaseClass
	AddInterface
	ReplaceFieldType
	RenameField
	ChangeAccessibility
	ReplaceParameterType
	RenameParameter
)

var actionKindNames = map[ActionKind]string{
	RemoveInvocation:       "remove_invocation",
	ReplaceInvocation:      "replace_invocation",
	RemoveArgument:         "remove_argument",
	RenameMethod:           "rename_method",
	ReplaceMethodSignature: "replace_method_signature",
	ReplaceReturnType:      "replace_return_type",
	AddAttribute:           "add_attribute",
	RemoveAttribute:        "remove_attribute",
	RenameClass:            "rename_class",
	ChangeBaseClass:        "change_base_class",
	AddInterface:           "add_interface",
	ReplaceFieldType:       "replace_field_type",
	RenameField:            "rename_field",
	ChangeAccessibility:    "change_accessibility",
	ReplaceParameterType:   "replace_parameter_type",
	RenameParameter:        "rename_parameter",
}

// String returns the rule-file spelling of k.
func (k ActionKind) String() string {
	if s, ok := actionKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// actionKindAliases are older spellings still accepted in rule files.
var actionKindAliases = map[string]ActionKind{
	"replace_method_name": ReplaceInvocation,
}

// ParseActionKind maps a rule-file action type to an ActionKind.
func ParseActionKind(s string) ActionKind {
	s = strings.ToLower(strings.TrimSpace(s))
	if k, ok := actionKindAliases[s]; ok {
		return k
	}
	for k, name := range actionKindNames {
		if name == s {
			return k
		}
	}
	return ActionUnknown
}

// ActionNames returns every implemented action type.
func ActionNames() []string {
	out := make([]string, 0, len(actionKindNames))
	for k := RemoveInvocation; k <= RenameParameter; k++ {
		out = append(out, actionKindNames[k])
	}
	return out
}

// ParamShape constrains one position of a parameter list. Type is matched
// as a substring of the declared type, Name exactly.
type ParamShape struct {
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// TargetMatcher selects nodes of one kind. Empty fields are wildcards.
type TargetMatcher struct {
	// Type is the node type as written in the rule file.
	Type                string
	Kind                TargetKind
	Name                string
	ContainingType      string
	ContainingNamespace string
	Attributes          []string
	// Parameters is nil when arity is unconstrained. A non-nil empty slice
	// requires an empty parameter list.
	Parameters []ParamShape
}

// Action describes the transformation applied to matched nodes.
type Action struct {
	// Type is the action type as written in the rule file.
	Type            string
	Kind            ActionKind
	Strategy        string
	ReplacementName string
	ReplacementCode string
	ReplacementType string
	AttributeName   string
	ArgumentName    string
	Accessibility   string
}

// Rule pairs target matchers with one action.
type Rule struct {
	Name    string
	Targets []TargetMatcher
	Action  Action
}
