package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migrationYAML = `
migrations:
  - id: 'remove-custom-delegating-handler'
    package_name: 'Shared.Analyzer'
    description: 'Remove CustomDelegatingHandler() calls'
    version_conditions:
      - type: 'greater_than'
        version: '1.0.0'
    rules:
      - name: 'Remove CustomDelegatingHandler() calls'
        target_nodes:
          - type: 'InvocationExpression'
            method_name: 'CustomDelegatingHandler'
            containing_namespace: 'Shared.Analyzer.Extensions'
        action:
          type: 'remove_invocation'
          strategy: 'smart_chain_aware'
`

func TestParseMigrationYAML(t *testing.T) {
	set, err := Parse([]byte(migrationYAML), FormatYAML)
	require.NoError(t, err)
	require.Len(t, set.Migrations, 1)

	m := set.Migrations[0]
	assert.Equal(t, "remove-custom-delegating-handler", m.ID)
	assert.Equal(t, "Shared.Analyzer", m.PackageName)
	require.Len(t, m.Rules, 1)

	r := m.Rules[0]
	require.Len(t, r.Targets, 1)
	assert.Equal(t, Invocation, r.Targets[0].Kind)
	assert.Equal(t, "CustomDelegatingHandler", r.Targets[0].Name)
	assert.Equal(t, "Shared.Analyzer.Extensions", r.Targets[0].ContainingNamespace)
	assert.Nil(t, r.Targets[0].Parameters)
	assert.Equal(t, RemoveInvocation, r.Action.Kind)
	assert.Equal(t, "smart_chain_aware", r.Action.Strategy)

	assert.Len(t, set.All(), 1)
}

func TestParseFlatJSON(t *testing.T) {
	doc := `{
  "rules": [
    {
      "name": "rename-field",
      "targets": [{"type": "FieldDecl", "field_name": "_client", "attributes": ["Inject"]}],
      "action": {"type": "rename_field", "new_name": "_httpClient"}
    },
    {
      "name": "no-params",
      "targets": [{"type": "Method", "name": "Run", "parameters": []}],
      "action": {"type": "future_action"}
    }
  ]
}`
	set, err := Parse([]byte(doc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, set.Rules, 2)

	field := set.Rules[0]
	assert.Equal(t, FieldDecl, field.Targets[0].Kind)
	assert.Equal(t, "_client", field.Targets[0].Name)
	assert.Equal(t, []string{"Inject"}, field.Targets[0].Attributes)
	assert.Equal(t, RenameField, field.Action.Kind)
	assert.Equal(t, "_httpClient", field.Action.ReplacementName)

	method := set.Rules[1]
	assert.Equal(t, MethodDecl, method.Targets[0].Kind)
	assert.NotNil(t, method.Targets[0].Parameters)
	assert.Empty(t, method.Targets[0].Parameters)
	assert.Equal(t, ActionUnknown, method.Action.Kind)
	assert.Equal(t, "future_action", method.Action.Type)
}

func TestParseTOML(t *testing.T) {
	doc := `
[[rules]]
name = "modernize-signature"

[[rules.targets]]
type = "MethodDeclaration"
name = "Execute"

[[rules.targets.parameters]]
type = "string"
name = "input"

[rules.action]
type = "replace_method_signature"
replacement_code = "public Task<string> ExecuteAsync(string input, CancellationToken ct)"
`
	set, err := Parse([]byte(doc), FormatTOML)
	require.NoError(t, err)
	require.Len(t, set.Rules, 1)
	r := set.Rules[0]
	assert.Equal(t, []ParamShape{{Type: "string", Name: "input"}}, r.Targets[0].Parameters)
	assert.Equal(t, ReplaceMethodSignature, r.Action.Kind)
}

func TestParseSchemaViolation(t *testing.T) {
	doc := `
rules:
  - name: missing-action
    target_nodes:
      - type: InvocationExpression
`
	_, err := Parse([]byte(doc), FormatYAML)
	var se *SchemaError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.NotEmpty(t, se.Violations)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0644))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadSetsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migration-config.yml")
	require.NoError(t, os.WriteFile(path, []byte(migrationYAML), 0644))
	set, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, set.Source)
}

func TestMigrationApplies(t *testing.T) {
	tests := []struct {
		name      string
		condition VersionCondition
		from, to  string
		want      bool
	}{
		{"greater than crossing", VersionCondition{Type: "greater_than", Version: "2.0.0"}, "1.5.0", "2.1.0", true},
		{"greater than already past", VersionCondition{Type: "greater_than", Version: "2.0.0"}, "2.1.0", "2.2.0", false},
		{"greater than equal target", VersionCondition{Type: "greater_than", Version: "2.0.0"}, "1.0.0", "2.0.0", false},
		{"gte reaching", VersionCondition{Type: "greater_than_or_equal", Version: "2.0.0"}, "1.9.0", "2.0.0", true},
		{"gte from equal", VersionCondition{Type: "greater_than_or_equal", Version: "2.0.0"}, "2.0.0", "2.1.0", false},
		{"exact", VersionCondition{Type: "exact", Version: "3.0"}, "2.0.0", "3.0.0", true},
		{"range inside", VersionCondition{Type: "range", Version: "2.0.0", MaxVersion: "3.0.0"}, "1.0.0", "2.5.0", true},
		{"range above", VersionCondition{Type: "range", Version: "2.0.0", MaxVersion: "3.0.0"}, "1.0.0", "3.0.1", false},
		{"range open ended", VersionCondition{Type: "range", Version: "2.0.0"}, "1.0.0", "42.0.0", true},
		{"four part nuget version", VersionCondition{Type: "greater_than", Version: "6.5.0"}, "6.0.0.1", "7.0.0.2", true},
		{"prerelease below release", VersionCondition{Type: "greater_than_or_equal", Version: "8.0.0"}, "7.0.0", "8.0.0-rc.1", false},
		{"unknown condition", VersionCondition{Type: "newer", Version: "1.0.0"}, "1.0.0", "2.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Migration{ID: "m", VersionConditions: []VersionCondition{tt.condition}}
			got, err := m.Applies(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMigrationAppliesInvalidVersion(t *testing.T) {
	m := Migration{ID: "m", VersionConditions: []VersionCondition{{Type: "exact", Version: "1.0.0"}}}
	_, err := m.Applies("one", "2.0.0")
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	set := &RuleSet{
		Rules: []Rule{{Name: "always"}},
		Migrations: []Migration{
			{ID: "v2", PackageName: "Acme.Sdk", VersionConditions: []VersionCondition{{Type: "greater_than", Version: "1.0.0"}}, Rules: []Rule{{Name: "v2-rule"}}},
			{ID: "v5", PackageName: "Acme.Sdk", VersionConditions: []VersionCondition{{Type: "greater_than", Version: "5.0.0"}}, Rules: []Rule{{Name: "v5-rule"}}},
			{ID: "other", PackageName: "Other", VersionConditions: []VersionCondition{{Type: "greater_than", Version: "1.0.0"}}, Rules: []Rule{{Name: "other-rule"}}},
		},
	}

	got, err := set.Select("acme.sdk", "1.0.0", "2.0.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"always", "v2-rule"}, ruleNames(got))

	got, err = set.Select("", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"always", "v2-rule", "v5-rule", "other-rule"}, ruleNames(got))

	m, ok := set.ByID("v5")
	require.True(t, ok)
	assert.Equal(t, "Acme.Sdk", m.PackageName)
}

func TestValidateSuggestsActions(t *testing.T) {
	set := &RuleSet{Rules: []Rule{
		{
			Name:    "typo",
			Targets: []TargetMatcher{{Type: "InvocationExpresion", Kind: KindUnknown}},
			Action:  Action{Type: "remove_invokation", Kind: ActionUnknown},
		},
		{
			Name:    "missing-field",
			Targets: []TargetMatcher{{Kind: MethodDecl, Name: "Run"}},
			Action:  Action{Type: "rename_method", Kind: RenameMethod},
		},
		{
			Name:    "fine",
			Targets: []TargetMatcher{{Kind: Invocation, Name: "Run"}},
			Action:  Action{Type: "remove_invocation", Kind: RemoveInvocation},
		},
	}}

	issues := set.Validate()
	require.Len(t, issues, 3)
	assert.Contains(t, issues[0].Message, `did you mean "InvocationExpression"?`)
	assert.Contains(t, issues[1].Message, `did you mean "remove_invocation"?`)
	assert.Equal(t, "missing-field", issues[2].Rule)
	assert.Equal(t, SeverityWarning, issues[2].Severity)
}

func TestParseKinds(t *testing.T) {
	assert.Equal(t, Invocation, ParseTargetKind("invocation_expression"))
	assert.Equal(t, ParameterDecl, ParseTargetKind("Parameter"))
	assert.Equal(t, ClassDecl, ParseTargetKind("ClassDeclaration"))
	assert.Equal(t, KindUnknown, ParseTargetKind("PropertyDeclaration"))
	assert.Equal(t, "FieldDecl", FieldDecl.String())

	assert.Equal(t, ChangeAccessibility, ParseActionKind(" Change_Accessibility "))
	assert.Equal(t, "unknown", ActionUnknown.String())
	assert.Len(t, ActionNames(), 16)
}

func TestParseReplaceMethodNameAlias(t *testing.T) {
	doc := `
rules:
  - name: Rename OldMethod
    target_nodes:
      - type: InvocationExpression
        method_name: OldMethod
    action:
      type: replace_method_name
      new_name: NewMethod
`
	set, err := Parse([]byte(doc), FormatYAML)
	require.NoError(t, err)
	require.Len(t, set.Rules, 1)

	action := set.Rules[0].Action
	assert.Equal(t, ReplaceInvocation, action.Kind)
	assert.Equal(t, "NewMethod", action.ReplacementName)
	assert.Empty(t, set.Validate())
	assert.NotContains(t, ActionNames(), "replace_method_name")
}

func TestSearchTerms(t *testing.T) {
	terms, ok := SearchTerms([]Rule{
		{Targets: []TargetMatcher{{Kind: Invocation, Name: "AddX"}, {Kind: MethodDecl, Name: "Configure"}}},
		{Targets: []TargetMatcher{{Kind: Invocation, Name: "AddX"}}},
	})
	require.True(t, ok)
	assert.Equal(t, []string{"AddX", "Configure"}, terms)

	_, ok = SearchTerms([]Rule{{Targets: []TargetMatcher{{Kind: ClassDecl}}}})
	assert.False(t, ok)
}

func ruleNames(rs []Rule) []string {
	var out []string
	for _, r := range rs {
		out = append(out, r.Name)
	}
	return out
}
