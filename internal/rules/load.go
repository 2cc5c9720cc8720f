package rules

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
	"go.yaml.in/yaml/v3"
)

// ErrUnsupportedFormat is returned for rule files that are not YAML, JSON or TOML.
var ErrUnsupportedFormat = errors.New("unsupported rule file format")

//go:embed schema.json
var schemaJSON []byte

// Format is a rule file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// VersionCondition gates a migration on the package version change.
type VersionCondition struct {
	Type       string `json:"type"`
	Version    string `json:"version"`
	MaxVersion string `json:"max_version,omitempty"`
}

// Migration groups the rules for one package upgrade.
type Migration struct {
	ID                string
	PackageName       string
	Description       string
	VersionConditions []VersionCondition
	Rules             []Rule
}

// RuleSet is the content of one rule file. Rules listed at the top level
// always apply; migration rules apply when the migration is selected.
type RuleSet struct {
	Source     string
	Rules      []Rule
	Migrations []Migration
}

// All returns every rule in the set, top-level rules first.
func (s *RuleSet) All() []Rule {
	out := append([]Rule(nil), s.Rules...)
	for _, m := range s.Migrations {
		out = append(out, m.Rules...)
	}
	return out
}

// Load reads, schema-checks and decodes a rule file.
func Load(path string) (*RuleSet, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	set, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	set.Source = path
	return set, nil
}

// Parse decodes rule file content in the given format.
func Parse(data []byte, format Format) (*RuleSet, error) {
	var raw map[string]any
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", format, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("rule file is empty")
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	// Re-encode the generic document so one set of tags covers every format.
	canonical, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing rule file: %w", err)
	}
	var doc fileDoc
	if err := json.Unmarshal(canonical, &doc); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	return doc.ruleSet(), nil
}

// SchemaError lists the schema violations of a rule file.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "rule file does not match schema: " + strings.Join(e.Violations, "; ")
}

func validateSchema(doc map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}
	se := &SchemaError{}
	for _, verr := range result.Errors() {
		se.Violations = append(se.Violations, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}
	return se
}

type fileDoc struct {
	Rules      []ruleDoc      `json:"rules"`
	Migrations []migrationDoc `json:"migrations"`
}

type migrationDoc struct {
	ID                string             `json:"id"`
	PackageName       string             `json:"package_name"`
	Description       string             `json:"description"`
	VersionConditions []VersionCondition `json:"version_conditions"`
	Rules             []ruleDoc          `json:"rules"`
}

type ruleDoc struct {
	Name        string      `json:"name"`
	TargetNodes []targetDoc `json:"target_nodes"`
	Targets     []targetDoc `json:"targets"`
	Action      actionDoc   `json:"action"`
}

type targetDoc struct {
	Type                string       `json:"type"`
	Name                string       `json:"name"`
	MethodName          string       `json:"method_name"`
	ClassName           string       `json:"class_name"`
	FieldName           string       `json:"field_name"`
	ParameterName       string       `json:"parameter_name"`
	ContainingType      string       `json:"containing_type"`
	ContainingNamespace string       `json:"containing_namespace"`
	Attributes          []string     `json:"attributes"`
	Parameters          []ParamShape `json:"parameters"`
}

type actionDoc struct {
	Type              string `json:"type"`
	Strategy          string `json:"strategy"`
	ReplacementName   string `json:"replacement_name"`
	NewName           string `json:"new_name"`
	ReplacementMethod string `json:"replacement_method"`
	ReplacementCode   string `json:"replacement_code"`
	ReplacementType   string `json:"replacement_type"`
	AttributeName     string `json:"attribute_name"`
	ArgumentName      string `json:"argument_name"`
	Accessibility     string `json:"accessibility"`
}

func (d fileDoc) ruleSet() *RuleSet {
	set := &RuleSet{}
	for _, r := range d.Rules {
		set.Rules = append(set.Rules, r.rule())
	}
	for _, m := range d.Migrations {
		mig := Migration{
			ID:                m.ID,
			PackageName:       m.PackageName,
			Description:       m.Description,
			VersionConditions: m.VersionConditions,
		}
		for _, r := range m.Rules {
			mig.Rules = append(mig.Rules, r.rule())
		}
		set.Migrations = append(set.Migrations, mig)
	}
	return set
}

func (d ruleDoc) rule() Rule {
	r := Rule{Name: d.Name, Action: d.Action.action()}
	for _, t := range append(d.TargetNodes, d.Targets...) {
		r.Targets = append(r.Targets, t.matcher())
	}
	return r
}

func (d targetDoc) matcher() TargetMatcher {
	return TargetMatcher{
		Type:                d.Type,
		Kind:                ParseTargetKind(d.Type),
		Name:                firstNonEmpty(d.Name, d.MethodName, d.ClassName, d.FieldName, d.ParameterName),
		ContainingType:      d.ContainingType,
		ContainingNamespace: d.ContainingNamespace,
		Attributes:          d.Attributes,
		Parameters:          d.Parameters,
	}
}

func (d actionDoc) action() Action {
	return Action{
		Type:            d.Type,
		Kind:            ParseActionKind(d.Type),
		Strategy:        d.Strategy,
		ReplacementName: firstNonEmpty(d.ReplacementName, d.NewName, d.ReplacementMethod),
		ReplacementCode: d.ReplacementCode,
		ReplacementType: d.ReplacementType,
		AttributeName:   d.AttributeName,
		ArgumentName:    d.ArgumentName,
		Accessibility:   d.Accessibility,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
