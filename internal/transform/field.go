package transform

import (
	"strings"

	"github.com/imyousuf/csmigrate/internal/syntax"
)

func replaceFieldType(s *step, field syntax.Node) (*syntax.Tree, error) {
	return replaceText(syntax.DeclaredType(field), s.action.ReplacementType)
}

// renameField renames the declarator the target names, or every declarator
// of the declaration when the target has no name.
func renameField(s *step, field syntax.Node) (*syntax.Tree, error) {
	t := field.Tree()
	var edits []syntax.Edit
	for _, d := range syntax.Declarators(field) {
		id := syntax.DeclaredName(d)
		if id.IsZero() || id.Text() == s.action.ReplacementName {
			continue
		}
		if s.target.Name != "" && !strings.EqualFold(id.Text(), s.target.Name) {
			continue
		}
		edits = append(edits, syntax.Splice(id.Start(), id.End(), s.action.ReplacementName))
	}
	return t.Apply(edits)
}

var accessModifiers = map[string]bool{
	"public":    true,
	"private":   true,
	"protected": true,
	"internal":  true,
	"file":      true,
}

// changeAccessibility replaces the access modifiers of a declaration. Other
// modifiers such as static or readonly follow the new access modifiers in
// their original order. Words that are not access modifiers are dropped.
func changeAccessibility(s *step, decl syntax.Node) (*syntax.Tree, error) {
	t := decl.Tree()
	value := s.action.Accessibility
	if value == "" {
		value = s.action.ReplacementCode
	}
	var access []string
	for _, a := range strings.Fields(value) {
		if accessModifiers[a] {
			access = append(access, a)
		}
	}
	if len(access) == 0 {
		return t, nil
	}

	mods := syntax.Modifiers(decl)
	if len(mods) == 0 {
		at := firstNonAttribute(decl).Start()
		return t.Apply([]syntax.Edit{syntax.Insert(at, strings.Join(access, " ")+" ")})
	}

	words := append([]string(nil), access...)
	for _, m := range mods {
		if !accessModifiers[m.Text()] {
			words = append(words, m.Text())
		}
	}
	span := t.Bytes()[mods[0].Start():mods[len(mods)-1].End()]
	text := strings.Join(words, " ")
	if string(span) == text {
		return t, nil
	}
	return t.Apply([]syntax.Edit{syntax.Splice(mods[0].Start(), mods[len(mods)-1].End(), text)})
}

func firstNonAttribute(decl syntax.Node) syntax.Node {
	for _, c := range decl.NamedChildren() {
		if c.Kind() != syntax.KindAttributeList {
			return c
		}
	}
	return decl
}
