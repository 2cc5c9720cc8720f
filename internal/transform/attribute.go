package transform

import (
	"strings"

	"github.com/imyousuf/csmigrate/internal/syntax"
)

// attributeBaseName returns the name part of an attribute written with
// arguments, e.g. "Obsolete" for `Obsolete("use V2")`.
func attributeBaseName(attr string) string {
	attr = strings.TrimSpace(strings.Trim(strings.TrimSpace(attr), "[]"))
	if i := strings.IndexByte(attr, '('); i >= 0 {
		attr = attr[:i]
	}
	return strings.TrimSpace(attr)
}

// addAttribute adds an attribute list unless an attribute whose name
// contains the requested name is already present. Declarations get the list
// on its own line; parameters get it inline.
func addAttribute(s *step, decl syntax.Node) (*syntax.Tree, error) {
	t := decl.Tree()
	attr := strings.Trim(strings.TrimSpace(s.action.AttributeName), "[]")
	base := attributeBaseName(attr)
	if base == "" {
		return t, nil
	}
	for _, name := range syntax.AttributeNames(decl) {
		if strings.Contains(name, base) {
			return t, nil
		}
	}

	text := "[" + attr + "]"
	if decl.Kind() == syntax.KindParameter {
		return t.Apply([]syntax.Edit{syntax.Insert(decl.Start(), text+" ")})
	}
	src := t.Bytes()
	text += syntax.LineBreak(src) + syntax.LineIndent(src, decl.Start())
	return t.Apply([]syntax.Edit{syntax.Insert(decl.Start(), text)})
}

// removeAttribute removes every attribute whose name contains the requested
// name. A list left empty is removed entirely, with its line when it stood
// alone.
func removeAttribute(s *step, decl syntax.Node) (*syntax.Tree, error) {
	t := decl.Tree()
	src := t.Bytes()
	base := attributeBaseName(s.action.AttributeName)
	if base == "" {
		return t, nil
	}

	var edits []syntax.Edit
	for _, list := range syntax.AttributeLists(decl) {
		attrs := list.ChildrenOfKind(syntax.KindAttribute)
		var kept []string
		for _, a := range attrs {
			if !strings.Contains(syntax.AttributeName(a), base) {
				kept = append(kept, a.Text())
			}
		}
		switch {
		case len(kept) == len(attrs):
		case len(kept) == 0:
			start, end := syntax.LineSpan(src, list.Start(), list.End())
			if start == list.Start() && end == list.End() {
				end = syntax.SkipBlank(src, end)
			}
			edits = append(edits, syntax.Delete(start, end))
		default:
			prefix := ""
			if spec := list.FirstChildOfKind("attribute_target_specifier"); !spec.IsZero() {
				prefix = spec.Text() + " "
			}
			edits = append(edits, syntax.Splice(list.Start(), list.End(), "["+prefix+strings.Join(kept, ", ")+"]"))
		}
	}
	return t.Apply(edits)
}
