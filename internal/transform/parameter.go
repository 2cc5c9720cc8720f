package transform

import "github.com/imyousuf/csmigrate/internal/syntax"

func replaceParameterType(s *step, param syntax.Node) (*syntax.Tree, error) {
	return replaceText(syntax.DeclaredType(param), s.action.ReplacementType)
}

// renameParameter renames a parameter and the references to it in the body
// of the member declaring it. Member names (`x.name`) and named arguments
// (`name: value`) are not references and keep their text.
func renameParameter(s *step, param syntax.Node) (*syntax.Tree, error) {
	t := param.Tree()
	id := syntax.DeclaredName(param)
	newName := s.action.ReplacementName
	if id.IsZero() || id.Text() == newName {
		return t, nil
	}
	edits := []syntax.Edit{syntax.Splice(id.Start(), id.End(), newName)}

	owner := param.Parent().Parent()
	var body syntax.Node
	switch {
	case containsKind(syntax.TypeDeclKinds, owner.Kind()):
		body = classBody(owner)
	default:
		body = syntax.Body(owner)
	}
	for _, ref := range body.Descendants(syntax.KindIdentifier) {
		if ref.Text() != id.Text() || isMemberName(ref) {
			continue
		}
		edits = append(edits, syntax.Splice(ref.Start(), ref.End(), newName))
	}
	return t.Apply(edits)
}
