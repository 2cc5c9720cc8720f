package transform

import (
	"strings"

	"github.com/imyousuf/csmigrate/internal/syntax"
)

// renameClass renames a class together with its constructors and finalizer.
func renameClass(s *step, class syntax.Node) (*syntax.Tree, error) {
	t := class.Tree()
	name := syntax.DeclaredName(class)
	newName := s.action.ReplacementName
	if name.IsZero() || name.Text() == newName {
		return t, nil
	}
	edits := []syntax.Edit{syntax.Splice(name.Start(), name.End(), newName)}
	for _, member := range classBody(class).ChildrenOfKind(syntax.KindConstructor, syntax.KindDestructor) {
		if id := syntax.DeclaredName(member); id.Text() == name.Text() {
			edits = append(edits, syntax.Splice(id.Start(), id.End(), newName))
		}
	}
	return t.Apply(edits)
}

// changeBaseClass replaces the first entry of the base list, where C# places
// the base class, or adds a base list.
func changeBaseClass(s *step, class syntax.Node) (*syntax.Tree, error) {
	bases := syntax.BaseList(class).NamedChildren()
	if len(bases) == 0 {
		return insertBaseList(class, s.action.ReplacementType)
	}
	return replaceText(bases[0], s.action.ReplacementType)
}

// addInterface appends a type to the base list unless it is already listed.
func addInterface(s *step, class syntax.Node) (*syntax.Tree, error) {
	t := class.Tree()
	list := syntax.BaseList(class)
	if list.IsZero() {
		return insertBaseList(class, s.action.ReplacementType)
	}
	want := compact(s.action.ReplacementType)
	for _, b := range list.NamedChildren() {
		if compact(b.Text()) == want {
			return t, nil
		}
	}
	return t.Apply([]syntax.Edit{syntax.Insert(list.End(), ", "+s.action.ReplacementType)})
}

// insertBaseList adds ` : typ` after the class name, type parameters and
// primary constructor parameters.
func insertBaseList(class syntax.Node, typ string) (*syntax.Tree, error) {
	t := class.Tree()
	at := syntax.DeclaredName(class)
	for _, c := range class.NamedChildren() {
		switch c.Kind() {
		case syntax.KindTypeParameterList, syntax.KindParameterList:
			if c.End() > at.End() {
				at = c
			}
		}
	}
	if at.IsZero() {
		return t, nil
	}
	return t.Apply([]syntax.Edit{syntax.Insert(at.End(), " : "+typ)})
}

func classBody(class syntax.Node) syntax.Node {
	if b := class.Field("body"); !b.IsZero() {
		return b
	}
	return class.FirstChildOfKind(syntax.KindDeclarationList)
}

// compact drops whitespace so "IMap<K, V>" and "IMap<K,V>" compare equal.
func compact(typ string) string {
	return strings.Join(strings.Fields(typ), "")
}
